// Package reader implements decision.Reader against Redis, following
// the original implementation's redis_main entry point: application
// instrumentation pushes one serialized trace per completed request
// onto a list key, and Pythia drains it on every tick.
package reader

import (
	"context"
	"fmt"

	log "github.com/cihub/seelog"
	"github.com/redis/go-redis/v9"

	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/tracewire"
)

// maxDrainPerTick bounds how many queued traces one StableTraces call
// consumes, so a burst of arrivals can't stall the decision loop's
// jiffy-paced tick.
const maxDrainPerTick = 256

// RedisReader drains completed traces from a Redis list.
type RedisReader struct {
	client *redis.Client
	key    string
}

// NewRedisReader parses url (a redis:// or rediss:// URL) and returns a
// reader draining traces pushed onto key.
func NewRedisReader(url, key string) (*RedisReader, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("reader: parsing redis url: %w", err)
	}
	return &RedisReader{client: redis.NewClient(opts), key: key}, nil
}

// StableTraces pops up to maxDrainPerTick queued traces. A trace that
// fails to decode is logged here and skipped rather than
// aborting the whole batch, matching §7's MalformedTrace recovery.
func (r *RedisReader) StableTraces(ctx context.Context) ([]*model.Trace, error) {
	var out []*model.Trace
	for i := 0; i < maxDrainPerTick; i++ {
		data, err := r.client.LPop(ctx, r.key).Bytes()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return out, fmt.Errorf("reader: popping %s: %w", r.key, err)
		}
		t, err := tracewire.Unmarshal(data)
		if err != nil {
			log.Warnf("reader: skipping malformed trace: %v", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Close releases the underlying Redis connection pool.
func (r *RedisReader) Close() error { return r.client.Close() }
