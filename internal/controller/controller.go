// Package controller applies enable/disable decisions to the external
// agent fleet and tracks which (tracepoint, request_type) pairs are
// currently enabled (§4.K). It talks JSON-over-HTTP to each agent,
// following the teacher's sender/writer split in writer/trace_writer.go
// — one thin RPC client, retried with bounded jittered backoff rather
// than failing the whole decision epoch (SPEC_FULL.md §12.4, grounded
// on rpclib.rs in original_source/).
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	log "github.com/cihub/seelog"

	"github.com/docc-lab/pythia/internal/model"
)

// maxRetries bounds per-call retries at 2, per §7's error-kind table.
const maxRetries = 2

// enableByte/disableByte are the wire bytes from §6's set_tracepoints
// RPC.
const (
	disableByte byte = 0x30
	enableByte  byte = 0x31
)

// Key identifies one controllable tracepoint: a tracepoint id paired
// with an optional request type. A nil RequestType is the "global"
// enable that §4.K says is additive with request-type-specific ones.
type Key struct {
	Tracepoint  model.TracepointID
	RequestType *string
}

func (k Key) normalized() Key {
	if k.RequestType != nil {
		rt := *k.RequestType
		return Key{Tracepoint: k.Tracepoint, RequestType: &rt}
	}
	return k
}

// Controller tracks the enabled set and sends state changes to the
// agent fleet. mu guards only the enabled set: it is released before
// the agent RPCs go out, so RPCs from concurrent callers are not
// serialized against each other.
type Controller struct {
	mu      sync.Mutex
	enabled map[model.TracepointID]map[string]bool // "" key means global
	agents  []string
	client  *http.Client
}

// New returns a Controller for the given agent base URLs.
func New(agents []string) *Controller {
	return &Controller{
		enabled: make(map[model.TracepointID]map[string]bool),
		agents:  agents,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func rtKey(rt *string) string {
	if rt == nil {
		return ""
	}
	return *rt
}

// IsEnabled reports whether (tp, rt) is enabled directly or via a
// global enable of tp (§4.K invariant).
func (c *Controller) IsEnabled(tp model.TracepointID, rt *string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rts, ok := c.enabled[tp]
	if !ok {
		return false
	}
	if rts[""] {
		return true
	}
	return rts[rtKey(rt)]
}

// Enable marks every key enabled locally, then pushes the change to
// every agent.
func (c *Controller) Enable(ctx context.Context, keys []Key) error {
	c.mu.Lock()
	for _, k := range keys {
		if c.enabled[k.Tracepoint] == nil {
			c.enabled[k.Tracepoint] = make(map[string]bool)
		}
		c.enabled[k.Tracepoint][rtKey(k.RequestType)] = true
	}
	c.mu.Unlock()
	return c.broadcastSetTracepoints(ctx, keys, enableByte)
}

// Disable mirrors Enable in the opposite direction.
func (c *Controller) Disable(ctx context.Context, keys []Key) error {
	c.mu.Lock()
	for _, k := range keys {
		if rts, ok := c.enabled[k.Tracepoint]; ok {
			delete(rts, rtKey(k.RequestType))
		}
	}
	c.mu.Unlock()
	return c.broadcastSetTracepoints(ctx, keys, disableByte)
}

// EnableAll and DisableAll issue set_all_tracepoints to every agent;
// the local enabled set isn't individually tracked for this form since
// it affects tracepoints the controller has never seen named.
func (c *Controller) EnableAll(ctx context.Context) error {
	return c.broadcastSetAll(ctx, enableByte)
}

func (c *Controller) DisableAll(ctx context.Context) error {
	c.mu.Lock()
	c.enabled = make(map[model.TracepointID]map[string]bool)
	c.mu.Unlock()
	return c.broadcastSetAll(ctx, disableByte)
}

// EnabledTracepoints returns every (tracepoint, request_type) pair
// currently marked enabled.
func (c *Controller) EnabledTracepoints() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Key
	for tp, rts := range c.enabled {
		for rt, on := range rts {
			if !on {
				continue
			}
			if rt == "" {
				out = append(out, Key{Tracepoint: tp})
				continue
			}
			rtCopy := rt
			out = append(out, Key{Tracepoint: tp, RequestType: &rtCopy})
		}
	}
	return out
}

type tracepointSetting struct {
	TracepointID string  `json:"tracepoint_id"`
	RequestType  *string `json:"request_type,omitempty"`
	Value        byte    `json:"value"`
}

func (c *Controller) broadcastSetTracepoints(ctx context.Context, keys []Key, value byte) error {
	settings := make([]tracepointSetting, 0, len(keys))
	for _, k := range keys {
		settings = append(settings, tracepointSetting{
			TracepointID: k.Tracepoint.String(),
			RequestType:  k.RequestType,
			Value:        value,
		})
	}
	body, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("controller: marshaling settings: %w", err)
	}
	return c.broadcast(ctx, "/set_tracepoints", body)
}

func (c *Controller) broadcastSetAll(ctx context.Context, value byte) error {
	return c.broadcast(ctx, "/set_all_tracepoints", []byte{value})
}

// broadcast issues a request to every agent concurrently; each
// per-agent request is synchronous and independently retried, matching
// the concurrency model in §5 ("may issue concurrently to different
// agents but each per-agent request is synchronous").
func (c *Controller) broadcast(ctx context.Context, path string, body []byte) error {
	var wg sync.WaitGroup
	errs := make([]error, len(c.agents))
	for i, agent := range c.agents {
		wg.Add(1)
		go func(i int, agent string) {
			defer wg.Done()
			errs[i] = c.postWithRetry(ctx, agent, path, body)
		}(i, agent)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			log.Warnf("controller: %v", err)
		}
	}
	return nil // a single agent's failure never fails the epoch (§7)
}

// postWithRetry issues one POST, retrying up to maxRetries times with
// jittered backoff shaped after rpclib.rs's retry loop.
func (c *Controller) postWithRetry(ctx context.Context, agent, path string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			jitter := time.Duration(rand.Int63n(int64(50 * time.Millisecond)))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return &AgentUnavailableError{Agent: agent, Cause: ctx.Err()}
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent+path, bytes.NewReader(body))
		if err != nil {
			return &AgentUnavailableError{Agent: agent, Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("agent returned status %d", resp.StatusCode)
			continue
		}
		return nil
	}
	return &AgentUnavailableError{Agent: agent, Cause: lastErr}
}
