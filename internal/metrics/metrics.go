// Package metrics wraps a statsd client for the decision loop, budget
// manager and controller, mirroring the teacher's statsd.Client.Gauge /
// Count call style in writer/trace_writer.go and cmd/trace-agent/agent.go.
package metrics

import (
	"github.com/DataDog/datadog-go/v5/statsd"
)

// Client is the process-wide statsd handle. A nil Client is valid and
// every method becomes a no-op, so tests and one-off CLI subcommands
// don't need to stand up a statsd listener.
type Client struct {
	c *statsd.Client
}

// New dials a statsd client at addr (host:port, typically the local
// dogstatsd agent) tagged with the application name.
func New(addr, application string) (*Client, error) {
	if addr == "" {
		return &Client{}, nil
	}
	c, err := statsd.New(addr, statsd.WithTags([]string{"application:" + application}))
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

func (m *Client) Gauge(name string, value float64, tags []string) {
	if m == nil || m.c == nil {
		return
	}
	_ = m.c.Gauge(name, value, tags, 1)
}

func (m *Client) Count(name string, value int64, tags []string) {
	if m == nil || m.c == nil {
		return
	}
	_ = m.c.Count(name, value, tags, 1)
}

func (m *Client) Close() error {
	if m == nil || m.c == nil {
		return nil
	}
	return m.c.Close()
}
