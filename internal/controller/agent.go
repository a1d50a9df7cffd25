package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// NodeStats is the §6 wire schema an agent reports on read_node_stats.
type NodeStats struct {
	ReceiveBytesPerSec   uint64  `json:"receive_bytes_per_sec"`
	TransmitBytesPerSec  uint64  `json:"transmit_bytes_per_sec"`
	ReceiveDropsPerSec   uint64  `json:"receive_drops_per_sec"`
	TransmitDropsPerSec  uint64  `json:"transmit_drops_per_sec"`
	LoadAvg1Min          float32 `json:"load_avg_1_min"`
	LoadAvg5Min          float32 `json:"load_avg_5_min"`
	RunnableTasks        uint32  `json:"runnable_tasks"`
	TraceInputKbps       float32 `json:"trace_input_kbps"`
	AgentCPUFraction     float64 `json:"agent_cpu_fraction"`
	MostRecentTraceBytes uint32  `json:"most_recent_trace_bytes"`
}

// AnnotationKind distinguishes the Annotation sub-variants on the wire
// (§6: untagged union {WaitFor, Child, Plain, Log}).
type AnnotationKind string

const (
	AnnotationWaitFor AnnotationKind = "WaitFor"
	AnnotationChild   AnnotationKind = "Child"
	AnnotationPlain   AnnotationKind = "Plain"
	AnnotationLog     AnnotationKind = "Log"
)

// ExitKind distinguishes Exit{Normal|Error}.
type ExitKind string

const (
	ExitNormal ExitKind = "Normal"
	ExitError  ExitKind = "Error"
)

// OSProfilerSpan is the §6 wire shape of one event as reported by an
// agent's get_events call. Info holds the untagged-union payload; its
// interpretation depends on Variant.
type OSProfilerSpan struct {
	TraceID      string          `json:"trace_id"`
	ParentID     string          `json:"parent_id"`
	Project      string          `json:"project"`
	Name         string          `json:"name"`
	BaseID       string          `json:"base_id"`
	Service      string          `json:"service"`
	TracepointID string          `json:"tracepoint_id"`
	Timestamp    string          `json:"timestamp"` // "%Y-%m-%dT%H:%M:%S%.6f"
	Variant      string          `json:"variant"`
	Info         json.RawMessage `json:"info"`
}

// TimestampLayout is the Go time layout matching §6's
// "%Y-%m-%dT%H:%M:%S%.6f" wire format.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// GetEvents fetches every event an agent holds for trace_id. Returns an
// empty slice, not an error, when the agent has never seen the id
// (§6: "returns empty list when unknown").
func (c *Controller) GetEvents(ctx context.Context, agent, traceID string) ([]OSProfilerSpan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agent+"/get_events?trace_id="+traceID, nil)
	if err != nil {
		return nil, &AgentUnavailableError{Agent: agent, Cause: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &AgentUnavailableError{Agent: agent, Cause: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AgentUnavailableError{Agent: agent, Cause: err}
	}
	var spans []OSProfilerSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, &AgentUnavailableError{Agent: agent, Cause: fmt.Errorf("decoding get_events response: %w", err)}
	}
	return spans, nil
}

// ReadNodeStats polls one agent's read_node_stats RPC.
func (c *Controller) ReadNodeStats(ctx context.Context, agent string) (NodeStats, error) {
	var stats NodeStats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agent+"/read_node_stats", nil)
	if err != nil {
		return stats, &AgentUnavailableError{Agent: agent, Cause: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return stats, &AgentUnavailableError{Agent: agent, Cause: err}
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, &AgentUnavailableError{Agent: agent, Cause: fmt.Errorf("decoding read_node_stats response: %w", err)}
	}
	return stats, nil
}

// FreeKeys releases keys an osprofiler-style reader no longer needs
// from an agent's key-value store.
func (c *Controller) FreeKeys(ctx context.Context, agent string, keys []string) error {
	body, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("controller: marshaling keys: %w", err)
	}
	return c.postWithRetry(ctx, agent, "/free_keys", body)
}

// GetKey fetches a value from an agent's osprofiler-style key-value
// store (§1: "OpenStack osprofiler via a key-value store").
func (c *Controller) GetKey(ctx context.Context, agent, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agent+"/get_key?key="+key, nil)
	if err != nil {
		return "", &AgentUnavailableError{Agent: agent, Cause: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &AgentUnavailableError{Agent: agent, Cause: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AgentUnavailableError{Agent: agent, Cause: err}
	}
	return string(data), nil
}

// SetKey writes a value into an agent's key-value store, retried like
// every other mutating RPC.
func (c *Controller) SetKey(ctx context.Context, agent, key, value string) error {
	body, err := json.Marshal(map[string]string{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("controller: marshaling key-value pair: %w", err)
	}
	return c.postWithRetry(ctx, agent, "/set_key", body)
}

// Agents returns the configured agent base URLs.
func (c *Controller) Agents() []string { return c.agents }
