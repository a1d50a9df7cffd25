// Package tracewire is the JSON wire representation of a model.Trace,
// shared by the CLI's file-based inspection commands and the Redis
// reader (§1 puts persisted/wire trace formats outside the core, but
// both collaborators need the same concrete shape).
package tracewire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docc-lab/pythia/internal/model"
)

type Trace struct {
	BaseID      string  `json:"base_id"`
	RequestType string  `json:"request_type"`
	Keys        []string `json:"keys,omitempty"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Nodes       []Node  `json:"nodes"`
	Edges       []Edge  `json:"edges"`
}

type Node struct {
	TraceID        string `json:"trace_id"`
	Tracepoint     string `json:"tracepoint_id"`
	TimestampNanos int64  `json:"timestamp_nanos"`
	Variant        string `json:"variant"`
	IsSynthetic    bool   `json:"is_synthetic,omitempty"`
}

type Edge struct {
	From          int    `json:"from"`
	To            int    `json:"to"`
	DurationNanos int64  `json:"duration_nanos"`
	Variant       string `json:"variant"`
}

func variantToString(v model.EventVariant) string { return v.String() }

func variantFromString(s string) model.EventVariant {
	switch s {
	case "entry":
		return model.Entry
	case "exit":
		return model.Exit
	default:
		return model.Annotation
	}
}

func edgeVariantToString(v model.EdgeVariant) string {
	if v == model.FollowsFrom {
		return "follows_from"
	}
	return "child_of"
}

func edgeVariantFromString(s string) model.EdgeVariant {
	if s == "follows_from" {
		return model.FollowsFrom
	}
	return model.ChildOf
}

// FromTrace converts a model.Trace into its wire form.
func FromTrace(t *model.Trace) Trace {
	w := Trace{
		BaseID:      t.BaseID.String(),
		RequestType: t.RequestType,
		Keys:        t.Keys,
		Start:       t.Start,
		End:         t.End,
	}
	for _, n := range t.Nodes {
		w.Nodes = append(w.Nodes, Node{
			TraceID:        n.TraceID.String(),
			Tracepoint:     n.TracepointID.String(),
			TimestampNanos: n.Timestamp.UnixNano(),
			Variant:        variantToString(n.Variant),
			IsSynthetic:    n.IsSynthetic,
		})
	}
	for _, e := range t.Edges {
		w.Edges = append(w.Edges, Edge{
			From:          e.From,
			To:            e.To,
			DurationNanos: int64(e.Duration),
			Variant:       edgeVariantToString(e.Variant),
		})
	}
	return w
}

// ToTrace parses a wire Trace back into a model.Trace, re-interning
// tracepoint strings into this process's TracepointID space.
func ToTrace(w Trace) (*model.Trace, error) {
	baseID, err := uuid.Parse(w.BaseID)
	if err != nil {
		return nil, fmt.Errorf("tracewire: parsing base_id %q: %w", w.BaseID, err)
	}
	nodes := make([]model.Event, len(w.Nodes))
	for i, n := range w.Nodes {
		traceID, err := uuid.Parse(n.TraceID)
		if err != nil {
			return nil, fmt.Errorf("tracewire: parsing trace_id %q: %w", n.TraceID, err)
		}
		nodes[i] = model.Event{
			TraceID:      traceID,
			TracepointID: model.Intern(n.Tracepoint),
			Timestamp:    time.Unix(0, n.TimestampNanos),
			Variant:      variantFromString(n.Variant),
			IsSynthetic:  n.IsSynthetic,
		}
	}
	edges := make([]model.DAGEdge, len(w.Edges))
	for i, e := range w.Edges {
		edges[i] = model.DAGEdge{
			From:     e.From,
			To:       e.To,
			Duration: time.Duration(e.DurationNanos),
			Variant:  edgeVariantFromString(e.Variant),
		}
	}
	return model.NewTrace(baseID, w.RequestType, w.Keys, nodes, edges, w.Start, w.End), nil
}

// Marshal/Unmarshal are the JSON encode/decode convenience wrappers
// both the CLI and the Redis reader use for a single trace blob.
func Marshal(t *model.Trace) ([]byte, error) {
	return json.Marshal(FromTrace(t))
}

func Unmarshal(data []byte) (*model.Trace, error) {
	var w Trace
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("tracewire: decoding: %w", err)
	}
	return ToTrace(w)
}
