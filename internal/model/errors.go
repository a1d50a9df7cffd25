package model

import "fmt"

// MalformedTraceError describes a Trace that failed to deserialize or
// validate (bad UUID, missing fields). Recovery: skip the trace, log.
// tracewire decoding and Trace.Validate report such failures as plain
// wrapped errors, not as this type.
type MalformedTraceError struct {
	Reason string
	Cause  error
}

func (e *MalformedTraceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed trace: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed trace: %s", e.Reason)
}

func (e *MalformedTraceError) Unwrap() error { return e.Cause }

// DisjointTraceError is returned by the critical-path walk when a node
// has no predecessor before reaching the trace's start node. Recovery:
// skip the path, count it toward the trace's retry budget.
type DisjointTraceError struct {
	Node int
}

func (e *DisjointTraceError) Error() string {
	return fmt.Sprintf("disjoint trace: node %d has no predecessor", e.Node)
}

// IncompleteSpanError is returned when an Exit has no matching open
// Entry on the path being filtered. Recovery: skip the path.
type IncompleteSpanError struct {
	TraceID string
}

func (e *IncompleteSpanError) Error() string {
	return fmt.Sprintf("incomplete span: exit with no open entry for trace_id %s", e.TraceID)
}
