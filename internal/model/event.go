package model

import (
	"time"

	"github.com/google/uuid"
)

// EventVariant distinguishes the three kinds of events a tracepoint can
// emit.
type EventVariant uint8

const (
	// Entry marks the start of a span.
	Entry EventVariant = iota
	// Exit marks the end of a span. An Entry is matched by at most one
	// Exit sharing the same TraceID.
	Exit
	// Annotation is a point-in-time event inside a span, with no
	// matching counterpart.
	Annotation
)

func (v EventVariant) String() string {
	switch v {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	case Annotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// Event is a single point observed by a tracepoint. TraceID pairs an
// Entry with its matching Exit; it is unrelated to Trace.BaseID, which
// identifies the whole request.
type Event struct {
	TraceID      uuid.UUID
	TracepointID TracepointID
	Timestamp    time.Time
	Variant      EventVariant
	IsSynthetic  bool
}

// EdgeVariant distinguishes causal (ChildOf) from asynchronous
// (FollowsFrom) happens-before edges, following the OpenTracing
// reference relations the teacher's trace model is built around.
type EdgeVariant uint8

const (
	// ChildOf is a synchronous parent/child relation: the parent waits
	// on the child.
	ChildOf EdgeVariant = iota
	// FollowsFrom is a causal but non-blocking relation.
	FollowsFrom
)

// DAGEdge is a directed edge between two nodes of a Trace, addressed by
// arena index rather than pointer (see Design Notes in SPEC_FULL.md on
// generation-indexed arenas).
type DAGEdge struct {
	From, To int
	Duration time.Duration
	Variant  EdgeVariant
}
