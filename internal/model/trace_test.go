package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// evt builds an Event at offset nanoseconds from epoch, for a given
// tracepoint name and span trace_id.
func evt(tp string, traceID uuid.UUID, variant EventVariant, offsetNanos int64) Event {
	return Event{
		TraceID:      traceID,
		TracepointID: Intern(tp),
		Timestamp:    time.Unix(0, offsetNanos),
		Variant:      variant,
	}
}

func TestTraceValidate(t *testing.T) {
	assert := assert.New(t)
	span := uuid.New()

	// 0  10
	// |==|
	// <-1->
	nodes := []Event{
		evt("a", span, Entry, 0),
		evt("a", span, Exit, 10),
	}
	edges := []DAGEdge{{From: 0, To: 1, Duration: 10 * time.Nanosecond, Variant: ChildOf}}
	tr := NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 1)

	assert.NoError(tr.Validate())
	assert.Equal(10*time.Nanosecond, tr.Duration())
}

func TestTraceValidateDisjoint(t *testing.T) {
	assert := assert.New(t)
	span := uuid.New()

	nodes := []Event{
		evt("a", span, Entry, 0),
		evt("b", span, Entry, 5), // unreachable from node 0
		evt("a", span, Exit, 10),
	}
	// no edge touches node 1: it is disconnected from start_node
	edges := []DAGEdge{{From: 0, To: 2, Duration: 10 * time.Nanosecond, Variant: ChildOf}}
	tr := NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 2)

	err := tr.Validate()
	assert.Error(err)
}

func TestTracePrune(t *testing.T) {
	assert := assert.New(t)
	root := uuid.New()
	tiny := uuid.New()

	// root span 0-100ns contains a 1ns sub-span that should be pruned
	// under a 5ns threshold.
	nodes := []Event{
		evt("root", root, Entry, 0),
		evt("tiny", tiny, Entry, 10),
		evt("tiny", tiny, Exit, 11),
		evt("root", root, Exit, 100),
	}
	edges := []DAGEdge{
		{From: 0, To: 1, Duration: 10 * time.Nanosecond, Variant: ChildOf},
		{From: 1, To: 2, Duration: time.Nanosecond, Variant: ChildOf},
		{From: 2, To: 3, Duration: 89 * time.Nanosecond, Variant: ChildOf},
	}
	tr := NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 3)

	tr.Prune(5 * time.Nanosecond)

	assert.Len(tr.Nodes, 2)
	assert.Equal("root", tr.Nodes[tr.Start].TracepointID.String())
	assert.Equal("root", tr.Nodes[tr.End].TracepointID.String())
}

func TestInternStable(t *testing.T) {
	assert := assert.New(t)
	a := Intern("wsgi.handler")
	b := Intern("wsgi.handler")
	c := Intern("wsgi.other")
	assert.Equal(a, b)
	assert.NotEqual(a, c)
	assert.Equal("wsgi.handler", a.String())
}
