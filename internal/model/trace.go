package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trace is the event DAG produced by a single external request. Nodes
// and edges are held in flat arenas and addressed by index, so the
// graph never owns pointers into itself — this keeps the rejoin
// (multi-parent, never cyclic) shape Design Notes in SPEC_FULL.md call
// for without fighting Go's ownership model.
//
// A Trace is built once by a Reader and never mutated by the core
// except through Prune at ingestion.
type Trace struct {
	BaseID      uuid.UUID
	RequestType string
	Keys        []string

	Nodes []Event
	Edges []DAGEdge

	Start, End int

	out [][]int // out[n] = indices into Edges leaving node n
	in  [][]int // in[n] = indices into Edges entering node n
}

// NewTrace builds a Trace from a node arena and edge list, deriving
// adjacency indices. start and end must index into nodes.
func NewTrace(baseID uuid.UUID, requestType string, keys []string, nodes []Event, edges []DAGEdge, start, end int) *Trace {
	t := &Trace{
		BaseID:      baseID,
		RequestType: requestType,
		Keys:        keys,
		Nodes:       nodes,
		Edges:       edges,
		Start:       start,
		End:         end,
	}
	t.reindex()
	return t
}

func (t *Trace) reindex() {
	t.out = make([][]int, len(t.Nodes))
	t.in = make([][]int, len(t.Nodes))
	for ei, e := range t.Edges {
		t.out[e.From] = append(t.out[e.From], ei)
		t.in[e.To] = append(t.in[e.To], ei)
	}
}

// Successors returns the edges leading out of node n.
func (t *Trace) Successors(n int) []DAGEdge {
	edges := make([]DAGEdge, 0, len(t.out[n]))
	for _, ei := range t.out[n] {
		edges = append(edges, t.Edges[ei])
	}
	return edges
}

// Predecessors returns the edges leading into node n.
func (t *Trace) Predecessors(n int) []DAGEdge {
	edges := make([]DAGEdge, 0, len(t.in[n]))
	for _, ei := range t.in[n] {
		edges = append(edges, t.Edges[ei])
	}
	return edges
}

// InDegree returns the number of distinct predecessor edges of node n.
func (t *Trace) InDegree(n int) int { return len(t.in[n]) }

// OutDegree returns the number of distinct successor edges of node n.
func (t *Trace) OutDegree(n int) int { return len(t.out[n]) }

// Duration is End.Timestamp - Start.Timestamp.
func (t *Trace) Duration() time.Duration {
	return t.Nodes[t.End].Timestamp.Sub(t.Nodes[t.Start].Timestamp)
}

// Validate checks the structural invariants from SPEC_FULL.md §3: a
// single connected component, Start with no predecessors, End with no
// successors, and every node reachable from Start.
func (t *Trace) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("model: empty trace")
	}
	if len(t.in[t.Start]) != 0 {
		return fmt.Errorf("model: start_node has predecessors")
	}
	if len(t.out[t.End]) != 0 {
		return fmt.Errorf("model: end_node has successors")
	}
	seen := make([]bool, len(t.Nodes))
	stack := []int{t.Start}
	seen[t.Start] = true
	count := 1
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ei := range t.out[n] {
			to := t.Edges[ei].To
			if !seen[to] {
				seen[to] = true
				count++
				stack = append(stack, to)
			}
		}
	}
	if count != len(t.Nodes) {
		return fmt.Errorf("model: %d of %d nodes unreachable from start_node (disjoint trace)", len(t.Nodes)-count, len(t.Nodes))
	}
	return nil
}

// spanContribution reports, for a span rooted at entry node e (the
// matching exit is found by TraceID), the wall-clock interval it
// covers. Used by Prune to decide which spans fall below threshold.
func (t *Trace) spanContribution(entryIdx int) time.Duration {
	entry := t.Nodes[entryIdx]
	for i, n := range t.Nodes {
		if n.Variant == Exit && n.TraceID == entry.TraceID {
			return t.Nodes[i].Timestamp.Sub(entry.Timestamp)
		}
	}
	return 0
}

// Prune removes spans whose contribution is below threshold, the one
// mutation SPEC_FULL.md permits on an ingested Trace. It rebuilds the
// node/edge arenas and re-derives adjacency; Start/End are preserved by
// identity (they are never pruned candidates since higher-level spans
// always contain request boundaries).
func (t *Trace) Prune(threshold time.Duration) {
	drop := make(map[uuid.UUID]bool)
	for i, n := range t.Nodes {
		if n.Variant != Entry || i == t.Start {
			continue
		}
		if c := t.spanContribution(i); c > 0 && c < threshold {
			drop[n.TraceID] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	keep := make([]bool, len(t.Nodes))
	remap := make([]int, len(t.Nodes))
	newNodes := make([]Event, 0, len(t.Nodes))
	for i, n := range t.Nodes {
		if n.Variant != Annotation && drop[n.TraceID] && i != t.Start && i != t.End {
			remap[i] = -1
			continue
		}
		keep[i] = true
		remap[i] = len(newNodes)
		newNodes = append(newNodes, n)
	}

	newEdges := make([]DAGEdge, 0, len(t.Edges))
	for _, e := range t.Edges {
		if !keep[e.From] || !keep[e.To] {
			continue
		}
		newEdges = append(newEdges, DAGEdge{From: remap[e.From], To: remap[e.To], Duration: e.Duration, Variant: e.Variant})
	}

	t.Nodes = newNodes
	t.Edges = newEdges
	t.Start = remap[t.Start]
	t.End = remap[t.End]
	t.reindex()
}
