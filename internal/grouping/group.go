// Package grouping implements structural equivalence classes of
// critical paths (§4.F) and their manager (§4.G), using
// gonum.org/v1/gonum/graph/simple for the group graph itself — the Go
// analogue of the Rust original's petgraph::StableGraph<GroupNode,
// GroupEdge>, and gonum.org/v1/gonum/stat for variance ranking.
package grouping

import (
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"

	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/model"
)

// groupNode is a gonum graph.Node wrapping a (TracepointID, EventType)
// pair, the GroupNode of §3.
type groupNode struct {
	id           int64
	tracepointID model.TracepointID
	variant      model.EventVariant
}

func (n groupNode) ID() int64 { return n.id }

// Edge is a group edge annotated with every observed duration sample
// for that step, the GroupEdge of §3.
type Edge struct {
	From, To  int64
	Durations []time.Duration
}

// Group is a structural equivalence class: every member CriticalPath
// has the same content hash. Edge duration samples accumulate across
// members in lock-step order.
type Group struct {
	g           *simple.DirectedGraph
	Hash        [32]byte
	RequestType string
	StartNode   int64

	order []int64           // node IDs in path order, for lock-step edge accumulation
	edges map[[2]int64]*Edge

	Traces []*critical.HierarchicalCriticalPath
	Used   bool
}

// NewGroup builds a Group from the first observed path with a given
// hash, copying its node sequence into the stable graph.
func NewGroup(p *critical.HierarchicalCriticalPath) *Group {
	g := &Group{
		g:           simple.NewDirectedGraph(),
		Hash:        p.Hash,
		RequestType: p.RequestType,
		edges:       make(map[[2]int64]*Edge),
	}
	for i, n := range p.Nodes {
		node := groupNode{id: int64(i), tracepointID: n.TracepointID, variant: n.Variant}
		g.g.AddNode(node)
		g.order = append(g.order, node.id)
	}
	g.StartNode = 0
	for i := 0; i+1 < len(p.Nodes); i++ {
		from, to := int64(i), int64(i+1)
		g.g.SetEdge(g.g.NewEdge(g.g.Node(from), g.g.Node(to)))
		g.edges[[2]int64{from, to}] = &Edge{From: from, To: to, Durations: []time.Duration{p.EdgeDuration(i)}}
	}
	g.Traces = append(g.Traces, p)
	return g
}

// Add appends a further observed path with the same hash: its per-edge
// durations accumulate onto the existing edges in lock-step order
// (§4.F).
func (grp *Group) Add(p *critical.HierarchicalCriticalPath) {
	for i := 0; i+1 < len(p.Nodes) && i+1 < len(grp.order); i++ {
		key := [2]int64{grp.order[i], grp.order[i+1]}
		if e, ok := grp.edges[key]; ok {
			e.Durations = append(e.Durations, p.EdgeDuration(i))
		}
	}
	grp.Traces = append(grp.Traces, p)
}

// ProblemEdge is a group edge with its computed population variance,
// the unit problem_edges() returns.
type ProblemEdge struct {
	From, To int64
	Variance float64
}

// ProblemEdges computes population variance over each edge's duration
// samples (seconds as float64) and returns them sorted descending
// (§4.F).
func (grp *Group) ProblemEdges() []ProblemEdge {
	out := make([]ProblemEdge, 0, len(grp.edges))
	for key, e := range grp.edges {
		samples := make([]float64, len(e.Durations))
		for i, d := range e.Durations {
			samples[i] = d.Seconds()
		}
		out = append(out, ProblemEdge{From: key[0], To: key[1], Variance: populationVariance(samples)})
	}
	sortProblemEdgesDescending(out)
	return out
}

// populationVariance computes Var(X) with a 1/n normalizer (population,
// not sample) since §4.F and §8 scenario S4 specify population variance
// over raw duration samples, not gonum's default Bessel-corrected
// sample variance.
func populationVariance(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	mean := stat.Mean(samples, nil)
	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	return sumSq / float64(len(samples))
}

func sortProblemEdgesDescending(edges []ProblemEdge) {
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edges[j-1].Variance < edges[j].Variance; j-- {
			edges[j-1], edges[j] = edges[j], edges[j-1]
		}
	}
}

// Variance is Var(trace.duration for trace in Traces), the Group-level
// statistic used to rank groups against each other.
func (grp *Group) Variance() float64 {
	samples := make([]float64, len(grp.Traces))
	for i, p := range grp.Traces {
		samples[i] = p.Duration().Seconds()
	}
	if len(samples) == 0 {
		return 0
	}
	return populationVariance(samples)
}

// Tracepoint looks up the tracepoint at a group node id.
func (grp *Group) Tracepoint(nodeID int64) model.TracepointID {
	return grp.g.Node(nodeID).(groupNode).tracepointID
}

// NodeCount reports how many nodes the group graph holds.
func (grp *Group) NodeCount() int { return grp.g.Nodes().Len() }

// Order returns the group's node IDs in path order.
func (grp *Group) Order() []int64 { return grp.order }

// Variant returns the event variant recorded for a group node.
func (grp *Group) Variant(nodeID int64) model.EventVariant {
	return grp.g.Node(nodeID).(groupNode).variant
}

// NodeSequence rebuilds the group's tracepoint sequence as synthetic
// model.Events (monotonic timestamps, zero trace_id), the shape search
// strategies need to test containment against a SearchSpace, which
// only compares tracepoint order (see critical.Contains).
func (grp *Group) NodeSequence() []model.Event {
	out := make([]model.Event, len(grp.order))
	for i, id := range grp.order {
		node := grp.g.Node(id).(groupNode)
		out[i] = model.Event{
			TracepointID: node.tracepointID,
			Variant:      node.variant,
			Timestamp:    time.Unix(0, int64(i)),
		}
	}
	return out
}
