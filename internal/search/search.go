// Package search implements the three tracepoint-proposal strategies
// of §4.H: Flat, Hierarchical and Historic. All three share the
// capability interface Strategy, selected once at startup from config
// per Design Notes in SPEC_FULL.md ("no runtime switching").
package search

import (
	"math/rand"

	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/searchspace"
)

// State is the search(...) return state: whether the budget has run
// out or the caller should move on to the next problem edge.
type State int

const (
	NextEdge State = iota
	DepletedBudget
)

// Strategy is the common contract every search strategy implements.
type Strategy interface {
	Search(group *grouping.Group, edge grouping.ProblemEdge, budget int, manifest *searchspace.Manifest, ctrl *controller.Controller) ([]model.TracepointID, State)
}

// alreadyEnabledFilter drops every tracepoint the Controller reports as
// enabled for the group's request type, the contract every strategy
// must honor (§4.H, §8 property 5).
func alreadyEnabledFilter(ctrl *controller.Controller, requestType string, candidates []model.TracepointID) []model.TracepointID {
	out := make([]model.TracepointID, 0, len(candidates))
	for _, tp := range candidates {
		if ctrl != nil && ctrl.IsEnabled(tp, &requestType) {
			continue
		}
		out = append(out, tp)
	}
	return out
}

func groupPattern(g *grouping.Group) *critical.HierarchicalCriticalPath {
	cp := &critical.CriticalPath{RequestType: g.RequestType}
	cp.Nodes = g.NodeSequence()
	return critical.BuildHierarchical(cp)
}

// contextOf computes the prefix of open Entry tracepoints on the way
// to position endpoint: Annotations are inert, Exit pops, Entry pushes,
// stopping once endpoint itself is reached (§4.H step 1).
func contextOf(g *grouping.Group, endpoint int64) []model.TracepointID {
	var stack []model.TracepointID
	for _, id := range g.Order() {
		if id == endpoint {
			break
		}
		switch g.Variant(id) {
		case model.Entry:
			stack = append(stack, g.Tracepoint(id))
		case model.Exit:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// commonContext returns the longest common prefix of two contexts.
func commonContext(a, b []model.TracepointID) []model.TracepointID {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var out []model.TracepointID
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			break
		}
		out = append(out, a[i])
	}
	return out
}

func sampleUpTo(candidates []model.TracepointID, budget int) []model.TracepointID {
	if len(candidates) <= budget {
		return candidates
	}
	shuffled := append([]model.TracepointID(nil), candidates...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:budget]
}

func stateFor(selected []model.TracepointID, budget int) State {
	if len(selected) >= budget {
		return DepletedBudget
	}
	return NextEdge
}
