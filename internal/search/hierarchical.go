package search

import (
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/searchspace"
)

// Hierarchical is the primary search strategy (§4.H).
type Hierarchical struct{}

func (Hierarchical) Search(g *grouping.Group, edge grouping.ProblemEdge, budget int, manifest *searchspace.Manifest, ctrl *controller.Controller) ([]model.TracepointID, State) {
	fromCtx := contextOf(g, edge.From)
	toCtx := contextOf(g, edge.To)
	common := commonContext(fromCtx, toCtx)

	space := manifest.SearchSpaceFor(g.RequestType)
	matches := space.FindMatches(groupPattern(g))

	seen := make(map[model.TracepointID]bool)
	var candidates []model.TracepointID
	for _, m := range matches {
		pos, ok := navigate(m.Path, common)
		if !ok {
			continue
		}
		for _, child := range m.Path.ChildNodes(pos) {
			tp := m.Path.Nodes[child].TracepointID
			if !seen[tp] {
				seen[tp] = true
				candidates = append(candidates, tp)
			}
		}
	}

	candidates = alreadyEnabledFilter(ctrl, g.RequestType, candidates)
	selected := sampleUpTo(candidates, budget)
	return selected, stateFor(selected, budget)
}

// navigate walks hp's Hierarchical edges from its root entry (position
// 0), matching each step of common against a child's tracepoint, and
// returns the position reached after consuming the whole prefix (§4.H
// step 2: "the root entry appears at position 0; the node reached at
// step i must have tracepoint_id = common_context[i]"). Returns false
// if the match's tree doesn't embed the common context at all.
func navigate(hp *critical.HierarchicalCriticalPath, common []model.TracepointID) (int, bool) {
	if len(hp.Nodes) == 0 {
		return 0, false
	}
	if len(common) == 0 || hp.Nodes[0].TracepointID != common[0] {
		return 0, len(common) == 0
	}
	pos := 0
	for i := 1; i < len(common); i++ {
		next := -1
		for _, child := range hp.ChildNodes(pos) {
			if hp.Nodes[child].TracepointID == common[i] {
				next = child
				break
			}
		}
		if next == -1 {
			return 0, false
		}
		pos = next
	}
	return pos, true
}
