package search

import (
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/searchspace"
)

// Historic is the §4.H "Historic" strategy: ignores the edge entirely
// and samples from every tracepoint previously observed for the
// group's request type.
type Historic struct{}

func (Historic) Search(g *grouping.Group, _ grouping.ProblemEdge, budget int, manifest *searchspace.Manifest, ctrl *controller.Controller) ([]model.TracepointID, State) {
	space := manifest.SearchSpaceFor(g.RequestType)

	seen := make(map[model.TracepointID]bool)
	var candidates []model.TracepointID
	for _, mr := range space.AllPaths() {
		for _, n := range mr.Path.Nodes {
			if !seen[n.TracepointID] {
				seen[n.TracepointID] = true
				candidates = append(candidates, n.TracepointID)
			}
		}
	}

	candidates = alreadyEnabledFilter(ctrl, g.RequestType, candidates)
	selected := sampleUpTo(candidates, budget)
	return selected, stateFor(selected, budget)
}
