package search

import (
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/searchspace"
)

// Flat is the §4.H "Flat" strategy: spread picks evenly across the
// span between an edge's two endpoints in each matching manifest path.
type Flat struct{}

func (Flat) Search(g *grouping.Group, edge grouping.ProblemEdge, budget int, manifest *searchspace.Manifest, ctrl *controller.Controller) ([]model.TracepointID, State) {
	fromTP := g.Tracepoint(edge.From)
	toTP := g.Tracepoint(edge.To)

	space := manifest.SearchSpaceFor(g.RequestType)
	matches := space.FindMatches(groupPattern(g))

	var candidates []model.TracepointID
	for _, m := range matches {
		candidates = append(candidates, flatPick(m.Path, fromTP, toTP, budget)...)
	}

	candidates = alreadyEnabledFilter(ctrl, g.RequestType, candidates)
	selected := sampleUpTo(dedupe(candidates), budget)
	return selected, stateFor(selected, budget)
}

// flatPick locates the positions of fromTP/toTP in hp (in
// HappensBefore order), counts the k nodes strictly between them, and
// picks up to budget tracepoints: evenly spaced (gap = k/(budget+1))
// when k > budget, consecutive otherwise. Already-enabled skipping
// happens one level up in alreadyEnabledFilter; every computed position
// here lies strictly between the two endpoints, so neither endpoint is
// picked.
func flatPick(hp *critical.HierarchicalCriticalPath, fromTP, toTP model.TracepointID, budget int) []model.TracepointID {
	fromPos := indexOf(hp, fromTP, 0)
	if fromPos == -1 {
		return nil
	}
	toPos := indexOf(hp, toTP, fromPos+1)
	if toPos == -1 || toPos <= fromPos+1 {
		return nil
	}

	k := toPos - fromPos - 1
	var picks []model.TracepointID
	if k <= budget {
		for i := fromPos + 1; i < toPos; i++ {
			picks = append(picks, hp.Nodes[i].TracepointID)
		}
		return picks
	}

	gap := k / (budget + 1)
	if gap < 1 {
		gap = 1
	}
	pos := fromPos + gap
	for len(picks) < budget && pos < toPos {
		if pos == toPos {
			pos -= 2
			if pos <= fromPos {
				break
			}
		}
		picks = append(picks, hp.Nodes[pos].TracepointID)
		pos += gap
	}
	return picks
}

func indexOf(hp *critical.HierarchicalCriticalPath, tp model.TracepointID, from int) int {
	for i := from; i < len(hp.Nodes); i++ {
		if hp.Nodes[i].TracepointID == tp {
			return i
		}
	}
	return -1
}

func dedupe(in []model.TracepointID) []model.TracepointID {
	seen := make(map[model.TracepointID]bool)
	out := make([]model.TracepointID, 0, len(in))
	for _, tp := range in {
		if !seen[tp] {
			seen[tp] = true
			out = append(out, tp)
		}
	}
	return out
}
