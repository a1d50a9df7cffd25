// Package searchspace implements the hierarchical search space (§4.E):
// a subsumption-minimal library of previously observed critical paths,
// and the Manifest that persists one per request type.
package searchspace

import (
	"sort"

	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/model"
)

// storedPath is a HierarchicalCriticalPath plus its content hash, the
// unit SearchSpace stores keyed by that hash; occurrence counts live in
// SearchSpace.occurrences.
type storedPath struct {
	path *critical.HierarchicalCriticalPath
	hash [32]byte
}

// SearchSpace is a set of hierarchical paths deduplicated by
// subsumption, with occurrence counts and the entry/synchronization
// tracepoint sets search strategies consult.
type SearchSpace struct {
	paths       map[[32]byte]storedPath
	occurrences map[[32]byte]int

	// byLen indexes path hashes by node count, the length-indexed
	// secondary structure Design Notes in SPEC_FULL.md call for to keep
	// the `len(p) < len(candidate)` prefilter cheap.
	byLen map[int][][32]byte

	EntryPoints           map[model.TracepointID]bool
	SynchronizationPoints map[model.TracepointID]bool
}

// New returns an empty SearchSpace.
func New() *SearchSpace {
	return &SearchSpace{
		paths:                 make(map[[32]byte]storedPath),
		occurrences:           make(map[[32]byte]int),
		byLen:                 make(map[int][][32]byte),
		EntryPoints:           make(map[model.TracepointID]bool),
		SynchronizationPoints: make(map[model.TracepointID]bool),
	}
}

func (s *SearchSpace) insert(hp *critical.HierarchicalCriticalPath, occurrences int) {
	h := hp.Hash
	s.paths[h] = storedPath{path: hp, hash: h}
	s.occurrences[h] = occurrences
	s.byLen[hp.Len()] = append(s.byLen[hp.Len()], h)
}

func (s *SearchSpace) remove(h [32]byte) {
	stored, ok := s.paths[h]
	if !ok {
		return
	}
	delete(s.paths, h)
	delete(s.occurrences, h)
	n := stored.path.Len()
	bucket := s.byLen[n]
	for i, bh := range bucket {
		if bh == h {
			s.byLen[n] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// recordSynchronizationPoints collects §4.E step 1: any node in t with
// in-degree ≥ 2 is a synchronization point; its tracepoint and every
// predecessor's tracepoint are recorded.
func (s *SearchSpace) recordSynchronizationPoints(t *model.Trace) {
	for n := range t.Nodes {
		if t.InDegree(n) < 2 {
			continue
		}
		s.SynchronizationPoints[t.Nodes[n].TracepointID] = true
		for _, e := range t.Predecessors(n) {
			s.SynchronizationPoints[t.Nodes[e.From].TracepointID] = true
		}
	}
}

// AddTrace is §4.E's add_trace: every hypothetical critical path of t
// is folded into the search space under subsumption-minimality. verbose
// controls nothing structural here (kept for signature parity with the
// original entry point); callers that want progress logging wrap this.
// skip is forwarded to critical.AllPossiblePaths as its denoising pass.
func (s *SearchSpace) AddTrace(t *model.Trace, verbose bool, skip ...[2]model.TracepointID) {
	s.recordSynchronizationPoints(t)

	critical.AllPossiblePaths(t, func(cp *critical.CriticalPath) bool {
		hp := critical.BuildHierarchical(cp)
		if len(hp.Nodes) > 0 {
			s.EntryPoints[hp.Nodes[0].TracepointID] = true
			s.EntryPoints[hp.Nodes[len(hp.Nodes)-1].TracepointID] = true
		}
		s.addPath(hp)
		return true
	}, skip...)
}

func (s *SearchSpace) addPath(hp *critical.HierarchicalCriticalPath) {
	h := hp.Hash
	if _, ok := s.paths[h]; ok {
		s.occurrences[h]++
		return
	}

	pending := 1
	var subsumedBySomeone bool

	// Check super-paths first: a longer existing path that contains
	// the candidate means the candidate is not stored.
	for n := hp.Len() + 1; n <= maxLen(s.byLen); n++ {
		for _, h2 := range append([][32]byte(nil), s.byLen[n]...) {
			existing := s.paths[h2]
			if critical.Contains(existing.path, hp) {
				s.occurrences[h2]++
				subsumedBySomeone = true
			}
		}
	}
	if subsumedBySomeone {
		return
	}

	// Remove every existing shorter path subsumed by the candidate.
	for n := 0; n < hp.Len(); n++ {
		for _, h2 := range append([][32]byte(nil), s.byLen[n]...) {
			existing := s.paths[h2]
			if critical.Contains(hp, existing.path) {
				pending += s.occurrences[h2]
				s.remove(h2)
			}
		}
	}

	s.insert(hp, pending)
}

func maxLen(byLen map[int][][32]byte) int {
	max := 0
	for n := range byLen {
		if n > max {
			max = n
		}
	}
	return max
}

// Contains reports whether a path with content hash h is stored. It is
// an exact lookup, not a subsumption check; FindMatches is the
// decision-loop-facing lookup.
func (s *SearchSpace) Contains(h [32]byte) bool {
	_, ok := s.paths[h]
	return ok
}

// Occurrences returns the occurrence count recorded for h, or 0.
func (s *SearchSpace) Occurrences(h [32]byte) int {
	return s.occurrences[h]
}

// Len returns the number of stored paths.
func (s *SearchSpace) Len() int { return len(s.paths) }

// MatchResult pairs a stored path with its occurrence count, the
// return shape of FindMatches.
type MatchResult struct {
	Path        *critical.HierarchicalCriticalPath
	Occurrences int
}

// FindMatches returns every stored path containing group (§4.E
// find_matches), ordered by descending occurrence count. group is
// itself a HierarchicalCriticalPath standing in for the embedded
// group-edge sequence the search strategies test against.
func (s *SearchSpace) FindMatches(group *critical.HierarchicalCriticalPath) []MatchResult {
	var out []MatchResult
	for h, stored := range s.paths {
		if critical.Contains(stored.path, group) {
			out = append(out, MatchResult{Path: stored.path, Occurrences: s.occurrences[h]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Occurrences > out[j].Occurrences })
	return out
}

// AllPaths returns every stored path, for persistence and diagnostics.
func (s *SearchSpace) AllPaths() []MatchResult {
	var out []MatchResult
	for h, stored := range s.paths {
		out = append(out, MatchResult{Path: stored.path, Occurrences: s.occurrences[h]})
	}
	return out
}
