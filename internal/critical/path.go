// Package critical implements critical-path extraction from a trace
// DAG (SPEC_FULL.md §4.C) and the hierarchical augmentation (§4.D).
package critical

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	log "github.com/cihub/seelog"
	"github.com/google/uuid"

	"github.com/docc-lab/pythia/internal/model"
)

// maxSyntheticDepth bounds the recursive search for a synchronization
// point during synthetic-entry repair (SPEC_FULL.md §13, open question
// ii). A path that exceeds it is skipped rather than looped forever.
const maxSyntheticDepth = 64

// CriticalPath is a linearized, single root-to-leaf walk of a Trace:
// every node has at most one predecessor and one successor. It is
// immutable once built.
type CriticalPath struct {
	Nodes          []model.Event
	edgeDurations  []time.Duration
	edgeVariants   []model.EdgeVariant
	IsHypothetical bool
	RequestType    string
	Hash           [32]byte
}

// Len returns the number of nodes on the path.
func (p *CriticalPath) Len() int { return len(p.Nodes) }

// Duration is the elapsed time between the first and last node.
func (p *CriticalPath) Duration() time.Duration {
	if len(p.Nodes) == 0 {
		return 0
	}
	return p.Nodes[len(p.Nodes)-1].Timestamp.Sub(p.Nodes[0].Timestamp)
}

// EdgeDuration returns the duration of the HappensBefore edge leaving
// node i (i.e. between Nodes[i] and Nodes[i+1]).
func (p *CriticalPath) EdgeDuration(i int) time.Duration {
	if i < len(p.edgeDurations) {
		return p.edgeDurations[i]
	}
	// A path assembled from Nodes alone (e.g. decoded from a manifest)
	// carries no recorded durations; derive the gap from the timestamps,
	// the same way extraction computes it.
	return p.Nodes[i+1].Timestamp.Sub(p.Nodes[i].Timestamp)
}

// ExtractCriticalPath walks t backward from End, always choosing the
// predecessor with the latest timestamp (ties broken by the lower node
// index, a total order), then repairs the result with synthetic nodes
// and filters incomplete spans. This is the "observed path" mode of
// SPEC_FULL.md §4.C. skip, if given, is applied as a denoising pass
// (SPEC_FULL.md §13, open question i): consecutive tracepoint pairs
// matching one of skip have their second node dropped.
func ExtractCriticalPath(t *model.Trace, skip ...[2]model.TracepointID) (*CriticalPath, error) {
	backward, err := walkLatestPredecessor(t)
	if err != nil {
		return nil, err
	}
	return buildFromBackwardWalk(t, backward, false, skip)
}

// walkLatestPredecessor performs step 1 of §4.C: starting at t.End,
// repeatedly steps to the predecessor with the latest timestamp (total
// order via node index tie-break), recording the walk from End to
// Start. Fails with a DisjointTraceError if a non-start node has no
// predecessors.
func walkLatestPredecessor(t *model.Trace) ([]int, error) {
	cur := t.End
	backward := []int{cur}
	for cur != t.Start {
		preds := t.Predecessors(cur)
		if len(preds) == 0 {
			return nil, &model.DisjointTraceError{Node: cur}
		}
		best := preds[0]
		for _, e := range preds[1:] {
			bt := t.Nodes[best.From].Timestamp
			et := t.Nodes[e.From].Timestamp
			if et.After(bt) || (et.Equal(bt) && e.From < best.From) {
				best = e
			}
		}
		cur = best.From
		backward = append(backward, cur)
	}
	return backward, nil
}

// AllPossiblePaths is the lazy, restartable "all-paths" generator of
// §4.C: at each backward branching point, it produces one continuation
// per predecessor rather than only the latest. It walks an explicit DFS
// stack instead of recursion precisely so memory stays O(depth) instead
// of O(path count) — trace DAGs can have exponentially many paths.
//
// yield is called once per completed, repaired CriticalPath; it returns
// false to stop the walk early. Per-path repair failures are logged and
// skipped, never abort the overall iteration. skip is the same
// denoising pass ExtractCriticalPath accepts.
func AllPossiblePaths(t *model.Trace, yield func(*CriticalPath) bool, skip ...[2]model.TracepointID) {
	type frame struct {
		node int
		path []int // End..node, in backward (reverse-chronological) order
	}
	stack := []frame{{node: t.End, path: nil}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path := make([]int, 0, len(f.path)+1)
		path = append(path, f.path...)
		path = append(path, f.node)

		if f.node == t.Start {
			cp, err := buildFromBackwardWalk(t, path, true, skip)
			if err != nil {
				log.Warnf("critical: skipping candidate path: %v", err)
				continue
			}
			if !yield(cp) {
				return
			}
			continue
		}

		preds := t.Predecessors(f.node)
		if len(preds) == 0 {
			log.Warnf("critical: skipping candidate path: %v", &model.DisjointTraceError{Node: f.node})
			continue
		}
		for _, e := range preds {
			stack = append(stack, frame{node: e.From, path: path})
		}
	}
}

// buildFromBackwardWalk turns a backward (End..Start) node-index walk
// into a forward CriticalPath, running synthetic-node repair,
// incomplete-span filtering, and skip-pair simplification, then
// computing duration and hash.
func buildFromBackwardWalk(t *model.Trace, backward []int, hypothetical bool, skip [][2]model.TracepointID) (*CriticalPath, error) {
	forward := make([]int, len(backward))
	for i, n := range backward {
		forward[len(backward)-1-i] = n
	}

	nodes, durations, variants, err := addSyntheticNodes(t, forward)
	if err != nil {
		return nil, err
	}

	nodes, durations, variants, err = filterIncompleteSpans(nodes, durations, variants)
	if err != nil {
		return nil, err
	}

	nodes, durations, variants = applySkipPairs(nodes, durations, variants, skip)

	p := &CriticalPath{
		Nodes:          nodes,
		edgeDurations:  durations,
		edgeVariants:   variants,
		IsHypothetical: hypothetical,
		RequestType:    t.RequestType,
	}
	p.Hash = Hash(nodes)
	return p, nil
}

// addSyntheticNodes is §4.C step 2. Unlike a path-local scan, it walks
// the path forward in lockstep with T's own DAG structure (successors
// of the node the walk is currently at), the same way
// add_synthetic_nodes/add_synthetic_start_node/get_unfinished do in
// the original implementation's critical-path module: a branch point
// (a node with more than one successor) is where an abandoned span
// gets synthetically closed, right there, not at the end of the whole
// scan — so a span nested inside an ancestor that closes later never
// ends up with its synthetic Exit appearing after the ancestor's real
// one. An Exit whose Entry never appeared on the path is repaired
// symmetrically: the synchronization point is found by walking T's
// predecessors backward from the Exit until a join is found whose
// other incoming branch can reach the missing span.
//
// Synthetic nodes carry is_synthetic=true and borrow the trace_id of
// the span they open or close.
func addSyntheticNodes(t *model.Trace, forward []int) ([]model.Event, []time.Duration, []model.EdgeVariant, error) {
	nodes := make([]model.Event, len(forward))
	// origin[i] is the index into forward that nodes[i] came from, or
	// -1 for a synthetic node spliced in below.
	origin := make([]int, len(forward))
	for i, idx := range forward {
		nodes[i] = t.Nodes[idx]
		origin[i] = i
	}

	insertAt := func(at int, e model.Event) {
		nodes = append(nodes, model.Event{})
		copy(nodes[at+1:], nodes[at:])
		nodes[at] = e

		origin = append(origin, 0)
		copy(origin[at+1:], origin[at:])
		origin[at] = -1
	}

	var active []model.Event // spans opened and not yet matched by a real Exit
	inserted := 0

	pos := 0
	for pos < len(nodes) {
		if origin[pos] < 0 {
			pos++
			continue
		}
		if inserted > maxSyntheticDepth*len(forward) {
			return nil, nil, nil, fmt.Errorf("critical: synthetic-node repair exceeded depth bound")
		}

		e := nodes[pos]
		switch e.Variant {
		case model.Entry:
			active = append(active, e)
		case model.Exit:
			if i := lastIndexByTraceID(active, e.TraceID); i >= 0 {
				active = append(active[:i], active[i+1:]...)
			} else {
				at, err := syntheticStartInsertPos(t, nodes, origin, forward, pos, e.TraceID)
				if err != nil {
					return nil, nil, nil, err
				}
				insertAt(at, model.Event{
					TraceID:      e.TraceID,
					TracepointID: e.TracepointID,
					Timestamp:    nodes[at-1].Timestamp.Add(time.Nanosecond),
					Variant:      model.Entry,
					IsSynthetic:  true,
				})
				pos++ // the Exit we're looking at shifted forward by one
				inserted++
			}
		}

		fi := origin[pos]
		if fi+1 >= len(forward) {
			pos++
			continue
		}
		curDAG, nextDAG := forward[fi], forward[fi+1]
		successors := t.Successors(curDAG)
		if len(successors) > 1 {
			// A branch point: every successor other than the one the path
			// actually continues on is an abandoned branch. Any currently
			// active span whose real Exit is reachable down one of those
			// branches (and not later on the chosen path) gets closed
			// synthetically right here, innermost span first.
			var unfinished []model.Event
			for _, edge := range successors {
				if edge.To == nextDAG {
					continue
				}
				unfinished = append(unfinished, unfinishedAtBranch(t, active, forward, fi+1, edge.To)...)
			}
			for i := len(unfinished) - 1; i >= 0; i-- {
				span := unfinished[i]
				insertAt(pos+1, model.Event{
					TraceID:      span.TraceID,
					TracepointID: span.TracepointID,
					Timestamp:    nodes[pos].Timestamp.Add(time.Nanosecond),
					Variant:      model.Exit,
					IsSynthetic:  true,
				})
				pos++
				inserted++
			}
		}
		pos++
	}

	durations := make([]time.Duration, 0, len(nodes))
	variants := make([]model.EdgeVariant, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		durations = append(durations, nodes[i].Timestamp.Sub(nodes[i-1].Timestamp))
		variants = append(variants, edgeVariantFor(nodes[i]))
	}
	return nodes, durations, variants, nil
}

// edgeVariantFor is the HappensBefore variant of the edge entering e:
// FollowsFrom for an Annotation, ChildOf otherwise.
func edgeVariantFor(e model.Event) model.EdgeVariant {
	if e.Variant == model.Annotation {
		return model.FollowsFrom
	}
	return model.ChildOf
}

func lastIndexByTraceID(spans []model.Event, id uuid.UUID) int {
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].TraceID == id {
			return i
		}
	}
	return -1
}

// unfinishedAtBranch mirrors get_unfinished: of the currently active
// spans, keeps only those not matched by a real Exit anywhere later on
// the chosen path (fromFi onward), and whose real Exit is reachable
// from the branch not taken — confirming the span truly ends off-path
// rather than simply being missing data.
func unfinishedAtBranch(t *model.Trace, active []model.Event, forward []int, fromFi int, otherDAGNode int) []model.Event {
	remaining := make(map[uuid.UUID]bool, len(active))
	for _, s := range active {
		remaining[s.TraceID] = true
	}
	for _, idx := range forward[fromFi:] {
		delete(remaining, t.Nodes[idx].TraceID)
	}

	var out []model.Event
	for _, s := range active {
		if remaining[s.TraceID] && canReachForward(t, s.TraceID, otherDAGNode, 0) {
			out = append(out, s)
		}
	}
	return out
}

// syntheticStartInsertPos locates the synchronization point for a
// synthetic Entry repairing an Exit whose real Entry never appeared on
// the path, mirroring add_synthetic_start_node/find_start_node: it
// walks backward through the path (skipping already-synthetic nodes)
// in lockstep with T's predecessor structure until it reaches a join
// whose other incoming branch can reach the missing span, and returns
// the position right after that join.
func syntheticStartInsertPos(t *model.Trace, nodes []model.Event, origin []int, forward []int, exitPos int, traceID uuid.UUID) (int, error) {
	curDAG := forward[origin[exitPos]]
	pos := exitPos
	for i := 0; i < maxSyntheticDepth; i++ {
		prevPos := pos - 1
		for prevPos >= 0 && origin[prevPos] < 0 {
			prevPos--
		}
		if prevPos < 0 {
			return 0, fmt.Errorf("critical: no synchronization point found for synthetic entry (trace_id=%s)", traceID)
		}

		preds := t.Predecessors(curDAG)
		if len(preds) == 0 {
			return 0, fmt.Errorf("critical: disjoint trace while locating synthetic entry synchronization point")
		}
		if len(preds) == 1 {
			curDAG = preds[0].From
			pos = prevPos
			continue
		}

		onPathTraceID := nodes[prevPos].TraceID
		found := false
		for _, edge := range preds {
			if t.Nodes[edge.From].TraceID == onPathTraceID {
				curDAG = edge.From
				continue
			}
			if canReachBackward(t, traceID, edge.From, 0) {
				found = true
			}
		}
		if found {
			return prevPos + 1, nil
		}
		pos = prevPos
	}
	return 0, fmt.Errorf("critical: synthetic entry synchronization search exceeded depth bound")
}

// canReachForward reports whether a node with traceID is reachable by
// following successors forward from node from.
func canReachForward(t *model.Trace, traceID uuid.UUID, from, depth int) bool {
	if depth > maxSyntheticDepth {
		return false
	}
	if t.Nodes[from].TraceID == traceID {
		return true
	}
	for _, e := range t.Successors(from) {
		if canReachForward(t, traceID, e.To, depth+1) {
			return true
		}
	}
	return false
}

// canReachBackward reports whether a node with traceID is reachable by
// following predecessors backward from node from.
func canReachBackward(t *model.Trace, traceID uuid.UUID, from, depth int) bool {
	if depth > maxSyntheticDepth {
		return false
	}
	if t.Nodes[from].TraceID == traceID {
		return true
	}
	for _, e := range t.Predecessors(from) {
		if canReachBackward(t, traceID, e.From, depth+1) {
			return true
		}
	}
	return false
}

// filterIncompleteSpans is §4.C step 3. A single forward pass keyed on
// trace_id: a duplicate open Entry is dropped (first one wins); an
// Exit with neither an open Entry nor a prior seen Exit is a fatal
// IncompleteSpanError; an extra Exit (same trace_id as a previously
// closed span) replaces the earlier Exit with itself.
func filterIncompleteSpans(nodes []model.Event, durations []time.Duration, variants []model.EdgeVariant) ([]model.Event, []time.Duration, []model.EdgeVariant, error) {
	openEntry := make(map[uuid.UUID]int) // trace_id -> position of open Entry
	seenExit := make(map[uuid.UUID]int)  // trace_id -> position of last Exit seen
	drop := make(map[int]bool)

	for i, n := range nodes {
		switch n.Variant {
		case model.Entry:
			if _, ok := openEntry[n.TraceID]; ok {
				drop[i] = true // duplicate open entry: keep the first
				continue
			}
			openEntry[n.TraceID] = i
		case model.Exit:
			if _, ok := openEntry[n.TraceID]; ok {
				delete(openEntry, n.TraceID)
				seenExit[n.TraceID] = i
				continue
			}
			if prev, ok := seenExit[n.TraceID]; ok {
				drop[prev] = true // extra exit: the newer one wins
				seenExit[n.TraceID] = i
				continue
			}
			return nil, nil, nil, &model.IncompleteSpanError{TraceID: n.TraceID.String()}
		}
	}

	if len(drop) == 0 {
		return nodes, durations, variants, nil
	}

	newNodes := make([]model.Event, 0, len(nodes))
	for i, n := range nodes {
		if drop[i] {
			continue
		}
		newNodes = append(newNodes, n)
	}
	// Dropped nodes break the original 1:1 edge-to-gap correspondence,
	// so adjacency is rederived here; the reconstructed edges are all
	// ChildOf, matching the default causal relation used when splicing
	// synthetic nodes above.
	newDurations := make([]time.Duration, 0, len(newNodes))
	newVariants := make([]model.EdgeVariant, 0, len(newNodes))
	for i := 1; i < len(newNodes); i++ {
		newDurations = append(newDurations, newNodes[i].Timestamp.Sub(newNodes[i-1].Timestamp))
		newVariants = append(newVariants, model.ChildOf)
	}
	return newNodes, newDurations, newVariants, nil
}

// applySkipPairs is the configurable analogue of the HDFS/Uber
// readers' hard-coded tracepoint pairs silently skipped for path
// simplification (SPEC_FULL.md §13, open question i): for every
// consecutive pair of nodes on the path matching one of skip, the
// second node is dropped.
func applySkipPairs(nodes []model.Event, durations []time.Duration, variants []model.EdgeVariant, skip [][2]model.TracepointID) ([]model.Event, []time.Duration, []model.EdgeVariant) {
	if len(skip) == 0 {
		return nodes, durations, variants
	}
	pairs := make(map[[2]model.TracepointID]bool, len(skip))
	for _, p := range skip {
		pairs[p] = true
	}

	newNodes := make([]model.Event, 0, len(nodes))
	for _, n := range nodes {
		if len(newNodes) > 0 && pairs[[2]model.TracepointID{newNodes[len(newNodes)-1].TracepointID, n.TracepointID}] {
			continue
		}
		newNodes = append(newNodes, n)
	}
	if len(newNodes) == len(nodes) {
		return nodes, durations, variants
	}

	newDurations := make([]time.Duration, 0, len(newNodes))
	newVariants := make([]model.EdgeVariant, 0, len(newNodes))
	for i := 1; i < len(newNodes); i++ {
		newDurations = append(newDurations, newNodes[i].Timestamp.Sub(newNodes[i-1].Timestamp))
		newVariants = append(newVariants, edgeVariantFor(newNodes[i]))
	}
	return newNodes, newDurations, newVariants
}

// Hash is the content digest from §3: SHA-256 over the ordered
// sequence of tracepoint_id bytes. It is hashed over each tracepoint's
// interned string (length-prefixed) rather than its process-local
// integer handle, since the handle's numeric value is not itself part
// of a tracepoint's identity.
func Hash(nodes []model.Event) [32]byte {
	h := sha256.New()
	var lenBuf [4]byte
	for _, n := range nodes {
		s := n.TracepointID.String()
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SortByOccurrence orders paths by descending occurrence count, keeping
// the input order among paths with equal counts; kept here since it
// operates purely on CriticalPath-shaped data.
func SortByOccurrence(paths []*CriticalPath, occurrences map[[32]byte]int) {
	sort.SliceStable(paths, func(i, j int) bool {
		return occurrences[paths[i].Hash] > occurrences[paths[j].Hash]
	})
}
