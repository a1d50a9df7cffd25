package critical

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/model"
)

func evt(tp string, traceID uuid.UUID, variant model.EventVariant, offsetNanos int64) model.Event {
	return model.Event{
		TraceID:      traceID,
		TracepointID: model.Intern(tp),
		Timestamp:    time.Unix(0, offsetNanos),
		Variant:      variant,
	}
}

// TestExtractCriticalPathLinear covers a trace with no branching: the
// critical path is the trace itself, nothing synthetic.
func TestExtractCriticalPathLinear(t *testing.T) {
	assert := assert.New(t)
	a := uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("a", a, model.Exit, 10),
	}
	edges := []model.DAGEdge{{From: 0, To: 1, Duration: 10 * time.Nanosecond, Variant: model.ChildOf}}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 1)

	cp, err := ExtractCriticalPath(tr)
	assert.NoError(err)
	assert.Equal(2, cp.Len())
	assert.Equal(10*time.Nanosecond, cp.Duration())
	assert.False(cp.Nodes[0].IsSynthetic)
	assert.False(cp.Nodes[1].IsSynthetic)
}

// TestExtractCriticalPathForkJoin models a parent span that forks into
// two concurrent children (b finishes early, c finishes late) and
// rejoins at Exit a. The latest-predecessor walk should follow the
// c branch; b never appears.
func TestExtractCriticalPathForkJoin(t *testing.T) {
	assert := assert.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),  // 0
		evt("b", b, model.Entry, 1),  // 1
		evt("c", c, model.Entry, 1),  // 2
		evt("b", b, model.Exit, 2),   // 3
		evt("c", c, model.Exit, 9),   // 4
		evt("a", a, model.Exit, 10),  // 5
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 0, To: 2, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 1, To: 3, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 2, To: 4, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 3, To: 5, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 4, To: 5, Duration: time.Nanosecond, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 5)

	cp, err := ExtractCriticalPath(tr)
	assert.NoError(err)

	var names []string
	for _, n := range cp.Nodes {
		names = append(names, n.TracepointID.String())
	}
	assert.Equal([]string{"a", "c", "c", "a"}, names)
	assert.Equal(10*time.Nanosecond, cp.Duration())
}

// TestAllPossiblePathsStopsEarly checks the generator is restartable:
// calling yield with false after the first path halts the walk instead
// of enumerating every branch.
func TestAllPossiblePathsStopsEarly(t *testing.T) {
	assert := assert.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("b", b, model.Entry, 1),
		evt("c", c, model.Entry, 1),
		evt("b", b, model.Exit, 2),
		evt("c", c, model.Exit, 9),
		evt("a", a, model.Exit, 10),
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 0, To: 2, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 1, To: 3, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 2, To: 4, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 3, To: 5, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 4, To: 5, Duration: time.Nanosecond, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 5)

	count := 0
	AllPossiblePaths(tr, func(cp *CriticalPath) bool {
		count++
		return false
	})
	assert.Equal(1, count)
}

// TestAllPossiblePathsEnumeratesBothBranches confirms that without an
// early stop, both fork branches are visited as separate hypothetical
// paths.
func TestAllPossiblePathsEnumeratesBothBranches(t *testing.T) {
	assert := assert.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("b", b, model.Entry, 1),
		evt("c", c, model.Entry, 1),
		evt("b", b, model.Exit, 2),
		evt("c", c, model.Exit, 9),
		evt("a", a, model.Exit, 10),
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 0, To: 2, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 1, To: 3, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 2, To: 4, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 3, To: 5, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
		{From: 4, To: 5, Duration: time.Nanosecond, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 5)

	var all []*CriticalPath
	AllPossiblePaths(tr, func(cp *CriticalPath) bool {
		all = append(all, cp)
		return true
	})
	assert.Len(all, 2)
	for _, cp := range all {
		assert.True(cp.IsHypothetical)
	}
}

// TestExtractCriticalPathDisjoint checks that a node lacking any
// predecessor before reaching Start surfaces as a DisjointTraceError.
func TestExtractCriticalPathDisjoint(t *testing.T) {
	assert := assert.New(t)
	a := uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("orphan", uuid.New(), model.Entry, 5),
		evt("a", a, model.Exit, 10),
	}
	edges := []model.DAGEdge{{From: 1, To: 2, Duration: 5 * time.Nanosecond, Variant: model.ChildOf}}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 2)

	_, err := ExtractCriticalPath(tr)
	assert.Error(err)
}

// TestExtractCriticalPathNestedUnfinishedSpanClosesAtBranchPoint models
// a root span A that opens a nested span B, which itself forks into a
// live continuation C (chosen, eventually reaching A's real Exit) and
// a dead-end branch that is B's own real Exit (never chosen). B's
// Entry is on the chosen path but B's Exit is not, so it must be
// repaired synthetically — and it must be spliced in right at the
// branch point (immediately after Entry B, before Entry C), not
// appended after A's real Exit once the whole scan finishes.
func TestExtractCriticalPathNestedUnfinishedSpanClosesAtBranchPoint(t *testing.T) {
	assert := assert.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),  // 0
		evt("b", b, model.Entry, 1),  // 1
		evt("c", c, model.Entry, 2),  // 2
		evt("c", c, model.Exit, 3),   // 3
		evt("a", a, model.Exit, 10),  // 4
		evt("b", b, model.Exit, 9),   // 5: B's real exit, on an abandoned branch
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 1, To: 2, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 2, To: 3, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 3, To: 4, Duration: 7 * time.Nanosecond, Variant: model.ChildOf},
		{From: 1, To: 5, Duration: 8 * time.Nanosecond, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 4)

	cp, err := ExtractCriticalPath(tr)
	assert.NoError(err)

	var names []string
	var synthetic []bool
	for _, n := range cp.Nodes {
		names = append(names, n.TracepointID.String())
		synthetic = append(synthetic, n.IsSynthetic)
	}
	assert.Equal([]string{"a", "b", "b", "c", "c", "a"}, names)
	assert.Equal([]bool{false, false, true, false, false, false}, synthetic)

	hp := BuildHierarchical(cp)
	var from, to []int
	for _, e := range hp.Hierarchical {
		from = append(from, e.From)
		to = append(to, e.To)
	}
	// A (index 0) is the parent of both B (1) and C (3); B's synthetic
	// close must not leave C nested inside B.
	assert.Contains(from, 0)
	for i, f := range from {
		if to[i] == 3 {
			assert.Equal(0, f, "C must be a direct child of A, not of B")
		}
	}
}

// TestExtractCriticalPathAppliesSkipPairs checks that a configured
// skip pair drops the second tracepoint of a matching consecutive pair
// from the extracted path, the denoising knob SPEC_FULL.md §13(i)
// describes for a noisy tracepoint that always immediately follows
// another (e.g. a logging annotation right after a span's Entry).
func TestExtractCriticalPathAppliesSkipPairs(t *testing.T) {
	assert := assert.New(t)
	a, b := uuid.New(), uuid.New()

	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("noise", a, model.Annotation, 1),
		evt("b", b, model.Entry, 2),
		evt("b", b, model.Exit, 3),
		evt("a", a, model.Exit, 4),
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: time.Nanosecond, Variant: model.FollowsFrom},
		{From: 1, To: 2, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 2, To: 3, Duration: time.Nanosecond, Variant: model.ChildOf},
		{From: 3, To: 4, Duration: time.Nanosecond, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 4)

	skip := [2]model.TracepointID{model.Intern("a"), model.Intern("noise")}
	cp, err := ExtractCriticalPath(tr, skip)
	assert.NoError(err)

	var names []string
	for _, n := range cp.Nodes {
		names = append(names, n.TracepointID.String())
	}
	assert.Equal([]string{"a", "b", "b", "a"}, names)

	without, err := ExtractCriticalPath(tr)
	assert.NoError(err)
	assert.Equal(5, without.Len())
}

func TestComputeHashStableAcrossEqualTracepoints(t *testing.T) {
	assert := assert.New(t)
	a := uuid.New()
	nodes := []model.Event{
		evt("x", a, model.Entry, 0),
		evt("y", a, model.Exit, 5),
	}
	h1 := Hash(nodes)
	h2 := Hash(nodes)
	assert.Equal(h1, h2)

	nodes[1].TracepointID = model.Intern("z")
	h3 := Hash(nodes)
	assert.NotEqual(h1, h3)
}
