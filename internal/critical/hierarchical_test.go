package critical

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/model"
)

func TestBuildHierarchicalChildNodes(t *testing.T) {
	assert := assert.New(t)
	root := uuid.New()
	child := uuid.New()

	// root: Entry(0) Entry-child(1) Exit-child(2) Exit(3)
	cp := &CriticalPath{Nodes: []model.Event{
		evt("root", root, model.Entry, 0),
		evt("child", child, model.Entry, 1),
		evt("child", child, model.Exit, 2),
		evt("root", root, model.Exit, 3),
	}}
	hp := BuildHierarchical(cp)

	assert.Contains(hp.Hierarchical, HEdge{From: 0, To: 1})
	assert.Contains(hp.Hierarchical, HEdge{From: 0, To: 2})
	assert.Equal([]int{1, 2}, hp.ChildNodes(0))
}

func TestContainsSubsumption(t *testing.T) {
	assert := assert.New(t)
	span := uuid.New()

	mk := func(names ...string) *HierarchicalCriticalPath {
		var nodes []model.Event
		for i, n := range names {
			nodes = append(nodes, evt(n, span, model.Entry, int64(i)))
		}
		return BuildHierarchical(&CriticalPath{Nodes: nodes})
	}

	full := mk("x", "w", "y", "z")
	sub := mk("x", "y", "z")
	other := mk("x", "q", "z")

	assert.True(Contains(full, sub))
	assert.False(Contains(sub, full))
	assert.False(Contains(full, other))
}

func TestCriticalPathDurationNeverExceedsTraceBySyntheticRounding(t *testing.T) {
	assert := assert.New(t)
	a := uuid.New()
	nodes := []model.Event{
		evt("a", a, model.Entry, 0),
		evt("a", a, model.Exit, 100),
	}
	edges := []model.DAGEdge{{From: 0, To: 1, Duration: 100 * time.Nanosecond, Variant: model.ChildOf}}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 1)

	cp, err := ExtractCriticalPath(tr)
	assert.NoError(err)
	assert.LessOrEqual(cp.Duration(), tr.Duration())
}
