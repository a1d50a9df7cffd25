package grouping

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/critical"
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

// threeSpanPath builds a,b,c linear critical path through a real Trace
// so EdgeDuration reflects the d1/d2 gaps given. Each Entry gets its own
// trace_id: filterIncompleteSpans drops a second Entry for an already
// open trace_id.
func threeSpanPath(t *testing.T, d1, d2 time.Duration) *critical.HierarchicalCriticalPath {
	nodes := []model.Event{
		evt("a", uuid.New(), model.Entry, 0),
		evt("b", uuid.New(), model.Entry, d1.Nanoseconds()),
		evt("c", uuid.New(), model.Entry, d1.Nanoseconds()+d2.Nanoseconds()),
	}
	edges := []model.DAGEdge{
		{From: 0, To: 1, Duration: d1, Variant: model.ChildOf},
		{From: 1, To: 2, Duration: d2, Variant: model.ChildOf},
	}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 2)
	cp, err := critical.ExtractCriticalPath(tr)
	assert.NoError(t, err)
	return critical.BuildHierarchical(cp)
}

// TestProblemEdgesVarianceRanking is scenario S4: a group with edges
// e1.durations=[1,1,1] and e2.durations=[1,10,100] should rank e2 above
// e1 by variance.
func TestProblemEdgesVarianceRanking(t *testing.T) {
	assert := assert.New(t)

	g := NewGroup(threeSpanPath(t, time.Second, time.Second))
	g.Add(threeSpanPath(t, time.Second, 10*time.Second))
	g.Add(threeSpanPath(t, time.Second, 100*time.Second))

	edges := g.ProblemEdges()
	assert.True(edges[0].Variance > edges[1].Variance)
}

func TestGroupManagerProblemGroupsExcludesUsed(t *testing.T) {
	assert := assert.New(t)
	span := uuid.New()
	nodes := []model.Event{evt("a", span, model.Entry, 0), evt("a", span, model.Exit, 10)}
	edges := []model.DAGEdge{{From: 0, To: 1, Duration: 10 * time.Nanosecond, Variant: model.ChildOf}}
	tr := model.NewTrace(uuid.New(), "req", nil, nodes, edges, 0, 1)
	cp, err := critical.ExtractCriticalPath(tr)
	assert.NoError(err)
	hp := critical.BuildHierarchical(cp)

	mgr := NewManager()
	mgr.Ingest(hp)
	assert.Len(mgr.ProblemGroups(), 1)

	mgr.MarkUsed(hp.Hash)
	assert.Len(mgr.ProblemGroups(), 0)

	mgr.ResetEpoch()
	assert.Len(mgr.ProblemGroups(), 1)
}
