package decision

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/budget"
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/search"
	"github.com/docc-lab/pythia/internal/searchspace"
)

type stubReader struct {
	traces []*model.Trace
}

func (s *stubReader) StableTraces(ctx context.Context) ([]*model.Trace, error) {
	out := s.traces
	s.traces = nil // each poll drains what it has, like a real reader
	return out, nil
}

func sequentialTrace(rt string) *model.Trace {
	span := uuid.New()
	nodes := []model.Event{
		{TraceID: span, TracepointID: model.Intern("a"), Timestamp: time.Unix(0, 0), Variant: model.Entry},
		{TraceID: span, TracepointID: model.Intern("a"), Timestamp: time.Unix(0, 10), Variant: model.Exit},
	}
	edges := []model.DAGEdge{{From: 0, To: 1, Duration: 10 * time.Nanosecond, Variant: model.ChildOf}}
	return model.NewTrace(uuid.New(), rt, nil, nodes, edges, 0, 1)
}

func TestTickIngestsTraceIntoGroups(t *testing.T) {
	assert := assert.New(t)
	ctrl := controller.New(nil)
	l := &Loop{
		Reader:              &stubReader{traces: []*model.Trace{sequentialTrace("req")}},
		Manifest:            searchspace.NewManifest(),
		Groups:              grouping.NewManager(),
		Budget:              budget.NewManager(ctrl, time.Hour),
		Controller:          ctrl,
		Strategy:            search.Flat{},
		Jiffy:               time.Millisecond,
		DecisionEpoch:        time.Hour,
		GCEpoch:             time.Hour,
		TracepointsPerEpoch: 3,
	}

	l.tick(context.Background())
	assert.Equal(1, l.Groups.Len())
}

func TestInitEnablesSkeleton(t *testing.T) {
	assert := assert.New(t)
	ctrl := controller.New(nil)
	manifest := searchspace.NewManifest()
	tp := model.Intern("entrypoint")
	manifest.RequestTypeTracepoints = []model.TracepointID{tp}

	l := &Loop{Manifest: manifest, Controller: ctrl}
	assert.NoError(l.Init(context.Background()))
	assert.True(ctrl.IsEnabled(tp, nil))
}
