package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/model"
)

// TestOverrunLoadAvg is scenario S6: one agent reporting
// load_avg_1_min=7.0 should trip Overrun.
func TestOverrunLoadAvg(t *testing.T) {
	assert := assert.New(t)
	stats := []controller.NodeStats{{LoadAvg1Min: 7.0}}
	assert.True(Overrun(stats))
}

func TestOverrunKbps(t *testing.T) {
	assert := assert.New(t)
	stats := []controller.NodeStats{{TraceInputKbps: 200 * 1024}}
	assert.True(Overrun(stats))
}

func TestOverrunFalseUnderThresholds(t *testing.T) {
	assert := assert.New(t)
	stats := []controller.NodeStats{{LoadAvg1Min: 1.0, TraceInputKbps: 10}}
	assert.False(Overrun(stats))
}

func TestOldTracepointsRespectsReserved(t *testing.T) {
	assert := assert.New(t)
	m := NewManager(controller.New(nil), time.Hour)
	tp := model.Intern("tp.gc")
	reservedTP := model.Intern("tp.reserved")

	past := time.Now().Add(-2 * time.Hour)
	m.UpdateNewPaths(past, []model.TracepointID{tp, reservedTP}, "req")
	m.Reserve(reservedTP, "")

	old := m.OldTracepoints(time.Now())
	var names []string
	for _, o := range old {
		names = append(names, o.Tracepoint.String())
	}
	assert.Contains(names, "tp.gc")
	assert.NotContains(names, "tp.reserved")
}

func TestOldTracepointsNotYetStale(t *testing.T) {
	assert := assert.New(t)
	m := NewManager(controller.New(nil), time.Hour)
	tp := model.Intern("tp.fresh")
	m.UpdateNewPaths(time.Now(), []model.TracepointID{tp}, "req")

	assert.Empty(m.OldTracepoints(time.Now()))
}

// TestResetEpochRefillsAvailable checks that ResetEpoch sets Available
// regardless of what was left over from the prior epoch.
func TestResetEpochRefillsAvailable(t *testing.T) {
	assert := assert.New(t)
	m := NewManager(controller.New(nil), time.Hour)
	m.Available = 3
	m.ResetEpoch(10)
	assert.Equal(10, m.Available)
}

// TestSpendDrawsDownAvailable covers both outcomes of Spend: a request
// that fits draws down Available and succeeds, one that doesn't leaves
// Available untouched and reports insufficiency.
func TestSpendDrawsDownAvailable(t *testing.T) {
	assert := assert.New(t)
	m := NewManager(controller.New(nil), time.Hour)
	m.ResetEpoch(5)

	assert.True(m.Spend(3))
	assert.Equal(2, m.Available)

	assert.False(m.Spend(3))
	assert.Equal(2, m.Available, "a failed spend must not touch Available")

	assert.True(m.Spend(0), "a non-positive spend always succeeds")
	assert.Equal(2, m.Available)
}
