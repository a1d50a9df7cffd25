// Package budget tracks agent load statistics and ages out tracepoints
// the decision loop hasn't seen on an observed path recently (§4.I).
// The Reserved/Available split follows budget.rs's two-pool design
// (SPEC_FULL.md §12.3): Reserved tracks the skeleton tracepoints that
// must never be aged out, Available is what the search strategies may
// spend in a decision epoch.
package budget

import (
	"context"
	"time"

	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/model"
)

// overloadLoadAvg and overloadKbps are the §4.I over_budget thresholds.
const (
	overloadLoadAvg = 6.0
	overloadKbps    = 100 * 1024
)

// pair identifies a (tracepoint, request_type) combination for
// last-seen bookkeeping.
type pair struct {
	Tracepoint  model.TracepointID
	RequestType string
}

// Manager polls agent stats, computes the over-budget predicate, and
// tracks per-(tracepoint, request_type) last-seen timestamps for GC.
type Manager struct {
	ctrl     *controller.Controller
	lastSeen map[pair]time.Time

	// Reserved is never returned by OldTracepoints regardless of
	// staleness — typically the manifest skeleton.
	Reserved map[pair]bool

	// Available is the per-epoch tracepoint budget the decision loop's
	// search strategies may spend, refilled by ResetEpoch at the start
	// of each decision epoch and drawn down by Spend as groups enable
	// tracepoints (budget.rs's soft-budget half of the Reserved/
	// Available split).
	Available int

	GCKeepDuration time.Duration
}

// NewManager returns a Manager polling the given controller's agents.
func NewManager(ctrl *controller.Controller, gcKeepDuration time.Duration) *Manager {
	return &Manager{
		ctrl:           ctrl,
		lastSeen:       make(map[pair]time.Time),
		Reserved:       make(map[pair]bool),
		GCKeepDuration: gcKeepDuration,
	}
}

// Reserve marks (tp, rt) as never eligible for GC. An empty rt reserves
// the tracepoint across all request types.
func (m *Manager) Reserve(tp model.TracepointID, rt string) {
	m.Reserved[pair{Tracepoint: tp, RequestType: rt}] = true
}

// ResetEpoch refills Available to n at the start of a decision epoch.
func (m *Manager) ResetEpoch(n int) {
	m.Available = n
}

// Spend draws n tracepoints from Available, reporting whether there
// was enough left to do so. A non-positive n always succeeds without
// drawing anything.
func (m *Manager) Spend(n int) bool {
	if n <= 0 {
		return true
	}
	if n > m.Available {
		return false
	}
	m.Available -= n
	return true
}

// ReadStats polls every agent's NodeStats (§4.I read_stats()). An
// unreachable agent contributes no stats this epoch rather than
// aborting the poll (§7 AgentUnavailable recovery).
func (m *Manager) ReadStats(ctx context.Context) []controller.NodeStats {
	var out []controller.NodeStats
	for _, agent := range m.ctrl.Agents() {
		stats, err := m.ctrl.ReadNodeStats(ctx, agent)
		if err != nil {
			continue
		}
		out = append(out, stats)
	}
	return out
}

// Overrun is true iff any agent reports load_avg_1_min > 6.0 OR
// trace_input_kbps > 100*1024 (§4.I).
func Overrun(stats []controller.NodeStats) bool {
	for _, s := range stats {
		if float64(s.LoadAvg1Min) > overloadLoadAvg || float64(s.TraceInputKbps) > overloadKbps {
			return true
		}
	}
	return false
}

// UpdateNewPaths records now for every node on every given path's
// request type (§4.I update_new_paths(paths)).
func (m *Manager) UpdateNewPaths(now time.Time, tracepoints []model.TracepointID, requestType string) {
	for _, tp := range tracepoints {
		m.lastSeen[pair{Tracepoint: tp, RequestType: requestType}] = now
	}
}

// TracepointRequestType pairs a tracepoint with the request type it was
// last observed under, the return shape of OldTracepoints.
type TracepointRequestType struct {
	Tracepoint  model.TracepointID
	RequestType string
}

// OldTracepoints returns every non-reserved (tracepoint, request_type)
// pair whose last-seen time is older than GCKeepDuration (§4.I
// old_tracepoints()).
func (m *Manager) OldTracepoints(now time.Time) []TracepointRequestType {
	var out []TracepointRequestType
	for p, seen := range m.lastSeen {
		if m.Reserved[p] || m.Reserved[pair{Tracepoint: p.Tracepoint}] {
			continue
		}
		if now.Sub(seen) >= m.GCKeepDuration {
			out = append(out, TracepointRequestType{Tracepoint: p.Tracepoint, RequestType: p.RequestType})
		}
	}
	return out
}
