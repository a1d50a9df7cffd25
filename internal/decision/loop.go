// Package decision drives the periodic reader→paths→groups→search→enable
// cycle (§4.J). The Reader interface is the one seam into the
// application-specific event readers (OpenStack osprofiler, HDFS
// X-Trace, Jaeger) that §1 explicitly puts out of scope; this package
// only depends on the interface.
package decision

import (
	"context"
	"time"

	log "github.com/cihub/seelog"

	"github.com/docc-lab/pythia/internal/budget"
	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/metrics"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/search"
	"github.com/docc-lab/pythia/internal/searchspace"
	"github.com/docc-lab/pythia/internal/watchdog"
)

// maxProblemEdgesPerGroup bounds the inner loop at 10 per §4.J step 4.
const maxProblemEdgesPerGroup = 10

// Reader is the external collaborator that assembles stable traces
// from whatever transport the deployment uses. A trace is "stable"
// once its duration stops changing across successive polls — a
// heuristic, not a correctness guarantee (SPEC_FULL.md §13, open
// question iii). Loop keeps no per-trace retry count: each trace the
// Reader returns is handled once, and one whose critical path cannot be
// extracted is logged and dropped.
type Reader interface {
	StableTraces(ctx context.Context) ([]*model.Trace, error)
}

// Loop is the decision loop's mutable state and collaborators.
type Loop struct {
	Reader     Reader
	Manifest   *searchspace.Manifest
	Groups     *grouping.Manager
	Budget     *budget.Manager
	Controller *controller.Controller
	Strategy   search.Strategy
	Metrics    *metrics.Client

	Jiffy               time.Duration
	DecisionEpoch       time.Duration
	GCEpoch             time.Duration
	TracepointsPerEpoch int

	// SkipPairs is the configurable denoising pass applied to every
	// critical path this loop extracts (SPEC_FULL.md §13, open
	// question i).
	SkipPairs [][2]model.TracepointID

	lastDecision time.Time
	lastGC       time.Time
}

// Init disables every tracepoint, then enables the manifest's skeleton
// (§4.J "Initial state").
func (l *Loop) Init(ctx context.Context) error {
	if err := l.Controller.DisableAll(ctx); err != nil {
		return err
	}
	skeleton := l.Manifest.Skeleton()
	if len(skeleton) == 0 {
		return nil
	}
	keys := make([]controller.Key, len(skeleton))
	for i, tp := range skeleton {
		keys[i] = controller.Key{Tracepoint: tp}
	}
	return l.Controller.Enable(ctx, keys)
}

// Run executes the loop until ctx is cancelled, on the calling
// goroutine. Run and each tick defer watchdog.LogOnPanic, so a panic
// inside one tick is logged and the loop carries on, following the
// teacher's pattern in cmd/trace-agent/agent.go's Run/watchdog split.
func (l *Loop) Run(ctx context.Context) {
	defer watchdog.LogOnPanic()
	now := time.Now()
	l.lastDecision = now
	l.lastGC = now

	ticker := time.NewTicker(l.Jiffy)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	defer watchdog.LogOnPanic()

	stats := l.Budget.ReadStats(ctx)
	overBudget := budget.Overrun(stats)
	l.Metrics.Gauge("pythia.decision.over_budget", boolToFloat(overBudget), nil)

	traces, err := l.Reader.StableTraces(ctx)
	if err != nil {
		log.Warnf("decision: reading stable traces: %v", err)
	}
	now := time.Now()
	for _, tr := range traces {
		cp, err := critical.ExtractCriticalPath(tr, l.SkipPairs...)
		if err != nil {
			log.Warnf("decision: extracting critical path: %v", err)
			continue
		}
		hp := critical.BuildHierarchical(cp)
		l.Groups.Ingest(hp)

		var tracepoints []model.TracepointID
		for _, n := range hp.Nodes {
			tracepoints = append(tracepoints, n.TracepointID)
		}
		l.Budget.UpdateNewPaths(now, tracepoints, tr.RequestType)
	}

	switch {
	case overBudget || now.Sub(l.lastGC) >= l.GCEpoch:
		l.runGC(ctx, now)
	case now.Sub(l.lastDecision) >= l.DecisionEpoch:
		l.runDecision(ctx)
	}
}

func (l *Loop) runGC(ctx context.Context, now time.Time) {
	old := l.Budget.OldTracepoints(now)
	if len(old) == 0 {
		l.lastGC = now
		return
	}
	keys := make([]controller.Key, len(old))
	for i, o := range old {
		rt := o.RequestType
		keys[i] = controller.Key{Tracepoint: o.Tracepoint, RequestType: &rt}
	}
	if err := l.Controller.Disable(ctx, keys); err != nil {
		log.Warnf("decision: disabling stale tracepoints: %v", err)
	}
	l.Metrics.Count("pythia.decision.gc_disabled", int64(len(keys)), nil)
	l.lastGC = now
}

func (l *Loop) runDecision(ctx context.Context) {
	l.Groups.ResetEpoch()
	l.Budget.ResetEpoch(l.TracepointsPerEpoch)

	for _, g := range l.Groups.ProblemGroups() {
		if l.Budget.Available <= 0 {
			break
		}
		edges := g.ProblemEdges()
		if len(edges) > maxProblemEdgesPerGroup {
			edges = edges[:maxProblemEdgesPerGroup]
		}

		enabledAny := false
		for _, edge := range edges {
			if l.Budget.Available <= 0 {
				break
			}
			tracepoints, state := l.Strategy.Search(g, edge, l.Budget.Available, l.Manifest, l.Controller)
			if len(tracepoints) > 0 {
				rt := g.RequestType
				keys := make([]controller.Key, len(tracepoints))
				for i, tp := range tracepoints {
					keys[i] = controller.Key{Tracepoint: tp, RequestType: &rt}
				}
				if err := l.Controller.Enable(ctx, keys); err != nil {
					log.Warnf("decision: enabling tracepoints: %v", err)
				} else {
					enabledAny = true
					l.Budget.Spend(len(tracepoints))
				}
			}
			if state == search.DepletedBudget {
				break
			}
		}
		if enabledAny {
			l.Groups.MarkUsed(g.Hash)
		}
	}
	l.lastDecision = time.Now()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
