package grouping

import (
	"sort"

	"github.com/docc-lab/pythia/internal/critical"
)

// Manager ingests new critical paths, routes each to its group by
// content hash, and surfaces the groups with the highest duration
// variance that haven't been "used" by a decision yet this epoch
// (§4.F, §4.G).
type Manager struct {
	groups map[[32]byte]*Group
}

// NewManager returns an empty GroupManager.
func NewManager() *Manager {
	return &Manager{groups: make(map[[32]byte]*Group)}
}

// Ingest routes p to its group, creating one if this is the first
// observation of p's hash.
func (m *Manager) Ingest(p *critical.HierarchicalCriticalPath) {
	if g, ok := m.groups[p.Hash]; ok {
		g.Add(p)
		return
	}
	m.groups[p.Hash] = NewGroup(p)
}

// ProblemGroups returns every group not yet marked used this epoch,
// sorted by descending trace-duration variance (§4.F problem_groups()).
func (m *Manager) ProblemGroups() []*Group {
	var out []*Group
	for _, g := range m.groups {
		if !g.Used {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Variance() > out[j].Variance() })
	return out
}

// MarkUsed flags a group as used, excluding it from ProblemGroups until
// ResetEpoch runs.
func (m *Manager) MarkUsed(hash [32]byte) {
	if g, ok := m.groups[hash]; ok {
		g.Used = true
	}
}

// ResetEpoch clears every group's used flag at the start of a new
// decision epoch.
func (m *Manager) ResetEpoch() {
	for _, g := range m.groups {
		g.Used = false
	}
}

// Group returns the group for a hash, or nil.
func (m *Manager) Group(hash [32]byte) *Group { return m.groups[hash] }

// Len reports the number of distinct groups tracked.
func (m *Manager) Len() int { return len(m.groups) }
