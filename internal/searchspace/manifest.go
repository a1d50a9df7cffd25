package searchspace

import (
	"io/ioutil"
	"regexp"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/model"
)

// Manifest is the persisted artifact from §3: one SearchSpace per
// request type, plus the request-type discriminator tracepoints used
// to classify an incoming trace before its critical path is known
// (SPEC_FULL.md §12, supplemented from manifest/mod.rs's
// request_type_tracepoints).
type Manifest struct {
	PerRequestType         map[string]*SearchSpace
	RequestTypeTracepoints []model.TracepointID
}

// NewManifest returns an empty Manifest.
func NewManifest() *Manifest {
	return &Manifest{PerRequestType: make(map[string]*SearchSpace)}
}

// SearchSpaceFor returns (creating if necessary) the SearchSpace for a
// request type.
func (m *Manifest) SearchSpaceFor(requestType string) *SearchSpace {
	s, ok := m.PerRequestType[requestType]
	if !ok {
		s = New()
		m.PerRequestType[requestType] = s
	}
	return s
}

// AddRequestTypeTracepoints scans a trace's nodes for tracepoints whose
// name matches one of the configured request-type patterns, appending
// any match to RequestTypeTracepoints. A request-type pattern names a
// call site that only ever appears when serving one particular request
// type (an API entry method, say), so seeing it enabled is itself
// enough to classify the request before any critical path is known.
// The deployment supplies the patterns (config.Config.RequestTypeRegexes)
// since they are specific to the instrumented application, the way the
// original's OpenStack client-method regexes were specific to Nova and
// Neutron CLI call sites.
func (m *Manifest) AddRequestTypeTracepoints(trace *model.Trace, patterns []*regexp.Regexp) {
	if len(patterns) == 0 {
		return
	}
	for _, n := range trace.Nodes {
		name := n.TracepointID.String()
		for _, re := range patterns {
			if re.MatchString(name) {
				m.RequestTypeTracepoints = append(m.RequestTypeTracepoints, n.TracepointID)
				break
			}
		}
	}
}

// Skeleton returns the minimum tracepoint set that must stay enabled
// to classify incoming requests: every search space's entry points,
// union the request-type discriminator tracepoints (§4.J initial
// state).
func (m *Manifest) Skeleton() []model.TracepointID {
	seen := make(map[model.TracepointID]bool)
	var out []model.TracepointID
	add := func(tp model.TracepointID) {
		if !seen[tp] {
			seen[tp] = true
			out = append(out, tp)
		}
	}
	for _, s := range m.PerRequestType {
		for tp := range s.EntryPoints {
			add(tp)
		}
	}
	for _, tp := range m.RequestTypeTracepoints {
		add(tp)
	}
	return out
}

// Wire DTOs: the serialized form uses tracepoint strings rather than
// process-local TracepointID handles, since a handle's integer value
// is only stable within the process that interned it.

type wireEvent struct {
	TraceID        [16]byte
	Tracepoint     string
	TimestampNanos int64
	Variant        uint8
	IsSynthetic    bool
}

type wireHEdge struct {
	From, To int
}

type wirePath struct {
	Nodes          []wireEvent
	Hierarchical   []wireHEdge
	IsHypothetical bool
	RequestType    string
	Occurrences    int
}

type wireSearchSpace struct {
	Paths                 []wirePath
	EntryPoints           []string
	SynchronizationPoints []string
}

type wireManifest struct {
	PerRequestType         map[string]wireSearchSpace
	RequestTypeTracepoints []string
}

func toWireEvent(e model.Event) wireEvent {
	return wireEvent{
		TraceID:        e.TraceID,
		Tracepoint:     e.TracepointID.String(),
		TimestampNanos: e.Timestamp.UnixNano(),
		Variant:        uint8(e.Variant),
		IsSynthetic:    e.IsSynthetic,
	}
}

func fromWireEvent(w wireEvent) model.Event {
	return model.Event{
		TraceID:      w.TraceID,
		TracepointID: model.Intern(w.Tracepoint),
		Timestamp:    time.Unix(0, w.TimestampNanos),
		Variant:      model.EventVariant(w.Variant),
		IsSynthetic:  w.IsSynthetic,
	}
}

func toWirePath(m MatchResult) wirePath {
	w := wirePath{
		IsHypothetical: m.Path.IsHypothetical,
		RequestType:    m.Path.RequestType,
		Occurrences:    m.Occurrences,
	}
	for _, n := range m.Path.Nodes {
		w.Nodes = append(w.Nodes, toWireEvent(n))
	}
	for _, e := range m.Path.Hierarchical {
		w.Hierarchical = append(w.Hierarchical, wireHEdge{From: e.From, To: e.To})
	}
	return w
}

func fromWirePath(w wirePath) MatchResult {
	cp := &critical.CriticalPath{IsHypothetical: w.IsHypothetical, RequestType: w.RequestType}
	for _, n := range w.Nodes {
		cp.Nodes = append(cp.Nodes, fromWireEvent(n))
	}
	cp.Hash = critical.Hash(cp.Nodes)
	// Hierarchical edges are a pure function of the node sequence, so
	// they're rebuilt rather than round-tripped; the wire copy is
	// written by Marshal but not read back here.
	hp := critical.BuildHierarchical(cp)
	return MatchResult{Path: hp, Occurrences: w.Occurrences}
}

// Marshal serializes the Manifest with msgpack, following the
// teacher's compact binary wire preference (see SPEC_FULL.md §11 domain
// stack table) over encoding/gob or JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	w := wireManifest{PerRequestType: make(map[string]wireSearchSpace)}
	for _, tp := range m.RequestTypeTracepoints {
		w.RequestTypeTracepoints = append(w.RequestTypeTracepoints, tp.String())
	}
	for rt, space := range m.PerRequestType {
		ws := wireSearchSpace{}
		for _, mr := range space.AllPaths() {
			ws.Paths = append(ws.Paths, toWirePath(mr))
		}
		for tp := range space.EntryPoints {
			ws.EntryPoints = append(ws.EntryPoints, tp.String())
		}
		for tp := range space.SynchronizationPoints {
			ws.SynchronizationPoints = append(ws.SynchronizationPoints, tp.String())
		}
		w.PerRequestType[rt] = ws
	}
	return msgpack.Marshal(w)
}

// Unmarshal decodes a Manifest previously produced by Marshal,
// re-interning tracepoint strings into this process's TracepointID
// space.
func Unmarshal(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	m := NewManifest()
	for _, s := range w.RequestTypeTracepoints {
		m.RequestTypeTracepoints = append(m.RequestTypeTracepoints, model.Intern(s))
	}
	for rt, ws := range w.PerRequestType {
		space := m.SearchSpaceFor(rt)
		for _, wp := range ws.Paths {
			mr := fromWirePath(wp)
			space.insert(mr.Path, mr.Occurrences)
		}
		for _, s := range ws.EntryPoints {
			space.EntryPoints[model.Intern(s)] = true
		}
		for _, s := range ws.SynchronizationPoints {
			space.SynchronizationPoints[model.Intern(s)] = true
		}
	}
	return m, nil
}

// LoadManifest reads and decodes a manifest file from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Save serializes and writes the manifest to disk.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0o644)
}
