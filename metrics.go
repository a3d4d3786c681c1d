package srreport

import (
	"sync/atomic"
	"time"
)

// Metrics tracks codec activity using lock-free atomic counters.
// All methods are safe for concurrent use. A nil *Metrics is valid and
// records nothing, so callers may leave it unset.
type Metrics struct {
	groupsEncoded atomic.Uint64
	groupsDecoded atomic.Uint64
	groupsSkipped atomic.Uint64

	documentsBuilt  atomic.Uint64
	documentsParsed atomic.Uint64

	// Registry fallback lookups
	resolveHits   atomic.Uint64
	resolveProbes atomic.Uint64
	resolveMisses atomic.Uint64

	buildTimeTotal atomic.Uint64 // nanoseconds
	parseTimeTotal atomic.Uint64 // nanoseconds
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordGroupEncoded records one annotation encoded into a group.
func (m *Metrics) RecordGroupEncoded() {
	if m != nil {
		m.groupsEncoded.Add(1)
	}
}

// RecordGroupDecoded records one group decoded into an annotation.
func (m *Metrics) RecordGroupDecoded() {
	if m != nil {
		m.groupsDecoded.Add(1)
	}
}

// RecordGroupSkipped records one group excluded from a parse result.
func (m *Metrics) RecordGroupSkipped() {
	if m != nil {
		m.groupsSkipped.Add(1)
	}
}

// RecordBuild records a completed document assembly.
func (m *Metrics) RecordBuild(d time.Duration) {
	if m != nil {
		m.documentsBuilt.Add(1)
		m.buildTimeTotal.Add(uint64(d.Nanoseconds()))
	}
}

// RecordParse records a completed document parse.
func (m *Metrics) RecordParse(d time.Duration) {
	if m != nil {
		m.documentsParsed.Add(1)
		m.parseTimeTotal.Add(uint64(d.Nanoseconds()))
	}
}

// RecordResolveHit records a fast-path registry lookup.
func (m *Metrics) RecordResolveHit() {
	if m != nil {
		m.resolveHits.Add(1)
	}
}

// RecordResolveProbe records a fallback probe over adapter validators.
func (m *Metrics) RecordResolveProbe() {
	if m != nil {
		m.resolveProbes.Add(1)
	}
}

// RecordResolveMiss records a lookup no adapter claimed.
func (m *Metrics) RecordResolveMiss() {
	if m != nil {
		m.resolveMisses.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	GroupsEncoded uint64 `json:"groups_encoded"`
	GroupsDecoded uint64 `json:"groups_decoded"`
	GroupsSkipped uint64 `json:"groups_skipped"`

	DocumentsBuilt  uint64 `json:"documents_built"`
	DocumentsParsed uint64 `json:"documents_parsed"`

	ResolveHits   uint64 `json:"resolve_hits"`
	ResolveProbes uint64 `json:"resolve_probes"`
	ResolveMisses uint64 `json:"resolve_misses"`

	BuildTimeTotalNs uint64 `json:"build_time_total_ns"`
	ParseTimeTotalNs uint64 `json:"parse_time_total_ns"`
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Timestamp: time.Now()}
	}
	return MetricsSnapshot{
		Timestamp:        time.Now(),
		GroupsEncoded:    m.groupsEncoded.Load(),
		GroupsDecoded:    m.groupsDecoded.Load(),
		GroupsSkipped:    m.groupsSkipped.Load(),
		DocumentsBuilt:   m.documentsBuilt.Load(),
		DocumentsParsed:  m.documentsParsed.Load(),
		ResolveHits:      m.resolveHits.Load(),
		ResolveProbes:    m.resolveProbes.Load(),
		ResolveMisses:    m.resolveMisses.Load(),
		BuildTimeTotalNs: m.buildTimeTotal.Load(),
		ParseTimeTotalNs: m.parseTimeTotal.Load(),
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.groupsEncoded.Store(0)
	m.groupsDecoded.Store(0)
	m.groupsSkipped.Store(0)
	m.documentsBuilt.Store(0)
	m.documentsParsed.Store(0)
	m.resolveHits.Store(0)
	m.resolveProbes.Store(0)
	m.resolveMisses.Store(0)
	m.buildTimeTotal.Store(0)
	m.parseTimeTotal.Store(0)
}
