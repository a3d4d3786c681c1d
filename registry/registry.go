// Package registry maps tool kinds and tracking identifiers to codec
// adapters.
//
// Two indexes are kept under one mutex: the tool-kind map (one adapter per
// kind, replace-or-reject on collision) and the tracking-identifier map.
// The identifier map doubles as a cache: resolving an unseen identifier
// probes every adapter's own validator and, on success, stores the mapping
// for future exact lookups. Because that makes resolution a write path, a
// single lock covers both maps.
package registry

import (
	"fmt"
	"sync"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
)

// EncodeContext carries everything an adapter needs to encode one
// annotation into its tool-specific representation.
type EncodeContext struct {
	// Annotation is the record being encoded.
	Annotation *sr.AnnotationState

	// Ref is the referenced image shared by all measurements on this
	// source image; nil when the source is volume-anchored.
	Ref *content.ReferencedSOP

	// FrameOfReferenceUID of the source, for the 3-D branch.
	FrameOfReferenceUID string

	// ImageID is the application identity of the source image.
	ImageID string

	// WorldToImage converts annotation points to pixel space.
	WorldToImage geometry.WorldToImageFunc
}

// DecodeContext carries a located measurement group and its resolved
// identity into an adapter's decode step.
type DecodeContext struct {
	// Group is the measurement-group container node.
	Group *content.Node

	// TrackingIdentifier is the group's tracking identifier text.
	TrackingIdentifier string

	// TrackingUID is the tracking unique identifier, empty when absent.
	TrackingUID string

	// Resolver resolves the group's spatial context.
	Resolver *geometry.Resolver
}

// Adapter is the codec strategy for one tool kind.
type Adapter interface {
	// ToolKind returns the tool-kind name the adapter serves.
	ToolKind() string

	// TrackingIdentifier returns the primary identifier text the adapter
	// writes into new groups.
	TrackingIdentifier() string

	// OwnsIdentifier reports whether the adapter claims an identifier it
	// did not register explicitly (parametrized or prefix-style forms).
	OwnsIdentifier(identifier string) bool

	// Encode produces the tool-specific measurement payload items, in
	// document order.
	Encode(ctx *EncodeContext) ([]*content.Node, error)

	// Decode extracts an annotation record from a measurement group.
	Decode(ctx *DecodeContext) (*sr.AnnotationState, error)
}

// RegisterOption configures a Register call.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	replaceAllowed bool
	onReplace      func(prev Adapter)
}

// WithReplace permits overwriting an existing registration for the same
// tool kind. The callback, when non-nil, receives the previous adapter
// before the overwrite so it can chain or delegate to it.
func WithReplace(onReplace func(prev Adapter)) RegisterOption {
	return func(c *registerConfig) {
		c.replaceAllowed = true
		c.onReplace = onReplace
	}
}

// Registry holds adapter registrations. The zero value is not usable;
// construct with NewRegistry. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	byToolKind   map[string]Adapter
	byIdentifier map[string]Adapter
	order        []Adapter // registration order, for deterministic probing

	metrics *sr.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byToolKind:   make(map[string]Adapter),
		byIdentifier: make(map[string]Adapter),
	}
}

// SetMetrics attaches a metrics collector to resolve lookups.
func (r *Registry) SetMetrics(m *sr.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register adds an adapter under its tool-kind name and indexes its
// primary tracking identifier. Registering an already-present tool kind
// fails with ErrDuplicateToolKind unless WithReplace is supplied.
func (r *Registry) Register(a Adapter, opts ...RegisterOption) error {
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kind := a.ToolKind()
	if prev, exists := r.byToolKind[kind]; exists {
		if !cfg.replaceAllowed {
			return fmt.Errorf("%q: %w", kind, sr.ErrDuplicateToolKind)
		}
		if cfg.onReplace != nil {
			cfg.onReplace(prev)
		}
		for i, existing := range r.order {
			if existing == prev {
				r.order[i] = a
				break
			}
		}
	} else {
		r.order = append(r.order, a)
	}

	r.byToolKind[kind] = a
	r.byIdentifier[a.TrackingIdentifier()] = a
	return nil
}

// RegisterTrackingIdentifiers adds extra identifier-to-adapter mappings
// without touching the tool-kind map, so one adapter can answer to several
// legacy identifier strings.
func (r *Registry) RegisterTrackingIdentifiers(a Adapter, identifiers ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range identifiers {
		r.byIdentifier[id] = a
	}
}

// Resolve returns the adapter claiming the tracking identifier, or nil
// when none does. Exact lookups hit the identifier map; on a miss every
// registered adapter's OwnsIdentifier is probed in registration order and
// the first success is cached. Callers must treat nil as "skip this
// group", never as a document failure.
func (r *Registry) Resolve(identifier string) Adapter {
	r.mu.RLock()
	a, ok := r.byIdentifier[identifier]
	m := r.metrics
	r.mu.RUnlock()
	if ok {
		m.RecordResolveHit()
		return a
	}

	// Probe-and-cache mutates the identifier map, so take the write lock
	// and re-check under it.
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byIdentifier[identifier]; ok {
		r.metrics.RecordResolveHit()
		return a
	}

	r.metrics.RecordResolveProbe()
	for _, candidate := range r.order {
		if candidate.OwnsIdentifier(identifier) {
			r.byIdentifier[identifier] = candidate
			return candidate
		}
	}

	r.metrics.RecordResolveMiss()
	return nil
}

// ForToolKind returns the adapter registered for a tool kind, or nil.
func (r *Registry) ForToolKind(name string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byToolKind[name]
}

// ToolKinds returns the registered tool kinds in registration order.
func (r *Registry) ToolKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.order))
	for _, a := range r.order {
		kinds = append(kinds, a.ToolKind())
	}
	return kinds
}

// Default is the process-wide registry, populated by each tool kind's
// registration call during initialization.
var Default = NewRegistry()

// Register adds an adapter to the default registry.
func Register(a Adapter, opts ...RegisterOption) error {
	return Default.Register(a, opts...)
}

// RegisterTrackingIdentifiers adds identifier mappings to the default
// registry.
func RegisterTrackingIdentifiers(a Adapter, identifiers ...string) {
	Default.RegisterTrackingIdentifiers(a, identifiers...)
}

// Resolve looks up a tracking identifier in the default registry.
func Resolve(identifier string) Adapter {
	return Default.Resolve(identifier)
}

// ForToolKind looks up a tool kind in the default registry.
func ForToolKind(name string) Adapter {
	return Default.ForToolKind(name)
}
