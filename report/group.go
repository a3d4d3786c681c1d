// Package report assembles annotation records into TID 1500 Measurement
// Report documents and parses such documents back into annotation
// records.
//
// Assembly is all-or-nothing: the caller controls its inputs, so any
// failure aborts the build. Parsing is group-isolated: a failing
// measurement group is skipped with an Issue while the remaining groups
// still decode.
package report

import (
	"errors"
	"fmt"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/pkg/dcmuid"
	"github.com/godicom/srreport/registry"
)

// Codec converts between annotation records and measurement-group
// containers. It owns the group envelope (tracking items, finding,
// finding sites, label carriers); the tool-specific payload inside the
// envelope is delegated to the resolved adapter.
type Codec struct {
	// Registry resolves tool kinds and tracking identifiers to adapters.
	Registry *registry.Registry

	// ResolveOverride, when set, is consulted before the registry on
	// decode. Returning nil falls through to the registry.
	ResolveOverride func(trackingIdentifier string) registry.Adapter
}

func (c *Codec) registry() *registry.Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return registry.Default
}

// Encode renders one annotation as a measurement-group container. The
// adapter for toolKind writes the measurement payload; the codec wraps it
// with tracking items and the annotation's finding content.
func (c *Codec) Encode(toolKind string, ectx *registry.EncodeContext) (*content.Node, error) {
	adapter := c.registry().ForToolKind(toolKind)
	if adapter == nil {
		return nil, fmt.Errorf("tool kind %q: %w", toolKind, sr.ErrUnresolvedAdapter)
	}
	ann := ectx.Annotation

	trackingUID := ann.TrackingUID
	if trackingUID == "" {
		trackingUID = dcmuid.New()
	}

	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelHasObsContext, content.NewText(code.TrackingIdentifier, adapter.TrackingIdentifier()))
	group.Add(content.RelHasObsContext, content.NewUID(code.TrackingUniqueIdentifier, trackingUID))

	if ann.Finding != nil {
		group.Add(content.RelContains, content.NewCode(code.Finding, *ann.Finding))
	}
	for _, site := range ann.FindingSites {
		group.Add(content.RelContains, content.NewCode(code.FindingSite, site))
	}
	// The user-visible label travels as a free-text finding site; decode
	// strips it back out of the site list.
	if ann.Label != "" {
		group.Add(content.RelContains, content.NewCode(code.FindingSite, code.FreeText(ann.Label)))
	}

	payload, err := adapter.Encode(ectx)
	if err != nil {
		return nil, fmt.Errorf("adapter %q: %w", toolKind, err)
	}
	for _, item := range payload {
		group.Add(content.RelContains, item)
	}
	return group, nil
}

// Decode extracts one annotation from a measurement-group container.
// index names the group's position under the Imaging Measurements
// container; all errors are wrapped in a GroupError carrying it.
func (c *Codec) Decode(index int, group *content.Node, resolver *geometry.Resolver) (*sr.AnnotationState, error) {
	tracking := group.FindByConcept(code.TrackingIdentifier)
	if tracking == nil {
		// Some producers omit the code on tracking items and carry only
		// the concept meaning.
		tracking = group.FindByMeaning(code.TrackingIdentifier.Meaning)
	}
	if tracking == nil || tracking.Text == "" {
		return nil, &sr.GroupError{Index: index, Err: sr.ErrMissingTrackingIdentifier}
	}
	identifier := tracking.Text

	var adapter registry.Adapter
	if c.ResolveOverride != nil {
		adapter = c.ResolveOverride(identifier)
	}
	if adapter == nil {
		adapter = c.registry().Resolve(identifier)
	}
	if adapter == nil {
		return nil, &sr.GroupError{
			Index:              index,
			TrackingIdentifier: identifier,
			Err:                fmt.Errorf("%q: %w", identifier, sr.ErrUnresolvedAdapter),
		}
	}

	dctx := &registry.DecodeContext{
		Group:              group,
		TrackingIdentifier: identifier,
		Resolver:           resolver,
	}
	uid := group.FindByConcept(code.TrackingUniqueIdentifier)
	if uid == nil {
		uid = group.FindByMeaning(code.TrackingUniqueIdentifier.Meaning)
	}
	if uid != nil {
		dctx.TrackingUID = uid.UID
	}

	ann, err := adapter.Decode(dctx)
	if err != nil {
		return nil, &sr.GroupError{Index: index, TrackingIdentifier: identifier, Err: err}
	}

	ann.AnnotationUID = dcmuid.New()
	ann.TrackingUID = dctx.TrackingUID
	ann.ToolName = adapter.ToolKind()
	applyFindingContent(group, ann)
	return ann, nil
}

// applyFindingContent reads the group's finding and finding-site items
// into the annotation and derives the label. Free-text entries are label
// carriers, not clinical content: they set Label and are excluded from
// Finding and FindingSites. A free-text site takes precedence over a
// free-text finding, first site wins.
func applyFindingContent(group *content.Node, ann *sr.AnnotationState) {
	var findingLabel string
	if f := group.FindByConcept(code.Finding); f != nil {
		if code.IsFreeText(f.Code) {
			findingLabel = f.Code.Meaning
		} else {
			finding := f.Code
			ann.Finding = &finding
			ann.Description = finding.Meaning
		}
	}

	for _, siteNode := range group.FindAllByConcept(code.FindingSite, code.FindingSiteLegacy) {
		if code.IsFreeText(siteNode.Code) {
			if ann.Label == "" {
				ann.Label = siteNode.Code.Meaning
			}
			continue
		}
		ann.FindingSites = append(ann.FindingSites, siteNode.Code)
	}

	if ann.Label == "" {
		ann.Label = findingLabel
	}
}

// issueFor classifies a group-decode failure into a parse issue.
func issueFor(index int, err error) sr.Issue {
	issue := sr.Issue{
		Severity:    sr.SeverityError,
		Code:        sr.IssueDecodeFailed,
		Diagnostics: err.Error(),
		GroupIndex:  index,
	}

	var ge *sr.GroupError
	if errors.As(err, &ge) {
		issue.GroupIndex = ge.Index
		issue.TrackingIdentifier = ge.TrackingIdentifier
	}

	switch {
	case errors.Is(err, sr.ErrUnresolvedAdapter):
		issue.Code = sr.IssueUnresolvedAdapter
	case errors.Is(err, sr.ErrMissingTrackingIdentifier):
		issue.Code = sr.IssueMissingTracking
	case errors.Is(err, sr.ErrMissingSpatialContext):
		issue.Code = sr.IssueMissingSpatialContext
	case errors.Is(err, sr.ErrMissingModule):
		issue.Code = sr.IssueMissingModule
	}
	return issue
}
