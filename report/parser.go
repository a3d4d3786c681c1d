package report

import (
	"fmt"
	"time"

	"github.com/suyashkumar/dicom"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
	"github.com/godicom/srreport/metadata"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/pkg/logger"
	"github.com/godicom/srreport/registry"
)

// Result is the outcome of parsing one document. Failed groups leave an
// Issue and are excluded from ByToolKind; the two views together account
// for every measurement group in the document.
type Result struct {
	// ByToolKind holds the decoded annotations, keyed by tool kind, in
	// document order within each kind.
	ByToolKind map[string][]*sr.AnnotationState `json:"byToolKind"`

	// Issues records every skipped group.
	Issues []sr.Issue `json:"issues,omitempty"`
}

// Total returns the number of decoded annotations.
func (r *Result) Total() int {
	n := 0
	for _, anns := range r.ByToolKind {
		n += len(anns)
	}
	return n
}

// Parser extracts annotation records from TID 1500 documents.
type Parser struct {
	// Provider supplies per-image metadata modules for referenced images.
	Provider metadata.Provider

	// Registry resolves tracking identifiers; nil uses the default
	// registry.
	Registry *registry.Registry

	// ImageIDs maps referenced SOP Instance UIDs to application image
	// IDs.
	ImageIDs map[string]string

	// ImageToWorld converts pixel-space points to patient space.
	ImageToWorld geometry.ImageToWorldFunc

	// ResolveOverride, when set, is consulted before the registry for
	// each group's tracking identifier.
	ResolveOverride func(trackingIdentifier string) registry.Adapter

	// Options configures diagnostics; nil uses the defaults.
	Options *sr.Options
}

// Parse parses a document in one call with the given options.
func Parse(ds dicom.Dataset, provider metadata.Provider, imageIDs map[string]string, imageToWorld geometry.ImageToWorldFunc, reg *registry.Registry, opts ...sr.Option) (*Result, error) {
	p := &Parser{
		Provider:     provider,
		Registry:     reg,
		ImageIDs:     imageIDs,
		ImageToWorld: imageToWorld,
		Options:      sr.Apply(opts...),
	}
	return p.Parse(ds)
}

// Parse decodes every measurement group in the document. A document not
// declaring template "1500" fails as a whole; anything wrong inside a
// single group skips that group with an Issue and leaves the rest of the
// result intact.
func (p *Parser) Parse(ds dicom.Dataset) (*Result, error) {
	opts := p.Options
	if opts == nil {
		opts = sr.DefaultOptions()
	}
	// A literal Options value may carry a nil logger; metrics are nil-safe
	// already, the logger needs the same treatment.
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	start := time.Now()

	if id := content.TemplateIdentifier(ds); id != sr.TemplateIdentifier {
		return nil, fmt.Errorf("template %q: %w", id, sr.ErrUnsupportedTemplate)
	}

	root, err := content.FromDataset(ds)
	if err != nil {
		return nil, fmt.Errorf("read content tree: %w", err)
	}

	result := &Result{ByToolKind: make(map[string][]*sr.AnnotationState)}

	section := root.FindByConcept(code.ImagingMeasurements)
	if section == nil {
		section = root.FindByMeaning(code.ImagingMeasurements.Meaning)
	}
	if section == nil {
		result.Issues = append(result.Issues, sr.Issue{
			Severity:    sr.SeverityInformation,
			Code:        sr.IssueDecodeFailed,
			Diagnostics: "document contains no Imaging Measurements section",
		})
		opts.Metrics.RecordParse(time.Since(start))
		return result, nil
	}

	resolver := &geometry.Resolver{
		Provider:     p.Provider,
		ImageIDs:     p.ImageIDs,
		ImageToWorld: p.ImageToWorld,
	}
	codec := &Codec{Registry: p.Registry, ResolveOverride: p.ResolveOverride}

	for i, group := range section.Children {
		if group.Type != content.TypeContainer {
			continue
		}
		if !group.MatchesConcept(code.MeasurementGroup) && !group.MatchesMeaning(code.MeasurementGroup.Meaning) {
			continue
		}

		ann, err := codec.Decode(i, group, resolver)
		if err != nil {
			log.Warn("skipping measurement group: %v", err)
			opts.Metrics.RecordGroupSkipped()
			result.Issues = append(result.Issues, issueFor(i, err))
			continue
		}

		opts.Metrics.RecordGroupDecoded()
		result.ByToolKind[ann.ToolName] = append(result.ByToolKind[ann.ToolName], ann)
	}

	opts.Metrics.RecordParse(time.Since(start))
	return result, nil
}

// ParseFile reads a part-10 DICOM file and parses it.
func (p *Parser) ParseFile(path string) (*Result, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Parse(ds)
}
