package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
	"github.com/godicom/srreport/metadata"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/pkg/dcmuid"
	"github.com/godicom/srreport/registry"
)

// ByImage is the assembler's input shape: annotations grouped first by
// source image (or volume) ID, then by tool kind.
type ByImage map[string]map[string][]*sr.AnnotationState

// Assembler builds TID 1500 documents from annotation records.
type Assembler struct {
	// Provider supplies per-image metadata modules.
	Provider metadata.Provider

	// Registry supplies the tool-kind adapters; nil uses the default
	// registry.
	Registry *registry.Registry

	// WorldToImage converts patient-space points to pixel space for
	// image-anchored sources.
	WorldToImage geometry.WorldToImageFunc

	// Options configures the document header; nil uses the defaults.
	Options *sr.Options
}

// Assemble builds a document in one call with the given options.
func Assemble(annotations ByImage, provider metadata.Provider, worldToImage geometry.WorldToImageFunc, reg *registry.Registry, opts ...sr.Option) (dicom.Dataset, error) {
	a := &Assembler{
		Provider:     provider,
		Registry:     reg,
		WorldToImage: worldToImage,
		Options:      sr.Apply(opts...),
	}
	return a.Build(annotations)
}

// Build encodes every annotation into a measurement group and wraps the
// groups in a complete SR dataset. Unlike parsing, assembly fails on the
// first error: the inputs are caller-controlled, so a failure is a bug to
// surface, not a document defect to tolerate.
func (a *Assembler) Build(annotations ByImage) (dicom.Dataset, error) {
	opts := a.Options
	if opts == nil {
		opts = sr.DefaultOptions()
	}
	start := time.Now()

	codec := &Codec{Registry: a.Registry}
	derivations := newDerivationSet(a.Provider)

	var groups []*content.Node
	anyVolume := false

	for _, imageID := range sortedKeys(annotations) {
		ref, err := a.sourceIdentity(imageID)
		if err != nil {
			return dicom.Dataset{}, fmt.Errorf("source %q: %w", imageID, err)
		}
		if ref == nil {
			anyVolume = true
			repID, repRef, err := a.representativeImage(imageID)
			if err != nil {
				return dicom.Dataset{}, fmt.Errorf("source %q: %w", imageID, err)
			}
			if repRef != nil {
				if err := derivations.observe(repID, *repRef); err != nil {
					return dicom.Dataset{}, fmt.Errorf("source %q: %w", imageID, err)
				}
			}
		} else if err := derivations.observe(imageID, *ref); err != nil {
			return dicom.Dataset{}, fmt.Errorf("source %q: %w", imageID, err)
		}

		byKind := annotations[imageID]
		for _, kind := range sortedKeys(byKind) {
			for _, ann := range byKind[kind] {
				group, err := codec.Encode(kind, &registry.EncodeContext{
					Annotation:          ann,
					Ref:                 ref,
					FrameOfReferenceUID: ann.FrameOfReferenceUID,
					ImageID:             imageID,
					WorldToImage:        a.WorldToImage,
				})
				if err != nil {
					return dicom.Dataset{}, fmt.Errorf("source %q: %w", imageID, err)
				}
				groups = append(groups, group)
				opts.Metrics.RecordGroupEncoded()
			}
		}
	}

	ds, err := a.dataset(opts, derivations, groups, anyVolume)
	if err != nil {
		return dicom.Dataset{}, err
	}
	opts.Metrics.RecordBuild(time.Since(start))
	return ds, nil
}

// sourceIdentity resolves a source ID to its referenced-image identity.
// A source with no SOP-common module is a volume: its annotations anchor
// to a frame of reference and the whole document becomes a 3-D SR.
func (a *Assembler) sourceIdentity(imageID string) (*content.ReferencedSOP, error) {
	sop, err := metadata.SOPCommonOf(a.Provider, imageID)
	if err != nil {
		if errors.Is(err, sr.ErrMissingModule) {
			return nil, nil
		}
		return nil, err
	}

	ref := &content.ReferencedSOP{
		ClassUID:    sop.SOPClassUID,
		InstanceUID: sop.SOPInstanceUID,
	}
	if mf, ok := metadata.MultiframeOf(a.Provider, imageID); ok && mf.NumberOfFrames > 1 {
		ref.FrameNumber = metadata.FrameNumberOf(a.Provider, imageID)
		if ref.FrameNumber == 0 {
			ref.FrameNumber = 1
		}
	}
	return ref, nil
}

// representativeImage resolves a volume source to its first member image
// so study identity and evidence still derive from acquired instances.
// Volumes without a member-image module contribute no provenance.
func (a *Assembler) representativeImage(sourceID string) (string, *content.ReferencedSOP, error) {
	vol, ok := metadata.VolumeImagesOf(a.Provider, sourceID)
	if !ok || len(vol.ImageIDs) == 0 {
		return "", nil, nil
	}
	imageID := vol.ImageIDs[0]
	sop, err := metadata.SOPCommonOf(a.Provider, imageID)
	if err != nil {
		return "", nil, fmt.Errorf("volume member %q: %w", imageID, err)
	}
	return imageID, &content.ReferencedSOP{
		ClassUID:    sop.SOPClassUID,
		InstanceUID: sop.SOPInstanceUID,
	}, nil
}

// rootNode builds the document content tree: observation context, the
// image library, and the Imaging Measurements container holding the
// groups.
func (a *Assembler) rootNode(opts *sr.Options, derivations *derivationSet, groups []*content.Node) *content.Node {
	root := content.NewContainer(code.ImagingMeasurementReport, content.ContinuitySeparate)
	root.Add(content.RelHasConceptMod, content.NewCode(code.LanguageOfContent, opts.Language))
	if opts.PersonObserver != "" {
		root.Add(content.RelHasObsContext, content.NewPName(code.PersonObserverName, opts.PersonObserver))
	}

	library := content.NewContainer(code.ImageLibrary, content.ContinuitySeparate)
	for _, seriesUID := range derivations.order {
		group := content.NewContainer(code.ImageLibraryGroup, content.ContinuitySeparate)
		for _, ref := range derivations.evidence[seriesUID] {
			r := ref
			group.Add(content.RelContains, content.NewImage(&r))
		}
		library.Add(content.RelContains, group)
	}
	root.Add(content.RelContains, library)

	measurements := content.NewContainer(code.ImagingMeasurements, content.ContinuitySeparate)
	for _, g := range groups {
		measurements.Add(content.RelContains, g)
	}
	root.Add(content.RelContains, measurements)
	return root
}

// dataset renders the document as dataset elements in ascending tag
// order.
func (a *Assembler) dataset(opts *sr.Options, derivations *derivationSet, groups []*content.Node, anyVolume bool) (dicom.Dataset, error) {
	sopClass := dcmuid.ComprehensiveSR
	if anyVolume {
		sopClass = dcmuid.Comprehensive3DSR
	}
	sopInstance := dcmuid.New()
	now := time.Now()

	var study metadata.GeneralStudy
	if first := derivations.first(); first != nil {
		study = first.Study
	}
	if study.StudyInstanceUID == "" {
		study.StudyInstanceUID = dcmuid.New()
	}

	var b elementBuilder
	b.add(tag.MediaStorageSOPClassUID, []string{sopClass})
	b.add(tag.MediaStorageSOPInstanceUID, []string{sopInstance})
	b.add(tag.TransferSyntaxUID, []string{dcmuid.ExplicitVRLittleEndian})
	b.add(tag.ImplementationClassUID, []string{dcmuid.ImplementationClassUID})
	b.add(tag.ImplementationVersionName, []string{dcmuid.ImplementationVersionName})

	b.add(tag.SpecificCharacterSet, []string{opts.SpecificCharacterSet})
	b.add(tag.SOPClassUID, []string{sopClass})
	b.add(tag.SOPInstanceUID, []string{sopInstance})
	b.add(tag.StudyDate, []string{study.StudyDate})
	b.add(tag.ContentDate, []string{now.Format("20060102")})
	b.add(tag.StudyTime, []string{study.StudyTime})
	b.add(tag.ContentTime, []string{now.Format("150405")})
	b.add(tag.AccessionNumber, []string{study.AccessionNumber})
	b.add(tag.Modality, []string{"SR"})
	b.add(tag.SeriesDescription, []string{opts.SeriesDescription})

	b.add(tag.StudyInstanceUID, []string{study.StudyInstanceUID})
	b.add(tag.SeriesInstanceUID, []string{dcmuid.New()})
	b.add(tag.SeriesNumber, []string{strconv.Itoa(opts.SeriesNumber)})
	b.add(tag.InstanceNumber, []string{strconv.Itoa(opts.InstanceNumber)})

	rootElems, err := content.ToElements(a.rootNode(opts, derivations, groups))
	if err != nil {
		return dicom.Dataset{}, err
	}
	if b.err != nil {
		return dicom.Dataset{}, b.err
	}
	// The root item's ContentSequence is its last element; the remaining
	// document-level 0040 elements sort between the root payload and it.
	body := rootElems[:len(rootElems)-1]
	contentSeq := rootElems[len(rootElems)-1]
	b.elems = append(b.elems, body...)

	if !derivations.empty() {
		evidence, err := derivations.evidenceElement()
		if err != nil {
			return dicom.Dataset{}, err
		}
		b.elems = append(b.elems, evidence)
	}

	b.add(tag.CompletionFlag, []string{opts.CompletionFlag})
	b.add(tag.VerificationFlag, []string{opts.VerificationFlag})
	b.addSequence(tag.ContentTemplateSequence, [][]*dicom.Element{templateItem()})
	if b.err != nil {
		return dicom.Dataset{}, b.err
	}
	b.elems = append(b.elems, contentSeq)

	return dicom.Dataset{Elements: b.elems}, nil
}

func templateItem() []*dicom.Element {
	var b elementBuilder
	b.add(tag.MappingResource, []string{sr.MappingResource})
	b.add(tag.TemplateIdentifier, []string{sr.TemplateIdentifier})
	return b.elems
}

// Write serializes an assembled dataset as a part-10 DICOM stream.
func Write(w io.Writer, ds dicom.Dataset) error {
	return dicom.Write(w, ds, dicom.SkipVRVerification())
}

// elementBuilder accumulates dataset elements, capturing the first
// construction error so call sites stay linear.
type elementBuilder struct {
	elems []*dicom.Element
	err   error
}

func (b *elementBuilder) add(t tag.Tag, value any) {
	if b.err != nil {
		return
	}
	el, err := dicom.NewElement(t, value)
	if err != nil {
		b.err = fmt.Errorf("build element %v: %w", t, err)
		return
	}
	b.elems = append(b.elems, el)
}

func (b *elementBuilder) addSequence(t tag.Tag, items [][]*dicom.Element) {
	b.add(t, items)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
