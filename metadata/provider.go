// Package metadata defines the per-image metadata provider boundary.
//
// The codec consumes module records keyed by (module name, image ID).
// Absence of a required module is a hard failure for the measurement group
// being processed, never for the whole call.
package metadata

import (
	"fmt"

	sr "github.com/godicom/srreport"
)

// Module names consumed by the codec.
const (
	ModuleImagePlane    = "imagePlaneModule"
	ModuleSOPCommon     = "sopCommonModule"
	ModuleGeneralSeries = "generalSeriesModule"
	ModuleGeneralStudy  = "generalStudyModule"
	ModuleMultiframe    = "multiframeModule"
	ModuleFrameNumber   = "frameNumber"
	ModuleVolumeImages  = "volumeImagesModule"
)

// Provider supplies module records for images. Implementations return the
// record and true, or nil and false when the module is absent for that
// image.
type Provider interface {
	Get(module, imageID string) (any, bool)
}

// ImagePlane is the image-plane geometry module.
type ImagePlane struct {
	FrameOfReferenceUID     string
	RowPixelSpacing         float64
	ColumnPixelSpacing      float64
	ImageOrientationPatient [6]float64
	ImagePositionPatient    [3]float64
}

// SOPCommon is the SOP-common identity module.
type SOPCommon struct {
	SOPClassUID    string
	SOPInstanceUID string
}

// GeneralSeries carries series-level attributes.
type GeneralSeries struct {
	Modality          string
	SeriesInstanceUID string
	SeriesDescription string
	SeriesNumber      int
}

// GeneralStudy carries study-level attributes.
type GeneralStudy struct {
	StudyInstanceUID string
	StudyDate        string
	StudyTime        string
	AccessionNumber  string
}

// Multiframe carries the frame count for multi-frame instances.
type Multiframe struct {
	NumberOfFrames int
}

// VolumeImages lists the member images a reconstructed volume was derived
// from, in acquisition order. The first entry serves as the volume's
// representative image for provenance.
type VolumeImages struct {
	ImageIDs []string
}

func lookup[T any](p Provider, module, imageID string) (*T, error) {
	v, ok := p.Get(module, imageID)
	if !ok {
		return nil, fmt.Errorf("%s for image %q: %w", module, imageID, sr.ErrMissingModule)
	}
	rec, ok := v.(*T)
	if !ok {
		return nil, fmt.Errorf("%s for image %q: unexpected record type %T", module, imageID, v)
	}
	return rec, nil
}

// ImagePlaneOf returns the image-plane module or a wrapped
// ErrMissingModule.
func ImagePlaneOf(p Provider, imageID string) (*ImagePlane, error) {
	return lookup[ImagePlane](p, ModuleImagePlane, imageID)
}

// SOPCommonOf returns the SOP-common module or a wrapped ErrMissingModule.
func SOPCommonOf(p Provider, imageID string) (*SOPCommon, error) {
	return lookup[SOPCommon](p, ModuleSOPCommon, imageID)
}

// GeneralSeriesOf returns the series module or a wrapped ErrMissingModule.
func GeneralSeriesOf(p Provider, imageID string) (*GeneralSeries, error) {
	return lookup[GeneralSeries](p, ModuleGeneralSeries, imageID)
}

// GeneralStudyOf returns the study module or a wrapped ErrMissingModule.
func GeneralStudyOf(p Provider, imageID string) (*GeneralStudy, error) {
	return lookup[GeneralStudy](p, ModuleGeneralStudy, imageID)
}

// MultiframeOf returns the multi-frame module when present. Single-frame
// instances legitimately have none, so absence is not an error here.
func MultiframeOf(p Provider, imageID string) (*Multiframe, bool) {
	v, ok := p.Get(ModuleMultiframe, imageID)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*Multiframe)
	return rec, ok
}

// VolumeImagesOf returns the member images of a volume source when
// known. Volumes without the module legitimately exist, so absence is not
// an error here.
func VolumeImagesOf(p Provider, sourceID string) (*VolumeImages, bool) {
	v, ok := p.Get(ModuleVolumeImages, sourceID)
	if !ok {
		return nil, false
	}
	rec, ok := v.(*VolumeImages)
	return rec, ok
}

// FrameNumberOf returns the per-image frame number, zero when absent.
func FrameNumberOf(p Provider, imageID string) int {
	v, ok := p.Get(ModuleFrameNumber, imageID)
	if !ok {
		return 0
	}
	if n, ok := v.(int); ok {
		return n
	}
	return 0
}
