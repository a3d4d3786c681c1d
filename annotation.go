package srreport

import (
	"github.com/godicom/srreport/pkg/code"
)

// Measurement is one named numeric value carried by an annotation, such as
// a length in millimeters.
type Measurement struct {
	// Concept identifies what was measured (e.g. Length, Long Axis).
	Concept code.Code `json:"concept"`

	// Value is the measured quantity.
	Value float64 `json:"value"`

	// Unit is the UCUM unit code for Value.
	Unit code.Code `json:"unit"`
}

// AnnotationState is the application-side record of one annotation
// instance. It is owned exclusively by the caller once returned from
// parsing; the codec holds no reference after returning.
type AnnotationState struct {
	// AnnotationUID identifies this record. It is generated fresh on parse
	// and stable for the record's lifetime.
	AnnotationUID string `json:"annotationUID"`

	// ToolName is the tool kind that produced the annotation.
	ToolName string `json:"toolName"`

	// TrackingUID is the document-side Tracking Unique Identifier. Filled
	// on parse and reused on a later encode; empty means assembly mints a
	// fresh one.
	TrackingUID string `json:"trackingUID,omitempty"`

	// ReferencedImageID is the source image, empty for volume-anchored
	// annotations. Parsing only fills SOP-instance-level references;
	// mapping those to application image IDs is the caller's job.
	ReferencedImageID string `json:"referencedImageId,omitempty"`

	// FrameOfReferenceUID is the coordinate space the points live in.
	FrameOfReferenceUID string `json:"frameOfReferenceUID,omitempty"`

	// FrameNumber is the referenced frame for multi-frame instances,
	// zero when the instance is single-frame.
	FrameNumber int `json:"frameNumber,omitempty"`

	// Label is the user-visible name, possibly derived from free-text
	// finding or finding-site entries.
	Label string `json:"label,omitempty"`

	// Description defaults to the finding's coded meaning when present.
	Description string `json:"description,omitempty"`

	// Finding is the coded finding, nil when absent.
	Finding *code.Code `json:"finding,omitempty"`

	// FindingSites is the ordered list of coded anatomic sites.
	FindingSites []code.Code `json:"findingSites,omitempty"`

	// Points is the annotation geometry in patient space (mm).
	Points [][3]float64 `json:"points,omitempty"`

	// Measurements are the numeric values derived from the geometry.
	Measurements []Measurement `json:"measurements,omitempty"`
}

// VolumeAnchored reports whether the annotation is anchored to a frame of
// reference rather than a concrete image.
func (a *AnnotationState) VolumeAnchored() bool {
	return a.ReferencedImageID == "" && a.FrameOfReferenceUID != ""
}

// FindingSiteFreeText returns the meaning of the first free-text finding
// site, if any. Order matters: the first match among siblings wins.
func (a *AnnotationState) FindingSiteFreeText() (string, bool) {
	for _, site := range a.FindingSites {
		if code.IsFreeText(site) {
			return site.Meaning, true
		}
	}
	return "", false
}
