// Package content models the recursive SR content tree that both
// serialization directions operate on, and bridges it to the underlying
// DICOM dataset representation.
//
// A Node is a tagged union over the content-item value types: the Type tag
// selects which payload field is populated, and every node owns an ordered
// child sequence. Children order is significant for document shape; concept
// queries over siblings always take the first match.
package content

import (
	"github.com/shopspring/decimal"

	"github.com/godicom/srreport/pkg/code"
)

// ValueType is the content-item value type. Values are the CS strings
// persisted in the document.
type ValueType string

// Content-item value types.
const (
	TypeText      ValueType = "TEXT"
	TypeCode      ValueType = "CODE"
	TypeNum       ValueType = "NUM"
	TypeUID       ValueType = "UIDREF"
	TypePName     ValueType = "PNAME"
	TypeImage     ValueType = "IMAGE"
	TypeSCOORD    ValueType = "SCOORD"
	TypeSCOORD3D  ValueType = "SCOORD3D"
	TypeContainer ValueType = "CONTAINER"
)

// Relationship types between a content item and its parent.
const (
	RelContains      = "CONTAINS"
	RelHasConceptMod = "HAS CONCEPT MOD"
	RelHasObsContext = "HAS OBS CONTEXT"
	RelInferredFrom  = "INFERRED FROM"
	RelSelectedFrom  = "SELECTED FROM"
)

// Graphic types for spatial coordinate payloads.
const (
	GraphicPoint    = "POINT"
	GraphicPolyline = "POLYLINE"
)

// Continuity values for CONTAINER payloads.
const (
	ContinuitySeparate   = "SEPARATE"
	ContinuityContinuous = "CONTINUOUS"
)

// ReferencedSOP identifies the image (and frame, for multi-frame
// instances) a spatial coordinate payload refers to. FrameNumber zero
// means no frame reference is persisted.
type ReferencedSOP struct {
	ClassUID    string
	InstanceUID string
	FrameNumber int
}

// NumPayload is a measured value with its unit. The value is kept as a
// decimal so the persisted DS string survives round trips unchanged.
type NumPayload struct {
	Value decimal.Decimal
	Unit  code.Code
}

// SCOORDPayload is an image-relative (2-D pixel space) coordinate group.
type SCOORDPayload struct {
	GraphicType string
	// GraphicData is (column, row) pairs. Persisted as VR FL singles.
	GraphicData []float64
	// Ref is the referenced image, shared by all measurements on the
	// same source image within one tool-kind group.
	Ref *ReferencedSOP
}

// SCOORD3DPayload is a frame-of-reference-relative (3-D patient space)
// coordinate group.
type SCOORD3DPayload struct {
	GraphicType string
	// GraphicData is (x, y, z) triplets in mm.
	GraphicData []float64
	// FrameOfReferenceUID names the coordinate space directly; no image
	// identity resolution applies to 3-D payloads.
	FrameOfReferenceUID string
}

// Node is one content item. Exactly one payload field matching Type is
// populated; the rest stay zero.
type Node struct {
	// Relationship to the parent item, empty on the document root.
	Relationship string

	// Type selects the payload.
	Type ValueType

	// Concept is the concept name code, nil when the item carries none.
	Concept *code.Code

	// Children is the ordered nested content sequence.
	Children []*Node

	// Payloads, by Type:
	Text       string           // TEXT, PNAME
	Code       code.Code        // CODE
	Num        *NumPayload      // NUM
	UID        string           // UIDREF
	Image      *ReferencedSOP   // IMAGE
	SCOORD     *SCOORDPayload   // SCOORD
	SCOORD3D   *SCOORD3DPayload // SCOORD3D
	Continuity string           // CONTAINER
}

// NewContainer creates a CONTAINER node.
func NewContainer(concept code.Code, continuity string) *Node {
	return &Node{
		Type:       TypeContainer,
		Concept:    &concept,
		Continuity: continuity,
	}
}

// NewText creates a TEXT node.
func NewText(concept code.Code, text string) *Node {
	return &Node{
		Type:    TypeText,
		Concept: &concept,
		Text:    text,
	}
}

// NewPName creates a PNAME node.
func NewPName(concept code.Code, name string) *Node {
	return &Node{
		Type:    TypePName,
		Concept: &concept,
		Text:    name,
	}
}

// NewCode creates a CODE node.
func NewCode(concept, value code.Code) *Node {
	return &Node{
		Type:    TypeCode,
		Concept: &concept,
		Code:    value,
	}
}

// NewNum creates a NUM node.
func NewNum(concept code.Code, value decimal.Decimal, unit code.Code) *Node {
	return &Node{
		Type:    TypeNum,
		Concept: &concept,
		Num:     &NumPayload{Value: value, Unit: unit},
	}
}

// NewUID creates a UIDREF node.
func NewUID(concept code.Code, uid string) *Node {
	return &Node{
		Type:    TypeUID,
		Concept: &concept,
		UID:     uid,
	}
}

// NewImage creates an IMAGE reference node. Image-library entries carry
// no concept name.
func NewImage(ref *ReferencedSOP) *Node {
	return &Node{
		Type:  TypeImage,
		Image: ref,
	}
}

// NewSCOORD creates a SCOORD node. Concept may be omitted by passing the
// zero code.
func NewSCOORD(graphicType string, data []float64, ref *ReferencedSOP) *Node {
	return &Node{
		Type: TypeSCOORD,
		SCOORD: &SCOORDPayload{
			GraphicType: graphicType,
			GraphicData: data,
			Ref:         ref,
		},
	}
}

// NewSCOORD3D creates a SCOORD3D node.
func NewSCOORD3D(graphicType string, data []float64, frameOfReferenceUID string) *Node {
	return &Node{
		Type: TypeSCOORD3D,
		SCOORD3D: &SCOORD3DPayload{
			GraphicType:         graphicType,
			GraphicData:         data,
			FrameOfReferenceUID: frameOfReferenceUID,
		},
	}
}

// Add appends child with the given relationship and returns n for chaining.
func (n *Node) Add(relationship string, child *Node) *Node {
	child.Relationship = relationship
	n.Children = append(n.Children, child)
	return n
}
