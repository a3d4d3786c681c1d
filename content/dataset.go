package content

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/godicom/srreport/pkg/code"
)

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

// codeItem renders a coded concept as a code-sequence item.
func codeItem(c code.Code) []*dicom.Element {
	var b elementBuilder
	b.add(tag.CodeValue, []string{c.Value})
	b.add(tag.CodingSchemeDesignator, []string{c.Scheme})
	b.add(tag.CodeMeaning, []string{c.Meaning})
	return b.elems
}

// ToElements renders one content item (and its nested content) as dataset
// elements. The root item of a document omits its relationship type.
func ToElements(n *Node) ([]*dicom.Element, error) {
	var b elementBuilder

	if n.Relationship != "" {
		b.add(tag.RelationshipType, []string{n.Relationship})
	}
	b.add(tag.ValueType, []string{string(n.Type)})
	if n.Concept != nil {
		b.addSequence(tag.ConceptNameCodeSequence, [][]*dicom.Element{codeItem(*n.Concept)})
	}

	switch n.Type {
	case TypeText:
		b.add(tag.TextValue, []string{n.Text})
	case TypePName:
		b.add(tag.PersonName, []string{n.Text})
	case TypeCode:
		b.addSequence(tag.ConceptCodeSequence, [][]*dicom.Element{codeItem(n.Code)})
	case TypeUID:
		b.add(tag.UID, []string{n.UID})
	case TypeImage:
		if n.Image != nil {
			item, err := referencedSOPItem(n.Image)
			if err != nil {
				return nil, err
			}
			b.addSequence(tag.ReferencedSOPSequence, [][]*dicom.Element{item})
		}
	case TypeNum:
		if n.Num != nil {
			var mv elementBuilder
			mv.add(tag.NumericValue, []string{n.Num.Value.String()})
			mv.addSequence(tag.MeasurementUnitsCodeSequence, [][]*dicom.Element{codeItem(n.Num.Unit)})
			if mv.err != nil {
				return nil, mv.err
			}
			b.addSequence(tag.MeasuredValueSequence, [][]*dicom.Element{mv.elems})
		}
	case TypeSCOORD:
		if n.SCOORD != nil {
			b.add(tag.GraphicData, roundToSingle(n.SCOORD.GraphicData))
			b.add(tag.GraphicType, []string{n.SCOORD.GraphicType})
			if n.SCOORD.Ref != nil {
				item, err := referencedSOPItem(n.SCOORD.Ref)
				if err != nil {
					return nil, err
				}
				b.addSequence(tag.ReferencedSOPSequence, [][]*dicom.Element{item})
			}
		}
	case TypeSCOORD3D:
		if n.SCOORD3D != nil {
			b.add(tag.GraphicData, roundToSingle(n.SCOORD3D.GraphicData))
			b.add(tag.GraphicType, []string{n.SCOORD3D.GraphicType})
			b.add(tag.ReferencedFrameOfReferenceUID, []string{n.SCOORD3D.FrameOfReferenceUID})
		}
	case TypeContainer:
		continuity := n.Continuity
		if continuity == "" {
			continuity = ContinuitySeparate
		}
		b.add(tag.ContinuityOfContent, []string{continuity})
	}

	if len(n.Children) > 0 {
		items := make([][]*dicom.Element, 0, len(n.Children))
		for _, c := range n.Children {
			elems, err := ToElements(c)
			if err != nil {
				return nil, err
			}
			items = append(items, elems)
		}
		b.addSequence(tag.ContentSequence, items)
	}

	return b.elems, b.err
}

// referencedSOPItem renders an image/frame reference as a sequence item.
// The frame number is persisted only when the instance is multi-frame.
func referencedSOPItem(ref *ReferencedSOP) ([]*dicom.Element, error) {
	var b elementBuilder
	b.add(tag.ReferencedSOPClassUID, []string{ref.ClassUID})
	b.add(tag.ReferencedSOPInstanceUID, []string{ref.InstanceUID})
	if ref.FrameNumber > 0 {
		// VR IS travels as a string value.
		b.add(tag.ReferencedFrameNumber, []string{strconv.Itoa(ref.FrameNumber)})
	}
	return b.elems, b.err
}

// roundToSingle clamps graphic data to VR FL (single) precision so the
// in-memory tree equals what a reader of the written document sees.
func roundToSingle(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(float32(v))
	}
	return out
}

// TemplateIdentifier reads the declared template identifier from a
// dataset's content template sequence, empty when absent.
func TemplateIdentifier(ds dicom.Dataset) string {
	items := sequenceItems(findElement(ds.Elements, tag.ContentTemplateSequence))
	if len(items) == 0 {
		return ""
	}
	id, _ := stringValue(items[0], tag.TemplateIdentifier)
	return id
}

// FromDataset builds the document-root content node from a dataset's
// top-level elements. Non-content elements are ignored.
func FromDataset(ds dicom.Dataset) (*Node, error) {
	return FromElements(ds.Elements)
}

// FromElements builds one content node from the elements of a content
// item.
func FromElements(elems []*dicom.Element) (*Node, error) {
	vt, ok := stringValue(elems, tag.ValueType)
	if !ok {
		return nil, fmt.Errorf("content item missing ValueType")
	}

	n := &Node{Type: ValueType(vt)}
	if rel, ok := stringValue(elems, tag.RelationshipType); ok {
		n.Relationship = rel
	}
	if items := sequenceItems(findElement(elems, tag.ConceptNameCodeSequence)); len(items) > 0 {
		c := codeFromItem(items[0])
		n.Concept = &c
	}

	switch n.Type {
	case TypeText:
		n.Text, _ = stringValue(elems, tag.TextValue)
	case TypePName:
		n.Text, _ = stringValue(elems, tag.PersonName)
	case TypeCode:
		if items := sequenceItems(findElement(elems, tag.ConceptCodeSequence)); len(items) > 0 {
			n.Code = codeFromItem(items[0])
		}
	case TypeUID:
		n.UID, _ = stringValue(elems, tag.UID)
	case TypeImage:
		if items := sequenceItems(findElement(elems, tag.ReferencedSOPSequence)); len(items) > 0 {
			n.Image = referencedSOPFromItem(items[0])
		}
	case TypeNum:
		num, err := numFromElements(elems)
		if err != nil {
			return nil, err
		}
		n.Num = num
	case TypeSCOORD:
		p := &SCOORDPayload{GraphicData: floatValues(elems, tag.GraphicData)}
		p.GraphicType, _ = stringValue(elems, tag.GraphicType)
		if items := sequenceItems(findElement(elems, tag.ReferencedSOPSequence)); len(items) > 0 {
			p.Ref = referencedSOPFromItem(items[0])
		}
		n.SCOORD = p
	case TypeSCOORD3D:
		p := &SCOORD3DPayload{GraphicData: floatValues(elems, tag.GraphicData)}
		p.GraphicType, _ = stringValue(elems, tag.GraphicType)
		p.FrameOfReferenceUID, _ = stringValue(elems, tag.ReferencedFrameOfReferenceUID)
		n.SCOORD3D = p
	case TypeContainer:
		n.Continuity, _ = stringValue(elems, tag.ContinuityOfContent)
	}

	for _, item := range sequenceItems(findElement(elems, tag.ContentSequence)) {
		child, err := FromElements(item)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}

func numFromElements(elems []*dicom.Element) (*NumPayload, error) {
	items := sequenceItems(findElement(elems, tag.MeasuredValueSequence))
	if len(items) == 0 {
		// NUM without a measured value is legal (e.g. qualifier-only).
		return &NumPayload{}, nil
	}
	mv := items[0]

	p := &NumPayload{}
	if s, ok := stringValue(mv, tag.NumericValue); ok {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid NumericValue %q: %w", s, err)
		}
		p.Value = d
	}
	if units := sequenceItems(findElement(mv, tag.MeasurementUnitsCodeSequence)); len(units) > 0 {
		p.Unit = codeFromItem(units[0])
	}
	return p, nil
}

func referencedSOPFromItem(item []*dicom.Element) *ReferencedSOP {
	ref := &ReferencedSOP{}
	ref.ClassUID, _ = stringValue(item, tag.ReferencedSOPClassUID)
	ref.InstanceUID, _ = stringValue(item, tag.ReferencedSOPInstanceUID)
	ref.FrameNumber, _ = intValue(item, tag.ReferencedFrameNumber)
	return ref
}

func codeFromItem(item []*dicom.Element) code.Code {
	var c code.Code
	c.Value, _ = stringValue(item, tag.CodeValue)
	c.Scheme, _ = stringValue(item, tag.CodingSchemeDesignator)
	c.Meaning, _ = stringValue(item, tag.CodeMeaning)
	return c
}

// --- element accessors ---

func findElement(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, el := range elems {
		if el.Tag == t {
			return el
		}
	}
	return nil
}

func stringValue(elems []*dicom.Element, t tag.Tag) (string, bool) {
	el := findElement(elems, t)
	if el == nil {
		return "", false
	}
	if ss, ok := el.Value.GetValue().([]string); ok && len(ss) > 0 {
		return ss[0], true
	}
	return "", false
}

func intValue(elems []*dicom.Element, t tag.Tag) (int, bool) {
	el := findElement(elems, t)
	if el == nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			var n int
			if _, err := fmt.Sscanf(v[0], "%d", &n); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func floatValues(elems []*dicom.Element, t tag.Tag) []float64 {
	el := findElement(elems, t)
	if el == nil {
		return nil
	}
	if fs, ok := el.Value.GetValue().([]float64); ok {
		return fs
	}
	return nil
}

func sequenceItems(el *dicom.Element) [][]*dicom.Element {
	if el == nil {
		return nil
	}
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		if elems, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, elems)
		}
	}
	return out
}
