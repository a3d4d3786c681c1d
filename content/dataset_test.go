package content

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/suyashkumar/dicom"

	"github.com/godicom/srreport/pkg/code"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// buildGroup assembles a representative measurement-group subtree.
func buildGroup(t *testing.T) *Node {
	t.Helper()

	group := NewContainer(code.MeasurementGroup, ContinuitySeparate)
	group.Add(RelHasObsContext, NewText(code.TrackingIdentifier, "go-srreport@0.1.0:Length"))
	group.Add(RelHasObsContext, NewUID(code.TrackingUniqueIdentifier, "2.25.123"))
	group.Add(RelContains, NewCode(code.Finding, code.Code{Scheme: "SCT", Value: "52988006", Meaning: "Lesion"}))
	group.Add(RelContains, NewCode(code.FindingSite, code.Code{Scheme: "SCT", Value: "39607008", Meaning: "Lung"}))

	num := NewNum(code.Length, mustDecimal(t, "42.5"), code.Millimeter)
	num.Add(RelInferredFrom, NewSCOORD(GraphicPolyline, []float64{10, 20, 30, 40}, &ReferencedSOP{
		ClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		InstanceUID: "2.25.999",
		FrameNumber: 3,
	}))
	group.Add(RelContains, num)

	return group
}

func TestElementsRoundTrip(t *testing.T) {
	group := buildGroup(t)

	elems, err := ToElements(group)
	if err != nil {
		t.Fatalf("ToElements: %v", err)
	}

	got, err := FromElements(elems)
	if err != nil {
		t.Fatalf("FromElements: %v", err)
	}

	if got.Type != TypeContainer || got.Continuity != ContinuitySeparate {
		t.Errorf("container payload lost: %+v", got)
	}
	if !got.MatchesConcept(code.MeasurementGroup) {
		t.Error("concept name lost on round trip")
	}
	if len(got.Children) != 5 {
		t.Fatalf("children = %d, want 5", len(got.Children))
	}

	// Order is significant for document shape.
	if got.Children[0].Type != TypeText || got.Children[0].Text != "go-srreport@0.1.0:Length" {
		t.Errorf("tracking identifier lost: %+v", got.Children[0])
	}
	if got.Children[1].Type != TypeUID || got.Children[1].UID != "2.25.123" {
		t.Errorf("tracking UID lost: %+v", got.Children[1])
	}
	if got.Children[2].Code.Value != "52988006" {
		t.Errorf("finding code lost: %+v", got.Children[2])
	}

	num := got.Children[4]
	if num.Type != TypeNum {
		t.Fatalf("expected NUM child, got %s", num.Type)
	}
	if num.Num.Value.String() != "42.5" {
		t.Errorf("NumericValue = %s, want 42.5", num.Num.Value)
	}
	if !num.Num.Unit.Equal(code.Millimeter) {
		t.Errorf("unit lost: %+v", num.Num.Unit)
	}

	scoord := num.FindByType(TypeSCOORD)
	if scoord == nil {
		t.Fatal("nested SCOORD lost")
	}
	if scoord.Relationship != RelInferredFrom {
		t.Errorf("relationship = %q, want %q", scoord.Relationship, RelInferredFrom)
	}
	if len(scoord.SCOORD.GraphicData) != 4 || scoord.SCOORD.GraphicData[3] != 40 {
		t.Errorf("graphic data lost: %v", scoord.SCOORD.GraphicData)
	}
	ref := scoord.SCOORD.Ref
	if ref == nil || ref.InstanceUID != "2.25.999" || ref.FrameNumber != 3 {
		t.Errorf("referenced SOP lost: %+v", ref)
	}
}

func TestSCOORD3DRoundTrip(t *testing.T) {
	num := NewNum(code.Length, mustDecimal(t, "7"), code.Millimeter)
	num.Add(RelInferredFrom, NewSCOORD3D(GraphicPoint, []float64{1, 2, 3}, "2.25.777"))

	elems, err := ToElements(num)
	if err != nil {
		t.Fatalf("ToElements: %v", err)
	}
	got, err := FromElements(elems)
	if err != nil {
		t.Fatalf("FromElements: %v", err)
	}

	s3d := got.FindByType(TypeSCOORD3D)
	if s3d == nil {
		t.Fatal("SCOORD3D child lost")
	}
	if s3d.SCOORD3D.FrameOfReferenceUID != "2.25.777" {
		t.Errorf("frame of reference = %q", s3d.SCOORD3D.FrameOfReferenceUID)
	}
	if len(s3d.SCOORD3D.GraphicData) != 3 {
		t.Errorf("graphic data = %v", s3d.SCOORD3D.GraphicData)
	}
}

func TestFrameNumberOmittedForSingleFrame(t *testing.T) {
	scoord := NewSCOORD(GraphicPoint, []float64{5, 5}, &ReferencedSOP{
		ClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		InstanceUID: "2.25.1",
	})

	elems, err := ToElements(scoord)
	if err != nil {
		t.Fatalf("ToElements: %v", err)
	}
	got, err := FromElements(elems)
	if err != nil {
		t.Fatalf("FromElements: %v", err)
	}
	if got.SCOORD.Ref.FrameNumber != 0 {
		t.Errorf("frame number should stay absent, got %d", got.SCOORD.Ref.FrameNumber)
	}
}

func TestFromDataset(t *testing.T) {
	root := NewContainer(code.ImagingMeasurementReport, ContinuitySeparate)
	measurements := NewContainer(code.ImagingMeasurements, ContinuitySeparate)
	root.Add(RelContains, measurements)

	elems, err := ToElements(root)
	if err != nil {
		t.Fatalf("ToElements: %v", err)
	}

	got, err := FromDataset(dicom.Dataset{Elements: elems})
	if err != nil {
		t.Fatalf("FromDataset: %v", err)
	}
	if got.FindByMeaning("Imaging Measurements") == nil {
		t.Error("Imaging Measurements section should be locatable by meaning")
	}
}

func TestFromElementsMissingValueType(t *testing.T) {
	if _, err := FromElements(nil); err == nil {
		t.Error("content item without ValueType should be rejected")
	}
}

func TestGraphicDataSinglePrecision(t *testing.T) {
	// Values that do not fit a single-precision float are clamped at
	// encode time so trees compare equal after a write/read cycle.
	in := []float64{0.1, 123456.789}
	scoord := NewSCOORD(GraphicPolyline, in, nil)

	elems, err := ToElements(scoord)
	if err != nil {
		t.Fatalf("ToElements: %v", err)
	}
	got, err := FromElements(elems)
	if err != nil {
		t.Fatalf("FromElements: %v", err)
	}
	for i, v := range got.SCOORD.GraphicData {
		if v != float64(float32(in[i])) {
			t.Errorf("GraphicData[%d] = %v, want single precision %v", i, v, float64(float32(in[i])))
		}
	}
}
