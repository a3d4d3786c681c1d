package report

import (
	"errors"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/adapters"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
	"github.com/godicom/srreport/metadata"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/registry"
)

// Fixture: one CT image "img-1" with full module metadata, plus the
// trivial pixel/patient transforms (the image plane lies in z = 0).

const (
	ctClassUID  = "1.2.840.10008.5.1.4.1.1.2"
	instanceUID = "2.25.100"
	studyUID    = "2.25.200"
	seriesUID   = "2.25.300"
	frameUID    = "2.25.400"
)

func testProvider() *metadata.MapProvider {
	p := metadata.NewMapProvider()
	p.AddImage("img-1",
		&metadata.ImagePlane{FrameOfReferenceUID: frameUID},
		&metadata.SOPCommon{SOPClassUID: ctClassUID, SOPInstanceUID: instanceUID},
		&metadata.GeneralSeries{Modality: "CT", SeriesInstanceUID: seriesUID},
		&metadata.GeneralStudy{StudyInstanceUID: studyUID, StudyDate: "20260102", AccessionNumber: "ACC-1"},
	)
	return p
}

func worldToImage(imageID string, world [3]float64) ([2]float64, error) {
	return [2]float64{world[0], world[1]}, nil
}

func imageToWorld(imageID string, pt [2]float64) ([3]float64, error) {
	return [3]float64{pt[0], pt[1], 0}, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	if err := adapters.RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return reg
}

func stringElement(t *testing.T, ds dicom.Dataset, tg tag.Tag) string {
	t.Helper()
	for _, el := range ds.Elements {
		if el.Tag == tg {
			if ss, ok := el.Value.GetValue().([]string); ok && len(ss) > 0 {
				return ss[0]
			}
		}
	}
	return ""
}

func TestRoundTripLength(t *testing.T) {
	reg := testRegistry(t)
	lung := code.Code{Scheme: code.SchemeSCT, Value: "39607008", Meaning: "Lung"}
	mass := code.Code{Scheme: code.SchemeSCT, Value: "4147007", Meaning: "Mass"}

	ann := &sr.AnnotationState{
		Label:        "lesion 1",
		Finding:      &mass,
		FindingSites: []code.Code{lung},
		Points:       [][3]float64{{10, 20, 0}, {30, 40, 0}},
		Measurements: []sr.Measurement{{Concept: code.Length, Value: 42.5, Unit: code.Millimeter}},
	}

	ds, err := Assemble(
		ByImage{"img-1": {"Length": {ann}}},
		testProvider(), worldToImage, reg,
	)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	result, err := Parse(ds, testProvider(), map[string]string{instanceUID: "img-1"}, imageToWorld, reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}

	got := result.ByToolKind["Length"]
	if len(got) != 1 {
		t.Fatalf("decoded %d Length annotations, want 1", len(got))
	}
	out := got[0]

	if out.AnnotationUID == "" {
		t.Error("decoded annotation should get a fresh UID")
	}
	if out.ToolName != "Length" {
		t.Errorf("ToolName = %q", out.ToolName)
	}
	if out.ReferencedImageID != "img-1" {
		t.Errorf("ReferencedImageID = %q", out.ReferencedImageID)
	}
	if out.FrameOfReferenceUID != frameUID {
		t.Errorf("FrameOfReferenceUID = %q", out.FrameOfReferenceUID)
	}
	if out.Label != "lesion 1" {
		t.Errorf("Label = %q", out.Label)
	}
	if out.Finding == nil || !out.Finding.Equal(mass) {
		t.Errorf("Finding = %v, want %v", out.Finding, mass)
	}
	if out.Description != "Mass" {
		t.Errorf("Description = %q, want the finding meaning", out.Description)
	}
	if len(out.FindingSites) != 1 || !out.FindingSites[0].Equal(lung) {
		t.Errorf("FindingSites = %v", out.FindingSites)
	}
	if len(out.Points) != 2 || out.Points[0] != [3]float64{10, 20, 0} || out.Points[1] != [3]float64{30, 40, 0} {
		t.Errorf("Points = %v", out.Points)
	}
	if len(out.Measurements) != 1 || out.Measurements[0].Value != 42.5 {
		t.Errorf("Measurements = %v", out.Measurements)
	}
	if !out.Measurements[0].Unit.Equal(code.Millimeter) {
		t.Errorf("Unit = %v", out.Measurements[0].Unit)
	}
}

func TestRoundTripVolumeAnchored(t *testing.T) {
	reg := testRegistry(t)

	ann := &sr.AnnotationState{
		FrameOfReferenceUID: "2.25.777",
		Points:              [][3]float64{{1, 2, 3}},
	}

	// Source "vol-1" has no SOP-common module: a volume, not an image.
	ds, err := Assemble(
		ByImage{"vol-1": {"Probe": {ann}}},
		testProvider(), worldToImage, reg,
	)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := stringElement(t, ds, tag.SOPClassUID); got != "1.2.840.10008.5.1.4.1.1.88.34" {
		t.Errorf("SOPClassUID = %q, want Comprehensive 3D SR", got)
	}

	result, err := Parse(ds, testProvider(), nil, nil, reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := result.ByToolKind["Probe"]
	if len(got) != 1 {
		t.Fatalf("decoded %d Probe annotations, want 1 (issues: %v)", len(got), result.Issues)
	}
	out := got[0]
	if !out.VolumeAnchored() {
		t.Errorf("annotation should be volume-anchored: %+v", out)
	}
	if out.FrameOfReferenceUID != "2.25.777" {
		t.Errorf("FrameOfReferenceUID = %q", out.FrameOfReferenceUID)
	}
	if len(out.Points) != 1 || out.Points[0] != [3]float64{1, 2, 3} {
		t.Errorf("Points = %v", out.Points)
	}
}

func TestVolumeSourceProvenance(t *testing.T) {
	reg := testRegistry(t)
	p := testProvider()
	// The volume knows its member images; the first one stands in for the
	// whole volume in the document header and evidence.
	p.Set(metadata.ModuleVolumeImages, "vol-1", &metadata.VolumeImages{ImageIDs: []string{"img-1"}})

	ann := &sr.AnnotationState{
		FrameOfReferenceUID: frameUID,
		Points:              [][3]float64{{1, 2, 3}},
	}
	ds, err := Assemble(ByImage{"vol-1": {"Probe": {ann}}}, p, worldToImage, reg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := stringElement(t, ds, tag.SOPClassUID); got != "1.2.840.10008.5.1.4.1.1.88.34" {
		t.Errorf("SOPClassUID = %q, volume sources still produce a 3D SR", got)
	}
	if got := stringElement(t, ds, tag.StudyInstanceUID); got != studyUID {
		t.Errorf("StudyInstanceUID = %q, want the member image's study", got)
	}
	if got := stringElement(t, ds, tag.StudyDate); got != "20260102" {
		t.Errorf("StudyDate = %q, want the member image's study date", got)
	}

	found := false
	for _, el := range ds.Elements {
		if el.Tag == tag.CurrentRequestedProcedureEvidenceSequence {
			found = true
		}
	}
	if !found {
		t.Error("volume report should carry evidence for its member images")
	}
}

func TestImageAnchoredSOPClass(t *testing.T) {
	reg := testRegistry(t)
	ann := &sr.AnnotationState{Points: [][3]float64{{1, 1, 0}}}

	ds, err := Assemble(ByImage{"img-1": {"Probe": {ann}}}, testProvider(), worldToImage, reg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if got := stringElement(t, ds, tag.SOPClassUID); got != "1.2.840.10008.5.1.4.1.1.88.33" {
		t.Errorf("SOPClassUID = %q, want Comprehensive SR", got)
	}
	if got := stringElement(t, ds, tag.StudyInstanceUID); got != studyUID {
		t.Errorf("StudyInstanceUID = %q, want the source study", got)
	}
	if got := stringElement(t, ds, tag.StudyDate); got != "20260102" {
		t.Errorf("StudyDate = %q, want the source study date", got)
	}
	if got := stringElement(t, ds, tag.Modality); got != "SR" {
		t.Errorf("Modality = %q", got)
	}

	found := false
	for _, el := range ds.Elements {
		if el.Tag == tag.CurrentRequestedProcedureEvidenceSequence {
			found = true
		}
	}
	if !found {
		t.Error("document should carry an evidence sequence for its source images")
	}
}

func TestMultiframeFrameNumber(t *testing.T) {
	reg := testRegistry(t)
	p := testProvider()
	p.Set(metadata.ModuleMultiframe, "img-1", &metadata.Multiframe{NumberOfFrames: 10})
	p.Set(metadata.ModuleFrameNumber, "img-1", 3)

	ann := &sr.AnnotationState{Points: [][3]float64{{1, 1, 0}}}
	ds, err := Assemble(ByImage{"img-1": {"Probe": {ann}}}, p, worldToImage, reg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	result, err := Parse(ds, p, map[string]string{instanceUID: "img-1"}, imageToWorld, reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := result.ByToolKind["Probe"]
	if len(got) != 1 {
		t.Fatalf("decoded %d annotations, want 1 (issues: %v)", len(got), result.Issues)
	}
	if got[0].FrameNumber != 3 {
		t.Errorf("FrameNumber = %d, want 3", got[0].FrameNumber)
	}
}

// mysteryAdapter produces groups the built-in registry cannot claim.
type mysteryAdapter struct{}

func (mysteryAdapter) ToolKind() string           { return "Mystery" }
func (mysteryAdapter) TrackingIdentifier() string { return "test:Mystery" }
func (mysteryAdapter) OwnsIdentifier(string) bool { return false }

func (mysteryAdapter) Encode(ectx *registry.EncodeContext) ([]*content.Node, error) {
	scoord := content.NewSCOORD3D(content.GraphicPoint, []float64{0, 0, 0}, "2.25.1")
	return []*content.Node{scoord}, nil
}

func (mysteryAdapter) Decode(*registry.DecodeContext) (*sr.AnnotationState, error) {
	return &sr.AnnotationState{}, nil
}

func TestParsePartialFailureIsolation(t *testing.T) {
	buildReg := testRegistry(t)
	if err := buildReg.Register(mysteryAdapter{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	anns := ByImage{"vol-1": {
		"Probe":   {{FrameOfReferenceUID: "2.25.1", Points: [][3]float64{{1, 1, 1}}}},
		"Mystery": {{FrameOfReferenceUID: "2.25.1", Points: [][3]float64{{2, 2, 2}}}},
		"Length": {{
			FrameOfReferenceUID: "2.25.1",
			Points:              [][3]float64{{0, 0, 0}, {3, 4, 0}},
		}},
	}}
	ds, err := Assemble(anns, testProvider(), worldToImage, buildReg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Parse with the built-ins only: the Mystery group has no adapter.
	result, err := Parse(ds, testProvider(), nil, nil, testRegistry(t))
	if err != nil {
		t.Fatalf("a single unresolvable group must not fail the parse: %v", err)
	}

	if result.Total() != 2 {
		t.Errorf("Total = %d, want the 2 decodable groups", result.Total())
	}
	if len(result.ByToolKind["Probe"]) != 1 || len(result.ByToolKind["Length"]) != 1 {
		t.Errorf("ByToolKind = %v", result.ByToolKind)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Issues = %v, want exactly one", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Code != sr.IssueUnresolvedAdapter {
		t.Errorf("issue code = %q", issue.Code)
	}
	if issue.TrackingIdentifier != "test:Mystery" {
		t.Errorf("issue tracking identifier = %q", issue.TrackingIdentifier)
	}
	if !issue.IsError() {
		t.Error("skipped group should surface as an error issue")
	}
}

func TestParseResolveOverride(t *testing.T) {
	buildReg := testRegistry(t)
	if err := buildReg.Register(mysteryAdapter{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ds, err := Assemble(ByImage{"vol-1": {
		"Mystery": {{FrameOfReferenceUID: "2.25.1", Points: [][3]float64{{2, 2, 2}}}},
	}}, testProvider(), worldToImage, buildReg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	p := &Parser{
		Registry: testRegistry(t),
		ResolveOverride: func(identifier string) registry.Adapter {
			if identifier == "test:Mystery" {
				return mysteryAdapter{}
			}
			return nil
		},
	}
	result, err := p.Parse(ds)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.ByToolKind["Mystery"]) != 1 {
		t.Errorf("override should have decoded the group: %v", result.ByToolKind)
	}
}

func TestParseRejectsForeignTemplate(t *testing.T) {
	var b elementBuilder
	b.addSequence(tag.ContentTemplateSequence, [][]*dicom.Element{func() []*dicom.Element {
		var item elementBuilder
		item.add(tag.MappingResource, []string{"DCMR"})
		item.add(tag.TemplateIdentifier, []string{"1400"})
		return item.elems
	}()})
	if b.err != nil {
		t.Fatalf("build dataset: %v", b.err)
	}

	_, err := Parse(dicom.Dataset{Elements: b.elems}, nil, nil, nil, testRegistry(t))
	if !errors.Is(err, sr.ErrUnsupportedTemplate) {
		t.Fatalf("template 1400 should fail with ErrUnsupportedTemplate, got %v", err)
	}
}

func TestCodecFreeTextPrecedence(t *testing.T) {
	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelHasObsContext, content.NewText(code.TrackingIdentifier, sr.TrackingSource+":Probe"))
	group.Add(content.RelContains, content.NewCode(code.Finding, code.FreeText("Ignored")))
	group.Add(content.RelContains, content.NewCode(code.FindingSite, code.FreeText("Site A")))
	group.Add(content.RelContains, content.NewCode(code.FindingSite, code.FreeText("Site B")))
	group.Add(content.RelContains, content.NewSCOORD3D(content.GraphicPoint, []float64{1, 2, 3}, "2.25.9"))

	codec := &Codec{Registry: testRegistry(t)}
	ann, err := codec.Decode(0, group, &geometry.Resolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if ann.Label != "Site A" {
		t.Errorf("Label = %q, want the first free-text site", ann.Label)
	}
	if ann.Finding != nil {
		t.Errorf("free-text finding is a label carrier, not a finding: %v", ann.Finding)
	}
	if len(ann.FindingSites) != 0 {
		t.Errorf("free-text sites must not appear as coded sites: %v", ann.FindingSites)
	}
}

func TestCodecFindingFreeTextFallback(t *testing.T) {
	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelHasObsContext, content.NewText(code.TrackingIdentifier, sr.TrackingSource+":Probe"))
	group.Add(content.RelContains, content.NewCode(code.Finding, code.FreeText("From Finding")))
	group.Add(content.RelContains, content.NewSCOORD3D(content.GraphicPoint, []float64{1, 2, 3}, "2.25.9"))

	codec := &Codec{Registry: testRegistry(t)}
	ann, err := codec.Decode(0, group, &geometry.Resolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ann.Label != "From Finding" {
		t.Errorf("Label = %q, want the free-text finding meaning", ann.Label)
	}
}

func TestCodecLegacyFindingSiteScheme(t *testing.T) {
	liver := code.Code{Scheme: code.SchemeSCT, Value: "10200004", Meaning: "Liver"}
	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelHasObsContext, content.NewText(code.TrackingIdentifier, sr.TrackingSource+":Probe"))
	// Older producers name the site concept with the retired SRT code.
	group.Add(content.RelContains, content.NewCode(code.FindingSiteLegacy, liver))
	group.Add(content.RelContains, content.NewSCOORD3D(content.GraphicPoint, []float64{1, 2, 3}, "2.25.9"))

	codec := &Codec{Registry: testRegistry(t)}
	ann, err := codec.Decode(0, group, &geometry.Resolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ann.FindingSites) != 1 || !ann.FindingSites[0].Equal(liver) {
		t.Errorf("FindingSites = %v, want the legacy-coded site", ann.FindingSites)
	}
}

func TestRoundTripTrackingUID(t *testing.T) {
	reg := testRegistry(t)
	anns := []*sr.AnnotationState{
		{TrackingUID: "2.25.4242", Points: [][3]float64{{1, 1, 0}}},
		{Points: [][3]float64{{2, 2, 0}}},
	}
	ds, err := Assemble(ByImage{"img-1": {"Probe": anns}}, testProvider(), worldToImage, reg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	result, err := Parse(ds, testProvider(), map[string]string{instanceUID: "img-1"}, imageToWorld, reg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := result.ByToolKind["Probe"]
	if len(got) != 2 {
		t.Fatalf("decoded %d annotations, want 2 (issues: %v)", len(got), result.Issues)
	}
	if got[0].TrackingUID != "2.25.4242" {
		t.Errorf("TrackingUID = %q, want the caller-supplied UID preserved", got[0].TrackingUID)
	}
	if got[1].TrackingUID == "" {
		t.Error("annotation without a tracking UID should get a minted one")
	}
	if got[1].TrackingUID == got[0].TrackingUID {
		t.Error("minted tracking UID collided with the supplied one")
	}
}

func TestCodecTrackingUIDMeaningFallback(t *testing.T) {
	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelHasObsContext, content.NewText(code.TrackingIdentifier, sr.TrackingSource+":Probe"))
	// Some producers omit the code on the tracking UID item and carry only
	// the concept meaning, same as for the tracking identifier.
	group.Add(content.RelHasObsContext, content.NewUID(
		code.Code{Meaning: code.TrackingUniqueIdentifier.Meaning}, "2.25.55"))
	group.Add(content.RelContains, content.NewSCOORD3D(content.GraphicPoint, []float64{1, 2, 3}, "2.25.9"))

	codec := &Codec{Registry: testRegistry(t)}
	ann, err := codec.Decode(0, group, &geometry.Resolver{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ann.TrackingUID != "2.25.55" {
		t.Errorf("TrackingUID = %q, want the meaning-matched UID", ann.TrackingUID)
	}
}

func TestCodecMissingTrackingIdentifier(t *testing.T) {
	group := content.NewContainer(code.MeasurementGroup, content.ContinuitySeparate)
	group.Add(content.RelContains, content.NewSCOORD3D(content.GraphicPoint, []float64{1, 2, 3}, "2.25.9"))

	codec := &Codec{Registry: testRegistry(t)}
	_, err := codec.Decode(4, group, &geometry.Resolver{})
	if !errors.Is(err, sr.ErrMissingTrackingIdentifier) {
		t.Fatalf("got %v", err)
	}

	issue := issueFor(4, err)
	if issue.Code != sr.IssueMissingTracking || issue.GroupIndex != 4 {
		t.Errorf("issue = %+v", issue)
	}
}

func TestAssembleUnknownToolKind(t *testing.T) {
	ann := &sr.AnnotationState{Points: [][3]float64{{1, 1, 0}}}
	_, err := Assemble(ByImage{"img-1": {"Angle": {ann}}}, testProvider(), worldToImage, testRegistry(t))
	if !errors.Is(err, sr.ErrUnresolvedAdapter) {
		t.Fatalf("unknown tool kind should abort assembly, got %v", err)
	}
}

func TestParseLiteralOptions(t *testing.T) {
	buildReg := testRegistry(t)
	if err := buildReg.Register(mysteryAdapter{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ds, err := Assemble(ByImage{"vol-1": {
		"Mystery": {{FrameOfReferenceUID: "2.25.1", Points: [][3]float64{{2, 2, 2}}}},
	}}, testProvider(), worldToImage, buildReg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// A zero Options value carries no logger; skipping a group must still
	// not panic.
	p := &Parser{Registry: testRegistry(t), Options: &sr.Options{}}
	result, err := p.Parse(ds)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Issues) != 1 {
		t.Errorf("Issues = %v, want the skipped group recorded", result.Issues)
	}
}

func TestParseMetrics(t *testing.T) {
	reg := testRegistry(t)
	m := sr.NewMetrics()

	ann := &sr.AnnotationState{Points: [][3]float64{{1, 1, 0}}}
	ds, err := Assemble(ByImage{"img-1": {"Probe": {ann}}}, testProvider(), worldToImage, reg, sr.WithMetrics(m))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	_, err = Parse(ds, testProvider(), map[string]string{instanceUID: "img-1"}, imageToWorld, reg, sr.WithMetrics(m))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	s := m.Snapshot()
	if s.GroupsEncoded != 1 || s.GroupsDecoded != 1 {
		t.Errorf("groups encoded/decoded = %d/%d, want 1/1", s.GroupsEncoded, s.GroupsDecoded)
	}
	if s.DocumentsBuilt != 1 || s.DocumentsParsed != 1 {
		t.Errorf("documents built/parsed = %d/%d, want 1/1", s.DocumentsBuilt, s.DocumentsParsed)
	}
}
