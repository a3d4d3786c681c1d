package adapters

import (
	"fmt"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/registry"
)

// Length measures the distance between two points. Its payload is one
// Length NUM in millimeters, inferred from a two-point POLYLINE.
type Length struct {
	base
}

// NewLength creates the Length adapter.
func NewLength() *Length {
	return &Length{base{kind: "Length"}}
}

// Encode renders the annotation's two endpoints and its length value.
// The value is computed from the geometry when the caller supplied no
// Length measurement.
func (l *Length) Encode(ectx *registry.EncodeContext) ([]*content.Node, error) {
	ann := ectx.Annotation
	if len(ann.Points) < 2 {
		return nil, fmt.Errorf("Length needs 2 points, got %d", len(ann.Points))
	}

	scoord, err := spatialNode(ectx, ann.Points[:2], content.GraphicPolyline)
	if err != nil {
		return nil, err
	}

	value := measurementValue(ann, code.Length, func() float64 {
		return distance(ann.Points[0], ann.Points[1])
	})
	num := content.NewNum(code.Length, dsDecimal(value), code.Millimeter)
	num.Add(content.RelInferredFrom, scoord)
	return []*content.Node{num}, nil
}

// Decode extracts the endpoints and the measured value from the group's
// Length NUM.
func (l *Length) Decode(dctx *registry.DecodeContext) (*sr.AnnotationState, error) {
	num := dctx.Group.FindByConcept(code.Length)
	if num == nil || num.Type != content.TypeNum {
		return nil, fmt.Errorf("group has no Length measurement")
	}

	ctx, points, err := decodeSpatial(dctx, num)
	if err != nil {
		return nil, err
	}

	ann := &sr.AnnotationState{
		Points: points,
		Measurements: []sr.Measurement{{
			Concept: code.Length,
			Value:   num.Num.Value.InexactFloat64(),
			Unit:    num.Num.Unit,
		}},
	}
	applySpatial(ann, ctx)
	return ann, nil
}
