package adapters

import (
	"fmt"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/registry"
)

// Bidirectional measures a long axis and a perpendicular short axis. Its
// payload is two NUMs in millimeters, each inferred from its own
// two-point POLYLINE. Point order is long axis first.
type Bidirectional struct {
	base
}

// NewBidirectional creates the Bidirectional adapter.
func NewBidirectional() *Bidirectional {
	return &Bidirectional{base{kind: "Bidirectional"}}
}

// Encode renders the two axes. Values are computed from the geometry
// when the caller supplied no matching measurements.
func (b *Bidirectional) Encode(ectx *registry.EncodeContext) ([]*content.Node, error) {
	ann := ectx.Annotation
	if len(ann.Points) < 4 {
		return nil, fmt.Errorf("Bidirectional needs 4 points, got %d", len(ann.Points))
	}

	long, err := b.axis(ectx, code.LongAxis, ann.Points[0:2])
	if err != nil {
		return nil, err
	}
	short, err := b.axis(ectx, code.ShortAxis, ann.Points[2:4])
	if err != nil {
		return nil, err
	}
	return []*content.Node{long, short}, nil
}

func (b *Bidirectional) axis(ectx *registry.EncodeContext, concept code.Code, points [][3]float64) (*content.Node, error) {
	scoord, err := spatialNode(ectx, points, content.GraphicPolyline)
	if err != nil {
		return nil, err
	}
	value := measurementValue(ectx.Annotation, concept, func() float64 {
		return distance(points[0], points[1])
	})
	num := content.NewNum(concept, dsDecimal(value), code.Millimeter)
	num.Add(content.RelInferredFrom, scoord)
	return num, nil
}

// Decode extracts both axes. The annotation's points are the long axis
// endpoints followed by the short axis endpoints.
func (b *Bidirectional) Decode(dctx *registry.DecodeContext) (*sr.AnnotationState, error) {
	ann := &sr.AnnotationState{}
	for _, concept := range []code.Code{code.LongAxis, code.ShortAxis} {
		num := dctx.Group.FindByConcept(concept)
		if num == nil || num.Type != content.TypeNum {
			return nil, fmt.Errorf("group has no %s measurement", concept.Meaning)
		}

		ctx, points, err := decodeSpatial(dctx, num)
		if err != nil {
			return nil, err
		}

		ann.Points = append(ann.Points, points...)
		ann.Measurements = append(ann.Measurements, sr.Measurement{
			Concept: concept,
			Value:   num.Num.Value.InexactFloat64(),
			Unit:    num.Num.Unit,
		})
		applySpatial(ann, ctx)
	}
	return ann, nil
}
