package adapters

import (
	"fmt"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/registry"
)

// Probe marks a single point of interest. It carries no numeric value:
// the payload is a bare POINT coordinate item directly under the group.
type Probe struct {
	base
}

// NewProbe creates the Probe adapter.
func NewProbe() *Probe {
	return &Probe{base{kind: "Probe"}}
}

// Encode renders the annotation's single point.
func (p *Probe) Encode(ectx *registry.EncodeContext) ([]*content.Node, error) {
	ann := ectx.Annotation
	if len(ann.Points) < 1 {
		return nil, fmt.Errorf("Probe needs a point")
	}

	scoord, err := spatialNode(ectx, ann.Points[:1], content.GraphicPoint)
	if err != nil {
		return nil, err
	}
	return []*content.Node{scoord}, nil
}

// Decode extracts the point from the group's coordinate item.
func (p *Probe) Decode(dctx *registry.DecodeContext) (*sr.AnnotationState, error) {
	ctx, points, err := decodeSpatial(dctx, dctx.Group)
	if err != nil {
		return nil, err
	}

	ann := &sr.AnnotationState{Points: points}
	applySpatial(ann, ctx)
	return ann, nil
}
