// Package adapters holds the built-in tool-kind codecs: Length,
// Bidirectional and Probe. Each adapter owns only the tool-specific
// measurement payload of a group; the group envelope is the report
// codec's job.
package adapters

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/geometry"
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/registry"
)

// RegisterBuiltins registers the built-in adapters with a registry.
func RegisterBuiltins(reg *registry.Registry) error {
	for _, a := range []registry.Adapter{
		NewLength(),
		NewBidirectional(),
		NewProbe(),
	} {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// base carries the shared identifier behavior. The primary tracking
// identifier is "<source>:<toolKind>"; identifiers from other producers
// are claimed when their last colon-separated segment names the same
// tool kind.
type base struct {
	kind string
}

func (b base) ToolKind() string { return b.kind }

func (b base) TrackingIdentifier() string {
	return sr.TrackingSource + ":" + b.kind
}

func (b base) OwnsIdentifier(identifier string) bool {
	idx := strings.LastIndexByte(identifier, ':')
	return idx >= 0 && identifier[idx+1:] == b.kind
}

// spatialNode renders points as the coordinate payload matching the
// encode context: SCOORD in pixel space when a referenced image exists,
// SCOORD3D in patient space otherwise.
func spatialNode(ectx *registry.EncodeContext, points [][3]float64, graphicType string) (*content.Node, error) {
	if ectx.Ref != nil {
		if ectx.WorldToImage == nil {
			return nil, fmt.Errorf("image-anchored encode requires a WorldToImage transform")
		}
		pairs := make([][2]float64, 0, len(points))
		for _, p := range points {
			q, err := ectx.WorldToImage(ectx.ImageID, p)
			if err != nil {
				return nil, fmt.Errorf("image %q: %w", ectx.ImageID, err)
			}
			pairs = append(pairs, q)
		}
		ref := *ectx.Ref
		return content.NewSCOORD(graphicType, geometry.Flatten2D(pairs), &ref), nil
	}

	forUID := ectx.FrameOfReferenceUID
	if forUID == "" {
		return nil, fmt.Errorf("volume-anchored encode requires a frame of reference: %w", sr.ErrMissingSpatialContext)
	}
	return content.NewSCOORD3D(graphicType, geometry.Flatten3D(points), forUID), nil
}

// decodeSpatial resolves the coordinate payload under parent and converts
// it to patient-space points.
func decodeSpatial(dctx *registry.DecodeContext, parent *content.Node) (*geometry.SpatialContext, [][3]float64, error) {
	ctx, err := dctx.Resolver.Resolve(parent)
	if err != nil {
		return nil, nil, err
	}
	pts, err := dctx.Resolver.WorldPoints(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ctx, pts, nil
}

// applySpatial copies the resolved anchoring into the annotation.
func applySpatial(ann *sr.AnnotationState, ctx *geometry.SpatialContext) {
	ann.FrameOfReferenceUID = ctx.FrameOfReferenceUID
	if ctx.Space == geometry.SpaceImage {
		ann.ReferencedImageID = ctx.ImageID
		if ctx.Ref != nil {
			ann.FrameNumber = ctx.Ref.FrameNumber
		}
	}
}

// measurementValue returns the annotation's value for concept, falling
// back to compute when the caller supplied none.
func measurementValue(ann *sr.AnnotationState, concept code.Code, compute func() float64) float64 {
	for _, m := range ann.Measurements {
		if m.Concept.Equal(concept) {
			return m.Value
		}
	}
	return compute()
}

// dsDecimal renders a measured value within the 16-character limit of
// VR DS.
func dsDecimal(v float64) decimal.Decimal {
	d := decimal.NewFromFloat(v)
	if len(d.String()) > 16 {
		d = d.Round(6)
	}
	return d
}

// distance is the euclidean distance between two patient-space points.
func distance(a, b [3]float64) float64 {
	dx, dy, dz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
