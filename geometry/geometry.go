// Package geometry resolves the spatial context of measurement groups:
// whether a coordinate payload is image-relative (SCOORD, 2-D pixel space)
// or frame-of-reference-relative (SCOORD3D, 3-D patient space), and which
// image or coordinate space it belongs to.
package geometry

import (
	"fmt"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/metadata"
)

// WorldToImageFunc converts a patient-space point (mm) to pixel space for
// the given image. Supplied by the caller; assumed pure.
type WorldToImageFunc func(imageID string, world [3]float64) ([2]float64, error)

// ImageToWorldFunc converts a pixel-space point to patient space (mm) for
// the given image. Supplied by the caller; assumed pure.
type ImageToWorldFunc func(imageID string, point [2]float64) ([3]float64, error)

// Space distinguishes image-anchored from frame-of-reference-anchored
// coordinates. Downstream tool adapters must respect the branch.
type Space int

// Coordinate spaces.
const (
	// SpaceImage: coordinates are pixel positions on a referenced image.
	SpaceImage Space = iota
	// SpaceFrame: coordinates are patient-space positions in a frame of
	// reference, with no image reference.
	SpaceFrame
)

// String returns the space name.
func (s Space) String() string {
	switch s {
	case SpaceImage:
		return "image"
	case SpaceFrame:
		return "frame-of-reference"
	default:
		return "unknown"
	}
}

// SpatialContext is the resolved anchoring of one measurement group.
type SpatialContext struct {
	// Space selects image-anchored or frame-anchored decoding.
	Space Space

	// Node is the SCOORD or SCOORD3D content item.
	Node *content.Node

	// FrameOfReferenceUID of the coordinate space.
	FrameOfReferenceUID string

	// Ref is the referenced image, nil in the 3-D branch.
	Ref *content.ReferencedSOP

	// ImageID is the application image identity, empty in the 3-D branch.
	ImageID string
}

// Resolver locates coordinate payloads and resolves their anchoring via
// the metadata provider and the caller's image identity map.
type Resolver struct {
	// Provider supplies image-plane geometry for referenced images.
	Provider metadata.Provider

	// ImageIDs maps SOP Instance UIDs to application image IDs.
	ImageIDs map[string]string

	// ImageToWorld is the caller-supplied pixel-to-patient transform.
	ImageToWorld ImageToWorldFunc
}

// Resolve locates the coordinate child of parent (typically a NUM item or
// the group itself) and resolves its spatial context. The 2-D branch
// resolves the referenced instance to an image identity and reads the
// image's plane geometry; the 3-D branch reads the payload's own frame of
// reference and performs no image resolution.
func (r *Resolver) Resolve(parent *content.Node) (*SpatialContext, error) {
	if sc := parent.FindByType(content.TypeSCOORD); sc != nil {
		return r.resolveImage(sc)
	}
	if sc := parent.FindByType(content.TypeSCOORD3D); sc != nil {
		return resolveFrame(sc), nil
	}
	return nil, sr.ErrMissingSpatialContext
}

func (r *Resolver) resolveImage(node *content.Node) (*SpatialContext, error) {
	ref := node.SCOORD.Ref
	if ref == nil || ref.InstanceUID == "" {
		return nil, fmt.Errorf("SCOORD carries no referenced SOP instance: %w", sr.ErrMissingSpatialContext)
	}

	imageID, ok := r.ImageIDs[ref.InstanceUID]
	if !ok {
		return nil, fmt.Errorf("no image identity for SOP instance %q", ref.InstanceUID)
	}

	plane, err := metadata.ImagePlaneOf(r.Provider, imageID)
	if err != nil {
		return nil, err
	}

	return &SpatialContext{
		Space:               SpaceImage,
		Node:                node,
		FrameOfReferenceUID: plane.FrameOfReferenceUID,
		Ref:                 ref,
		ImageID:             imageID,
	}, nil
}

func resolveFrame(node *content.Node) *SpatialContext {
	return &SpatialContext{
		Space:               SpaceFrame,
		Node:                node,
		FrameOfReferenceUID: node.SCOORD3D.FrameOfReferenceUID,
	}
}

// WorldPoints converts the resolved coordinate payload to patient-space
// points. Image-anchored pixels go through the caller's ImageToWorld
// transform; frame-anchored triplets are returned as-is.
func (r *Resolver) WorldPoints(ctx *SpatialContext) ([][3]float64, error) {
	switch ctx.Space {
	case SpaceImage:
		if r.ImageToWorld == nil {
			return nil, fmt.Errorf("image-anchored coordinates require an ImageToWorld transform")
		}
		pairs := Pairs(ctx.Node.SCOORD.GraphicData)
		out := make([][3]float64, 0, len(pairs))
		for _, p := range pairs {
			w, err := r.ImageToWorld(ctx.ImageID, p)
			if err != nil {
				return nil, fmt.Errorf("image %q: %w", ctx.ImageID, err)
			}
			out = append(out, w)
		}
		return out, nil
	case SpaceFrame:
		return Triplets(ctx.Node.SCOORD3D.GraphicData), nil
	default:
		return nil, fmt.Errorf("unknown coordinate space %d", ctx.Space)
	}
}

// Pairs regroups flat graphic data into (column, row) pairs. A trailing
// odd value is dropped.
func Pairs(data []float64) [][2]float64 {
	out := make([][2]float64, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		out = append(out, [2]float64{data[i], data[i+1]})
	}
	return out
}

// Triplets regroups flat graphic data into (x, y, z) triplets. Trailing
// values short of a full triplet are dropped.
func Triplets(data []float64) [][3]float64 {
	out := make([][3]float64, 0, len(data)/3)
	for i := 0; i+2 < len(data); i += 3 {
		out = append(out, [3]float64{data[i], data[i+1], data[i+2]})
	}
	return out
}

// Flatten2D renders pixel pairs as flat graphic data.
func Flatten2D(points [][2]float64) []float64 {
	out := make([]float64, 0, len(points)*2)
	for _, p := range points {
		out = append(out, p[0], p[1])
	}
	return out
}

// Flatten3D renders patient-space triplets as flat graphic data.
func Flatten3D(points [][3]float64) []float64 {
	out := make([]float64, 0, len(points)*3)
	for _, p := range points {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}
