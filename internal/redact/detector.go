package redact

import (
	"context"
	"errors"
	"image"
)

// ErrDetectorUnavailable signals that no face detection capability is
// present. The pipeline treats it as "zero faces", never as a failure.
var ErrDetectorUnavailable = errors.New("face detector unavailable")

// Box is a face bounding box in pixel space.
type Box struct {
	X, Y, W, H int
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Detector locates faces in a raster buffer. Detection is an external
// capability; implementations may call out to a model, return fixed boxes,
// or report that no detector exists.
type Detector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]Box, error)
}

// Unavailable is the absent-capability Detector.
type Unavailable struct{}

func (Unavailable) DetectFaces(context.Context, image.Image) ([]Box, error) {
	return nil, ErrDetectorUnavailable
}

// Static returns a fixed set of boxes, clipped to the image. It backs the
// --face-box flag and tests.
type Static struct {
	Boxes []Box
}

func (s Static) DetectFaces(_ context.Context, img image.Image) ([]Box, error) {
	bounds := img.Bounds()
	out := make([]Box, 0, len(s.Boxes))
	for _, b := range s.Boxes {
		r := b.Rect().Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()})
	}
	return out, nil
}
