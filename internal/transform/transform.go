// Package transform applies the geometric stage of the pipeline: rotation
// in 90-degree steps, optional cropping, and downscale-only resizing.
package transform

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidRegion reports a crop rectangle outside the image bounds.
var ErrInvalidRegion = errors.New("crop region outside image bounds")

// ValidRotation reports whether degrees is one of the supported 90° steps.
func ValidRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Apply rotates, crops, and resizes in that order, always returning a new
// buffer. Rotation is clockwise in 90° steps. The crop rectangle, if any, is
// interpreted in the coordinate space of the already rotated image and must
// lie fully inside it. Resize only ever scales down, to maxWidth, keeping
// aspect ratio; maxWidth <= 0 disables resizing.
func Apply(src *image.NRGBA, rotation int, crop *image.Rectangle, maxWidth int) (*image.NRGBA, error) {
	if !ValidRotation(rotation) {
		return nil, fmt.Errorf("unsupported rotation %d", rotation)
	}

	out := rotate(src, rotation)

	if crop != nil {
		bounds := out.Bounds()
		if crop.Dx() <= 0 || crop.Dy() <= 0 || !crop.In(bounds) {
			return nil, fmt.Errorf("%w: crop %v, image %v", ErrInvalidRegion, *crop, bounds)
		}
		out = imaging.Crop(out, *crop)
	}

	if maxWidth > 0 && out.Bounds().Dx() > maxWidth {
		// Lanczos keeps fine detail without the aliasing of nearest/box
		// sampling on large downscales.
		out = imaging.Resize(out, maxWidth, 0, imaging.Lanczos)
	}

	if out == src {
		out = imaging.Clone(src)
	}
	return out, nil
}

func rotate(src *image.NRGBA, degrees int) *image.NRGBA {
	// imaging rotates counter-clockwise; our callers speak clockwise.
	switch degrees {
	case 90:
		return imaging.Rotate270(src)
	case 180:
		return imaging.Rotate180(src)
	case 270:
		return imaging.Rotate90(src)
	default:
		return src
	}
}
