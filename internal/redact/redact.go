// Package redact blurs face regions out of a raster buffer. Detection is
// external; this package only consumes the resulting boxes.
package redact

import (
	"image"

	"github.com/disintegration/imaging"
)

// boxMargin expands each face box so the blur fully covers facial edges.
const boxMargin = 0.10

// Apply blurs every face region and returns a new buffer. Overlapping boxes
// are merged first and their union is blurred exactly once, so overlaps
// never double-blur or leave seams. strength scales the blur radius; values
// at or below zero fall back to 1. With no boxes the input is returned
// unchanged.
func Apply(src *image.NRGBA, boxes []Box, strength float64) *image.NRGBA {
	regions := mergeRegions(src.Bounds(), boxes)
	if len(regions) == 0 {
		return src
	}
	if strength <= 0 {
		strength = 1
	}

	out := imaging.Clone(src)
	for _, region := range regions {
		patch := imaging.Crop(out, region)
		sigma := blurSigma(region, strength)
		// Two passes make the result irreversible even for large faces
		// where a single pass leaves recognizable structure.
		patch = imaging.Blur(imaging.Blur(patch, sigma), sigma)
		out = imaging.Paste(out, patch, region.Min)
	}
	return out
}

func blurSigma(region image.Rectangle, strength float64) float64 {
	side := region.Dx()
	if region.Dy() < side {
		side = region.Dy()
	}
	sigma := float64(side) * 0.12 * strength
	if sigma < 3 {
		sigma = 3
	}
	return sigma
}

// mergeRegions expands each box by its margin, clips to bounds, and folds
// every group of overlapping rectangles into a single union rectangle.
func mergeRegions(bounds image.Rectangle, boxes []Box) []image.Rectangle {
	regions := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		r := expand(b).Intersect(bounds)
		if !r.Empty() {
			regions = append(regions, r)
		}
	}

	for {
		merged := false
		for i := 0; i < len(regions) && !merged; i++ {
			for j := i + 1; j < len(regions); j++ {
				if regions[i].Overlaps(regions[j]) {
					regions[i] = regions[i].Union(regions[j])
					regions = append(regions[:j], regions[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return regions
		}
	}
}

func expand(b Box) image.Rectangle {
	dx := int(float64(b.W)*boxMargin + 0.5)
	dy := int(float64(b.H)*boxMargin + 0.5)
	return image.Rect(b.X-dx, b.Y-dy, b.X+b.W+dx, b.Y+b.H+dy)
}
