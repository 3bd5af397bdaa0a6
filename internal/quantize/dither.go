package quantize

import "image"

// Dither re-renders img using only palette colors, diffusing quantization
// error with the Floyd–Steinberg kernel. Rows are scanned in serpentine
// order (left-to-right, then right-to-left) so diffusion artifacts carry no
// directional bias. Error spreads through the color channels only; each
// pixel's alpha is saved before the pass and written back verbatim. The
// input buffer is never modified.
func Dither(img *image.NRGBA, pal *Palette) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 || len(pal.Colors) == 0 {
		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w*4], img.Pix[y*img.Stride:y*img.Stride+w*4])
		}
		return out
	}

	alpha := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha[y*w+x] = img.Pix[y*img.Stride+x*4+3]
		}
	}

	// Working copy of the color channels, widened so diffusion can push
	// values outside [0,255] without clipping the carried error.
	work := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := y*img.Stride + x*4
			dst := (y*w + x) * 3
			work[dst] = float64(img.Pix[src])
			work[dst+1] = float64(img.Pix[src+1])
			work[dst+2] = float64(img.Pix[src+2])
		}
	}

	for y := 0; y < h; y++ {
		leftToRight := y%2 == 0
		for step := 0; step < w; step++ {
			x := step
			if !leftToRight {
				x = w - 1 - step
			}

			idx := (y*w + x) * 3
			r, g, b := work[idx], work[idx+1], work[idx+2]
			c := pal.Colors[pal.nearest(r, g, b)]

			o := y*out.Stride + x*4
			out.Pix[o] = c.R
			out.Pix[o+1] = c.G
			out.Pix[o+2] = c.B

			errR := r - float64(c.R)
			errG := g - float64(c.G)
			errB := b - float64(c.B)

			// Floyd–Steinberg weights, mirrored on right-to-left rows.
			ahead := 1
			if !leftToRight {
				ahead = -1
			}
			diffuse(work, w, h, x+ahead, y, errR, errG, errB, 7.0/16.0)
			diffuse(work, w, h, x-ahead, y+1, errR, errG, errB, 3.0/16.0)
			diffuse(work, w, h, x, y+1, errR, errG, errB, 5.0/16.0)
			diffuse(work, w, h, x+ahead, y+1, errR, errG, errB, 1.0/16.0)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = alpha[y*w+x]
		}
	}
	return out
}

func diffuse(work []float64, w, h, x, y int, errR, errG, errB, weight float64) {
	if x < 0 || x >= w || y < 0 || y >= h {
		return
	}
	idx := (y*w + x) * 3
	work[idx] += errR * weight
	work[idx+1] += errG * weight
	work[idx+2] += errB * weight
}
