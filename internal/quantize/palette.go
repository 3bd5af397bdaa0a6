// Package quantize reduces an image to a small palette and re-renders it
// with Floyd–Steinberg error diffusion in serpentine order. The alpha
// channel never participates: it is set aside before diffusion and restored
// untouched afterwards.
package quantize

import (
	"image"
	"math"
)

// Palette is an ordered set of representative colors. Construction is
// deterministic: the same buffer and size always produce the same colors in
// the same order.
type Palette struct {
	Colors []RGB
}

// RGB is a color-channel triple. Alpha is handled outside the palette.
type RGB struct {
	R, G, B uint8
}

type candidate struct {
	r, g, b float64 // running mean per channel
	weight  float64 // pixels absorbed
}

// BuildPalette derives at most size colors from img. The image is tiled
// into a near-square grid of localized regions so that regional detail
// survives better than a single global histogram would allow; the mean
// color of each tile seeds a candidate, and the closest candidate pairs are
// merged until at most size remain. Images with fewer distinct colors than
// size yield a shorter palette.
func BuildPalette(img *image.NRGBA, size int) *Palette {
	if size < 1 {
		size = 1
	}

	rows, cols := gridFor(size)
	cands := tileMeans(img, rows, cols)
	if len(cands) == 0 {
		return &Palette{}
	}

	for len(cands) > size {
		cands = mergeClosest(cands)
	}

	colors := make([]RGB, 0, len(cands))
	seen := make(map[RGB]struct{}, len(cands))
	for _, c := range cands {
		rgb := c.rgb()
		if _, dup := seen[rgb]; dup {
			continue
		}
		seen[rgb] = struct{}{}
		colors = append(colors, rgb)
	}
	return &Palette{Colors: colors}
}

// gridFor picks a near-square rows×cols tiling that oversamples the target
// palette size, so a tile exists for small local features that a coarser
// partition would average away.
func gridFor(size int) (rows, cols int) {
	target := size * 4
	rows = int(math.Sqrt(float64(target)))
	if rows < 1 {
		rows = 1
	}
	cols = (target + rows - 1) / rows
	return rows, cols
}

// tileMeans computes the mean color of each grid tile, scanning tiles in
// row-major order. Tiles on the last row/column absorb the remainder.
func tileMeans(img *image.NRGBA, rows, cols int) []candidate {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil
	}
	if rows > h {
		rows = h
	}
	if cols > w {
		cols = w
	}

	cands := make([]candidate, 0, rows*cols)
	for ty := 0; ty < rows; ty++ {
		y0 := ty * h / rows
		y1 := (ty + 1) * h / rows
		if ty == rows-1 {
			y1 = h
		}
		for tx := 0; tx < cols; tx++ {
			x0 := tx * w / cols
			x1 := (tx + 1) * w / cols
			if tx == cols-1 {
				x1 = w
			}

			var sumR, sumG, sumB, n float64
			for y := y0; y < y1; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+w*4]
				for x := x0; x < x1; x++ {
					sumR += float64(row[x*4])
					sumG += float64(row[x*4+1])
					sumB += float64(row[x*4+2])
					n++
				}
			}
			if n == 0 {
				continue
			}
			cands = append(cands, candidate{r: sumR / n, g: sumG / n, b: sumB / n, weight: n})
		}
	}
	return cands
}

// mergeClosest folds the pair of candidates with the smallest squared
// distance into a single weight-averaged candidate. Ties resolve to the
// lowest index pair, keeping the whole reduction deterministic.
func mergeClosest(cands []candidate) []candidate {
	bestI, bestJ := 0, 1
	bestDist := math.MaxFloat64
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			d := dist2(cands[i], cands[j])
			if d < bestDist {
				bestDist = d
				bestI, bestJ = i, j
			}
		}
	}

	a, b := cands[bestI], cands[bestJ]
	total := a.weight + b.weight
	cands[bestI] = candidate{
		r:      (a.r*a.weight + b.r*b.weight) / total,
		g:      (a.g*a.weight + b.g*b.weight) / total,
		b:      (a.b*a.weight + b.b*b.weight) / total,
		weight: total,
	}
	return append(cands[:bestJ], cands[bestJ+1:]...)
}

func dist2(a, b candidate) float64 {
	dr := a.r - b.r
	dg := a.g - b.g
	db := a.b - b.b
	return dr*dr + dg*dg + db*db
}

func (c candidate) rgb() RGB {
	return RGB{R: clampByte(c.r), G: clampByte(c.g), B: clampByte(c.b)}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// nearest returns the index of the palette color closest to (r,g,b).
// Earlier palette entries win ties.
func (p *Palette) nearest(r, g, b float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range p.Colors {
		dr := r - float64(c.R)
		dg := g - float64(c.G)
		db := b - float64(c.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
