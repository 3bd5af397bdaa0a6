package quantize

import (
	"bytes"
	"image"
	"reflect"
	"testing"
)

func buildGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			img.Pix[i] = uint8((x * 255) / w)
			img.Pix[i+1] = uint8((y * 255) / h)
			img.Pix[i+2] = uint8(((x + y) * 255) / (w + h))
			img.Pix[i+3] = uint8((x*31 + y*17) % 256)
		}
	}
	return img
}

func TestBuildPaletteDeterministic(t *testing.T) {
	img := buildGradient(120, 90)

	for _, size := range []int{2, 8, 17, 32} {
		a := BuildPalette(img, size)
		b := BuildPalette(img, size)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("palette for size %d differs across runs", size)
		}
		if len(a.Colors) > size {
			t.Fatalf("palette has %d colors, want <= %d", len(a.Colors), size)
		}
		if len(a.Colors) == 0 {
			t.Fatalf("palette for size %d is empty", size)
		}
	}
}

func TestBuildPaletteFewDistinctColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0x20
		img.Pix[i+1] = 0x40
		img.Pix[i+2] = 0x60
		img.Pix[i+3] = 0xff
	}

	pal := BuildPalette(img, 16)
	if len(pal.Colors) != 1 {
		t.Fatalf("uniform image should collapse to 1 color, got %d", len(pal.Colors))
	}
	want := RGB{R: 0x20, G: 0x40, B: 0x60}
	if pal.Colors[0] != want {
		t.Fatalf("palette color = %+v, want %+v", pal.Colors[0], want)
	}
}

func TestDitherDeterministic(t *testing.T) {
	img := buildGradient(100, 80)
	pal := BuildPalette(img, 8)

	a := Dither(img, pal)
	b := Dither(img, pal)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("dither output differs across runs for identical input")
	}
}

func TestDitherAlphaRoundTrip(t *testing.T) {
	img := buildGradient(64, 48)
	pal := BuildPalette(img, 4)
	out := Dither(img, pal)

	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			got := out.Pix[y*out.Stride+x*4+3]
			want := img.Pix[y*img.Stride+x*4+3]
			if got != want {
				t.Fatalf("alpha changed at (%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestDitherOutputRestrictedToPalette(t *testing.T) {
	img := buildGradient(96, 72)
	pal := BuildPalette(img, 8)
	out := Dither(img, pal)

	allowed := make(map[RGB]struct{}, len(pal.Colors))
	for _, c := range pal.Colors {
		allowed[c] = struct{}{}
	}

	distinct := make(map[RGB]struct{})
	for y := 0; y < 72; y++ {
		for x := 0; x < 96; x++ {
			i := y*out.Stride + x*4
			c := RGB{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2]}
			if _, ok := allowed[c]; !ok {
				t.Fatalf("pixel (%d,%d) color %+v not in palette", x, y, c)
			}
			distinct[c] = struct{}{}
		}
	}
	if len(distinct) > 8 {
		t.Fatalf("output has %d distinct colors, want <= 8", len(distinct))
	}
}

func TestDitherDoesNotMutateInput(t *testing.T) {
	img := buildGradient(32, 32)
	before := append([]uint8(nil), img.Pix...)

	pal := BuildPalette(img, 2)
	_ = Dither(img, pal)

	if !bytes.Equal(before, img.Pix) {
		t.Fatal("input buffer was modified")
	}
}

func TestDitherEmptyPalettePassesThrough(t *testing.T) {
	img := buildGradient(10, 10)
	out := Dither(img, &Palette{})
	if !bytes.Equal(out.Pix, img.Pix) {
		t.Fatal("empty palette should pass the buffer through unchanged")
	}
}
