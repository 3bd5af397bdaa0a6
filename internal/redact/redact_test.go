package redact

import (
	"context"
	"errors"
	"image"
	"testing"
)

func buildNoise(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	state := uint32(1)
	for i := 0; i < len(img.Pix); i += 4 {
		state = state*1664525 + 1013904223
		img.Pix[i] = uint8(state >> 24)
		img.Pix[i+1] = uint8(state >> 16)
		img.Pix[i+2] = uint8(state >> 8)
		img.Pix[i+3] = 0xff
	}
	return img
}

func pixelAt(img *image.NRGBA, x, y int) [4]uint8 {
	i := y*img.Stride + x*4
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func TestApplyBlursBoxRegion(t *testing.T) {
	img := buildNoise(120, 100)
	out := Apply(img, []Box{{X: 20, Y: 20, W: 40, H: 40}}, 1)

	if out == img {
		t.Fatal("redaction must return a new buffer")
	}
	if pixelAt(out, 40, 40) == pixelAt(img, 40, 40) {
		t.Fatal("box center pixel unchanged, expected blur")
	}
	if pixelAt(out, 110, 90) != pixelAt(img, 110, 90) {
		t.Fatal("pixel far outside the box changed")
	}
}

func TestApplyNoBoxesIsNoop(t *testing.T) {
	img := buildNoise(40, 40)
	out := Apply(img, nil, 1)
	if out != img {
		t.Fatal("zero boxes should pass the buffer through")
	}
}

func TestOverlappingBoxesMergeToOneRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 200)
	regions := mergeRegions(bounds, []Box{
		{X: 10, Y: 10, W: 50, H: 50},
		{X: 40, Y: 40, W: 50, H: 50},
		{X: 150, Y: 150, W: 20, H: 20},
	})

	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2 (overlap merged, distant kept)", len(regions))
	}

	union := regions[0]
	if !union.Min.Eq(image.Pt(5, 5)) {
		t.Fatalf("merged region min = %v, want expanded (5,5)", union.Min)
	}
	if union.Max.X < 90 || union.Max.Y < 90 {
		t.Fatalf("merged region %v does not cover both boxes", union)
	}
}

func TestExpandClipsToBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 50, 50)
	regions := mergeRegions(bounds, []Box{{X: 0, Y: 0, W: 60, H: 60}})
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0] != bounds {
		t.Fatalf("region %v should clip to image bounds %v", regions[0], bounds)
	}
}

func TestStaticDetectorClipsBoxes(t *testing.T) {
	img := buildNoise(100, 100)
	det := Static{Boxes: []Box{
		{X: 80, Y: 80, W: 40, H: 40},
		{X: -200, Y: -200, W: 10, H: 10},
	}}

	boxes, err := det.DetectFaces(context.Background(), img)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1 (off-image box dropped)", len(boxes))
	}
	if boxes[0].W != 20 || boxes[0].H != 20 {
		t.Fatalf("box %+v should be clipped to 20x20", boxes[0])
	}
}

func TestUnavailableDetector(t *testing.T) {
	_, err := Unavailable{}.DetectFaces(context.Background(), buildNoise(10, 10))
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("err = %v, want ErrDetectorUnavailable", err)
	}
}
