package pipeline

import (
	"fmt"
	"image"

	"squish/internal/transform"
)

// ProcessingOptions are the parameters of one pipeline run. The value is
// immutable once submitted; invalid values are rejected here, before any
// stage runs, never inside the stages themselves.
type ProcessingOptions struct {
	// Quality trades output size against fidelity, 0 (smallest) to 100.
	Quality int
	// MaxWidth is the downscale target; the image never grows.
	MaxWidth int
	// ApplyDithering enables palette quantization with error diffusion.
	ApplyDithering bool
	// ColorCount is the palette size for dithering, 2 to 32.
	ColorCount int
	// ApplyFaceBlur redacts detected face regions.
	ApplyFaceBlur bool
	// Rotation is a clockwise rotation in degrees: 0, 90, 180, or 270.
	Rotation int
	// Crop, when set, is applied in the coordinate space of the rotated
	// image.
	Crop *image.Rectangle
}

// Validate rejects out-of-range options with a KindInvalidOptions error.
func (o ProcessingOptions) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return newError(KindInvalidOptions, "options", fmt.Errorf("quality %d outside [0,100]", o.Quality))
	}
	if o.MaxWidth <= 0 {
		return newError(KindInvalidOptions, "options", fmt.Errorf("max width %d must be positive", o.MaxWidth))
	}
	if o.ColorCount < 2 || o.ColorCount > 32 {
		return newError(KindInvalidOptions, "options", fmt.Errorf("color count %d outside [2,32]", o.ColorCount))
	}
	if !transform.ValidRotation(o.Rotation) {
		return newError(KindInvalidOptions, "options", fmt.Errorf("rotation %d not a 90-degree step", o.Rotation))
	}
	return nil
}

// Trigger describes how a request was initiated, which decides whether the
// debounce window applies.
type Trigger int

const (
	// TriggerDebounced marks continuous parameter changes (slider drags):
	// only the last value after a quiescence window starts a run.
	TriggerDebounced Trigger = iota
	// TriggerImmediate marks discrete gestures (toggles, rotate, crop) that
	// start a run right away.
	TriggerImmediate
)
