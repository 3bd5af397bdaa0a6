// Package pipeline sequences the image transformation stages: geometric
// transform, face redaction, palette quantization with dithering, and
// re-encoding. The orchestrator owns the run state machine, the palette
// cache, debounced scheduling, and supersession of stale in-flight runs.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"squish/internal/metadata"
	"squish/internal/quantize"
	"squish/internal/redact"
	"squish/internal/transform"
	"squish/pkg/imgutil"
)

// ErrNoSource is returned by Request before any source image was loaded.
var ErrNoSource = errors.New("no source image loaded")

const defaultDebounceWindow = 350 * time.Millisecond

// Orchestrator runs the pipeline. Each Request is tagged with a
// monotonically increasing sequence number; when a newer request starts
// while an older run is still in flight, the older run's remaining progress
// events and outcome are dropped, so the caller only ever observes the
// newest run. Progress events and outcomes are delivered on the channels
// passed to New, which the caller must drain.
type Orchestrator struct {
	detector     redact.Detector
	events       chan<- ProgressEvent
	outcomes     chan<- Outcome
	window       time.Duration
	blurStrength float64

	seq atomic.Uint64

	mu       sync.Mutex
	source   *SourceImage
	timer    *time.Timer
	pending  *pendingRequest
	palettes *paletteCache
}

type pendingRequest struct {
	ctx  context.Context
	opts ProcessingOptions
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDebounceWindow overrides the quiescence window for debounced requests.
func WithDebounceWindow(d time.Duration) Option {
	return func(o *Orchestrator) { o.window = d }
}

// WithBlurStrength scales the face blur radius.
func WithBlurStrength(s float64) Option {
	return func(o *Orchestrator) { o.blurStrength = s }
}

// New builds an Orchestrator. A nil detector degrades face blur to a no-op.
// events may be nil when the caller does not want progress.
func New(detector redact.Detector, events chan<- ProgressEvent, outcomes chan<- Outcome, opts ...Option) *Orchestrator {
	if detector == nil {
		detector = redact.Unavailable{}
	}
	o := &Orchestrator{
		detector:     detector,
		events:       events,
		outcomes:     outcomes,
		window:       defaultDebounceWindow,
		blurStrength: 1,
		palettes:     newPaletteCache(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetSource decodes a new source image. Any pending debounced request is
// dropped and the palette cache is evicted: cached palettes are keyed by
// source identity and cannot outlive it.
func (o *Orchestrator) SetSource(data []byte) (*SourceImage, error) {
	img, kind, hasAlpha, err := imgutil.Decode(data)
	if err != nil {
		return nil, newError(KindDecode, "decode", err)
	}

	src := &SourceImage{
		data:     data,
		img:      img,
		kind:     kind,
		hasAlpha: hasAlpha,
		stats: StatsRecord{
			SizeBytes: len(data),
			Width:     img.Bounds().Dx(),
			Height:    img.Bounds().Dy(),
		},
		fingerprint: fingerprintBytes(data),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.source = src
	o.pending = nil
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	// Supersede any in-flight run: its source is gone, so its result must
	// never be delivered and its palette must never repopulate the cache.
	o.seq.Add(1)
	o.palettes.evict()
	return src, nil
}

// Request schedules a pipeline run against the current source. Invalid
// options are rejected here, before anything executes. Immediate triggers
// start at once; debounced triggers wait out the quiescence window and only
// the last set of options submitted during the window runs.
func (o *Orchestrator) Request(ctx context.Context, opts ProcessingOptions, trigger Trigger) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.source == nil {
		return ErrNoSource
	}

	if trigger == TriggerImmediate {
		o.pending = nil
		if o.timer != nil {
			o.timer.Stop()
			o.timer = nil
		}
		o.startLocked(ctx, opts)
		return nil
	}

	o.pending = &pendingRequest{ctx: ctx, opts: opts}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.window, o.firePending)
	return nil
}

func (o *Orchestrator) firePending() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return
	}
	req := o.pending
	o.pending = nil
	o.timer = nil
	o.startLocked(req.ctx, req.opts)
}

func (o *Orchestrator) startLocked(ctx context.Context, opts ProcessingOptions) {
	seq := o.seq.Add(1)
	src := o.source
	go o.run(ctx, seq, src, opts)
}

// current reports whether seq is still the newest scheduled run.
func (o *Orchestrator) current(seq uint64) bool {
	return o.seq.Load() == seq
}

// emit sends a progress event for seq unless a newer run superseded it.
// Like deliver, the seq check and the send happen under the scheduling
// lock: once a newer request is scheduled, an older run can no longer slip
// an event onto the channel behind it.
func (o *Orchestrator) emit(seq uint64, step Step, value int) {
	if o.events == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.current(seq) {
		return
	}
	o.events <- ProgressEvent{Step: step, Value: value}
}

// deliver sends the terminal outcome for seq unless a newer run superseded
// it. The seq check and the send happen under the scheduling lock, so a
// run that passes the check cannot race a newer Request.
func (o *Orchestrator) deliver(seq uint64, res *Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.current(seq) {
		return
	}
	o.outcomes <- Outcome{Seq: seq, Result: res, Err: err}
}

func (o *Orchestrator) run(ctx context.Context, seq uint64, src *SourceImage, opts ProcessingOptions) {
	o.emit(seq, StepStarting, 0)

	// Metadata extraction only reads the source bytes, so it runs alongside
	// the pixel stages. Extraction problems never fail a run.
	metaCh := make(chan *metadata.Metadata, 1)
	go func() {
		meta, err := metadata.Extract(src.data)
		if err != nil {
			meta = nil
		}
		metaCh <- meta
	}()

	superseded := func() bool {
		return ctx.Err() != nil || !o.current(seq)
	}

	buf, err := transform.Apply(src.img, opts.Rotation, opts.Crop, opts.MaxWidth)
	if err != nil {
		kind := KindInvalidOptions
		if errors.Is(err, transform.ErrInvalidRegion) {
			kind = KindInvalidRegion
		}
		o.deliver(seq, nil, newError(kind, "transform", err))
		return
	}
	o.emit(seq, StepStarting, 10)
	if superseded() {
		return
	}

	if opts.ApplyFaceBlur {
		o.emit(seq, StepDetectingFaces, 20)
		boxes, derr := o.detector.DetectFaces(ctx, buf)
		if derr == nil && len(boxes) > 0 {
			buf = redact.Apply(buf, boxes, o.blurStrength)
		}
		// A failed or absent detector degrades to zero faces.
		o.emit(seq, StepDetectingFaces, 35)
		if superseded() {
			return
		}
	}

	if opts.ApplyDithering {
		key := paletteKey{source: src.fingerprint, colorCount: opts.ColorCount}
		paletteStep := StepCreatingPalette
		if o.palettes.contains(key) {
			paletteStep = StepUsingCache
		}
		o.emit(seq, paletteStep, 45)

		// The palette is built from the source-resolution buffer so the
		// cache key holds across quality, rotation, and resize changes.
		pal, _ := o.palettes.get(key, func() *quantize.Palette {
			return quantize.BuildPalette(src.img, opts.ColorCount)
		})
		o.emit(seq, paletteStep, 60)
		if superseded() {
			return
		}

		o.emit(seq, StepApplying, 65)
		buf = quantize.Dither(buf, pal)
		o.emit(seq, StepApplying, 85)
	} else {
		o.emit(seq, StepApplying, 85)
	}
	if superseded() {
		return
	}

	o.emit(seq, StepFinalizing, 90)
	data, outKind, err := encodeBuffer(buf, opts.Quality, src.hasAlpha)
	if err != nil {
		o.deliver(seq, nil, newError(KindEncode, "encode", err))
		return
	}

	result := &Result{
		Data:   data,
		Format: outKind,
		Source: src.stats,
		Output: StatsRecord{
			SizeBytes: len(data),
			Width:     buf.Bounds().Dx(),
			Height:    buf.Bounds().Dy(),
		},
		Meta: <-metaCh,
	}

	o.emit(seq, StepComplete, 100)
	o.deliver(seq, result, nil)
}

// CachedPalettes reports how many palettes are currently cached.
func (o *Orchestrator) CachedPalettes() int {
	return o.palettes.size()
}
