package pipeline

import (
	"hash/fnv"
	"image"

	"squish/internal/metadata"
	"squish/pkg/imgutil"
)

// Step names a phase of a pipeline run. Steps advance in declaration order;
// UsingCache substitutes for CreatingPalette on a palette cache hit.
type Step int

const (
	StepStarting Step = iota
	StepUsingCache
	StepDetectingFaces
	StepCreatingPalette
	StepApplying
	StepFinalizing
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepStarting:
		return "starting"
	case StepUsingCache:
		return "using cached palette"
	case StepDetectingFaces:
		return "detecting faces"
	case StepCreatingPalette:
		return "creating palette"
	case StepApplying:
		return "applying"
	case StepFinalizing:
		return "finalizing"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProgressEvent reports pipeline progress. Value is 0-100 and never
// decreases within one run; events from superseded runs are filtered out
// before they reach the caller.
type ProgressEvent struct {
	Step  Step
	Value int
}

// StatsRecord captures the byte size and dimensions of an image, once for
// the source and once for the output.
type StatsRecord struct {
	SizeBytes int
	Width     int
	Height    int
}

// Result is the output of a completed run. Ownership transfers to the
// caller on delivery.
type Result struct {
	Data   []byte
	Format imgutil.Kind
	Source StatsRecord
	Output StatsRecord
	Meta   *metadata.Metadata
}

// CompressionRatio is the fraction of the source size that was shed;
// negative when the output grew.
func (r *Result) CompressionRatio() float64 {
	if r.Source.SizeBytes == 0 {
		return 0
	}
	return 1 - float64(r.Output.SizeBytes)/float64(r.Source.SizeBytes)
}

// Outcome is the terminal delivery for one run: a result or a typed error,
// never both. Seq identifies the run.
type Outcome struct {
	Seq    uint64
	Result *Result
	Err    error
}

// SourceImage is one decoded source, immutable for the duration of every
// run issued against it. Stages never modify its buffer; each stage returns
// a new one.
type SourceImage struct {
	data        []byte
	img         *image.NRGBA
	kind        imgutil.Kind
	hasAlpha    bool
	stats       StatsRecord
	fingerprint uint64
}

func (s *SourceImage) Width() int          { return s.stats.Width }
func (s *SourceImage) Height() int         { return s.stats.Height }
func (s *SourceImage) HasAlpha() bool      { return s.hasAlpha }
func (s *SourceImage) Kind() imgutil.Kind  { return s.kind }
func (s *SourceImage) Stats() StatsRecord  { return s.stats }
func (s *SourceImage) Fingerprint() uint64 { return s.fingerprint }

func fingerprintBytes(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}
