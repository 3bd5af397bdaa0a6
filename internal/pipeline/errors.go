package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindDecode
	KindInvalidRegion
	KindInvalidOptions
	KindDetectorUnavailable
	KindEncode
)

func (k ErrorKind) String() string {
	switch k {
	case KindDecode:
		return "decode failure"
	case KindInvalidRegion:
		return "invalid region"
	case KindInvalidOptions:
		return "invalid options"
	case KindDetectorUnavailable:
		return "detector unavailable"
	case KindEncode:
		return "encode failure"
	default:
		return "unknown"
	}
}

// Error is a typed pipeline failure. Stage names the pipeline stage that
// produced it.
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown for untyped errors.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
