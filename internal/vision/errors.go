package vision

import (
	"errors"
	"fmt"
)

// FrameFormatError reports a camera frame whose plane geometry does not match
// its declared size.
type FrameFormatError struct {
	Reason string
}

func (e *FrameFormatError) Error() string {
	return "frame format: " + e.Reason
}

// ShapeMismatchError reports a raster or tensor whose shape violates the
// contract of the stage consuming it.
type ShapeMismatchError struct {
	What     string
	Expected []int
	Got      []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s expected %v, got %v", e.What, e.Expected, e.Got)
}

// EngineExecutionError wraps a failure of the inference engine.
type EngineExecutionError struct {
	Err error
}

func (e *EngineExecutionError) Error() string {
	return fmt.Sprintf("engine execution: %v", e.Err)
}

func (e *EngineExecutionError) Unwrap() error {
	return e.Err
}

func frameFormatf(format string, args ...interface{}) error {
	return &FrameFormatError{Reason: fmt.Sprintf(format, args...)}
}

// Error kind labels used in stats and the journal.
const (
	KindFrameFormat   = "frame_format"
	KindShapeMismatch = "shape_mismatch"
	KindEngine        = "engine_execution"
	KindOther         = "other"
)

// ErrorKind maps err to one of the Kind* labels, or "" for a nil error.
func ErrorKind(err error) string {
	var (
		ff *FrameFormatError
		sm *ShapeMismatchError
		ee *EngineExecutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ff):
		return KindFrameFormat
	case errors.As(err, &sm):
		return KindShapeMismatch
	case errors.As(err, &ee):
		return KindEngine
	default:
		return KindOther
	}
}
