// Package pipeline runs camera frames through the detection stages and hands
// display-space boxes to the overlay sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// Stage names used to prefix errors and key timings.
const (
	StageIngest   = "ingest"
	StageRotate   = "rotate"
	StageResize   = "letterbox"
	StagePack     = "tensor"
	StageInfer    = "inference"
	StageDecode   = "decode"
	StageSuppress = "nms"
	StageRemap    = "remap"
)

// Options configures the stage parameters.
type Options struct {
	InputSize           int
	NumClasses          int
	ConfidenceThreshold float32
	IoUThreshold        float32
	ClassAwareNMS       bool
	Rotation            vision.Rotation
	Preview             vision.PreviewScale
}

// DefaultOptions matches a COCO YOLOv8 export.
func DefaultOptions() Options {
	return Options{
		InputSize:           vision.DefaultInputSize,
		NumClasses:          vision.DefaultNumClasses,
		ConfidenceThreshold: vision.DefaultConfidenceThreshold,
		IoUThreshold:        vision.DefaultIoUThreshold,
	}
}

// StageTimings holds per-stage wall time for one frame.
type StageTimings map[string]time.Duration

// Result is the outcome of one processed frame.
type Result struct {
	SessionID  string               `json:"sessionId"`
	Seq        uint64               `json:"seq"`
	Timestamp  time.Time            `json:"timestamp"`
	Sensor     vision.Resolution    `json:"sensor"`
	Display    vision.Resolution    `json:"display"`
	Candidates int                  `json:"candidates"` // decoded before suppression
	Boxes      []vision.RenderedBox `json:"boxes"`
	Timings    StageTimings         `json:"-"`
	Latency    time.Duration        `json:"latency"`
	Error      string               `json:"error,omitempty"` // error kind when the frame failed
}

// Pipeline owns the stage configuration and the inference engine. Process is
// not safe for concurrent use on the same engine unless the engine allows it.
type Pipeline struct {
	engine     vision.Engine
	resizer    *vision.LetterboxResizer
	decoder    vision.Decoder
	suppressor vision.Suppressor
	remapper   vision.Remapper
	rotation   vision.Rotation
	inputSize  int
}

func New(engine vision.Engine, opts Options) *Pipeline {
	if opts.InputSize <= 0 {
		opts.InputSize = vision.DefaultInputSize
	}
	if opts.NumClasses <= 0 {
		opts.NumClasses = vision.DefaultNumClasses
	}
	return &Pipeline{
		engine:     engine,
		resizer:    vision.NewLetterboxResizer(opts.InputSize),
		decoder:    vision.NewDecoder(opts.NumClasses, opts.ConfidenceThreshold),
		suppressor: vision.Suppressor{IoUThreshold: opts.IoUThreshold, ClassAware: opts.ClassAwareNMS},
		remapper:   vision.Remapper{Mode: opts.Preview},
		rotation:   opts.Rotation,
		inputSize:  opts.InputSize,
	}
}

// Process runs one frame through every stage. The frame is released right
// after ingest. sess may be nil, in which case the display is unknown and
// boxes stay in sensor coordinates.
func (p *Pipeline) Process(ctx context.Context, frame vision.RawFrame, sess *Session) (Result, error) {
	start := time.Now()
	res := Result{Seq: frame.Seq, Timestamp: frame.Timestamp, Timings: StageTimings{}}
	if sess != nil {
		res.SessionID = sess.ID
	}
	if res.Timestamp.IsZero() {
		res.Timestamp = start
	}

	mark := time.Now()
	step := func(stage string) {
		now := time.Now()
		res.Timings[stage] = now.Sub(mark)
		mark = now
	}

	raster, err := vision.IngestFrame(frame)
	release(frame)
	if err != nil {
		return res, fmt.Errorf("%s: %w", StageIngest, err)
	}
	step(StageIngest)

	if p.rotation != vision.Rotate0 {
		raster, err = vision.Rotate(raster, p.rotation)
		if err != nil {
			return res, fmt.Errorf("%s: %w", StageRotate, err)
		}
		step(StageRotate)
	}
	res.Sensor = vision.Resolution{Width: raster.Width, Height: raster.Height}

	boxed, lb, err := p.resizer.Resize(raster)
	if err != nil {
		return res, fmt.Errorf("%s: %w", StageResize, err)
	}
	if sess != nil {
		sess.observeSensor(res.Sensor, lb)
	}
	step(StageResize)

	tensor, err := vision.PackTensor(boxed, p.inputSize)
	if err != nil {
		return res, fmt.Errorf("%s: %w", StagePack, err)
	}
	step(StagePack)

	pred, err := p.engine.Infer(ctx, tensor)
	if err != nil {
		var ee *vision.EngineExecutionError
		if !errors.As(err, &ee) {
			err = &vision.EngineExecutionError{Err: err}
		}
		return res, fmt.Errorf("%s: %w", StageInfer, err)
	}
	step(StageInfer)

	dets, err := p.decoder.Decode(pred)
	if err != nil {
		return res, fmt.Errorf("%s: %w", StageDecode, err)
	}
	res.Candidates = len(dets)
	step(StageDecode)

	kept := p.suppressor.Suppress(dets)
	step(StageSuppress)

	// Display is read after inference so a resize reported meanwhile is honoured.
	if sess != nil {
		res.Display = sess.Geometry().Display
	}
	display := res.Display
	if !display.Valid() {
		display = res.Sensor
	}
	res.Boxes = p.remapper.Remap(kept, lb, res.Sensor, display)
	step(StageRemap)

	res.Latency = time.Since(start)
	return res, nil
}
