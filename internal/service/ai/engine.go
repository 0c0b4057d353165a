package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// ErrNotLoaded is returned by Infer when the model failed to load at startup.
var ErrNotLoaded = errors.New("detection network not initialized")

// NetEngine runs an ONNX detector through OpenCV's DNN module. One forward
// pass at a time.
type NetEngine struct {
	net        gocv.Net
	loaded     bool
	modelPath  string
	inputName  string
	outputName string
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewNetEngine loads the model named in config. A missing or unreadable model
// is logged and leaves an engine whose Infer fails, so the server still starts.
func NewNetEngine(config *config.Config, logger *logger.Logger) *NetEngine {
	engine := &NetEngine{
		modelPath:  config.ModelPath,
		inputName:  config.ModelInputName,
		outputName: config.ModelOutputName,
		logger:     logger,
	}

	if err := engine.initializeNet(); err != nil {
		engine.logger.Warning("Could not initialize detection network: %v", err)
	}
	return engine
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (e *NetEngine) initializeNet() error {
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("model file not found: %s", e.modelPath)
	}

	net := gocv.ReadNetFromONNX(e.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", e.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	e.net = net
	e.loaded = true
	e.logger.Info("Detection network initialized from %s", e.modelPath)
	return nil
}

// Loaded reports whether a model is ready.
func (e *NetEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Infer copies the tensor into a (1,3,S,S) blob, runs the network and returns
// the named output. Every failure is an EngineExecutionError.
func (e *NetEngine) Infer(ctx context.Context, in vision.InputTensor) (vision.RawPrediction, error) {
	if err := ctx.Err(); err != nil {
		return vision.RawPrediction{}, &vision.EngineExecutionError{Err: err}
	}
	if want := 3 * in.Size * in.Size; in.Size <= 0 || len(in.Data) != want {
		return vision.RawPrediction{}, &vision.ShapeMismatchError{
			What:     "input tensor",
			Expected: in.Shape(),
			Got:      []int{len(in.Data)},
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return vision.RawPrediction{}, &vision.EngineExecutionError{Err: ErrNotLoaded}
	}

	blob := gocv.NewMatWithSizes(in.Shape(), gocv.MatTypeCV32F)
	defer blob.Close()
	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return vision.RawPrediction{}, &vision.EngineExecutionError{Err: fmt.Errorf("failed to access input blob: %w", err)}
	}
	copy(dst, in.Data)

	e.net.SetInput(blob, e.inputName)
	out := e.net.Forward(e.outputName)
	defer out.Close()
	if out.Empty() {
		return vision.RawPrediction{}, &vision.EngineExecutionError{Err: fmt.Errorf("forward produced no output %q", e.outputName)}
	}

	shape := out.Size()
	data, err := out.DataPtrFloat32()
	if err != nil {
		return vision.RawPrediction{}, &vision.EngineExecutionError{Err: fmt.Errorf("failed to read output: %w", err)}
	}

	pred := vision.RawPrediction{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, len(data)),
	}
	copy(pred.Data, data)
	return pred, nil
}

// Close releases the network.
func (e *NetEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil
	}
	e.loaded = false
	return e.net.Close()
}
