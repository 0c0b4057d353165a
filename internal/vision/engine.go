package vision

import "context"

// Engine is the inference boundary: a packed input tensor in, a raw
// prediction out. Implementations may block for the duration of the model run.
type Engine interface {
	Infer(ctx context.Context, in InputTensor) (RawPrediction, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, in InputTensor) (RawPrediction, error)

// Infer calls f.
func (f EngineFunc) Infer(ctx context.Context, in InputTensor) (RawPrediction, error) {
	return f(ctx, in)
}
