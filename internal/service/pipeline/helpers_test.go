package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// testFrame builds a tightly packed gray frame of the given size.
func testFrame(w, h int, seq uint64) vision.RawFrame {
	img := vision.NewRasterImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = 90
	}
	f := vision.FrameFromRaster(img)
	f.Seq = seq
	return f
}

// prediction lays out detections attribute-major as (1, 4+numClasses, len(dets)).
func prediction(numClasses int, dets ...vision.Detection) vision.RawPrediction {
	n := len(dets)
	data := make([]float32, (4+numClasses)*n)
	for a, d := range dets {
		data[0*n+a] = d.X
		data[1*n+a] = d.Y
		data[2*n+a] = d.W
		data[3*n+a] = d.H
		data[(4+d.ClassID)*n+a] = d.Confidence
	}
	return vision.RawPrediction{Shape: []int{1, 4 + numClasses, n}, Data: data}
}

func fixedEngine(pred vision.RawPrediction) vision.Engine {
	return vision.EngineFunc(func(ctx context.Context, in vision.InputTensor) (vision.RawPrediction, error) {
		return pred, nil
	})
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.NumClasses = 3
	return opts
}

func quietLogger() *logger.Logger {
	return logger.NewWriterLogger(io.Discard)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
