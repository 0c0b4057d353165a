package vision

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// anchor is one column of a raw prediction.
type anchor struct {
	box    [4]float32
	scores []float32
}

func buildPrediction(numClasses int, anchors ...anchor) RawPrediction {
	attrs := 4 + numClasses
	n := len(anchors)
	data := make([]float32, attrs*n)
	for a, an := range anchors {
		for i := 0; i < 4; i++ {
			data[i*n+a] = an.box[i]
		}
		for c, s := range an.scores {
			data[(4+c)*n+a] = s
		}
	}
	return RawPrediction{Shape: []int{1, attrs, n}, Data: data}
}

func TestDecode_ArgmaxAndThreshold(t *testing.T) {
	pred := buildPrediction(3,
		anchor{box: [4]float32{10, 20, 30, 40}, scores: []float32{0.1, 0.7, 0.3}},
		anchor{box: [4]float32{1, 2, 3, 4}, scores: []float32{0.2, 0.1, 0.24}},
		anchor{box: [4]float32{50, 60, 5, 6}, scores: []float32{0.9, 0.0, 0.95}},
	)

	got, err := NewDecoder(3, 0.25).Decode(pred)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := []Detection{
		{X: 10, Y: 20, W: 30, H: 40, Confidence: 0.7, ClassID: 1},
		{X: 50, Y: 60, W: 5, H: 6, Confidence: 0.95, ClassID: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_TieGoesToLowestClass(t *testing.T) {
	pred := buildPrediction(4,
		anchor{scores: []float32{0.1, 0.6, 0.6, 0.6}},
	)
	got, err := NewDecoder(4, 0.25).Decode(pred)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 1 || got[0].ClassID != 1 {
		t.Fatalf("Expected class 1, got %+v", got)
	}
}

func TestDecode_ThresholdIsStrict(t *testing.T) {
	pred := buildPrediction(2, anchor{scores: []float32{0.25, 0.25}})
	got, err := NewDecoder(2, 0.25).Decode(pred)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Score equal to threshold must not be emitted, got %+v", got)
	}
}

func TestDecode_AllBelowThresholdIsEmpty(t *testing.T) {
	anchors := make([]anchor, 100)
	for i := range anchors {
		scores := make([]float32, DefaultNumClasses)
		for c := range scores {
			scores[c] = float32((i+c)%25) / 100
		}
		anchors[i] = anchor{box: [4]float32{320, 320, 10, 10}, scores: scores}
	}

	got, err := NewDecoder(DefaultNumClasses, DefaultConfidenceThreshold).Decode(buildPrediction(DefaultNumClasses, anchors...))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestDecode_KeepsAnchorOrder(t *testing.T) {
	pred := buildPrediction(1,
		anchor{box: [4]float32{1}, scores: []float32{0.3}},
		anchor{box: [4]float32{2}, scores: []float32{0.9}},
		anchor{box: [4]float32{3}, scores: []float32{0.5}},
	)
	got, err := NewDecoder(1, 0.25).Decode(pred)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i, d := range got {
		if d.X != float32(i+1) {
			t.Errorf("detection %d has X=%v, expected anchor order", i, d.X)
		}
	}
}

func TestDecode_ShapeMismatch(t *testing.T) {
	good := buildPrediction(3, anchor{scores: []float32{0.5, 0, 0}})

	tests := []struct {
		name string
		pred RawPrediction
	}{
		{"wrong class count", RawPrediction{Shape: []int{1, 84, 1}, Data: good.Data}},
		{"batch of two", RawPrediction{Shape: []int{2, 7, 1}, Data: good.Data}},
		{"rank two", RawPrediction{Shape: []int{7, 1}, Data: good.Data}},
		{"short data", RawPrediction{Shape: []int{1, 7, 2}, Data: good.Data}},
		{"nil shape", RawPrediction{Data: good.Data}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(3, 0.25).Decode(tt.pred)
			var sme *ShapeMismatchError
			if !errors.As(err, &sme) {
				t.Fatalf("Expected ShapeMismatchError, got %v", err)
			}
		})
	}
}
