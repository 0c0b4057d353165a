package vision

import "math"

const (
	// DefaultConfidenceThreshold drops anchors whose best class score is not above it.
	DefaultConfidenceThreshold = 0.25
	// DefaultNumClasses is the COCO class count.
	DefaultNumClasses = 80

	boxAttributes = 4
)

// Decoder turns a raw attribute-major prediction into per-anchor detections.
type Decoder struct {
	NumClasses    int
	ConfThreshold float32
}

// NewDecoder returns a decoder for numClasses with the given threshold.
func NewDecoder(numClasses int, threshold float32) Decoder {
	return Decoder{NumClasses: numClasses, ConfThreshold: threshold}
}

// CheckShape verifies p has shape (1, 4+NumClasses, anchors) and enough data.
// It returns the anchor count.
func (d Decoder) CheckShape(p RawPrediction) (int, error) {
	attrs := boxAttributes + d.NumClasses
	mismatch := &ShapeMismatchError{
		What:     "raw prediction",
		Expected: []int{1, attrs, -1},
		Got:      p.Shape,
	}
	if len(p.Shape) != 3 || p.Shape[0] != 1 || p.Shape[1] != attrs || p.Shape[2] < 0 {
		return 0, mismatch
	}
	anchors := p.Shape[2]
	if len(p.Data) != attrs*anchors {
		mismatch.Expected = []int{attrs * anchors}
		mismatch.Got = []int{len(p.Data)}
		return 0, mismatch
	}
	return anchors, nil
}

// Decode emits one detection per anchor whose best class score exceeds the
// threshold. Ties go to the lowest class id. Output is in anchor order.
func (d Decoder) Decode(p RawPrediction) ([]Detection, error) {
	anchors, err := d.CheckShape(p)
	if err != nil {
		return nil, err
	}

	at := func(attr, anchor int) float32 {
		return p.Data[attr*anchors+anchor]
	}

	detections := make([]Detection, 0)
	for a := 0; a < anchors; a++ {
		best := float32(math.Inf(-1))
		classID := -1
		for c := 0; c < d.NumClasses; c++ {
			if score := at(boxAttributes+c, a); score > best {
				best = score
				classID = c
			}
		}
		if classID < 0 || !(best > d.ConfThreshold) {
			continue
		}
		detections = append(detections, Detection{
			X:          at(0, a),
			Y:          at(1, a),
			W:          at(2, a),
			H:          at(3, a),
			Confidence: best,
			ClassID:    classID,
		})
	}
	return detections, nil
}
