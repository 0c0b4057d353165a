package vision

import "sort"

// DefaultIoUThreshold is the overlap above which a lower-confidence box is dropped.
const DefaultIoUThreshold = 0.5

// IoU returns the intersection over union of two center-form boxes, or 0 when
// the union is empty.
func IoU(a, b Detection) float32 {
	ax1, ay1, ax2, ay2 := a.Corners()
	bx1, by1, bx2, by2 := b.Corners()

	interW := max(0, min(ax2, bx2)-max(ax1, bx1))
	interH := max(0, min(ay2, by2)-max(ay1, by1))
	inter := interW * interH

	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Suppressor is greedy non-maximum suppression. By default it is class
// agnostic: a box of one class suppresses an overlapping box of any class.
// ClassAware restricts suppression to boxes sharing a class id.
type Suppressor struct {
	IoUThreshold float32
	ClassAware   bool
}

// Suppress returns the kept detections in descending confidence order. The
// input slice is not modified.
func (s Suppressor) Suppress(dets []Detection) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	active := make([]bool, len(sorted))
	for i := range active {
		active[i] = true
	}

	for i := range sorted {
		if !active[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if !active[j] {
				continue
			}
			if s.ClassAware && sorted[i].ClassID != sorted[j].ClassID {
				continue
			}
			if IoU(sorted[i], sorted[j]) > s.IoUThreshold {
				active[j] = false
			}
		}
	}
	return kept
}
