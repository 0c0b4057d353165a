package vision

import (
	"fmt"
	"strings"
)

// PreviewScale describes how the camera preview is laid out on the display.
type PreviewScale int

const (
	// ScaleStretch maps the sensor onto the whole display with independent
	// horizontal and vertical ratios.
	ScaleStretch PreviewScale = iota
	// ScaleFit scales uniformly so the whole sensor is visible, centering it
	// with bars on one axis.
	ScaleFit
	// ScaleFill scales uniformly so the display is covered, cropping one axis
	// around the center.
	ScaleFill
)

func (p PreviewScale) String() string {
	switch p {
	case ScaleFit:
		return "fit"
	case ScaleFill:
		return "fill"
	default:
		return "stretch"
	}
}

// ParsePreviewScale accepts "stretch", "fit" or "fill".
func ParsePreviewScale(s string) (PreviewScale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stretch":
		return ScaleStretch, nil
	case "fit":
		return ScaleFit, nil
	case "fill":
		return ScaleFill, nil
	}
	return ScaleStretch, fmt.Errorf("unknown preview scale %q", s)
}

// DisplayMapping is the sensor-to-display affine map: display = sensor*scale + pad.
type DisplayMapping struct {
	ScaleX, ScaleY float64
	PadX, PadY     float64
}

// Mapping derives the sensor-to-display map for the preview mode. An invalid
// display resolution maps one to one.
func (p PreviewScale) Mapping(sensor, display Resolution) DisplayMapping {
	if !sensor.Valid() || !display.Valid() {
		return DisplayMapping{ScaleX: 1, ScaleY: 1}
	}
	sx := float64(display.Width) / float64(sensor.Width)
	sy := float64(display.Height) / float64(sensor.Height)

	var s float64
	switch p {
	case ScaleFit:
		s = min(sx, sy)
	case ScaleFill:
		s = max(sx, sy)
	default:
		return DisplayMapping{ScaleX: sx, ScaleY: sy}
	}
	return DisplayMapping{
		ScaleX: s,
		ScaleY: s,
		PadX:   (float64(display.Width) - float64(sensor.Width)*s) / 2,
		PadY:   (float64(display.Height) - float64(sensor.Height)*s) / 2,
	}
}

// Remapper moves detections from model input space to display space.
type Remapper struct {
	Mode PreviewScale
}

// Remap inverts the letterbox (model -> sensor), applies the preview mapping
// (sensor -> display) and converts to top-left form.
func (r Remapper) Remap(dets []Detection, lb LetterboxTransform, sensor, display Resolution) []RenderedBox {
	m := r.Mode.Mapping(sensor, display)
	scale := lb.Scale
	if scale <= 0 {
		scale = 1
	}

	boxes := make([]RenderedBox, 0, len(dets))
	for _, d := range dets {
		sensorX := (float64(d.X) - lb.OffsetX) / scale
		sensorY := (float64(d.Y) - lb.OffsetY) / scale
		sensorW := float64(d.W) / scale
		sensorH := float64(d.H) / scale

		cx := sensorX*m.ScaleX + m.PadX
		cy := sensorY*m.ScaleY + m.PadY
		w := sensorW * m.ScaleX
		h := sensorH * m.ScaleY

		boxes = append(boxes, RenderedBox{
			X:          float32(cx - w/2),
			Y:          float32(cy - h/2),
			W:          float32(w),
			H:          float32(h),
			Confidence: d.Confidence,
			ClassID:    d.ClassID,
		})
	}
	return boxes
}
