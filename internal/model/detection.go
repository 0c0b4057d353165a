package model

// Detection represents a kept box of a journaled frame, in display pixels.
type Detection struct {
	ID         int64   `json:"id"`
	FrameID    int64   `json:"frame_id"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}
