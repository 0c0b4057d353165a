package dto

import "github.com/daverlon/KotlinYOLO/internal/model"

// FrameRecord is a journaled frame with its detections, as served by /api/frames.
type FrameRecord struct {
	model.Frame
	Detections []model.Detection `json:"detections"`
}

// FramePage is a page of frame records plus the unpaged total.
type FramePage struct {
	Total  int           `json:"total"`
	Frames []FrameRecord `json:"frames"`
}
