package repository

import (
	"time"

	"github.com/daverlon/KotlinYOLO/internal/dto"
	"github.com/daverlon/KotlinYOLO/internal/model"
)

// FrameRepository defines the interface for journaled frame operations.
type FrameRepository interface {
	// Create operations
	Insert(frame *model.Frame) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Frame, error)
	GetRecent(filter *dto.FrameFilter) ([]model.Frame, error)
	GetTotalCount(filter *dto.FrameFilter) (int, error)

	// Delete operations
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByFrameID(frameID int64) ([]model.Detection, error)
	GetLabelCounts() (map[string]int, error)
}
