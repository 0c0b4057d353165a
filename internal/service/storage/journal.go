package storage

import (
	"context"
	"sync"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/dto"
	"github.com/daverlon/KotlinYOLO/internal/labels"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/model"
	"github.com/daverlon/KotlinYOLO/internal/repository"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
)

// JournalService buffers pipeline results in memory and periodically flushes
// them to the frame and detection repositories. Frames with no boxes and no
// error are not journaled. Frames older than the retention are pruned on
// every tick.
type JournalService struct {
	entries       []pipeline.Result
	limit         int
	flushInterval time.Duration
	retention     time.Duration
	overflow      uint64
	flushNow      chan struct{}

	mu            sync.Mutex
	logger        *logger.Logger
	labels        *labels.Set
	frameRepo     repository.FrameRepository
	detectionRepo repository.DetectionRepository
}

// NewJournalService creates a journal writing through the given repositories.
func NewJournalService(config *config.Config, logger *logger.Logger, names *labels.Set, frameRepo repository.FrameRepository, detectionRepo repository.DetectionRepository) *JournalService {
	limit := config.JournalLimit
	if limit <= 0 {
		limit = 50
	}
	interval := config.JournalFlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &JournalService{
		entries:       make([]pipeline.Result, 0, limit),
		limit:         limit,
		flushInterval: interval,
		retention:     config.JournalRetention,
		flushNow:      make(chan struct{}, 1),
		logger:        logger,
		labels:        names,
		frameRepo:     frameRepo,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on a ticker, when the buffer fills, and once more when ctx ends.
func (s *JournalService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case now := <-ticker.C:
			s.Flush()
			s.Prune(now)
		case <-s.flushNow:
			s.Flush()
		}
	}
}

// Publish implements pipeline.Sink. It never blocks on the database.
func (s *JournalService) Publish(res pipeline.Result) {
	if len(res.Boxes) == 0 && res.Error == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.limit {
		// Flush is already requested; keep the newest results.
		s.entries = append(s.entries[:0], s.entries[1:]...)
		s.overflow++
	}
	s.entries = append(s.entries, res)

	if len(s.entries) >= s.limit {
		select {
		case s.flushNow <- struct{}{}:
		default:
		}
	}
}

// FlushIfFull flushes when the buffer has reached its limit. Callers that
// publish without Run use it so nothing is dropped as overflow.
func (s *JournalService) FlushIfFull() int {
	if s.Pending() < s.limit {
		return 0
	}
	return s.Flush()
}

// Prune deletes journaled frames older than the retention, measured from now.
// It returns the number of frames removed.
func (s *JournalService) Prune(now time.Time) int64 {
	if s.retention <= 0 {
		return 0
	}
	removed, err := s.frameRepo.DeleteOlderThan(now.Add(-s.retention))
	if err != nil {
		s.logger.Error("Error pruning journal: %v", err)
		return 0
	}
	if removed > 0 {
		s.logger.Info("🧹 Pruned %d journaled frames older than %v", removed, s.retention)
	}
	return removed
}

// Pending returns the number of buffered results.
func (s *JournalService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Overflow returns how many results were dropped because the buffer was full.
func (s *JournalService) Overflow() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflow
}

// Flush writes buffered results to the repositories and clears the buffer.
// It returns the number of frames saved.
func (s *JournalService) Flush() int {
	s.mu.Lock()
	batch := s.entries
	s.entries = make([]pipeline.Result, 0, s.limit)
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	savedCount := 0
	for _, res := range batch {
		frameID, err := s.frameRepo.Insert(frameRecord(res))
		if err != nil {
			s.logger.Error("Error saving frame %d to database: %v", res.Seq, err)
			continue
		}

		if len(res.Boxes) > 0 {
			dets := make([]model.Detection, 0, len(res.Boxes))
			for _, b := range res.Boxes {
				dets = append(dets, model.Detection{
					FrameID:    frameID,
					ClassID:    b.ClassID,
					Label:      s.labels.Name(b.ClassID),
					X:          float64(b.X),
					Y:          float64(b.Y),
					Width:      float64(b.W),
					Height:     float64(b.H),
					Confidence: float64(b.Confidence),
				})
			}
			if err := s.detectionRepo.InsertBatch(dets); err != nil {
				s.logger.Error("Error saving detections to database: %v", err)
			}
		}
		savedCount++
	}

	s.logger.Info("Journaled %d frames", savedCount)
	return savedCount
}

// Recent returns the newest journaled frames with their detections.
func (s *JournalService) Recent(filter *dto.FrameFilter) (*dto.FramePage, error) {
	frames, err := s.frameRepo.GetRecent(filter)
	if err != nil {
		return nil, err
	}
	total, err := s.frameRepo.GetTotalCount(filter)
	if err != nil {
		return nil, err
	}

	page := &dto.FramePage{Total: total, Frames: make([]dto.FrameRecord, 0, len(frames))}
	for _, f := range frames {
		dets, err := s.detectionRepo.GetByFrameID(f.ID)
		if err != nil {
			return nil, err
		}
		page.Frames = append(page.Frames, dto.FrameRecord{Frame: f, Detections: dets})
	}
	return page, nil
}

// Frame returns one journaled frame with its detections, or nil when absent.
func (s *JournalService) Frame(id int64) (*dto.FrameRecord, error) {
	f, err := s.frameRepo.GetByID(id)
	if err != nil || f == nil {
		return nil, err
	}
	dets, err := s.detectionRepo.GetByFrameID(id)
	if err != nil {
		return nil, err
	}
	return &dto.FrameRecord{Frame: *f, Detections: dets}, nil
}

// LabelCounts reports how often each label was journaled.
func (s *JournalService) LabelCounts() (map[string]int, error) {
	return s.detectionRepo.GetLabelCounts()
}

func frameRecord(res pipeline.Result) *model.Frame {
	return &model.Frame{
		SessionID:     res.SessionID,
		Seq:           res.Seq,
		Timestamp:     res.Timestamp,
		SensorWidth:   res.Sensor.Width,
		SensorHeight:  res.Sensor.Height,
		DisplayWidth:  res.Display.Width,
		DisplayHeight: res.Display.Height,
		Candidates:    res.Candidates,
		LatencyMs:     float64(res.Latency.Microseconds()) / 1000,
		ErrorKind:     res.Error,
	}
}
