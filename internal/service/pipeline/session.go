package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// Geometry is the cached per-session layout. Sensor and Letterbox are filled
// in from the first frame and refreshed when the frame size changes; Display
// is reported by the viewer.
type Geometry struct {
	Sensor    vision.Resolution         `json:"sensor"`
	Display   vision.Resolution         `json:"display"`
	Letterbox vision.LetterboxTransform `json:"letterbox"`
}

// Session scopes cached geometry to one camera run. Geometry is published
// through an atomic pointer so the worker and the display side never see a
// half-written value.
type Session struct {
	ID        string
	StartedAt time.Time

	geometry atomic.Pointer[Geometry]
	ended    atomic.Bool
}

// NewSession starts a session with an optional known display resolution.
func NewSession(display vision.Resolution) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	s.geometry.Store(&Geometry{Display: display})
	return s
}

// Geometry returns the current snapshot.
func (s *Session) Geometry() Geometry {
	return *s.geometry.Load()
}

// SetDisplay records the display resolution. Safe from any goroutine.
func (s *Session) SetDisplay(display vision.Resolution) {
	s.update(func(g *Geometry) { g.Display = display })
}

// observeSensor caches sensor size and letterbox. The geometry is only
// republished on the first frame and when the frame size changes.
func (s *Session) observeSensor(sensor vision.Resolution, lb vision.LetterboxTransform) {
	s.updateIf(func(g *Geometry) bool {
		if g.Sensor == sensor && g.Letterbox == lb {
			return false
		}
		g.Sensor = sensor
		g.Letterbox = lb
		return true
	})
}

func (s *Session) update(fn func(*Geometry)) {
	s.updateIf(func(g *Geometry) bool {
		fn(g)
		return true
	})
}

// updateIf publishes fn's edit of a copy unless fn reports no change.
func (s *Session) updateIf(fn func(*Geometry) bool) {
	for {
		old := s.geometry.Load()
		next := *old
		if !fn(&next) {
			return
		}
		if s.geometry.CompareAndSwap(old, &next) {
			return
		}
	}
}

// End marks the session finished. Results computed for it afterwards are discarded.
func (s *Session) End() {
	s.ended.Store(true)
}

func (s *Session) Ended() bool {
	return s.ended.Load()
}
