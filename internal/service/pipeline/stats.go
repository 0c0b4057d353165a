package pipeline

import (
	"sync"
	"time"
)

// Stats counts worker outcomes. All methods are safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	processed   uint64
	discarded   uint64
	failed      map[string]uint64
	lastLatency time.Duration
	lastSeq     uint64
	lastBoxes   int
}

func newStats() *Stats {
	return &Stats{failed: make(map[string]uint64)}
}

func (s *Stats) recordSuccess(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.lastLatency = res.Latency
	s.lastSeq = res.Seq
	s.lastBoxes = len(res.Boxes)
}

func (s *Stats) recordFailure(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[kind]++
}

func (s *Stats) recordDiscard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded++
}

// StatsSnapshot is what /api/stats reports.
type StatsSnapshot struct {
	SessionID     string            `json:"sessionId,omitempty"`
	Mailbox       MailboxStats      `json:"mailbox"`
	Processed     uint64            `json:"processed"`
	Discarded     uint64            `json:"discarded"`
	Failed        map[string]uint64 `json:"failed"`
	LastLatencyMs float64           `json:"lastLatencyMs"`
	LastSeq       uint64            `json:"lastSeq"`
	LastBoxes     int               `json:"lastBoxes"`
	Geometry      *Geometry         `json:"geometry,omitempty"`
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := make(map[string]uint64, len(s.failed))
	for k, v := range s.failed {
		failed[k] = v
	}
	return StatsSnapshot{
		Processed:     s.processed,
		Discarded:     s.discarded,
		Failed:        failed,
		LastLatencyMs: float64(s.lastLatency.Microseconds()) / 1000,
		LastSeq:       s.lastSeq,
		LastBoxes:     s.lastBoxes,
	}
}
