package pipeline

import (
	"sync"

	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// Mailbox is a single-slot frame buffer between the camera callback and the
// worker. A new frame overwrites an unconsumed one, so the worker always
// sees the latest frame. Each frame travels with the session it was
// captured under.
type Mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	frame   *vision.RawFrame // nil = empty
	session *Session
	closed  bool

	received         uint64
	totalDrops       uint64
	consecutiveDrops uint64
	lastTakenSeq     uint64
}

// NewMailbox returns an empty open mailbox.
func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores frame, replacing any unconsumed one. It never blocks. The
// replaced frame (or frame itself, once closed) is released before Put returns.
// Put reports whether a frame was dropped.
func (m *Mailbox) Put(frame vision.RawFrame, sess *Session) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		release(frame)
		return true
	}

	m.received++
	old := m.frame
	if old != nil {
		m.consecutiveDrops++
		m.totalDrops++
	}
	m.frame = &frame
	m.session = sess
	m.cond.Signal()
	m.mu.Unlock()

	if old != nil {
		release(*old)
		return true
	}
	return false
}

// Take blocks until a frame is available and removes it from the slot along
// with its session. It returns false once the mailbox is closed.
func (m *Mailbox) Take() (vision.RawFrame, *Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return vision.RawFrame{}, nil, false
	}

	frame, sess := *m.frame, m.session
	m.frame, m.session = nil, nil
	m.lastTakenSeq = frame.Seq
	m.consecutiveDrops = 0
	return frame, sess, true
}

// Close wakes a blocked Take and releases any pending frame. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.frame
	m.frame, m.session = nil, nil
	m.cond.Broadcast()
	m.mu.Unlock()

	if pending != nil {
		release(*pending)
	}
}

// MailboxStats is a point-in-time copy of the mailbox counters.
type MailboxStats struct {
	Received         uint64 `json:"received"`
	Dropped          uint64 `json:"dropped"`
	ConsecutiveDrops uint64 `json:"consecutiveDrops"`
	LastTakenSeq     uint64 `json:"lastTakenSeq"`
}

func (m *Mailbox) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{
		Received:         m.received,
		Dropped:          m.totalDrops,
		ConsecutiveDrops: m.consecutiveDrops,
		LastTakenSeq:     m.lastTakenSeq,
	}
}

func release(f vision.RawFrame) {
	if f.Release != nil {
		f.Release()
	}
}
