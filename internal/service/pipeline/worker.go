package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// Sink receives every published result. Publish must not block for long; it
// runs on the worker goroutine.
type Sink interface {
	Publish(Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Result)

func (f SinkFunc) Publish(r Result) { f(r) }

// Worker owns the single in-flight frame. The camera side calls Submit, the
// display side reads results from the sinks.
type Worker struct {
	pipeline     *Pipeline
	mailbox      *Mailbox
	session      atomic.Pointer[Session]
	display      atomic.Pointer[vision.Resolution] // last reported, carried into new sessions
	stats        *Stats
	logger       *logger.Logger
	clearOnError bool

	sinks []Sink
}

// NewWorker creates a worker. With clearOnError set, a failed frame publishes
// an empty box set so stale boxes do not linger on screen.
func NewWorker(p *Pipeline, logger *logger.Logger, clearOnError bool, sinks ...Sink) *Worker {
	return &Worker{
		pipeline:     p,
		mailbox:      NewMailbox(),
		stats:        newStats(),
		logger:       logger,
		clearOnError: clearOnError,
		sinks:        sinks,
	}
}

// StartSession ends the current session, if any, and begins a new one. An
// invalid display falls back to the last one reported through SetDisplay.
func (w *Worker) StartSession(display vision.Resolution) *Session {
	if !display.Valid() {
		if last := w.display.Load(); last != nil {
			display = *last
		}
	}
	sess := NewSession(display)
	if old := w.session.Swap(sess); old != nil {
		old.End()
	}
	w.logger.Info("🎬 Session %s started", sess.ID)
	return sess
}

// EndSession ends sess if it is still the current one. Frames still in
// flight for it are discarded.
func (w *Worker) EndSession(sess *Session) {
	if sess == nil {
		return
	}
	sess.End()
	if w.session.CompareAndSwap(sess, nil) {
		w.logger.Info("🛑 Session %s ended", sess.ID)
	}
}

// SetDisplay records the viewer's display resolution for the current and
// future sessions.
func (w *Worker) SetDisplay(display vision.Resolution) {
	w.display.Store(&display)
	if sess := w.Session(); sess != nil {
		sess.SetDisplay(display)
	}
}

// ReportFailure counts a frame rejected before it reached the worker.
func (w *Worker) ReportFailure(err error) {
	w.stats.recordFailure(vision.ErrorKind(err))
}

// Session returns the active session or nil.
func (w *Worker) Session() *Session {
	return w.session.Load()
}

// Submit hands a frame captured under sess to the worker without blocking.
// An unconsumed older frame is dropped and released. When sess is no longer
// the current session the frame is released and Submit returns false; the
// feed has been replaced and should stop.
func (w *Worker) Submit(sess *Session, frame vision.RawFrame) bool {
	if sess == nil || sess.Ended() || w.Session() != sess {
		release(frame)
		w.stats.recordDiscard()
		return false
	}
	w.mailbox.Put(frame, sess)
	return true
}

// Run processes frames until ctx is cancelled. A frame already in the engine
// when ctx ends is finished and then discarded.
func (w *Worker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, w.mailbox.Close)
	defer stop()

	w.logger.Info("🔧 Detection worker started")
	defer w.logger.Info("🔧 Detection worker stopped")

	for {
		frame, sess, ok := w.mailbox.Take()
		if !ok {
			return ctx.Err()
		}
		w.handle(ctx, frame, sess)
	}
}

// Close stops Run after the current frame.
func (w *Worker) Close() {
	w.mailbox.Close()
}

func (w *Worker) handle(ctx context.Context, frame vision.RawFrame, sess *Session) {
	if sess == nil || sess.Ended() || w.Session() != sess {
		release(frame)
		w.stats.recordDiscard()
		return
	}

	res, err := w.pipeline.Process(ctx, frame, sess)
	if sess.Ended() || ctx.Err() != nil {
		w.stats.recordDiscard()
		return
	}

	if err != nil {
		kind := vision.ErrorKind(err)
		w.stats.recordFailure(kind)
		w.logger.Warning("⚠️  Dropped frame %d (%s): %v", frame.Seq, kind, err)
		if !w.clearOnError {
			return
		}
		res.Boxes = []vision.RenderedBox{}
		res.Error = kind
		w.publish(res)
		return
	}

	w.stats.recordSuccess(res)
	w.publish(res)
}

func (w *Worker) publish(res Result) {
	for _, s := range w.sinks {
		s.Publish(res)
	}
}

// Stats returns the current counters and session geometry.
func (w *Worker) Stats() StatsSnapshot {
	snap := w.stats.snapshot()
	snap.Mailbox = w.mailbox.Stats()
	if sess := w.Session(); sess != nil {
		g := sess.Geometry()
		snap.SessionID = sess.ID
		snap.Geometry = &g
	}
	return snap
}
