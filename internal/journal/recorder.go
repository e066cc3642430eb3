package journal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
)

// Recorder appends every action a dispatcher delivers to a Journal.
//
// It subscribes like any store, so it only sees actions published after
// it was attached. Append failures are logged and counted, never
// propagated into the dispatcher.
type Recorder struct {
	journal  *Journal
	session  string
	logger   *slog.Logger
	sub      *dispatcher.Subscription
	failures atomic.Int64
}

// Record attaches a Recorder for session to d.
func Record(d *dispatcher.Dispatcher, j *Journal, session string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		journal: j,
		session: session,
		logger:  logger,
	}
	r.sub = d.Subscribe(r.record)
	return r
}

func (r *Recorder) record(a action.Action) {
	if err := r.journal.Append(context.Background(), r.session, a); err != nil {
		r.failures.Add(1)
		r.logger.Warn("journal append failed",
			"session", r.session,
			"id", a.ID,
			"action", a.Type,
			"error", err,
		)
	}
}

// Session returns the session the recorder writes under.
func (r *Recorder) Session() string {
	return r.session
}

// Failures returns how many appends have failed.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// Close detaches the recorder from the dispatcher. It does not close the
// journal.
func (r *Recorder) Close() {
	r.sub.Dispose()
}
