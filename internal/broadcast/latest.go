// Package broadcast provides the latest-value broadcast channel that every
// store republishes its state on.
//
// A Latest channel is multicast and push-based like the dispatcher, but it
// remembers the single most recent signal (a value or an error) and replays
// it to each new subscriber. Signals move through a small state machine:
//
//	Empty --Next--> Ready --Next--> Ready
//	Empty|Ready --Fail--> Failed --Next--> Ready
//
// Failed is not terminal: a later Next recovers the channel. While Failed,
// new subscribers receive the error, not the last good value.
package broadcast

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/fluxstate/internal/fifo"
)

// State is the replay state of a Latest channel.
type State int

const (
	// Empty means nothing has been emitted yet.
	Empty State = iota
	// Ready means the latest signal is a value.
	Ready
	// Failed means the latest signal is an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Signal is one emission: a value when State is Ready, an error when Failed.
type Signal[T any] struct {
	State State
	Value T
	Err   error
}

// item is a queued delivery. A nil target broadcasts sig and makes it the
// latest signal; a non-nil target replays the latest signal to one new
// subscriber.
type item[T any] struct {
	sig    Signal[T]
	target *Subscription[T]
}

// Latest is a multicast channel that replays its most recent signal.
//
// Emissions and replays share one FIFO delivery queue, so a subscriber
// always sees the replay first and then every later signal in order, even
// when emitters run on several goroutines.
type Latest[T any] struct {
	mu     sync.Mutex
	latest Signal[T]
	subs   []*Subscription[T]
	nextID uint64

	logger *slog.Logger
	serial *fifo.Serial[item[T]]
}

// NewLatest creates an Empty channel.
func NewLatest[T any](logger *slog.Logger) *Latest[T] {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Latest[T]{logger: logger}
	l.serial = fifo.NewSerial(l.deliver)
	return l
}

// Next emits v as the new latest value.
func (l *Latest[T]) Next(v T) {
	l.serial.Push(item[T]{sig: Signal[T]{State: Ready, Value: v}})
}

// Fail emits err as the new latest signal.
func (l *Latest[T]) Fail(err error) {
	l.serial.Push(item[T]{sig: Signal[T]{State: Failed, Err: err}})
}

// Subscribe attaches a subscriber. The latest signal, if any, is replayed to
// it before any later emission. Either callback may be nil.
func (l *Latest[T]) Subscribe(onValue func(T), onError func(error)) *Subscription[T] {
	l.mu.Lock()
	l.nextID++
	s := &Subscription[T]{
		id:      l.nextID,
		onValue: onValue,
		onError: onError,
		owner:   l,
	}
	l.mu.Unlock()

	l.serial.Push(item[T]{target: s})
	return s
}

// Latest returns the most recently delivered signal.
func (l *Latest[T]) Latest() Signal[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Subscribers returns the number of attached subscribers.
func (l *Latest[T]) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *Latest[T]) deliver(it item[T]) {
	if it.target != nil {
		l.replay(it.target)
		return
	}

	l.mu.Lock()
	l.latest = it.sig
	subs := slices.Clone(l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		l.notify(s, it.sig)
	}
}

func (l *Latest[T]) replay(s *Subscription[T]) {
	l.mu.Lock()
	if s.disposed.Load() {
		l.mu.Unlock()
		return
	}
	sig := l.latest
	l.subs = append(l.subs, s)
	l.mu.Unlock()

	if sig.State != Empty {
		l.notify(s, sig)
	}
}

// notify invokes one subscriber callback, isolating panics.
func (l *Latest[T]) notify(s *Subscription[T], sig Signal[T]) {
	if s.disposed.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("subscriber callback panicked",
				"subscription", s.id,
				"state", sig.State.String(),
				"panic", r,
			)
		}
	}()

	switch sig.State {
	case Ready:
		if s.onValue != nil {
			s.onValue(sig.Value)
		}
	case Failed:
		if s.onError != nil {
			s.onError(sig.Err)
		}
	}
}

func (l *Latest[T]) remove(target *Subscription[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subs = slices.DeleteFunc(l.subs, func(s *Subscription[T]) bool {
		return s == target
	})
}

// Disposer is anything a subscriber can detach from.
type Disposer interface {
	Dispose()
}

// Subscription is an attached subscriber. Dispose detaches it.
type Subscription[T any] struct {
	id       uint64
	onValue  func(T)
	onError  func(error)
	owner    *Latest[T]
	disposed atomic.Bool
}

// Dispose stops further delivery to the subscriber. Safe to call more than
// once.
func (s *Subscription[T]) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.owner.remove(s)
}

// Disposed reports whether Dispose has been called.
func (s *Subscription[T]) Disposed() bool {
	return s.disposed.Load()
}
