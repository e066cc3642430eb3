package testutil

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/fluxstate/internal/broadcast"
)

// Signals records what one output channel subscriber receives.
type Signals[T any] struct {
	mu      sync.Mutex
	sigs    []broadcast.Signal[T]
	changed chan struct{}
	sub     *broadcast.Subscription[T]
}

// RecordSignals subscribes a recorder through subscribe, typically a
// store's Subscribe method value.
func RecordSignals[T any](subscribe func(func(T), func(error)) *broadcast.Subscription[T]) *Signals[T] {
	s := &Signals[T]{changed: make(chan struct{})}
	s.sub = subscribe(
		func(v T) { s.add(broadcast.Signal[T]{State: broadcast.Ready, Value: v}) },
		func(err error) { s.add(broadcast.Signal[T]{State: broadcast.Failed, Err: err}) },
	)
	return s
}

func (s *Signals[T]) add(sig broadcast.Signal[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)
	close(s.changed)
	s.changed = make(chan struct{})
}

// All returns every recorded signal in delivery order.
func (s *Signals[T]) All() []broadcast.Signal[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sigs)
}

// Len returns the number of recorded signals.
func (s *Signals[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sigs)
}

// Last returns the most recent signal, or an Empty signal.
func (s *Signals[T]) Last() broadcast.Signal[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sigs) == 0 {
		return broadcast.Signal[T]{}
	}
	return s.sigs[len(s.sigs)-1]
}

// WaitFor blocks until at least n signals were recorded or timeout
// elapses. Reports whether n was reached.
func (s *Signals[T]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		s.mu.Lock()
		if len(s.sigs) >= n {
			s.mu.Unlock()
			return true
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return false
		}
	}
}

// Dispose detaches the recorder.
func (s *Signals[T]) Dispose() {
	s.sub.Dispose()
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
