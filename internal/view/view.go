// Package view holds headless view-models: the presentation-side
// subscribers of the store output channels.
//
// A view-model subscribes when built and disposes every subscription on
// Close. It keeps the latest value from each store plus the latest error
// message, and derives display fields from them. A store's error is shown
// until that store next emits a value.
package view

import (
	"slices"
	"sync"

	"github.com/roach88/fluxstate/internal/broadcast"
)

// Subscriber is anything that holds output channel subscriptions and must
// release them when torn down.
type Subscriber interface {
	Close()
}

// subscriptions collects disposers for Close.
type subscriptions struct {
	mu   sync.Mutex
	subs []broadcast.Disposer
	done bool
}

func (s *subscriptions) add(d broadcast.Disposer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, d)
}

func (s *subscriptions) close() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, d := range subs {
		d.Dispose()
	}
}

// errorLog keeps the latest error per source. A value from a source clears
// that source's error. Callers hold their own lock.
type errorLog struct {
	order []string // sources with an error, oldest first
	msgs  map[string]string
}

func (l *errorLog) set(source string, err error) {
	l.clear(source)
	if l.msgs == nil {
		l.msgs = make(map[string]string)
	}
	l.msgs[source] = err.Error()
	l.order = append(l.order, source)
}

func (l *errorLog) clear(source string) {
	if _, ok := l.msgs[source]; !ok {
		return
	}
	delete(l.msgs, source)
	l.order = slices.DeleteFunc(l.order, func(s string) bool { return s == source })
}

// latest returns the most recent error still standing, or "".
func (l *errorLog) latest() string {
	if len(l.order) == 0 {
		return ""
	}
	return l.msgs[l.order[len(l.order)-1]]
}
