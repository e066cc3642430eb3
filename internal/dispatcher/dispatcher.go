// Package dispatcher implements the session-wide action bus.
//
// ARCHITECTURE:
//
// Every user intent is published onto one Dispatcher as an action.Action and
// fanned out to every matching subscription, in publish order.
//
//   - Publish stamps the action (ID, Seq), enqueues it, and drains the queue
//     on the calling goroutine. If another goroutine is already draining, that
//     drainer delivers the action instead. Delivery is therefore single-writer
//     and strictly FIFO across all publishers.
//   - An action published from inside a handler is delivered after the
//     current action has reached every subscriber. Nested publishes never
//     reorder the stream.
//   - No replay: a subscription only sees actions whose Seq is greater than
//     the clock value when it was registered.
//   - A panicking handler is recovered and logged; the remaining subscribers
//     still receive the action. The dispatcher itself never fails.
package dispatcher

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/fifo"
)

// Handler consumes a delivered action.
type Handler func(action.Action)

// Predicate selects the actions a subscription receives.
type Predicate func(action.Action) bool

// Publisher is the narrow interface the action emitters depend on.
type Publisher interface {
	Publish(a action.Action) bool
}

// Dispatcher is the broadcast bus actions are published onto.
//
// Thread-safety model:
//   - Publish, SubscribeFiltered, Dispose: safe from any goroutine
//   - handlers: never run concurrently with each other
type Dispatcher struct {
	mu     sync.Mutex
	subs   []*Subscription // in subscription order
	nextID uint64
	closed bool

	clock  *Clock
	ids    action.IDGenerator
	logger *slog.Logger
	serial *fifo.Serial[action.Action]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIDGenerator replaces the default UUIDv7 action ID generator.
func WithIDGenerator(g action.IDGenerator) Option {
	return func(d *Dispatcher) {
		d.ids = g
	}
}

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a Dispatcher. Construct exactly one per session, before any
// store.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		clock:  NewClock(),
		ids:    action.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.serial = fifo.NewSerial(d.deliver)
	return d
}

// Publish stamps a copy of a with an ID and Seq and delivers it to every
// matching subscription. Fire-and-forget: there is no acknowledgment and
// no backpressure.
//
// Returns false if the action was not accepted: the dispatcher is closed or
// a.Type is not a declared action type.
func (d *Dispatcher) Publish(a action.Action) bool {
	if !action.Known(a.Type) {
		d.logger.Warn("dropping action with undeclared type", "action", a.Type)
		return false
	}

	if !d.stamp(a) {
		d.logger.Debug("dispatcher closed, dropping action", "action", a.Type)
		return false
	}
	d.serial.Drain()
	return true
}

// stamp assigns ID and Seq to a copy of a and enqueues it under one lock,
// so Seq order equals queue order. A panicking ID generator releases the
// lock.
func (d *Dispatcher) stamp(a action.Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	a = a.Clone()
	a.ID = d.ids.Generate()
	a.Seq = d.clock.Next()
	return d.serial.Enqueue(a)
}

// SubscribeFiltered registers handler for every future action satisfying
// match. Handlers run in subscription order for each action.
func (d *Dispatcher) SubscribeFiltered(match Predicate, handler Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	s := &Subscription{
		id:     d.nextID,
		since:  d.clock.Current(),
		match:  match,
		handle: handler,
		owner:  d,
	}
	d.subs = append(d.subs, s)
	return s
}

// Subscribe registers handler for every future action.
func (d *Dispatcher) Subscribe(handler Handler) *Subscription {
	return d.SubscribeFiltered(Any, handler)
}

// Subscribers returns the number of live subscriptions.
func (d *Dispatcher) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Pending returns the number of published actions not yet delivered.
func (d *Dispatcher) Pending() int {
	return d.serial.Len()
}

// Close stops accepting new actions. Actions already queued are still
// delivered. Subscriptions stay registered until disposed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.serial.Close()
}

// deliver fans one action out. Runs only on the active drainer.
func (d *Dispatcher) deliver(a action.Action) {
	d.mu.Lock()
	subs := slices.Clone(d.subs)
	d.mu.Unlock()

	d.logger.Debug("delivering action",
		"id", a.ID,
		"action", a.Type,
		"seq", a.Seq,
		"subscribers", len(subs),
	)

	for _, s := range subs {
		if s.disposed.Load() || a.Seq <= s.since {
			continue
		}
		d.invoke(s, a.Clone())
	}
}

// invoke runs one subscription's predicate and handler, isolating panics.
func (d *Dispatcher) invoke(s *Subscription, a action.Action) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("action handler panicked",
				"subscription", s.id,
				"id", a.ID,
				"action", a.Type,
				"seq", a.Seq,
				"panic", r,
			)
		}
	}()

	if !s.match(a) {
		return
	}
	s.handle(a)
}

func (d *Dispatcher) remove(target *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subs = slices.DeleteFunc(d.subs, func(s *Subscription) bool {
		return s == target
	})
}

// Subscription is a registered handler. Dispose removes it.
type Subscription struct {
	id       uint64
	since    int64
	match    Predicate
	handle   Handler
	owner    *Dispatcher
	disposed atomic.Bool
}

// Dispose stops further delivery to this subscription, including actions
// already queued. Safe to call more than once.
func (s *Subscription) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.owner.remove(s)
}

// Disposed reports whether Dispose has been called.
func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}

// Any matches every action.
func Any(action.Action) bool { return true }

// OfType matches actions whose type is one of types.
func OfType(types ...action.Type) Predicate {
	set := make(map[action.Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(a action.Action) bool {
		_, ok := set[a.Type]
		return ok
	}
}
