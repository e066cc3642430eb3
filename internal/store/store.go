package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/fifo"
)

// Store owns one state value and republishes it on a latest-value channel.
//
// Thread-safety model:
//   - all methods: safe from any goroutine
//   - state replacement and emission: single writer, in completion order
type Store[S any] struct {
	name   string
	d      *dispatcher.Dispatcher
	out    *broadcast.Latest[S]
	exec   Executor
	logger *slog.Logger
	snap   func(S) S

	ctx    context.Context
	cancel context.CancelFunc
	apply  *fifo.Serial[result[S]]

	mu      sync.Mutex
	state   S
	subs    []*dispatcher.Subscription
	closed  bool
	pending int
	idle    chan struct{}
}

// result is a completed mutation waiting to be applied. done is nil for
// synchronous Set and Fail.
type result[S any] struct {
	value S
	err   error
	done  chan struct{}
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithExecutor replaces the default Async executor.
func WithExecutor[S any](e Executor) Option[S] {
	return func(s *Store[S]) {
		s.exec = e
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger[S any](l *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		s.logger = l
	}
}

// WithCopy sets the function State uses to hand out a snapshot that does
// not alias the store's own value (slices.Clone, maps.Clone).
func WithCopy[S any](fn func(S) S) Option[S] {
	return func(s *Store[S]) {
		s.snap = fn
	}
}

// New creates a store named name holding initial. The output channel starts
// Empty; initial is only what State reports until the first mutation.
func New[S any](name string, d *dispatcher.Dispatcher, initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		name:   name,
		d:      d,
		exec:   Async,
		logger: slog.Default(),
		snap:   func(v S) S { return v },
		state:  initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("store", name)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.out = broadcast.NewLatest[S](s.logger)
	s.apply = fifo.NewSerial(s.commit)
	return s
}

// Name returns the store's name.
func (s *Store[S]) Name() string {
	s.mustInit()
	return s.name
}

// Logger returns the store's logger.
func (s *Store[S]) Logger() *slog.Logger {
	s.mustInit()
	return s.logger
}

// Handle subscribes handler to each of types on the dispatcher, one
// subscription per type. After Close the handler is never invoked.
func (s *Store[S]) Handle(handler dispatcher.Handler, types ...action.Type) {
	s.mustInit()

	wrapped := func(a action.Action) {
		if s.Closed() {
			return
		}
		s.logger.Debug("handling action", "action", a.Type, "seq", a.Seq)
		handler(a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, t := range types {
		s.subs = append(s.subs, s.d.SubscribeFiltered(dispatcher.OfType(t), wrapped))
	}
}

// Go runs fn on the store's executor. On success its value replaces the
// state and is emitted; on failure the error is emitted and the state is
// kept. The returned channel closes once the result has been applied or
// dropped.
//
// fn receives a context that is cancelled by Close. A mutation started
// after Close never runs.
func (s *Store[S]) Go(fn func(ctx context.Context) (S, error)) <-chan struct{} {
	s.mustInit()
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("store closed, mutation not started", "error", ErrClosed)
		close(done)
		return done
	}
	s.pending++
	if s.pending == 1 {
		s.idle = make(chan struct{})
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.exec.Execute(func() {
		v, err := s.run(ctx, fn)
		s.apply.Push(result[S]{value: v, err: err, done: done})
	})
	return done
}

func (s *Store[S]) run(ctx context.Context, fn func(context.Context) (S, error)) (v S, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("mutation panicked", "panic", r)
			err = &PanicError{Store: s.name, Value: r}
		}
	}()
	return fn(ctx)
}

// Set replaces the state with v and emits it.
func (s *Store[S]) Set(v S) {
	s.mustInit()
	s.apply.Push(result[S]{value: v})
}

// Fail emits err without changing the state.
func (s *Store[S]) Fail(err error) {
	s.mustInit()
	s.apply.Push(result[S]{err: err})
}

// commit applies one result. Runs only on the active drainer.
func (s *Store[S]) commit(r result[S]) {
	defer s.settle(r)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("store closed, dropping result", "failed", r.err != nil)
		return
	}
	if r.err == nil {
		s.state = r.value
	}
	s.mu.Unlock()

	if r.err != nil {
		s.logger.Debug("emitting error", "error", r.err)
		s.out.Fail(r.err)
		return
	}
	s.out.Next(r.value)
}

// settle marks an asynchronous result as finished.
func (s *Store[S]) settle(r result[S]) {
	if r.done == nil {
		return
	}
	close(r.done)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// State returns a snapshot of the current state.
func (s *Store[S]) State() S {
	s.mustInit()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap(s.state)
}

// Signal returns the latest signal delivered on the output channel.
func (s *Store[S]) Signal() broadcast.Signal[S] {
	s.mustInit()
	return s.out.Latest()
}

// Subscribe attaches to the output channel. The latest signal is replayed
// first. Either callback may be nil.
func (s *Store[S]) Subscribe(onValue func(S), onError func(error)) *broadcast.Subscription[S] {
	s.mustInit()
	return s.out.Subscribe(onValue, onError)
}

// Wait blocks until every mutation started with Go has been applied or
// dropped.
func (s *Store[S]) Wait() {
	s.mustInit()
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			return
		}
		idle := s.idle
		s.mu.Unlock()
		<-idle
	}
}

// Closed reports whether Close has been called.
func (s *Store[S]) Closed() bool {
	s.mustInit()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close disposes the store's dispatcher subscriptions and cancels in-flight
// mutations. Results arriving afterwards are dropped. Safe to call more
// than once.
func (s *Store[S]) Close() {
	s.mustInit()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Dispose()
	}
	s.cancel()
	s.logger.Debug("store closed", "subscriptions", len(subs))
}

func (s *Store[S]) mustInit() {
	if s == nil || s.out == nil {
		panic(ErrUninitialized)
	}
}
