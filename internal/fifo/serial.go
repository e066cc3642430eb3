package fifo

import "sync"

// Serial delivers queued items one at a time, in enqueue order, without a
// dedicated goroutine.
//
// The goroutine whose Drain call finds no drain in progress becomes the
// drainer and keeps delivering until the queue is empty; every other Drain
// call returns immediately and its items are delivered by the active
// drainer. This gives single-writer delivery semantics while letting a
// deliver callback enqueue more items (they are delivered after the current
// one returns, never nested inside it).
type Serial[T any] struct {
	queue   *Queue[T]
	deliver func(T)

	mu       sync.Mutex
	draining bool
}

// NewSerial creates a Serial that hands every item to deliver.
func NewSerial[T any](deliver func(T)) *Serial[T] {
	return &Serial[T]{
		queue:   NewQueue[T](),
		deliver: deliver,
	}
}

// Push enqueues v and drains. Returns false if the Serial is closed.
func (s *Serial[T]) Push(v T) bool {
	if !s.queue.Enqueue(v) {
		return false
	}
	s.Drain()
	return true
}

// Enqueue adds v without draining. Callers that must stamp and enqueue
// atomically under their own lock use Enqueue followed by Drain once the
// lock is released.
func (s *Serial[T]) Enqueue(v T) bool {
	return s.queue.Enqueue(v)
}

// Drain delivers queued items until the queue is empty, unless another
// goroutine is already draining.
func (s *Serial[T]) Drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		v, ok := s.queue.TryDequeue()
		if !ok {
			// An Enqueue racing with the failed TryDequeue either shows
			// up in Len here or its Drain sees draining == false.
			s.mu.Lock()
			if s.queue.Len() == 0 {
				s.draining = false
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			continue
		}
		s.deliverSafely(v)
	}
}

// deliverSafely resets the draining flag if deliver panics; the panic still
// propagates to the Drain caller.
func (s *Serial[T]) deliverSafely(v T) {
	completed := false
	defer func() {
		if !completed {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
		}
	}()
	s.deliver(v)
	completed = true
}

// Len returns the number of items waiting for delivery.
func (s *Serial[T]) Len() int {
	return s.queue.Len()
}

// Close stops accepting items. Items already queued are still delivered.
func (s *Serial[T]) Close() {
	s.queue.Close()
}
