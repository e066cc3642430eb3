package store

// Executor runs mutation work.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

var (
	// Async runs each mutation on its own goroutine. The default.
	Async Executor = ExecutorFunc(func(fn func()) { go fn() })

	// Inline runs each mutation on the calling goroutine. Tests and the
	// scenario harness use it for deterministic ordering.
	Inline Executor = ExecutorFunc(func(fn func()) { fn() })
)
