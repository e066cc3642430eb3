package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUninitialized is the panic value when a zero Store is used. A Store
	// must come from New.
	ErrUninitialized = errors.New("store used before initialization")

	// ErrClosed is reported for mutations started after Close.
	ErrClosed = errors.New("store closed")
)

// PanicError is emitted on the output channel when a mutation panics.
type PanicError struct {
	Store string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: mutation panicked: %v", e.Store, e.Value)
}
