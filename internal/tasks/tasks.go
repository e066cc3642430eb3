// Package tasks holds the Tasks store and the TaskActions emitter.
package tasks

import "errors"

// ErrMissingID is emitted when UPDATE_TASK carries a task without an ID.
var ErrMissingID = errors.New("task has no id")

// Task is one to-do item as the service represents it.
type Task struct {
	ID          string `json:"_id,omitempty" yaml:"_id,omitempty"`
	Owner       string `json:"owner" yaml:"owner"`
	Description string `json:"description" yaml:"description"`
	Done        bool   `json:"done" yaml:"done"`
}
