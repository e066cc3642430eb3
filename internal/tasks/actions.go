package tasks

import (
	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
)

// Actions publishes task intents.
type Actions struct {
	p dispatcher.Publisher
}

// NewActions creates an emitter publishing onto p.
func NewActions(p dispatcher.Publisher) *Actions {
	return &Actions{p: p}
}

// GetTasks asks for the task list. An empty token means "use the current
// session".
func (a *Actions) GetTasks(token string) {
	var payload action.Payload
	if token != "" {
		payload = action.Payload{action.FieldToken: token}
	}
	a.p.Publish(action.New(action.GetTasks, payload))
}

// AddTask asks for t to be created.
func (a *Actions) AddTask(t Task) {
	a.p.Publish(action.New(action.AddTask, action.Payload{action.FieldTask: t}))
}

// UpdateTask asks for t to be saved.
func (a *Actions) UpdateTask(t Task) {
	a.p.Publish(action.New(action.UpdateTask, action.Payload{action.FieldTask: t}))
}
