package auth

import (
	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
)

// Actions publishes authentication intents.
type Actions struct {
	p dispatcher.Publisher
}

// NewActions creates an emitter publishing onto p.
func NewActions(p dispatcher.Publisher) *Actions {
	return &Actions{p: p}
}

// Login asks the Authentication store to log in with creds.
func (a *Actions) Login(creds Credentials) {
	a.p.Publish(action.New(action.Login, action.Payload{
		action.FieldCredentials: creds,
	}))
}

// Logout asks the Authentication store to drop the session.
func (a *Actions) Logout() {
	a.p.Publish(action.New(action.Logout, nil))
}
