package view

import (
	"sync"

	"github.com/roach88/fluxstate/internal/account"
	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/broadcast"
)

// SessionSource is the session output channel.
type SessionSource interface {
	Subscribe(onValue func(auth.Session), onError func(error)) *broadcast.Subscription[auth.Session]
}

// AccountSource is the account output channel.
type AccountSource interface {
	Subscribe(onValue func(account.Account), onError func(error)) *broadcast.Subscription[account.Account]
}

// Authenticator publishes login and logout intents.
type Authenticator interface {
	Login(auth.Credentials)
	Logout()
}

// Main is the top-level view-model: session state, the account, and the
// login form actions.
type Main struct {
	actions Authenticator
	subs    subscriptions

	mu      sync.Mutex
	session auth.Session
	account account.Account
	errs    errorLog
}

var _ Subscriber = (*Main)(nil)

// NewMain subscribes to sessions and accounts.
func NewMain(sessions SessionSource, accounts AccountSource, actions Authenticator) *Main {
	m := &Main{actions: actions}
	m.subs.add(sessions.Subscribe(func(s auth.Session) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.session = s
		m.errs.clear(sourceSession)
	}, m.failFrom(sourceSession)))
	m.subs.add(accounts.Subscribe(func(a account.Account) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.account = a
		m.errs.clear(sourceAccount)
	}, m.failFrom(sourceAccount)))
	return m
}

func (m *Main) failFrom(source string) func(error) {
	return func(err error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.errs.set(source, err)
	}
}

// Login submits the login form.
func (m *Main) Login(creds auth.Credentials) {
	m.actions.Login(creds)
}

// Logout signs out.
func (m *Main) Logout() {
	m.actions.Logout()
}

// IsAuthenticated reports whether the last session seen carries a token.
func (m *Main) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Authenticated()
}

// Account returns the last account seen.
func (m *Main) Account() account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account
}

// DisplayName is the account's display name, falling back to the session
// username.
func (m *Main) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account.DisplayName != "" {
		return m.account.DisplayName
	}
	return m.session.Username
}

// ErrorMessage returns the latest error from a store that has not emitted
// a value since.
func (m *Main) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs.latest()
}

// Close disposes every subscription.
func (m *Main) Close() {
	m.subs.close()
}
