// Package auth owns the session credential: the Authentication store, which
// logs in against the service and republishes the Session, and the
// Actions emitter for login and logout intents.
package auth

import "errors"

var (
	// ErrNotAuthenticated is returned by IsAuthenticated when no token is
	// held once pending logins have settled.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoToken is emitted when the service accepts a login but returns
	// no token.
	ErrNoToken = errors.New("login response carried no token")
)

// Credentials are what a user submits to log in.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Redacted hides the password when the action is journaled or traced.
func (c Credentials) Redacted() any {
	return map[string]any{"username": c.Username}
}

// Session is the credential held by the Authentication store. The zero
// Session means signed out.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Authenticated reports whether s carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
