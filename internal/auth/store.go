package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/remote"
	"github.com/roach88/fluxstate/internal/store"
)

// Store is the Authentication store. It is the only holder of the Session;
// other stores observe it through Subscribe or IsAuthenticated.
type Store struct {
	*store.Store[Session]
	svc remote.Service

	mu     sync.Mutex
	logins int
	idle   chan struct{}
}

type loginResponse struct {
	Token string `json:"token"`
}

// NewStore creates the Authentication store and subscribes it to LOGIN and
// LOGOUT.
func NewStore(d *dispatcher.Dispatcher, svc remote.Service, opts ...store.Option[Session]) *Store {
	s := &Store{
		Store: store.New("authentication", d, Session{}, opts...),
		svc:   svc,
	}
	s.Handle(s.onLogin, action.Login)
	s.Handle(s.onLogout, action.Logout)
	return s
}

func (s *Store) onLogin(a action.Action) {
	creds, err := action.Decode[Credentials](a, action.FieldCredentials)
	if err != nil {
		s.Fail(err)
		return
	}

	s.beginLogin()
	done := s.Go(func(ctx context.Context) (Session, error) {
		return s.login(ctx, creds)
	})

	select {
	case <-done:
		s.endLogin()
	default:
		go func() {
			<-done
			s.endLogin()
		}()
	}
}

func (s *Store) login(ctx context.Context, creds Credentials) (Session, error) {
	resp, err := remote.Decode[loginResponse](s.svc.Post(ctx, "/auth", creds))
	if err != nil {
		return Session{}, fmt.Errorf("login %s: %w", creds.Username, err)
	}
	if resp.Token == "" {
		return Session{}, fmt.Errorf("login %s: %w", creds.Username, ErrNoToken)
	}
	return Session{Token: resp.Token, Username: creds.Username}, nil
}

// onLogout clears the session locally. There is no server call.
func (s *Store) onLogout(action.Action) {
	s.Set(Session{})
}

func (s *Store) beginLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if s.logins == 1 {
		s.idle = make(chan struct{})
	}
}

func (s *Store) endLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins--
	if s.logins == 0 {
		close(s.idle)
	}
}

// IsAuthenticated waits for in-flight logins to settle, then returns nil if
// a token is held and ErrNotAuthenticated otherwise. It is the check the
// other stores gate their writes on.
func (s *Store) IsAuthenticated(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.logins == 0 {
			s.mu.Unlock()
			break
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !s.State().Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Token returns the current session token, or "".
func (s *Store) Token() string {
	return s.State().Token
}
