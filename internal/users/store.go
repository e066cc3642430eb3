// Package users holds the Users store and the UserActions emitter.
package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/remote"
	"github.com/roach88/fluxstate/internal/store"
)

// User is a directory entry.
type User struct {
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// Directory maps username to User.
type Directory map[string]User

// Store is the Users store.
type Store struct {
	*store.Store[Directory]
	svc remote.Service
}

// NewStore creates the Users store and subscribes it to GET_USERS.
func NewStore(d *dispatcher.Dispatcher, svc remote.Service, opts ...store.Option[Directory]) *Store {
	opts = append([]store.Option[Directory]{store.WithCopy(maps.Clone[Directory])}, opts...)
	s := &Store{
		Store: store.New("users", d, Directory{}, opts...),
		svc:   svc,
	}
	s.Handle(s.onGet, action.GetUsers)
	return s
}

func (s *Store) onGet(a action.Action) {
	token := a.Text(action.FieldToken)
	s.Go(func(ctx context.Context) (Directory, error) {
		raw, err := s.svc.Get(ctx, remote.WithToken("/users", token))
		if err != nil {
			return nil, fmt.Errorf("get users: %w", err)
		}
		dir, err := decodeDirectory(raw)
		if err != nil {
			return nil, fmt.Errorf("get users: %w", err)
		}
		return dir, nil
	})
}

// decodeDirectory accepts either an object keyed by username or a list of
// users.
func decodeDirectory(raw json.RawMessage) (Directory, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []User
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		dir := make(Directory, len(list))
		for _, u := range list {
			dir[u.Username] = u
		}
		return dir, nil
	}

	var dir Directory
	if err := json.Unmarshal(trimmed, &dir); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if dir == nil {
		dir = Directory{}
	}
	for name, u := range dir {
		if u.Username == "" {
			u.Username = name
			dir[name] = u
		}
	}
	return dir, nil
}

// Users returns a copy of the directory.
func (s *Store) Users() Directory {
	return s.State()
}

// User looks up one user by username.
func (s *Store) User(username string) (User, bool) {
	u, ok := s.State()[username]
	return u, ok
}

// Actions publishes user intents.
type Actions struct {
	p dispatcher.Publisher
}

// NewActions creates an emitter publishing onto p.
func NewActions(p dispatcher.Publisher) *Actions {
	return &Actions{p: p}
}

// GetUsers asks for the user directory.
func (a *Actions) GetUsers(token string) {
	var payload action.Payload
	if token != "" {
		payload = action.Payload{action.FieldToken: token}
	}
	a.p.Publish(action.New(action.GetUsers, payload))
}
