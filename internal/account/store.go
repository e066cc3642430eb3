// Package account holds the Account store and the AccountActions emitter.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/remote"
	"github.com/roach88/fluxstate/internal/store"
)

// ErrMissingID is emitted when GET_ACCOUNT carries no account id.
var ErrMissingID = errors.New("account id missing")

// Account is the signed-in user's profile.
type Account struct {
	ID          string `json:"_id,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Store is the Account store.
type Store struct {
	*store.Store[Account]
	svc remote.Service
}

// NewStore creates the Account store and subscribes it to GET_ACCOUNT.
func NewStore(d *dispatcher.Dispatcher, svc remote.Service, opts ...store.Option[Account]) *Store {
	s := &Store{
		Store: store.New("account", d, Account{}, opts...),
		svc:   svc,
	}
	s.Handle(s.onGet, action.GetAccount)
	return s
}

func (s *Store) onGet(a action.Action) {
	id := a.Text(action.FieldID)
	if id == "" {
		s.Fail(fmt.Errorf("get account: %w", ErrMissingID))
		return
	}
	token := a.Text(action.FieldToken)

	s.Go(func(ctx context.Context) (Account, error) {
		path := remote.WithToken("/users/"+url.PathEscape(id), token)
		acct, err := remote.Decode[Account](s.svc.Get(ctx, path))
		if err != nil {
			return Account{}, fmt.Errorf("get account %s: %w", id, err)
		}
		return acct, nil
	})
}

// Account returns the current account.
func (s *Store) Account() Account {
	return s.State()
}

// Actions publishes account intents.
type Actions struct {
	p dispatcher.Publisher
}

// NewActions creates an emitter publishing onto p.
func NewActions(p dispatcher.Publisher) *Actions {
	return &Actions{p: p}
}

// GetAccount asks for the account id, authorized by token.
func (a *Actions) GetAccount(id, token string) {
	a.p.Publish(action.New(action.GetAccount, action.Payload{
		action.FieldID:    id,
		action.FieldToken: token,
	}))
}
