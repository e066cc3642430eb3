package account

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/store"
	"github.com/roach88/fluxstate/internal/testutil"
)

func setup(t *testing.T) (*Store, *Actions, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService()
	d := dispatcher.New(dispatcher.WithLogger(testutil.DiscardLogger()))
	s := NewStore(d, svc,
		store.WithExecutor[Account](store.Inline),
		store.WithLogger[Account](testutil.DiscardLogger()),
	)
	t.Cleanup(s.Close)
	return s, NewActions(d), svc
}

func TestGetAccount(t *testing.T) {
	s, actions, svc := setup(t)
	svc.Reply("GET", "/users/42?token=t1", map[string]string{
		"_id":         "42",
		"username":    "alice",
		"displayName": "Alice A.",
		"email":       "alice@example.com",
	})
	rec := testutil.RecordSignals(s.Subscribe)

	actions.GetAccount("42", "t1")

	want := Account{ID: "42", Username: "alice", DisplayName: "Alice A.", Email: "alice@example.com"}
	assert.Equal(t, []broadcast.Signal[Account]{{State: broadcast.Ready, Value: want}}, rec.All())
	assert.Equal(t, want, s.Account())
}

func TestGetAccount_EscapesID(t *testing.T) {
	s, actions, svc := setup(t)
	svc.Reply("GET", "/users/a%2Fb", map[string]string{"username": "ab"})

	actions.GetAccount("a/b", "")

	assert.Equal(t, "ab", s.Account().Username)
}

func TestGetAccount_MissingID(t *testing.T) {
	s, actions, svc := setup(t)

	actions.GetAccount("", "t1")

	assert.ErrorIs(t, s.Signal().Err, ErrMissingID)
	assert.Empty(t, svc.Requests())
}

func TestGetAccount_Failure(t *testing.T) {
	s, actions, svc := setup(t)
	svc.Fail("GET", "/users/42?token=t1", errors.New("forbidden"))

	actions.GetAccount("42", "t1")

	sig := s.Signal()
	require.Equal(t, broadcast.Failed, sig.State)
	assert.EqualError(t, sig.Err, "get account 42: forbidden")
	assert.Equal(t, Account{}, s.Account())
}
