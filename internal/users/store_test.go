package users

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/store"
	"github.com/roach88/fluxstate/internal/testutil"
)

func setup(t *testing.T, exec store.Executor) (*Store, *Actions, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService()
	d := dispatcher.New(dispatcher.WithLogger(testutil.DiscardLogger()))
	s := NewStore(d, svc,
		store.WithExecutor[Directory](exec),
		store.WithLogger[Directory](testutil.DiscardLogger()),
	)
	t.Cleanup(s.Close)
	return s, NewActions(d), svc
}

func TestTwoSubscribersSeeSameReady(t *testing.T) {
	s, actions, svc := setup(t, store.Async)
	svc.Reply("GET", "/users?token=t1", map[string]User{
		"alice": {Username: "alice", DisplayName: "Alice A."},
	})

	first := testutil.RecordSignals(s.Subscribe)
	second := testutil.RecordSignals(s.Subscribe)
	assert.Equal(t, broadcast.Empty, s.Signal().State)
	assert.Zero(t, first.Len())
	assert.Zero(t, second.Len())

	actions.GetUsers("t1")
	require.True(t, first.WaitFor(1, time.Second))
	require.True(t, second.WaitFor(1, time.Second))

	want := []broadcast.Signal[Directory]{{
		State: broadcast.Ready,
		Value: Directory{"alice": {Username: "alice", DisplayName: "Alice A."}},
	}}
	assert.Equal(t, want, first.All())
	assert.Equal(t, want, second.All())
}

func TestGetUsers_ListResponse(t *testing.T) {
	s, actions, svc := setup(t, store.Inline)
	svc.Reply("GET", "/users", []User{
		{Username: "alice", DisplayName: "Alice"},
		{Username: "bob", DisplayName: "Bob"},
	})

	actions.GetUsers("")

	u, ok := s.User("bob")
	require.True(t, ok)
	assert.Equal(t, "Bob", u.DisplayName)
	assert.Len(t, s.Users(), 2)
}

func TestGetUsers_KeyFillsUsername(t *testing.T) {
	s, actions, svc := setup(t, store.Inline)
	svc.Reply("GET", "/users", map[string]any{"carol": map[string]string{"displayName": "Carol"}})

	actions.GetUsers("")

	assert.Equal(t, User{Username: "carol", DisplayName: "Carol"}, s.Users()["carol"])
}

func TestGetUsers_Failure(t *testing.T) {
	s, actions, svc := setup(t, store.Inline)
	svc.Fail("GET", "/users", errors.New("network down"))

	actions.GetUsers("")

	assert.EqualError(t, s.Signal().Err, "get users: network down")
	_, ok := s.User("alice")
	assert.False(t, ok)
}

func TestGetUsers_BadShape(t *testing.T) {
	s, actions, svc := setup(t, store.Inline)
	svc.Reply("GET", "/users", "not users")

	actions.GetUsers("")

	assert.ErrorContains(t, s.Signal().Err, "decode response")
}

func TestUsers_ReturnsCopy(t *testing.T) {
	s, actions, svc := setup(t, store.Inline)
	svc.Reply("GET", "/users", []User{{Username: "alice"}})
	actions.GetUsers("")

	dir := s.Users()
	delete(dir, "alice")

	_, ok := s.User("alice")
	assert.True(t, ok)
}

func TestConcurrentSubscribeDuringLoad(t *testing.T) {
	s, actions, svc := setup(t, store.Async)
	svc.Reply("GET", "/users", []User{{Username: "alice"}})

	actions.GetUsers("")

	var wg sync.WaitGroup
	recs := make([]*testutil.Signals[Directory], 8)
	for i := range recs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i] = testutil.RecordSignals(s.Subscribe)
		}(i)
	}
	wg.Wait()
	s.Wait()

	for _, r := range recs {
		require.True(t, r.WaitFor(1, time.Second))
		assert.Equal(t, 1, r.Len(), "replay or live delivery, never both")
	}
}
