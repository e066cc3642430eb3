package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/gate"
	"github.com/roach88/fluxstate/internal/store"
	"github.com/roach88/fluxstate/internal/testutil"
)

var (
	shed  = Task{ID: "1", Owner: "alice", Description: "Build shed", Done: true}
	milk  = Task{ID: "2", Owner: "bob", Description: "Get the milk"}
	alice = auth.Credentials{Username: "alice", Password: "pw"}
)

type fixture struct {
	d       *dispatcher.Dispatcher
	svc     *testutil.FakeService
	auth    *auth.Store
	tasks   *Store
	login   *auth.Actions
	actions *Actions
}

func newFixture(t *testing.T, exec store.Executor) *fixture {
	t.Helper()
	log := testutil.DiscardLogger()
	f := &fixture{
		d:   dispatcher.New(dispatcher.WithLogger(log)),
		svc: testutil.NewFakeService(),
	}
	f.auth = auth.NewStore(f.d, f.svc,
		store.WithExecutor[auth.Session](exec),
		store.WithLogger[auth.Session](log),
	)
	f.tasks = NewStore(f.d, f.svc, f.auth,
		store.WithExecutor[[]Task](exec),
		store.WithLogger[[]Task](log),
	)
	f.login = auth.NewActions(f.d)
	f.actions = NewActions(f.d)
	t.Cleanup(func() {
		f.tasks.Close()
		f.auth.Close()
	})
	return f
}

func (f *fixture) signIn(token string) {
	f.svc.Reply("POST", "/auth", map[string]string{"token": token})
	f.login.Login(alice)
}

func TestGetTasks_EmitsReady(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.svc.Reply("GET", "/tasks?token=t1", []map[string]any{
		{"owner": "alice", "description": "Build shed", "done": true},
	})
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.d.Publish(action.New(action.GetTasks, action.Payload{action.FieldToken: "t1"}))

	assert.Equal(t, []broadcast.Signal[[]Task]{{
		State: broadcast.Ready,
		Value: []Task{{Owner: "alice", Description: "Build shed", Done: true}},
	}}, rec.All())
}

func TestGetTasks_TransportErrorEmitsFailed(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.svc.Fail("GET", "/tasks", errors.New("network down"))
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.d.Publish(action.New(action.GetTasks, nil))

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, broadcast.Failed, rec.Last().State)
	assert.EqualError(t, rec.Last().Err, "get tasks: network down")
}

func TestGetTasks_UsesSessionTokenWhenAbsent(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.signIn("t7")
	f.svc.Reply("GET", "/tasks?token=t7", []Task{milk})

	f.actions.GetTasks("")

	assert.Equal(t, []Task{milk}, f.tasks.Tasks())
}

func TestGetTasks_NullBodyIsEmptyList(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.svc.Reply("GET", "/tasks?token=t1", nil)

	f.actions.GetTasks("t1")

	assert.Equal(t, broadcast.Ready, f.tasks.Signal().State)
	assert.Equal(t, []Task{}, f.tasks.Tasks())
}

func TestAddThenGet_LastWriteWins(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.signIn("t1")
	f.svc.
		Reply("POST", "/tasks", nil).
		Reply("GET", "/tasks?token=t1", []Task{shed}).
		Reply("GET", "/tasks?token=t1", []Task{shed, milk})
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.actions.AddTask(Task{Owner: "alice", Description: "Build shed"})
	f.actions.GetTasks("t1")

	got := rec.All()
	require.Len(t, got, 2)
	assert.Equal(t, []Task{shed}, got[0].Value, "refetch after add")
	assert.Equal(t, []Task{shed, milk}, got[1].Value, "final value is the second call, not a merge")
	assert.Equal(t, []Task{shed, milk}, f.tasks.Tasks())

	reqs := f.svc.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "POST", reqs[1].Method)
	assert.JSONEq(t, `{"owner":"alice","description":"Build shed","done":false}`, string(reqs[1].Body))
}

func TestAdd_RejectedWithoutSession(t *testing.T) {
	f := newFixture(t, store.Inline)
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.actions.AddTask(Task{Description: "Kill Bill"})

	require.Equal(t, 1, rec.Len())
	err := rec.Last().Err
	assert.True(t, gate.IsDenied(err))
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Zero(t, f.svc.Calls("POST", "/tasks"), "gated method never ran")
}

func TestAdd_DeferredUntilLoginSettles(t *testing.T) {
	f := newFixture(t, store.Async)
	f.svc.Reply("POST", "/auth", map[string]string{"token": "t1"})
	releaseLogin := f.svc.Hold("POST", "/auth")
	f.svc.
		Reply("POST", "/tasks", nil).
		Reply("GET", "/tasks?token=t1", []Task{shed})
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.login.Login(alice)
	f.actions.AddTask(Task{Owner: "alice", Description: "Build shed"})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, f.svc.Calls("POST", "/tasks"), "write waits for the login")

	releaseLogin()
	require.True(t, rec.WaitFor(1, time.Second))
	f.tasks.Wait()

	assert.Equal(t, broadcast.Signal[[]Task]{State: broadcast.Ready, Value: []Task{shed}}, rec.Last())
	assert.Equal(t, 1, f.svc.Calls("POST", "/tasks"))
}

func TestUpdate_PutsThenRefetches(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.signIn("t1")
	done := milk
	done.Done = true
	f.svc.
		Reply("PUT", "/tasks/2", done).
		Reply("GET", "/tasks?token=t1", []Task{shed, done})

	f.actions.UpdateTask(done)

	got, ok := f.tasks.TaskByID("2")
	require.True(t, ok)
	assert.True(t, got.Done)

	reqs := f.svc.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "/tasks/2", reqs[1].Path)
}

func TestUpdate_MissingID(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.signIn("t1")

	f.actions.UpdateTask(Task{Description: "no id"})

	assert.ErrorIs(t, f.tasks.Signal().Err, ErrMissingID)
	assert.Len(t, f.svc.Requests(), 1, "only the login reached the service")
}

func TestAdd_MalformedPayload(t *testing.T) {
	f := newFixture(t, store.Inline)

	f.d.Publish(action.New(action.AddTask, action.Payload{action.FieldTask: "not a task"}))

	assert.Equal(t, broadcast.Failed, f.tasks.Signal().State)
}

func TestFailureThenRecovery(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.svc.
		Fail("GET", "/tasks?token=t1", errors.New("network down")).
		Reply("GET", "/tasks?token=t1", []Task{shed})

	f.actions.GetTasks("t1")
	assert.Equal(t, broadcast.Failed, f.tasks.Signal().State)

	late := testutil.RecordSignals(f.tasks.Subscribe)
	assert.Equal(t, broadcast.Failed, late.Last().State, "new subscribers see the error, not the old value")

	f.actions.GetTasks("t1")
	assert.Equal(t, broadcast.Signal[[]Task]{State: broadcast.Ready, Value: []Task{shed}}, f.tasks.Signal())
}

func TestTaskByID_Missing(t *testing.T) {
	f := newFixture(t, store.Inline)
	_, ok := f.tasks.TaskByID("nope")
	assert.False(t, ok)
}

func TestTasks_ReturnsCopy(t *testing.T) {
	f := newFixture(t, store.Inline)
	f.svc.Reply("GET", "/tasks?token=t1", []Task{shed})
	f.actions.GetTasks("t1")

	got := f.tasks.Tasks()
	got[0].Description = "changed"

	assert.Equal(t, "Build shed", f.tasks.Tasks()[0].Description)
}

func TestClose_IgnoresLateCompletion(t *testing.T) {
	f := newFixture(t, store.Async)
	f.svc.Reply("GET", "/tasks?token=t1", []Task{shed})
	release := f.svc.Hold("GET", "/tasks?token=t1")
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.actions.GetTasks("t1")
	require.Eventually(t, func() bool {
		return f.svc.Calls("GET", "/tasks?token=t1") == 1
	}, time.Second, time.Millisecond)

	f.tasks.Close()
	release()
	f.tasks.Wait()

	assert.Zero(t, rec.Len())

	f.actions.GetTasks("t1")
	assert.Equal(t, 1, f.svc.Calls("GET", "/tasks?token=t1"), "closed store no longer reacts")
}

func TestClose_DetachesFromSession(t *testing.T) {
	f := newFixture(t, store.Inline)
	before := f.d.Subscribers()

	f.tasks.Close()

	assert.Equal(t, before-3, f.d.Subscribers())
	f.signIn("t2")
	assert.Equal(t, "t2", f.auth.Token())
	assert.Empty(t, f.tasks.sessionToken(), "closed store no longer tracks the session")
}

func TestGate_HandlesContextFromClose(t *testing.T) {
	f := newFixture(t, store.Async)
	f.svc.Reply("POST", "/auth", map[string]string{"token": "t1"})
	f.svc.Hold("POST", "/auth")
	rec := testutil.RecordSignals(f.tasks.Subscribe)

	f.login.Login(alice)
	f.actions.AddTask(Task{Description: "waits forever"})

	f.tasks.Close()
	f.tasks.Wait()

	assert.Zero(t, rec.Len())
	assert.Zero(t, f.svc.Calls("POST", "/tasks"))
}
