package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/gate"
	"github.com/roach88/fluxstate/internal/remote"
	"github.com/roach88/fluxstate/internal/store"
)

// Credential is what the Tasks store needs from authentication: the gate
// check and the session channel it takes refetch tokens from.
type Credential interface {
	IsAuthenticated(ctx context.Context) error
	Subscribe(onValue func(auth.Session), onError func(error)) *broadcast.Subscription[auth.Session]
}

// Store is the Tasks store. Its state is the task list last returned by
// the service.
type Store struct {
	*store.Store[[]Task]
	svc remote.Service

	add    func(context.Context, Task) ([]Task, error)
	update func(context.Context, Task) ([]Task, error)

	sessionSub *broadcast.Subscription[auth.Session]
	mu         sync.Mutex
	token      string
}

// NewStore creates the Tasks store. Writes are gated on cred and every
// write is followed by a refetch with the session's current token.
func NewStore(d *dispatcher.Dispatcher, svc remote.Service, cred Credential, opts ...store.Option[[]Task]) *Store {
	opts = append([]store.Option[[]Task]{store.WithCopy(slices.Clone[[]Task])}, opts...)
	s := &Store{
		Store: store.New("tasks", d, []Task{}, opts...),
		svc:   svc,
	}
	s.add = gate.GuardValue(cred.IsAuthenticated, s.addTask)
	s.update = gate.GuardValue(cred.IsAuthenticated, s.updateTask)

	s.sessionSub = cred.Subscribe(func(sess auth.Session) {
		s.mu.Lock()
		s.token = sess.Token
		s.mu.Unlock()
	}, nil)

	s.Handle(s.onGet, action.GetTasks)
	s.Handle(s.onAdd, action.AddTask)
	s.Handle(s.onUpdate, action.UpdateTask)
	return s
}

func (s *Store) sessionToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) onGet(a action.Action) {
	token := a.Text(action.FieldToken)
	if token == "" {
		token = s.sessionToken()
	}
	s.Go(func(ctx context.Context) ([]Task, error) {
		return s.fetch(ctx, token)
	})
}

func (s *Store) onAdd(a action.Action) {
	t, err := action.Decode[Task](a, action.FieldTask)
	if err != nil {
		s.Fail(err)
		return
	}
	s.Go(func(ctx context.Context) ([]Task, error) {
		return s.add(ctx, t)
	})
}

func (s *Store) onUpdate(a action.Action) {
	t, err := action.Decode[Task](a, action.FieldTask)
	if err != nil {
		s.Fail(err)
		return
	}
	s.Go(func(ctx context.Context) ([]Task, error) {
		return s.update(ctx, t)
	})
}

func (s *Store) fetch(ctx context.Context, token string) ([]Task, error) {
	list, err := remote.Decode[[]Task](s.svc.Get(ctx, remote.WithToken("/tasks", token)))
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	if list == nil {
		list = []Task{}
	}
	return list, nil
}

func (s *Store) addTask(ctx context.Context, t Task) ([]Task, error) {
	if _, err := s.svc.Post(ctx, "/tasks", t); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	return s.fetch(ctx, s.sessionToken())
}

func (s *Store) updateTask(ctx context.Context, t Task) ([]Task, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("update task: %w", ErrMissingID)
	}
	if _, err := s.svc.Put(ctx, "/tasks", t.ID, t); err != nil {
		return nil, fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return s.fetch(ctx, s.sessionToken())
}

// Tasks returns a copy of the current task list.
func (s *Store) Tasks() []Task {
	return s.State()
}

// TaskByID returns the task with the given ID.
func (s *Store) TaskByID(id string) (Task, bool) {
	for _, t := range s.State() {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Close detaches from the session channel and closes the store.
func (s *Store) Close() {
	s.sessionSub.Dispose()
	s.Store.Close()
}
