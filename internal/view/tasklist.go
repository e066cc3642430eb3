package view

import (
	"slices"
	"sync"

	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/tasks"
	"github.com/roach88/fluxstate/internal/users"
)

// TaskSource is the task list output channel.
type TaskSource interface {
	Subscribe(onValue func([]tasks.Task), onError func(error)) *broadcast.Subscription[[]tasks.Task]
}

// UserSource is the user directory output channel.
type UserSource interface {
	Subscribe(onValue func(users.Directory), onError func(error)) *broadcast.Subscription[users.Directory]
}

const (
	sourceSession = "session"
	sourceTasks   = "tasks"
	sourceUsers   = "users"
	sourceAccount = "account"
)

// TaskList combines the session, the task list and the user directory.
type TaskList struct {
	subs subscriptions

	mu      sync.Mutex
	session auth.Session
	tasks   []tasks.Task
	users   users.Directory
	errs    errorLog
}

var _ Subscriber = (*TaskList)(nil)

// NewTaskList subscribes to the three channels. Stores that already hold a
// value replay it immediately.
func NewTaskList(sessions SessionSource, taskSrc TaskSource, userSrc UserSource) *TaskList {
	v := &TaskList{}
	v.subs.add(sessions.Subscribe(func(s auth.Session) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.session = s
		v.errs.clear(sourceSession)
	}, v.failFrom(sourceSession)))
	v.subs.add(taskSrc.Subscribe(func(ts []tasks.Task) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.tasks = ts
		v.errs.clear(sourceTasks)
	}, v.failFrom(sourceTasks)))
	v.subs.add(userSrc.Subscribe(func(dir users.Directory) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.users = dir
		v.errs.clear(sourceUsers)
	}, v.failFrom(sourceUsers)))
	return v
}

func (v *TaskList) failFrom(source string) func(error) {
	return func(err error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.errs.set(source, err)
	}
}

// Tasks returns the last task list seen.
func (v *TaskList) Tasks() []tasks.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.tasks)
}

// User returns the signed-in username.
func (v *TaskList) User() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Username
}

// DisplayName looks the signed-in user up in the directory. Empty until
// both the session and the directory are known.
func (v *TaskList) DisplayName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.users[v.session.Username].DisplayName
}

// Owner resolves a task owner to a display name, falling back to the
// username.
func (v *TaskList) Owner(t tasks.Task) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if u, ok := v.users[t.Owner]; ok && u.DisplayName != "" {
		return u.DisplayName
	}
	return t.Owner
}

// ErrorMessage returns the latest error from a store that has not emitted
// a value since.
func (v *TaskList) ErrorMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errs.latest()
}

// Close disposes every subscription.
func (v *TaskList) Close() {
	v.subs.close()
}
