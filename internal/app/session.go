// Package app wires one application session: the dispatcher first, then
// the stores, then the action emitters. Presentation code receives a
// Session and never looks anything up globally.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/fluxstate/internal/account"
	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/auth"
	"github.com/roach88/fluxstate/internal/config"
	"github.com/roach88/fluxstate/internal/dispatcher"
	"github.com/roach88/fluxstate/internal/journal"
	"github.com/roach88/fluxstate/internal/remote"
	"github.com/roach88/fluxstate/internal/store"
	"github.com/roach88/fluxstate/internal/tasks"
	"github.com/roach88/fluxstate/internal/users"
)

// Options configures NewSession. Service is required.
type Options struct {
	Service remote.Service

	// Executor runs store mutations. Defaults to store.Async.
	Executor store.Executor

	Logger *slog.Logger

	// Journal, if set, records every dispatched action. The session does
	// not close it.
	Journal *journal.Journal

	// ID names the session in the journal. Defaults to a UUIDv7.
	ID string

	// IDs generates action IDs. Defaults to UUIDv7.
	IDs action.IDGenerator

	// Tap, if set, sees every dispatched action before the journal and
	// the stores do.
	Tap dispatcher.Handler
}

// Session owns the dispatcher, the stores and the emitters for one run of
// the application.
type Session struct {
	ID         string
	Dispatcher *dispatcher.Dispatcher

	Auth    *auth.Store
	Tasks   *tasks.Store
	Users   *users.Store
	Account *account.Store

	AuthActions    *auth.Actions
	TaskActions    *tasks.Actions
	UserActions    *users.Actions
	AccountActions *account.Actions

	logger   *slog.Logger
	recorder *journal.Recorder
	owned    *journal.Journal
	closed   bool
}

// NewSession builds a session in dependency order.
func NewSession(opts Options) (*Session, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("new session: no service")
	}
	if opts.Executor == nil {
		opts.Executor = store.Async
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
		opts.ID = id.String()
	}

	logger := opts.Logger.With("session", opts.ID)

	dopts := []dispatcher.Option{dispatcher.WithLogger(logger)}
	if opts.IDs != nil {
		dopts = append(dopts, dispatcher.WithIDGenerator(opts.IDs))
	}
	d := dispatcher.New(dopts...)

	s := &Session{
		ID:         opts.ID,
		Dispatcher: d,
		logger:     logger,
	}

	if opts.Tap != nil {
		d.Subscribe(opts.Tap)
	}

	// The recorder subscribes before the stores so the journal sees every
	// action.
	if opts.Journal != nil {
		s.recorder = journal.Record(d, opts.Journal, opts.ID, logger)
	}

	s.Auth = auth.NewStore(d, opts.Service, storeOptions[auth.Session](opts.Executor, logger)...)
	s.Tasks = tasks.NewStore(d, opts.Service, s.Auth, storeOptions[[]tasks.Task](opts.Executor, logger)...)
	s.Users = users.NewStore(d, opts.Service, storeOptions[users.Directory](opts.Executor, logger)...)
	s.Account = account.NewStore(d, opts.Service, storeOptions[account.Account](opts.Executor, logger)...)

	s.AuthActions = auth.NewActions(d)
	s.TaskActions = tasks.NewActions(d)
	s.UserActions = users.NewActions(d)
	s.AccountActions = account.NewActions(d)

	logger.Debug("session started", "journal", opts.Journal != nil)
	return s, nil
}

func storeOptions[S any](exec store.Executor, logger *slog.Logger) []store.Option[S] {
	return []store.Option[S]{
		store.WithExecutor[S](exec),
		store.WithLogger[S](logger),
	}
}

// Open builds a session from configuration: an HTTP client for the
// service and, when configured, a journal the session owns and closes.
func Open(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := remote.NewClient(cfg.API.BaseURL,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithRetries(cfg.API.Retries),
		remote.WithClientLogger(logger),
	)

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		var err error
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
	}

	s, err := NewSession(Options{
		Service: client,
		Logger:  logger,
		Journal: j,
	})
	if err != nil {
		return nil, closeAfter(err, j)
	}
	s.owned = j
	return s, nil
}

// closeAfter closes c after a failed construction and folds its error into
// err.
func closeAfter(err error, c io.Closer) error {
	if cerr := c.Close(); cerr != nil {
		return multierror.Append(err, fmt.Errorf("close journal: %w", cerr))
	}
	return err
}

// Wait blocks until every store's in-flight mutations have been applied.
func (s *Session) Wait() {
	s.Auth.Wait()
	s.Tasks.Wait()
	s.Users.Wait()
	s.Account.Wait()
}

// Close tears the session down in reverse construction order: stores,
// then the dispatcher, then the journal. Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error

	s.Account.Close()
	s.Users.Close()
	s.Tasks.Close()
	s.Auth.Close()

	if s.recorder != nil {
		s.recorder.Close()
		if n := s.recorder.Failures(); n > 0 {
			result = multierror.Append(result, fmt.Errorf("journal: %d appends failed", n))
		}
	}

	s.Dispatcher.Close()

	if s.owned != nil {
		if err := s.owned.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close journal: %w", err))
		}
	}

	s.logger.Debug("session closed")
	return result.ErrorOrNil()
}
