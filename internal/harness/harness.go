package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/fluxstate/internal/action"
	"github.com/roach88/fluxstate/internal/app"
	"github.com/roach88/fluxstate/internal/broadcast"
	"github.com/roach88/fluxstate/internal/store"
	"github.com/roach88/fluxstate/internal/testutil"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the session logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes scenario in a fresh session and evaluates its assertions.
//
// The returned error is reserved for failures to set the run up. Steps
// that were not delivered and failing assertions are reported in the
// Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc := testutil.NewFakeService()
	if err := script(svc, scenario.Replies); err != nil {
		return nil, err
	}

	tr := &tracer{}
	sess, err := app.NewSession(app.Options{
		Service:  svc,
		Executor: store.Inline,
		Logger:   cfg.logger,
		ID:       scenario.Name,
		IDs:      action.NewCountingGenerator("act"),
		Tap:      tr.action,
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	subs := []broadcast.Disposer{
		watch(tr, sess.Auth.Store),
		watch(tr, sess.Tasks.Store),
		watch(tr, sess.Users.Store),
		watch(tr, sess.Account.Store),
	}
	defer func() {
		for _, sub := range subs {
			sub.Dispose()
		}
	}()

	result := NewResult()
	for i, step := range scenario.Flow {
		a := action.New(action.Type(step.Publish), action.Payload(step.Payload))
		if !sess.Dispatcher.Publish(a) {
			result.AddError(fmt.Sprintf("flow[%d]: %s was not delivered", i, step.Publish))
		}
		sess.Wait()
	}

	trace, err := tr.result()
	if err != nil {
		return nil, err
	}
	result.Trace = trace

	for _, collect := range []func() (string, StoreState, error){
		finalState(sess.Auth.Store),
		finalState(sess.Tasks.Store),
		finalState(sess.Users.Store),
		finalState(sess.Account.Store),
	} {
		name, st, err := collect()
		if err != nil {
			return nil, err
		}
		result.States[name] = st
	}

	for i, a := range scenario.Assertions {
		if err := evaluate(result, svc, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

// script loads replies into svc. Reply panics on a body that cannot be
// encoded; that is reported as an error here.
func script(svc *testutil.FakeService, replies []Reply) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script replies: %v", r)
		}
	}()
	for _, r := range replies {
		if r.Error != "" {
			svc.Fail(r.Method, r.Path, errors.New(r.Error))
			continue
		}
		svc.Reply(r.Method, r.Path, r.Body)
	}
	return nil
}

// tracer collects actions and signals in observation order.
type tracer struct {
	mu     sync.Mutex
	events []TraceEvent
	err    error
}

func (t *tracer) action(a action.Action) {
	var payload any
	if len(a.Payload) > 0 {
		raw, err := action.MarshalPayload(a.Payload)
		if err == nil {
			payload, err = decodeValue(raw)
		}
		if err != nil {
			t.fail(fmt.Errorf("trace %s: %w", a.Type, err))
			return
		}
	}
	t.add(TraceEvent{
		Kind:    KindAction,
		ID:      a.ID,
		Seq:     a.Seq,
		Action:  string(a.Type),
		Payload: payload,
	})
}

func (t *tracer) signal(name string, v any, sigErr error) {
	ev := TraceEvent{Kind: KindSignal, Store: name}
	if sigErr != nil {
		ev.State = broadcast.Failed.String()
		ev.Error = sigErr.Error()
		t.add(ev)
		return
	}
	value, err := toValue(v)
	if err != nil {
		t.fail(fmt.Errorf("trace %s signal: %w", name, err))
		return
	}
	ev.State = broadcast.Ready.String()
	ev.Value = value
	t.add(ev)
}

func (t *tracer) add(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

func (t *tracer) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *tracer) result() ([]TraceEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return append([]TraceEvent{}, t.events...), nil
}

func watch[S any](t *tracer, st *store.Store[S]) broadcast.Disposer {
	name := st.Name()
	return st.Subscribe(
		func(v S) { t.signal(name, v, nil) },
		func(err error) { t.signal(name, nil, err) },
	)
}

func finalState[S any](st *store.Store[S]) func() (string, StoreState, error) {
	return func() (string, StoreState, error) {
		sig := st.Signal()
		value, err := toValue(st.State())
		if err != nil {
			return "", StoreState{}, fmt.Errorf("final state of %s: %w", st.Name(), err)
		}
		out := StoreState{State: sig.State.String(), Value: value}
		if sig.Err != nil {
			out.Error = sig.Err.Error()
		}
		return st.Name(), out, nil
	}
}

// toValue lowers v into the generic JSON value space.
func toValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeValue(raw)
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
