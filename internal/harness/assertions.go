package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/fluxstate/internal/action"
)

// callCounter reports how often a service route was requested.
type callCounter interface {
	Calls(method, path string) int
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			switch ev.Kind {
			case KindAction:
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, ev.Action, ev.Payload)
			case KindSignal:
				if ev.Error != "" {
					fmt.Fprintf(&buf, "  [%d] %s failed: %s\n", i+1, ev.Store, ev.Error)
				} else {
					fmt.Fprintf(&buf, "  [%d] %s ready %v\n", i+1, ev.Store, ev.Value)
				}
			}
		}
	}

	return buf.String()
}

func evaluate(r *Result, calls callCounter, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertFinalState:
		return assertFinalState(r, a)
	case AssertServiceCalls:
		return assertServiceCalls(calls, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that the trace holds an action of the given
// type whose payload matches (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Kind != KindAction || ev.Action != a.Action {
			continue
		}
		if len(a.Payload) == 0 || matchValue(map[string]any(a.Payload), ev.Payload) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %v", a.Action, a.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions appear in the given order.
// Actions don't need to be consecutive and may repeat.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next == len(a.Actions) {
			break
		}
		if ev.Kind == KindAction && ev.Action == a.Actions[next] {
			next++
		}
	}

	if next < len(a.Actions) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", a.Actions),
			Actual:   fmt.Sprintf("%s (position %d) not found after %v", a.Actions[next], next+1, a.Actions[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that the action appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == KindAction && ev.Action == a.Action {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks a store's latest signal state, its current value
// (subset match) and its latest error.
func assertFinalState(r *Result, a Assertion) error {
	st, ok := r.States[a.Store]
	if !ok {
		return fmt.Errorf("no final state for store %q", a.Store)
	}

	if a.State != "" && st.State != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s state %s", a.Store, a.State),
			Actual:   fmt.Sprintf("%s state %s %s", a.Store, st.State, st.Error),
			Trace:    r.Trace,
		}
	}

	if a.Value != nil && !matchValue(a.Value, st.Value) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s value %v", a.Store, a.Value),
			Actual:   fmt.Sprintf("%s value %v", a.Store, st.Value),
			Trace:    r.Trace,
		}
	}

	if a.Error != "" && !strings.Contains(st.Error, a.Error) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s error containing %q", a.Store, a.Error),
			Actual:   fmt.Sprintf("%s error %q", a.Store, st.Error),
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertServiceCalls checks how many times a route was requested.
func assertServiceCalls(calls callCounter, a Assertion) error {
	if got := calls.Calls(a.Method, a.Path); got != a.Count {
		return &AssertionError{
			Type:     AssertServiceCalls,
			Expected: fmt.Sprintf("%d calls to %s %s", a.Count, a.Method, a.Path),
			Actual:   fmt.Sprintf("%d calls", got),
		}
	}
	return nil
}

// matchValue reports whether actual matches expected. Objects match as a
// subset, lists element-wise with equal length, scalars by canonical JSON
// so that YAML ints compare equal to decoded JSON numbers.
func matchValue(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !matchValue(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		eb, err := action.MarshalCanonical(expected)
		if err != nil {
			return false
		}
		ab, err := action.MarshalCanonical(actual)
		if err != nil {
			return false
		}
		return bytes.Equal(eb, ab)
	}
}
