package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fluxstate/internal/action"
)

// Snapshot returns the canonical JSON form of a run's trace. Two runs of
// the same scenario produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = ev.canonical()
	}
	return action.MarshalCanonical(map[string]any{
		"scenario": name,
		"trace":    trace,
	})
}

func (ev TraceEvent) canonical() map[string]any {
	m := map[string]any{"kind": ev.Kind}
	switch ev.Kind {
	case KindAction:
		m["id"] = ev.ID
		m["seq"] = ev.Seq
		m["type"] = ev.Action
		if ev.Payload != nil {
			m["payload"] = ev.Payload
		}
	case KindSignal:
		m["store"] = ev.Store
		m["state"] = ev.State
		if ev.Error != "" {
			m["error"] = ev.Error
		} else {
			m["value"] = ev.Value
		}
	}
	return m
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against the golden file
// for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
