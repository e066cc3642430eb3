package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fluxstate/internal/action"
)

// Scenario is one store scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the session ID.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Replies scripts the fake service.
	Replies []Reply `yaml:"replies,omitempty"`

	// Flow lists the actions to publish, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace, the final store states and the
	// service calls.
	Assertions []Assertion `yaml:"assertions"`
}

// Reply is one scripted service response.
type Reply struct {
	Method string `yaml:"method"`

	// Path includes the query string, e.g. "/tasks?token=t1". For PUT it
	// includes the id: "/tasks/1".
	Path string `yaml:"path"`

	// Body is encoded as JSON and returned on success.
	Body any `yaml:"body,omitempty"`

	// Error, if set, is returned instead of a body.
	Error string `yaml:"error,omitempty"`
}

// Step publishes one action.
type Step struct {
	// Publish is the action type, e.g. "tasks/get".
	Publish string `yaml:"publish"`

	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates trace, final state or service calls.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is matched as a subset (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count,
	// service_calls).
	Count int `yaml:"count,omitempty"`

	// Store names the store (final_state).
	Store string `yaml:"store,omitempty"`

	// State is "empty", "ready" or "failed" (final_state).
	State string `yaml:"state,omitempty"`

	// Value is matched as a subset of the store's state (final_state).
	Value any `yaml:"value,omitempty"`

	// Error must be contained in the latest error message (final_state).
	Error string `yaml:"error,omitempty"`

	// Method and Path name a service route (service_calls).
	Method string `yaml:"method,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertServiceCalls  = "service_calls"
)

// Store names accepted by final_state.
var storeNames = []string{"authentication", "tasks", "users", "account"}

var signalStates = []string{"empty", "ready", "failed"}

var methods = []string{"GET", "POST", "PUT"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Replies {
		if !contains(methods, r.Method) {
			return fmt.Errorf("replies[%d]: method must be one of %v", i, methods)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("replies[%d]: path must start with /", i)
		}
		if r.Error != "" && r.Body != nil {
			return fmt.Errorf("replies[%d]: body and error are mutually exclusive", i)
		}
	}

	for i, step := range s.Flow {
		if step.Publish == "" {
			return fmt.Errorf("flow[%d]: publish is required", i)
		}
		if !action.Known(action.Type(step.Publish)) {
			return fmt.Errorf("flow[%d]: unknown action type %q", i, step.Publish)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains, AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertFinalState:
		if !contains(storeNames, a.Store) {
			return fmt.Errorf("assertions[%d]: store must be one of %v", index, storeNames)
		}
		if a.State != "" && !contains(signalStates, a.State) {
			return fmt.Errorf("assertions[%d]: state must be one of %v", index, signalStates)
		}
		if a.State == "" && a.Value == nil && a.Error == "" {
			return fmt.Errorf("assertions[%d]: final_state needs state, value or error", index)
		}
	case AssertServiceCalls:
		if !contains(methods, a.Method) || a.Path == "" {
			return fmt.Errorf("assertions[%d]: method and path are required for service_calls", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
