package action

import (
	"encoding/json"
	"fmt"
)

// Payload carries the arguments of an action, keyed by field name.
type Payload map[string]any

// Payload field names shared by the emitters and the stores.
const (
	FieldCredentials = "credentials"
	FieldToken       = "token"
	FieldTask        = "task"
	FieldID          = "id"
)

// Action is an immutable message describing one user intent.
//
// Actions are values: the dispatcher stamps ID and Seq on its own copy and
// deep-copies the payload, so neither the publisher nor any handler can
// change what other subscribers observe.
type Action struct {
	// ID is a UUIDv7 assigned at publish time.
	ID string `json:"id"`

	// Seq is the dispatcher's logical clock value at publish time.
	// Strictly increasing in delivery order.
	Seq int64 `json:"seq"`

	Type    Type    `json:"type"`
	Payload Payload `json:"payload,omitempty"`
}

// New builds an unpublished action of type t.
func New(t Type, payload Payload) Action {
	return Action{Type: t, Payload: payload}
}

// Clone returns a copy of a whose payload is not shared with a. Nested
// maps and slices of the JSON shapes (map[string]any, Payload, []any) are
// copied too. Other reference values, such as pointers, stay shared.
func (a Action) Clone() Action {
	a.Payload = cloneMap(a.Payload)
	return a
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case Payload:
		return Payload(cloneMap(v))
	case map[string]any:
		return cloneMap(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Get returns the raw payload value for key.
func (a Action) Get(key string) (any, bool) {
	v, ok := a.Payload[key]
	return v, ok
}

// Text returns the payload value for key if it is a string, or "".
func (a Action) Text(key string) string {
	s, _ := a.Payload[key].(string)
	return s
}

// Decode extracts the payload value for key as a T.
//
// Values already of type T are returned as-is. Anything else (for example a
// map decoded from YAML or JSON) is converted through a JSON round trip, so
// actions published by the harness or the CLI reach the same handlers as
// actions built by the typed emitters.
func Decode[T any](a Action, key string) (T, error) {
	var zero T
	v, ok := a.Payload[key]
	if !ok {
		return zero, fmt.Errorf("%s: payload field %q missing", a.Type, key)
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("%s: payload field %q: %w", a.Type, key, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%s: payload field %q: %w", a.Type, key, err)
	}
	return out, nil
}
