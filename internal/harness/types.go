package harness

// Trace event kinds.
const (
	KindAction = "action"
	KindSignal = "signal"
)

// TraceEvent is either a dispatched action or a store signal. Values are
// held in the generic JSON value space so they compare and serialize the
// same way regardless of the store's Go types.
type TraceEvent struct {
	Kind string `json:"kind"`

	// Action fields.
	ID      string `json:"id,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
	Action  string `json:"type,omitempty"`
	Payload any    `json:"payload,omitempty"`

	// Signal fields.
	Store string `json:"store,omitempty"`
	State string `json:"state,omitempty"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// StoreState is a store's final condition after the flow.
type StoreState struct {
	// State is the latest signal's state: empty, ready or failed.
	State string `json:"state"`

	// Value is the store's current state. A failure keeps the previous
	// value.
	Value any `json:"value"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step was delivered and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds actions and signals in the order they were observed.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// States maps store name to its final condition.
	States map[string]StoreState `json:"states,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		States: make(map[string]StoreState),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
