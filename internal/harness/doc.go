// Package harness runs store scenarios: scripted service replies, a flow
// of published actions and assertions over the resulting trace and final
// store states.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tasks_ready
//	description: "GET_TASKS with a valid token populates the store"
//	replies:
//	  - method: GET
//	    path: /tasks?token=t1
//	    body: [{ _id: "1", owner: alice, description: Build shed, done: true }]
//	flow:
//	  - publish: tasks/get
//	    payload: { token: t1 }
//	assertions:
//	  - type: trace_contains
//	    action: tasks/get
//	    payload: { token: t1 }
//	  - type: final_state
//	    store: tasks
//	    state: ready
//	    value: [{ owner: alice }]
//
// A reply carries either a body or an error message. Replies for the same
// route are consumed in order and the last one repeats.
//
// # Assertion Types
//
//   - trace_contains: an action of the given type with a matching payload
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: a store's latest signal state, value and error
//   - service_calls: a route was requested exactly N times
//
// Payloads and values match with subset semantics: object keys not named
// in the assertion are ignored, lists must have the same length.
//
// # Deterministic Runs
//
// Every scenario runs in a fresh session with the inline executor and a
// counting action ID generator, so the same scenario always produces the
// same trace. The trace can be compared against a golden file with
// AssertGolden.
package harness
