// Package store provides the generic state container every feature store is
// built from.
//
// A Store[S] owns exactly one value of S and a broadcast.Latest[S] output
// channel. Feature stores compose it with their own mutation methods:
//
//	st := store.New("tasks", d, []Task(nil))
//	st.Handle(func(a action.Action) { st.Go(fetch(a)) }, action.GetTasks)
//
// # Lifecycle
//
// New initializes the state and the output channel before returning, so no
// handler can observe a half-built store. Handle subscribes to the
// dispatcher, one subscription per action type. Close disposes those
// subscriptions and cancels the context handed to in-flight mutations;
// results that arrive afterwards are dropped.
//
// # Mutations
//
// Go runs a mutation on the store's Executor. Its result is applied by a
// serial drainer: the state is replaced and the value emitted (or the error
// emitted) in completion order. Concurrent mutations race and the last one
// to complete wins; they are not linearized.
package store
