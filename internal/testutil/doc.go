// Package testutil provides deterministic collaborators for store, view and
// harness tests: a scripted request/response service and a recorder for
// output channel signals.
package testutil
