// Package action defines the immutable messages published on the dispatcher.
//
// An Action is a tagged message describing one user intent. Its Type is drawn
// from a closed, feature-scoped enumeration declared in types.go; the
// enumeration is checked for uniqueness when the package loads so that no two
// features can share a dispatch channel by accident.
//
// ID and Seq are stamped by the dispatcher at publish time. Callers build
// actions through the per-feature emitters and never set them directly.
package action
