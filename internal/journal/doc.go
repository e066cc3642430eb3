// Package journal provides a SQLite-backed, append-only trace of the actions
// a session dispatched.
//
// The journal is diagnostic only. State is never rebuilt from it; stores
// always start Empty. Each row records:
//   - id: the action ID stamped by the dispatcher
//   - session: the session that published it
//   - seq: the dispatcher clock value, monotonic within one session
//   - payload: canonical JSON with secrets redacted
//
// # Ordering
//
// Reads order by session insertion, then seq ASC, then id ASC COLLATE
// BINARY, so a trace prints identically however many times it is read.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
package journal
