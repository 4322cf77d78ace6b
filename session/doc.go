// Package session houses concrete implementations of core.SessionStore. The
// interface itself (and the Session struct) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents the
// engine from depending on concrete storage.
//
// Additional backends (Postgres, Redis, etc.) belong in sibling packages or
// sub-packages without changing any calling code; only the wiring layer
// decides which implementation to instantiate. A SQLite-backed implementation
// lives in the top-level sqlite package since it shares a database handle
// with the thought store.
package session
