// Package thought houses concrete implementations of core.ThoughtStore,
// the append-mostly, session-scoped persistence layer for reasoning steps.
// The contract lives in the core package; a SQLite-backed implementation
// lives in the top-level sqlite package.
package thought
