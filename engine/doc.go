// Package engine implements the progressive session engine: the orchestrator
// that accepts one incremental thought request at a time, classifies it
// (continuation, revision, new branch), assigns its position in the session's
// history under a per-branch lock, persists it behind the store contracts and
// returns the context the caller needs for the next step. The pure branch
// resolver functions (sequence numbering, reference validation, lineage
// splicing) live alongside the engine in this package.
package engine
