// Package core provides the foundational domain types, interfaces and error
// taxonomy used by Clarity. It defines the core abstractions for:
//
//   - Sessions (stateful reasoning containers owned by one cognitive tool)
//   - Thoughts (immutable, ordered reasoning steps with revision and branch
//     annotations)
//   - Pluggable stores for session and thought persistence
//   - Requests/responses exchanged with the progressive session engine
//
// The package intentionally keeps implementation concerns (persistence,
// engine orchestration, content generation) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
