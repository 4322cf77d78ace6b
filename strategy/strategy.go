// Package strategy defines the content-generation contract consumed by
// callers of the progressive session engine. A Strategy produces the text of
// the next reasoning step for one cognitive tool, given the lineage the
// engine materialized so far. Model adapters for concrete providers live in
// the anthropic and openai sub-packages.
package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/kivo360/clarity/core"
)

// Strategy generates the content of the next thought for one cognitive tool.
// Implementations receive the branch lineage as "history so far" and the
// caller's request for guidance; they never talk to the stores directly.
type Strategy interface {
	// Name is the tool name sessions are created under.
	Name() string

	// Generate produces the next thought's content.
	Generate(ctx context.Context, history []*core.Thought, req *core.ThoughtRequest) (string, error)
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal completion interface prompt strategies drive. It is a
// deliberately narrow, non-streaming surface; the engine never blocks on a
// model, only strategies do.
type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Registry is a thread-safe name -> Strategy registry.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, replacing any existing one with the same name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a registered strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered tool names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Complete implements Model with canned responses.
func (m *MockModel) Complete(_ context.Context, _, prompt string) (string, error) {
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
