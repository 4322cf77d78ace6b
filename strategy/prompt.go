package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/kivo360/clarity/core"
)

// PromptStrategy drives a Model with a tool-specific system prompt and the
// branch lineage rendered as numbered prior steps. All built-in cognitive
// tools are PromptStrategy instances differing only in their prompts.
type PromptStrategy struct {
	name   string
	system string
	model  Model
}

// NewPromptStrategy constructs a strategy for the given tool name and system prompt.
func NewPromptStrategy(name, system string, model Model) *PromptStrategy {
	return &PromptStrategy{name: name, system: system, model: model}
}

// Name implements Strategy.
func (p *PromptStrategy) Name() string { return p.name }

// Generate renders the lineage and guidance into a prompt and completes it.
func (p *PromptStrategy) Generate(ctx context.Context, history []*core.Thought, req *core.ThoughtRequest) (string, error) {
	if p.model == nil {
		return "", fmt.Errorf("strategy %s: no model configured", p.name)
	}
	content, err := p.model.Complete(ctx, p.system, RenderPrompt(history, req))
	if err != nil {
		return "", fmt.Errorf("strategy %s: %w", p.name, err)
	}
	return content, nil
}

// RenderPrompt turns the lineage and the caller's guidance into the user
// prompt handed to the model. History thoughts are numbered in causal order;
// revisions and branch roots are annotated so the model sees the shape of
// the reasoning, not just the text.
func RenderPrompt(history []*core.Thought, req *core.ThoughtRequest) string {
	var b strings.Builder
	if len(history) == 0 {
		b.WriteString("No prior steps.\n")
	} else {
		b.WriteString("Steps so far:\n")
		for i, t := range history {
			label := ""
			if t.IsRevision() {
				label = fmt.Sprintf(" (revises step id %d)", *t.RevisesThought)
			}
			if t.IsBranchRoot() {
				label = fmt.Sprintf(" (branched from step id %d)", *t.BranchFromThought)
			}
			fmt.Fprintf(&b, "%d.%s %s\n", i+1, label, t.Content)
		}
	}
	if req != nil && req.Content != "" {
		fmt.Fprintf(&b, "\nGuidance for the next step: %s\n", req.Content)
	}
	b.WriteString("\nProduce the next reasoning step.")
	return b.String()
}

// System prompts for the built-in cognitive tools.
const (
	sequentialThinkingPrompt = `You reason in discrete, numbered steps. Each step builds on the
previous ones. Revise earlier steps when they turn out wrong and branch when
two continuations are worth exploring. Produce exactly one step at a time.`

	mentalModelsPrompt = `You apply established mental models (first principles, inversion,
second-order effects, opportunity cost) to the problem. Each step names the
model applied and what it reveals. Produce exactly one step at a time.`

	decisionFrameworkPrompt = `You work through a structured decision: enumerate options, weigh
criteria, score tradeoffs and converge on a recommendation. Each step is one
stage of that framework. Produce exactly one step at a time.`

	debuggingPrompt = `You debug systematically: reproduce, observe, hypothesize, test,
narrow. Each step records one observation or one tested hypothesis. Produce
exactly one step at a time.`
)

// NewSequentialThinking returns the default step-by-step reasoning tool.
func NewSequentialThinking(model Model) *PromptStrategy {
	return NewPromptStrategy("sequential_thinking", sequentialThinkingPrompt, model)
}

// NewMentalModels returns the mental-models reasoning tool.
func NewMentalModels(model Model) *PromptStrategy {
	return NewPromptStrategy("mental_models", mentalModelsPrompt, model)
}

// NewDecisionFramework returns the structured-decision reasoning tool.
func NewDecisionFramework(model Model) *PromptStrategy {
	return NewPromptStrategy("decision_framework", decisionFrameworkPrompt, model)
}

// NewDebugging returns the systematic-debugging reasoning tool.
func NewDebugging(model Model) *PromptStrategy {
	return NewPromptStrategy("debugging", debuggingPrompt, model)
}

// BuiltIn returns all built-in cognitive tools bound to the given model.
func BuiltIn(model Model) []Strategy {
	return []Strategy{
		NewSequentialThinking(model),
		NewMentalModels(model),
		NewDecisionFramework(model),
		NewDebugging(model),
	}
}
