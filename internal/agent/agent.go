// Package agent runs the model-driven reasoning loop that decides which place
// search tools to call for a prompt.
package agent

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

// DefaultSystemPrompt instructs the model how to use the tools and how to lay
// out its answer so places can be extracted from it.
//
//go:embed system_prompt.txt
var DefaultSystemPrompt string

// ErrMissingAPIKey is returned when no API key is configured for the model
// endpoint.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set")

// ErrStepLimit is returned when the model keeps calling tools past the step
// budget.
var ErrStepLimit = errors.New("step limit reached before a final answer")

// Invocation is one tool call made by the loop.
type Invocation struct {
	Tool      string
	Arguments string
	Output    string
}

// Transcript is what a loop produced: its final answer and every tool call in
// the order they were made.
type Transcript struct {
	FinalText   string
	Invocations []Invocation
}

// ToolOutputs returns the output text of every invocation.
func (t Transcript) ToolOutputs() []string {
	out := make([]string, 0, len(t.Invocations))
	for _, inv := range t.Invocations {
		out = append(out, inv.Output)
	}
	return out
}

// Loop answers a prompt, calling tools as it sees fit. On error the returned
// transcript holds whatever was recorded before the failure.
type Loop interface {
	Invoke(ctx context.Context, prompt string) (Transcript, error)
}

// Factory builds a loop for a model identifier.
type Factory func(model string) (Loop, error)

// Error is a failure of the reasoning loop itself, as opposed to a tool
// failure, which the model sees as text.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reasoning loop %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
