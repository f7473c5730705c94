package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"mapagent/internal/tools"
)

// DefaultMaxSteps bounds the model round trips of one Invoke.
const DefaultMaxSteps = 8

// DefaultTemperature is the sampling temperature sent with every request.
const DefaultTemperature = 0.7

var errEmptyResponse = errors.New("model returned no choices")

// Config describes the model endpoint and the loop bounds.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxSteps     int
	Temperature  float64
	SystemPrompt string
}

// LLMLoop drives a tool-calling chat model until it answers without asking
// for a tool.
type LLMLoop struct {
	model        llms.Model
	defs         map[string]tools.Definition
	llmTools     []llms.Tool
	maxSteps     int
	temperature  float64
	systemPrompt string
	logger       *zap.Logger
}

// NewLLMLoop binds a chat model to the tool definitions.
func NewLLMLoop(model llms.Model, defs []tools.Definition, cfg Config, logger *zap.Logger) *LLMLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &LLMLoop{
		model:        model,
		defs:         make(map[string]tools.Definition, len(defs)),
		maxSteps:     cfg.MaxSteps,
		temperature:  cfg.Temperature,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
	}
	if l.maxSteps <= 0 {
		l.maxSteps = DefaultMaxSteps
	}
	if l.systemPrompt == "" {
		l.systemPrompt = DefaultSystemPrompt
	}
	for _, d := range defs {
		l.defs[d.Name] = d
		l.llmTools = append(l.llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return l
}

// NewOpenRouterFactory returns a Factory creating OpenAI-compatible loops
// against cfg.BaseURL. An empty model identifier selects cfg.Model.
func NewOpenRouterFactory(cfg Config, defs []tools.Definition, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(model string) (Loop, error) {
		if cfg.APIKey == "" {
			return nil, &Error{Op: "create", Err: ErrMissingAPIKey}
		}
		if model == "" {
			model = cfg.Model
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, &Error{Op: "create", Err: err}
		}
		return NewLLMLoop(llm, defs, cfg, logger.With(zap.String("model", model))), nil
	}
}

// Invoke runs the conversation for prompt.
func (l *LLMLoop) Invoke(ctx context.Context, prompt string) (Transcript, error) {
	var tr Transcript
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, l.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	for step := 0; step < l.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return tr, &Error{Op: "invoke", Err: err}
		}
		resp, err := l.model.GenerateContent(ctx, messages,
			llms.WithTools(l.llmTools),
			llms.WithTemperature(l.temperature),
		)
		if err != nil {
			return tr, &Error{Op: "generate", Err: err}
		}
		if resp == nil || len(resp.Choices) == 0 {
			return tr, &Error{Op: "generate", Err: errEmptyResponse}
		}
		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			tr.FinalText = choice.Content
			l.logger.Debug("loop finished", zap.Int("steps", step+1), zap.Int("tool_calls", len(tr.Invocations)))
			return tr, nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		messages = append(messages, assistant)

		for _, tc := range choice.ToolCalls {
			var name, args string
			if tc.FunctionCall != nil {
				name, args = tc.FunctionCall.Name, tc.FunctionCall.Arguments
			}
			out := l.execute(ctx, name, args)
			l.logger.Debug("tool called", zap.String("tool", name), zap.String("arguments", args), zap.Int("output_bytes", len(out)))
			tr.Invocations = append(tr.Invocations, Invocation{Tool: name, Arguments: args, Output: out})
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    out,
				}},
			})
		}
	}
	return tr, &Error{Op: "invoke", Err: ErrStepLimit}
}

// execute runs one tool. Unknown tools and undecodable arguments are reported
// to the model as text so it can correct itself.
func (l *LLMLoop) execute(ctx context.Context, name, rawArgs string) string {
	def, ok := l.defs[name]
	if !ok {
		return fmt.Sprintf("Unknown tool %q.", name)
	}
	args := map[string]any{}
	if len(bytes.TrimSpace([]byte(rawArgs))) > 0 {
		dec := json.NewDecoder(bytes.NewReader([]byte(rawArgs)))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return fmt.Sprintf("Invalid arguments for %s: %v", name, err)
		}
	}
	return def.Execute(ctx, args)
}
