package agent

import (
	"context"

	"github.com/haasonsaas/rlm-go/rlmerr"
)

// AgentResponse is the result of running an Agent to completion, after any
// tool-calling rounds have been resolved.
type AgentResponse struct {
	Content      string
	Usage        TokenUsage
	FinishReason string
}

// Agent is implemented by each of the three pipeline roles (primary,
// subcall, synthesizer). Each agent pins a model, a system prompt, and a
// sampling configuration; only the synthesizer overrides Tools to enable
// the tool-calling loop.
type Agent interface {
	// Name identifies the agent for logging.
	Name() string

	Model() string
	SystemPrompt() string

	// JSONMode requests JSON-formatted output from the provider, used by
	// the primary and subcall agents whose replies are parsed as JSON.
	JSONMode() bool

	Temperature() float32
	MaxTokens() int

	// Tools returns the tool definitions available to this agent. The
	// default (nil) means no tools; only the synthesizer overrides this.
	Tools() []ToolDefinition

	// MaxToolIterations bounds the agentic loop when Tools is non-empty.
	MaxToolIterations() int
}

// Execute runs agent against provider with a single user message and no
// tool-calling (the primary and subcall agents' path).
func Execute(ctx context.Context, a Agent, provider LlmProvider, userMsg string) (*AgentResponse, error) {
	temp := a.Temperature()
	maxTokens := a.MaxTokens()
	request := &ChatRequest{
		Model: a.Model(),
		Messages: []ChatMessage{
			SystemMessage(a.SystemPrompt()),
			UserMessage(userMsg),
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		JSONMode:    a.JSONMode(),
	}

	response, err := provider.Chat(ctx, request)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindProvider, "agent "+a.Name()+" chat failed", err)
	}

	return &AgentResponse{
		Content:      response.Content,
		Usage:        response.Usage,
		FinishReason: response.FinishReason,
	}, nil
}

// ExecuteWithTools runs agent against provider with tool-calling support. If
// agent.Tools() is empty it falls back to Execute. Otherwise it drives the
// bounded agentic loop against executor, appending tool results to the
// conversation until the model produces a final text answer or the agent's
// iteration budget is exhausted.
//
// This is a free function rather than a method on Agent because the tool
// executor is supplied per-call by the orchestrator (it is bound to a
// request-scoped storage/search view), not owned by the agent itself.
func ExecuteWithTools(ctx context.Context, a Agent, provider LlmProvider, userMsg string, executor ToolExecutor) (*AgentResponse, error) {
	toolDefs := a.Tools()
	if len(toolDefs) == 0 {
		return Execute(ctx, a, provider, userMsg)
	}

	temp := a.Temperature()
	maxTokens := a.MaxTokens()
	request := &ChatRequest{
		Model: a.Model(),
		Messages: []ChatMessage{
			SystemMessage(a.SystemPrompt()),
			UserMessage(userMsg),
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		JSONMode:    a.JSONMode(),
		Tools:       toolDefs,
	}

	response, err := AgenticLoop(ctx, provider, request, executor, a.MaxToolIterations())
	if err != nil {
		return nil, err
	}

	return &AgentResponse{
		Content:      response.Content,
		Usage:        response.Usage,
		FinishReason: response.FinishReason,
	}, nil
}
