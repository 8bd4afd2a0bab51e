package provider

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements agent.LlmProvider against Anthropic's
// Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider constructs a provider for the given API key. baseURL,
// if non-empty, overrides the default Anthropic API endpoint.
func NewAnthropicProvider(apiKey, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, rlmerr.New(rlmerr.KindAPIKeyMissing, "anthropic: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{client: anthropic.NewClient(opts...)}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Chat(ctx context.Context, request *agent.ChatRequest) (*agent.ChatResponse, error) {
	params, err := p.buildParams(request)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindProvider, "anthropic message creation failed", err)
	}

	out := &agent.ChatResponse{
		Usage: agent.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
		FinishReason: string(message.StopReason),
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}

	return out, nil
}

func (p *AnthropicProvider) ChatStream(ctx context.Context, request *agent.ChatRequest) (<-chan string, <-chan error) {
	textCh := make(chan string)
	errCh := make(chan error, 1)

	params, err := p.buildParams(request)
	if err != nil {
		errCh <- err
		close(textCh)
		close(errCh)
		return textCh, errCh
	}

	go func() {
		defer close(textCh)
		defer close(errCh)

		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			select {
			case textCh <- text.Text:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- rlmerr.Wrap(rlmerr.KindProvider, "anthropic stream failed", err)
		}
	}()

	return textCh, errCh
}

func (p *AnthropicProvider) buildParams(request *agent.ChatRequest) (anthropic.MessageNewParams, error) {
	messages, system := convertAnthropicMessages(request.Messages)

	maxTokens := int64(defaultAnthropicMaxTokens)
	if request.MaxTokens != nil {
		maxTokens = int64(*request.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if request.Temperature != nil {
		temp := float64(*request.Temperature)
		params.Temperature = anthropic.Float(temp)
	}
	if len(request.Tools) > 0 {
		tools, err := convertAnthropicTools(request.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}
	return params, nil
}

// convertAnthropicMessages splits off any system-role messages (Anthropic
// carries the system prompt separately from the conversation) and converts
// the remainder into Anthropic message params, translating tool-call and
// tool-result turns into the corresponding content blocks.
func convertAnthropicMessages(messages []agent.ChatMessage) ([]anthropic.MessageParam, string) {
	var result []anthropic.MessageParam
	var system string

	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case agent.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case agent.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, decodeToolArguments(tc.Arguments), tc.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))

		case agent.RoleTool:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	return result, system
}

func convertAnthropicTools(tools []agent.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]any)
		schema := anthropic.ToolInputSchemaParam{Properties: properties}
		result = append(result, anthropic.ToolUnionParamOfTool(schema, t.Name))
	}
	return result, nil
}

// decodeToolArguments parses a tool call's JSON-encoded arguments back into
// an untyped value so the SDK can re-encode it as the tool_use block's
// input. Falls back to the raw string if it isn't valid JSON, which should
// not happen for arguments we generated ourselves.
func decodeToolArguments(arguments string) any {
	var v any
	if err := json.Unmarshal([]byte(arguments), &v); err != nil {
		return arguments
	}
	return v
}
