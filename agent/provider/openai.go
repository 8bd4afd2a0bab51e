// Package provider implements agent.LlmProvider against concrete LLM SDKs.
package provider

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

// OpenAIProvider implements agent.LlmProvider against the OpenAI chat
// completions API (and any OpenAI-compatible endpoint reachable via
// WithBaseURL).
type OpenAIProvider struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIProvider constructs a provider for the given API key. baseURL, if
// non-empty, points the client at an OpenAI-compatible endpoint instead of
// the default OpenAI API.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, rlmerr.New(rlmerr.KindAPIKeyMissing, "openai: API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Chat(ctx context.Context, request *agent.ChatRequest) (*agent.ChatResponse, error) {
	req := p.buildRequest(request, false)

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		resp, lastErr = p.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return nil, rlmerr.Wrap(rlmerr.KindProvider, "openai chat completion failed", lastErr)
		}
	}
	if lastErr != nil {
		return nil, rlmerr.Wrap(rlmerr.KindProvider, "openai chat completion failed after retries", lastErr)
	}

	return convertResponse(resp), nil
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, request *agent.ChatRequest) (<-chan string, <-chan error) {
	textCh := make(chan string)
	errCh := make(chan error, 1)

	req := p.buildRequest(request, true)

	go func() {
		defer close(textCh)
		defer close(errCh)

		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			errCh <- rlmerr.Wrap(rlmerr.KindProvider, "openai stream request failed", err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				errCh <- rlmerr.Wrap(rlmerr.KindProvider, "openai stream read failed", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				select {
				case textCh <- delta:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return textCh, errCh
}

func (p *OpenAIProvider) buildRequest(request *agent.ChatRequest, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    request.Model,
		Messages: convertMessages(request.Messages),
		Stream:   stream,
	}
	if request.MaxTokens != nil {
		req.MaxTokens = *request.MaxTokens
	}
	if request.Temperature != nil {
		req.Temperature = *request.Temperature
	}
	if request.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	if len(request.Tools) > 0 {
		req.Tools = convertTools(request.Tools)
	}
	return req
}

func convertMessages(messages []agent.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if len(msg.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []agent.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func convertResponse(resp openai.ChatCompletionResponse) *agent.ChatResponse {
	out := &agent.ChatResponse{
		Usage: agent.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.FinishReason = string(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
