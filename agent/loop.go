package agent

import (
	"context"
	"log/slog"

	"github.com/haasonsaas/rlm-go/rlmerr"
)

// AgenticLoop drives a single agent turn's model <-> tool round-trip: send
// the request, execute any tool calls in the response, append assistant and
// tool messages, and repeat until the model answers without requesting
// tools or maxIterations is reached.
//
// request is mutated in place (messages are appended as the loop
// progresses) so callers can inspect the final conversation after the loop
// returns, e.g. for logging or token accounting.
func AgenticLoop(ctx context.Context, provider LlmProvider, request *ChatRequest, executor ToolExecutor, maxIterations int) (*ChatResponse, error) {
	for iteration := 0; iteration < maxIterations; iteration++ {
		response, err := provider.Chat(ctx, request)
		if err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindProvider, "chat request failed", err)
		}

		if len(response.ToolCalls) == 0 {
			slog.Debug("agentic loop completed with final text response", "iteration", iteration)
			return response, nil
		}

		slog.Debug("executing tool calls", "iteration", iteration, "tool_count", len(response.ToolCalls))

		request.Messages = append(request.Messages, AssistantToolCallsMessage(response.ToolCalls))

		for _, call := range response.ToolCalls {
			result := executor.Execute(call)
			slog.Debug("tool execution complete", "tool", call.Name, "call_id", call.ID, "is_error", result.IsError)
			request.Messages = append(request.Messages, ToolResultMessage(result.ToolCallID, result.Content))
		}
	}

	return nil, rlmerr.ToolLoopExceeded(maxIterations)
}
