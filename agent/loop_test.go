package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/rlm-go/rlmerr"
)

// mockToolProvider returns toolRounds tool-call responses before finally
// answering with text, mirroring the fixture used against the original
// implementation's agentic loop tests.
type mockToolProvider struct {
	calls      int
	toolRounds int
}

func (m *mockToolProvider) Name() string { return "mock" }

func (m *mockToolProvider) Chat(ctx context.Context, request *ChatRequest) (*ChatResponse, error) {
	count := m.calls
	m.calls++

	if count < m.toolRounds {
		return &ChatResponse{
			ToolCalls: []ToolCall{{
				ID:        "call_" + string(rune('0'+count)),
				Name:      "storage_stats",
				Arguments: "{}",
			}},
			FinishReason: "tool_calls",
		}, nil
	}

	return &ChatResponse{
		Content:      "Final answer based on tool results.",
		Usage:        TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		FinishReason: "stop",
	}, nil
}

func (m *mockToolProvider) ChatStream(ctx context.Context, request *ChatRequest) (<-chan string, <-chan error) {
	errCh := make(chan error, 1)
	errCh <- errors.New("not implemented")
	close(errCh)
	ch := make(chan string)
	close(ch)
	return ch, errCh
}

type stubExecutor struct{}

func (stubExecutor) Execute(call ToolCall) ToolResult {
	return ToolResult{ToolCallID: call.ID, Content: `{"buffer_count":1}`}
}

func newTestRequest() *ChatRequest {
	return &ChatRequest{
		Model:    "test",
		Messages: []ChatMessage{SystemMessage("test"), UserMessage("query")},
	}
}

func TestAgenticLoopSingleToolRound(t *testing.T) {
	provider := &mockToolProvider{toolRounds: 1}
	request := newTestRequest()

	response, err := AgenticLoop(context.Background(), provider, request, stubExecutor{}, 10)
	if err != nil {
		t.Fatalf("AgenticLoop: %v", err)
	}
	if response.Content != "Final answer based on tool results." {
		t.Errorf("unexpected content: %q", response.Content)
	}
	if len(request.Messages) != 4 {
		t.Errorf("expected 4 messages (system+user+assistant+tool), got %d", len(request.Messages))
	}
}

func TestAgenticLoopMultipleRounds(t *testing.T) {
	provider := &mockToolProvider{toolRounds: 3}
	request := newTestRequest()

	response, err := AgenticLoop(context.Background(), provider, request, stubExecutor{}, 10)
	if err != nil {
		t.Fatalf("AgenticLoop: %v", err)
	}
	if response.Content != "Final answer based on tool results." {
		t.Errorf("unexpected content: %q", response.Content)
	}
	if len(request.Messages) != 8 {
		t.Errorf("expected 8 messages (2 initial + 3 rounds * 2), got %d", len(request.Messages))
	}
}

func TestAgenticLoopExceedsMax(t *testing.T) {
	provider := &mockToolProvider{toolRounds: 100}
	request := newTestRequest()

	_, err := AgenticLoop(context.Background(), provider, request, stubExecutor{}, 2)
	if err == nil {
		t.Fatal("expected error")
	}
	kind, ok := rlmerr.KindOf(err)
	if !ok || kind != rlmerr.KindToolLoopExceeded {
		t.Errorf("expected KindToolLoopExceeded, got %v (ok=%v)", kind, ok)
	}
	var rerr *rlmerr.Error
	if errors.As(err, &rerr) && rerr.MaxIterations != 2 {
		t.Errorf("expected MaxIterations=2, got %d", rerr.MaxIterations)
	}
}

func TestAgenticLoopNoTools(t *testing.T) {
	provider := &mockToolProvider{toolRounds: 0}
	request := newTestRequest()

	response, err := AgenticLoop(context.Background(), provider, request, stubExecutor{}, 10)
	if err != nil {
		t.Fatalf("AgenticLoop: %v", err)
	}
	if response.Content != "Final answer based on tool results." {
		t.Errorf("unexpected content: %q", response.Content)
	}
	if len(request.Messages) != 2 {
		t.Errorf("expected unchanged 2 messages, got %d", len(request.Messages))
	}
}
