package tool

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/search"
	"github.com/haasonsaas/rlm-go/storage"
)

func setupStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTestBuffer(t *testing.T, st *storage.SQLiteStorage) int64 {
	t.Helper()
	ctx := context.Background()

	bufID, err := st.AddBuffer(ctx, &core.Buffer{Name: "test-buffer", Content: "hello world\nfoo bar\nbaz qux"})
	if err != nil {
		t.Fatalf("AddBuffer: %v", err)
	}

	chunks := []core.Chunk{
		{Index: 0, ByteRange: core.ByteRange{Start: 0, End: 11}, Content: "hello world"},
		{Index: 1, ByteRange: core.ByteRange{Start: 12, End: 19}, Content: "foo bar"},
		{Index: 2, ByteRange: core.ByteRange{Start: 20, End: 27}, Content: "baz qux"},
	}
	if err := st.AddChunks(ctx, bufID, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	return bufID
}

func newTestExecutor(st *storage.SQLiteStorage) *Executor {
	return NewExecutor(context.Background(), st, search.NewInMemorySearcher(), nil)
}

func TestGetChunksExisting(t *testing.T) {
	st := setupStorage(t)
	bufID := addTestBuffer(t, st)
	executor := newTestExecutor(st)

	chunks, err := st.GetChunks(context.Background(), bufID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	firstID := chunks[0].ID

	call := agent.ToolCall{ID: "call_1", Name: "get_chunks", Arguments: `{"chunk_ids":[` + strconv.FormatInt(firstID, 10) + `]}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello world") {
		t.Errorf("expected content to contain chunk text, got: %s", result.Content)
	}
}

func TestGetChunksMissing(t *testing.T) {
	st := setupStorage(t)
	addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "get_chunks", Arguments: `{"chunk_ids":[99999]}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "null") {
		t.Errorf("expected null entry for missing chunk, got: %s", result.Content)
	}
}

func TestGetChunksTooMany(t *testing.T) {
	st := setupStorage(t)
	executor := newTestExecutor(st)

	ids := make([]string, maxChunkIDs+1)
	for i := range ids {
		ids[i] = "1"
	}
	call := agent.ToolCall{ID: "call_1", Name: "get_chunks", Arguments: `{"chunk_ids":[` + strings.Join(ids, ",") + `]}`}
	result := executor.Execute(call)
	if !result.IsError {
		t.Fatal("expected error for too many chunk IDs")
	}
}

func TestGrepChunksPattern(t *testing.T) {
	st := setupStorage(t)
	bufID := addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "grep_chunks", Arguments: `{"pattern":"foo","buffer_id":` + strconv.FormatInt(bufID, 10) + `}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "foo bar") {
		t.Errorf("expected match line in output, got: %s", result.Content)
	}
}

func TestGrepChunksInvalidRegex(t *testing.T) {
	st := setupStorage(t)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "grep_chunks", Arguments: `{"pattern":"[invalid"}`}
	result := executor.Execute(call)
	if !result.IsError {
		t.Fatal("expected error for invalid regex")
	}
	if !strings.Contains(result.Content, "invalid regex") {
		t.Errorf("expected invalid regex message, got: %s", result.Content)
	}
}

func TestGetBufferByName(t *testing.T) {
	st := setupStorage(t)
	addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "get_buffer", Arguments: `{"name":"test-buffer"}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "test-buffer") {
		t.Errorf("expected buffer name in output, got: %s", result.Content)
	}
}

func TestGetBufferMissingArgs(t *testing.T) {
	st := setupStorage(t)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "get_buffer", Arguments: `{}`}
	result := executor.Execute(call)
	if !result.IsError {
		t.Fatal("expected error when neither name nor id is provided")
	}
}

func TestListBuffers(t *testing.T) {
	st := setupStorage(t)
	addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "list_buffers", Arguments: `{}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "test-buffer") {
		t.Errorf("expected buffer name in output, got: %s", result.Content)
	}
}

func TestStorageStats(t *testing.T) {
	st := setupStorage(t)
	addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "storage_stats", Arguments: `{}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, "buffer_count") {
		t.Errorf("expected buffer_count field, got: %s", result.Content)
	}
}

func TestUnknownTool(t *testing.T) {
	st := setupStorage(t)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "nonexistent_tool", Arguments: `{}`}
	result := executor.Execute(call)
	if !result.IsError {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("expected unknown tool message, got: %s", result.Content)
	}
}

func TestToolArgsTooLarge(t *testing.T) {
	st := setupStorage(t)
	executor := newTestExecutor(st)

	huge := `{"chunk_ids":[` + strings.Repeat("1,", maxToolArgsLen) + `1]}`
	call := agent.ToolCall{ID: "call_1", Name: "get_chunks", Arguments: huge}
	result := executor.Execute(call)
	if !result.IsError {
		t.Fatal("expected error for oversized arguments")
	}
	if !strings.Contains(result.Content, "too large") {
		t.Errorf("expected too-large message, got: %s", result.Content)
	}
}

func TestSearchTool(t *testing.T) {
	st := setupStorage(t)
	addTestBuffer(t, st)
	executor := newTestExecutor(st)

	call := agent.ToolCall{ID: "call_1", Name: "search", Arguments: `{"query":"foo","mode":"bm25"}`}
	result := executor.Execute(call)
	if result.IsError {
		t.Fatalf("expected success, got: %s", result.Content)
	}
}
