package storage

import (
	"context"
	"testing"

	"github.com/haasonsaas/rlm-go/core"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetBuffer(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.AddBuffer(ctx, &core.Buffer{
		Name:    "doc1",
		Content: "hello world",
		Metadata: core.BufferMetadata{
			ContentType: "text/plain",
			ChunkCount:  1,
		},
	})
	if err != nil {
		t.Fatalf("AddBuffer: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero buffer id")
	}

	got, err := s.GetBuffer(ctx, id)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if got == nil {
		t.Fatal("expected buffer, got nil")
	}
	if got.Name != "doc1" || got.Content != "hello world" {
		t.Errorf("unexpected buffer: %+v", got)
	}
	if got.Metadata.Size != len("hello world") {
		t.Errorf("expected Size to be derived from content length, got %d", got.Metadata.Size)
	}

	byName, err := s.GetBufferByName(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetBufferByName: %v", err)
	}
	if byName == nil || byName.ID != id {
		t.Errorf("GetBufferByName mismatch: %+v", byName)
	}
}

func TestGetBufferMissing(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.GetBuffer(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing buffer, got %+v", got)
	}
}

func TestAddAndGetChunks(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	bufID, err := s.AddBuffer(ctx, &core.Buffer{Name: "doc1", Content: "abcdef"})
	if err != nil {
		t.Fatalf("AddBuffer: %v", err)
	}

	chunks := []core.Chunk{
		{Index: 0, ByteRange: core.ByteRange{Start: 0, End: 3}, Content: "abc"},
		{Index: 1, ByteRange: core.ByteRange{Start: 3, End: 6}, Content: "def"},
	}
	if err := s.AddChunks(ctx, bufID, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	got, err := s.GetChunks(ctx, bufID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Content != "abc" || got[1].Content != "def" {
		t.Errorf("chunks out of order or wrong content: %+v", got)
	}

	one, err := s.GetChunk(ctx, got[0].ID)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if one == nil || one.Content != "abc" {
		t.Errorf("GetChunk mismatch: %+v", one)
	}
}

func TestListBuffersAndStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		bufID, err := s.AddBuffer(ctx, &core.Buffer{Name: name, Content: "xyz"})
		if err != nil {
			t.Fatalf("AddBuffer: %v", err)
		}
		if err := s.AddChunks(ctx, bufID, []core.Chunk{
			{Index: 0, ByteRange: core.ByteRange{Start: 0, End: 3}, Content: "xyz"},
		}); err != nil {
			t.Fatalf("AddChunks: %v", err)
		}
	}

	buffers, err := s.ListBuffers(ctx)
	if err != nil {
		t.Fatalf("ListBuffers: %v", err)
	}
	if len(buffers) != 2 {
		t.Fatalf("expected 2 buffers, got %d", len(buffers))
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.BufferCount != 2 {
		t.Errorf("expected BufferCount=2, got %d", stats.BufferCount)
	}
	if stats.ChunkCount != 2 {
		t.Errorf("expected ChunkCount=2, got %d", stats.ChunkCount)
	}
	if stats.TotalContentBytes != 6 {
		t.Errorf("expected TotalContentBytes=6, got %d", stats.TotalContentBytes)
	}
}
