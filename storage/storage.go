// Package storage defines the persistence interface consumed by the tool
// executor and orchestrator, plus a SQLite-backed reference implementation.
package storage

import (
	"context"

	"github.com/haasonsaas/rlm-go/core"
)

// Storage persists buffers and their chunks. Implementations shared by
// concurrent Query calls must be safe for concurrent reads; within one
// query, chunks are loaded sequentially before the fan-out stage, and
// subcall batches never touch Storage.
type Storage interface {
	// AddBuffer stores a new buffer and returns its assigned ID.
	AddBuffer(ctx context.Context, buffer *core.Buffer) (int64, error)

	// AddChunks stores chunks belonging to bufferID.
	AddChunks(ctx context.Context, bufferID int64, chunks []core.Chunk) error

	// GetChunk retrieves a single chunk by ID. Returns (nil, nil) if absent.
	GetChunk(ctx context.Context, id int64) (*core.Chunk, error)

	// GetChunks retrieves every chunk belonging to bufferID, ordered by index.
	GetChunks(ctx context.Context, bufferID int64) ([]core.Chunk, error)

	// GetBuffer retrieves a buffer by ID. Returns (nil, nil) if absent.
	GetBuffer(ctx context.Context, id int64) (*core.Buffer, error)

	// GetBufferByName retrieves a buffer by name. Returns (nil, nil) if absent.
	GetBufferByName(ctx context.Context, name string) (*core.Buffer, error)

	// ListBuffers returns every buffer's metadata (content included; callers
	// that want a no-content summary should drop Buffer.Content themselves,
	// matching the tool layer's get_buffer vs list_buffers distinction).
	ListBuffers(ctx context.Context) ([]core.Buffer, error)

	// Stats returns aggregate storage statistics.
	Stats(ctx context.Context) (core.StorageStats, error)
}
