// Package search defines the interface the core consumes for retrieval and
// ships an in-memory reference implementation sufficient for tests and small
// corpora. Production deployments are expected to supply their own Searcher
// backed by a real hybrid/semantic/BM25 engine.
package search

import (
	"context"

	"github.com/haasonsaas/rlm-go/core"
)

// Mode selects which scoring strategy a search call should use.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeSemantic Mode = "semantic"
	ModeBM25     Mode = "bm25"
)

// Config parameterizes a single search call.
type Config struct {
	TopK        int
	Threshold   float64
	Mode        Mode
	BufferID    *int64
	RRFK        int
	UseSemantic bool
	UseBM25     bool
}

// DefaultConfig mirrors the reference implementation's defaults: hybrid mode
// combining both signals, top 10, no threshold floor, RRF constant of 60.
func DefaultConfig() Config {
	return Config{
		TopK:        10,
		Threshold:   0.0,
		Mode:        ModeHybrid,
		RRFK:        60,
		UseSemantic: true,
		UseBM25:     true,
	}
}

// Embedder turns text into a dense vector for semantic search. Implementations
// are expected to be safe for concurrent use; within one query the
// orchestrator's search stage and the tool executor each obtain their own
// Embedder from the query's factory.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves relevance-ordered chunks for a query. Storage is passed
// per-call rather than bound at construction, matching the reference
// implementation's free-function `search(storage, embedder, query, config)`
// signature.
type Searcher interface {
	// Search runs the mode named in cfg (falling back to hybrid when cfg.Mode
	// is empty).
	Search(ctx context.Context, storage ChunkSource, embedder Embedder, query string, cfg Config) ([]core.SearchResult, error)

	// SearchBM25 runs lexical-only search; it takes no Embedder.
	SearchBM25(ctx context.Context, storage ChunkSource, query string, topK int) ([]core.SearchResult, error)

	// SearchSemantic runs embedding-only search.
	SearchSemantic(ctx context.Context, storage ChunkSource, embedder Embedder, query string, topK int, threshold float64) ([]core.SearchResult, error)
}

// ChunkSource is the narrow slice of Storage that search needs: enumerating
// chunk content to score against a query. Declared here (not imported from
// storage) so this package has no dependency on a concrete storage backend.
type ChunkSource interface {
	GetChunks(ctx context.Context, bufferID int64) ([]core.Chunk, error)
	ListBuffers(ctx context.Context) ([]core.Buffer, error)
}
