package search

import (
	"context"
	"testing"

	"github.com/haasonsaas/rlm-go/core"
)

type fakeChunkSource struct {
	buffers []core.Buffer
	chunks  map[int64][]core.Chunk
}

func (f *fakeChunkSource) GetChunks(ctx context.Context, bufferID int64) ([]core.Chunk, error) {
	return f.chunks[bufferID], nil
}

func (f *fakeChunkSource) ListBuffers(ctx context.Context) ([]core.Buffer, error) {
	return f.buffers, nil
}

func newFixture() *fakeChunkSource {
	chunks := []core.Chunk{
		{ID: 1, BufferID: 1, Index: 0, Content: "the quick brown fox jumps over the lazy dog"},
		{ID: 2, BufferID: 1, Index: 1, Content: "database migrations and schema versioning"},
		{ID: 3, BufferID: 1, Index: 2, Content: "the fox and the dog became unlikely friends"},
	}
	return &fakeChunkSource{
		buffers: []core.Buffer{{ID: 1, Name: "doc"}},
		chunks:  map[int64][]core.Chunk{1: chunks},
	}
}

// fakeEmbedder counts each letter a-z into its own vector component
// (digits are skipped) so cosine similarity reflects shared letters.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, tok := range tokenize(text) {
		for _, r := range tok {
			idx := int(r-'a') % 26
			if idx < 0 {
				continue
			}
			vec[idx]++
		}
	}
	return vec, nil
}

func TestSearchBM25RanksLexicalMatch(t *testing.T) {
	fixture := newFixture()
	results, err := NewInMemorySearcher().SearchBM25(context.Background(), fixture, "fox dog", 10)
	if err != nil {
		t.Fatalf("SearchBM25: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ChunkID != 1 && results[0].ChunkID != 3 {
		t.Errorf("expected top result to mention fox/dog, got chunk %d", results[0].ChunkID)
	}
	for _, r := range results {
		if r.BM25Score == nil {
			t.Error("expected BM25Score to be set")
		}
	}
}

func TestSearchBM25NoMatches(t *testing.T) {
	fixture := newFixture()
	results, err := NewInMemorySearcher().SearchBM25(context.Background(), fixture, "nonexistent gibberish term", 10)
	if err != nil {
		t.Fatalf("SearchBM25: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches, got %d", len(results))
	}
}

func TestSearchSemantic(t *testing.T) {
	fixture := newFixture()
	results, err := NewInMemorySearcher().SearchSemantic(context.Background(), fixture, fakeEmbedder{}, "fox dog", 10, 0)
	if err != nil {
		t.Fatalf("SearchSemantic: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.SemanticScore == nil {
			t.Error("expected SemanticScore to be set")
		}
	}
}

func TestSearchSemanticRequiresEmbedder(t *testing.T) {
	fixture := newFixture()
	_, err := NewInMemorySearcher().SearchSemantic(context.Background(), fixture, nil, "fox", 10, 0)
	if err == nil {
		t.Error("expected error when embedder is nil")
	}
}

func TestHybridSearchCombinesRankings(t *testing.T) {
	fixture := newFixture()
	cfg := DefaultConfig()
	results, err := NewInMemorySearcher().Search(context.Background(), fixture, fakeEmbedder{}, "fox dog", cfg)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Errorf("results not sorted descending by score: %+v", results)
		}
	}
}

func TestSearchModeDispatch(t *testing.T) {
	fixture := newFixture()
	s := NewInMemorySearcher()

	bm25Only, err := s.Search(context.Background(), fixture, nil, "fox dog", Config{Mode: ModeBM25, TopK: 10})
	if err != nil {
		t.Fatalf("Search(bm25): %v", err)
	}
	for _, r := range bm25Only {
		if r.SemanticScore != nil {
			t.Error("expected no semantic score in bm25-only mode")
		}
	}
}
