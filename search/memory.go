package search

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

func tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	return matches
}

// bm25Params are the standard Okapi BM25 tuning constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// InMemorySearcher is a reference Searcher backed entirely by an in-process
// BM25 index plus brute-force cosine similarity over embeddings computed by
// the Embedder for every chunk read from ChunkSource on every call. It holds
// no cached index: small corpora only, by design (see DESIGN.md's search
// package notes).
type InMemorySearcher struct{}

// NewInMemorySearcher constructs a searcher with no external dependencies.
func NewInMemorySearcher() *InMemorySearcher {
	return &InMemorySearcher{}
}

var _ Searcher = (*InMemorySearcher)(nil)

func (s *InMemorySearcher) Search(ctx context.Context, storage ChunkSource, embedder Embedder, query string, cfg Config) ([]core.SearchResult, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	switch mode {
	case ModeBM25:
		return s.SearchBM25(ctx, storage, query, cfg.TopK)
	case ModeSemantic:
		return s.SearchSemantic(ctx, storage, embedder, query, cfg.TopK, cfg.Threshold)
	default:
		return s.hybridSearch(ctx, storage, embedder, query, cfg)
	}
}

func (s *InMemorySearcher) allChunks(ctx context.Context, storage ChunkSource, bufferID *int64) ([]core.Chunk, error) {
	if bufferID != nil {
		return storage.GetChunks(ctx, *bufferID)
	}

	buffers, err := storage.ListBuffers(ctx)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "list buffers for search", err)
	}

	var all []core.Chunk
	for _, b := range buffers {
		chunks, err := storage.GetChunks(ctx, b.ID)
		if err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "load chunks for search", err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

func (s *InMemorySearcher) SearchBM25(ctx context.Context, storage ChunkSource, query string, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	chunks, err := s.allChunks(ctx, storage, nil)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	scores := bm25Scores(chunks, query)

	results := make([]core.SearchResult, 0, len(chunks))
	for i, c := range chunks {
		if scores[i] <= 0 {
			continue
		}
		score := scores[i]
		results = append(results, core.SearchResult{
			ChunkID:   c.ID,
			BufferID:  c.BufferID,
			Index:     c.Index,
			Score:     score,
			BM25Score: &score,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return truncate(results, topK), nil
}

func (s *InMemorySearcher) SearchSemantic(ctx context.Context, storage ChunkSource, embedder Embedder, query string, topK int, threshold float64) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if embedder == nil {
		return nil, rlmerr.New(rlmerr.KindOrchestration, "semantic search requires an embedder")
	}

	chunks, err := s.allChunks(ctx, storage, nil)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "embed query", err)
	}

	results := make([]core.SearchResult, 0, len(chunks))
	for _, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Content)
		if err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "embed chunk", err)
		}
		sim := cosineSimilarity(queryVec, vec)
		if float64(sim) < threshold {
			continue
		}
		score := float64(sim)
		results = append(results, core.SearchResult{
			ChunkID:       c.ID,
			BufferID:      c.BufferID,
			Index:         c.Index,
			Score:         score,
			SemanticScore: &sim,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return truncate(results, topK), nil
}

// hybridSearch combines BM25 and semantic rankings with reciprocal rank
// fusion: score(d) = sum over contributing rankers of 1/(rrfK + rank + 1),
// with rank counted from 0.
func (s *InMemorySearcher) hybridSearch(ctx context.Context, storage ChunkSource, embedder Embedder, query string, cfg Config) ([]core.SearchResult, error) {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	rrfK := cfg.RRFK
	if rrfK <= 0 {
		rrfK = 60
	}

	fanOutTopK := topK * 4
	if fanOutTopK < topK {
		fanOutTopK = topK
	}

	var bm25Results, semanticResults []core.SearchResult
	if cfg.UseBM25 {
		res, err := s.SearchBM25(ctx, storage, query, fanOutTopK)
		if err != nil {
			return nil, err
		}
		bm25Results = res
	}
	if cfg.UseSemantic && embedder != nil {
		res, err := s.SearchSemantic(ctx, storage, embedder, query, fanOutTopK, cfg.Threshold)
		if err != nil {
			return nil, err
		}
		semanticResults = res
	}

	fused := make(map[int64]*core.SearchResult)
	rrfScore := make(map[int64]float64)

	applyRanking := func(results []core.SearchResult) {
		for rank, r := range results {
			r := r
			existing, ok := fused[r.ChunkID]
			if !ok {
				fused[r.ChunkID] = &r
				existing = fused[r.ChunkID]
			} else {
				if r.SemanticScore != nil {
					existing.SemanticScore = r.SemanticScore
				}
				if r.BM25Score != nil {
					existing.BM25Score = r.BM25Score
				}
			}
			rrfScore[r.ChunkID] += 1.0 / float64(rrfK+rank+1)
		}
	}

	applyRanking(bm25Results)
	applyRanking(semanticResults)

	out := make([]core.SearchResult, 0, len(fused))
	for id, r := range fused {
		r.Score = rrfScore[id]
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, topK), nil
}

func truncate(results []core.SearchResult, n int) []core.SearchResult {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

// bm25Scores computes an Okapi BM25 score for every chunk against query.
func bm25Scores(chunks []core.Chunk, query string) []float64 {
	docs := make([][]string, len(chunks))
	docLens := make([]int, len(chunks))
	df := make(map[string]int)
	totalLen := 0

	for i, c := range chunks {
		tokens := tokenize(c.Content)
		docs[i] = tokens
		docLens[i] = len(tokens)
		totalLen += len(tokens)

		seen := make(map[string]bool)
		for _, t := range tokens {
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}

	n := len(chunks)
	avgDocLen := 0.0
	if n > 0 {
		avgDocLen = float64(totalLen) / float64(n)
	}

	queryTerms := tokenize(query)
	scores := make([]float64, n)

	for i, tokens := range docs {
		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}

		var score float64
		for _, term := range queryTerms {
			freq := tf[term]
			if freq == 0 {
				continue
			}
			docFreq := df[term]
			if docFreq == 0 {
				continue
			}
			idf := math.Log(1 + (float64(n)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
			denom := float64(freq) + bm25K1*(1-bm25B+bm25B*float64(docLens[i])/maxFloat(avgDocLen, 1))
			score += idf * (float64(freq) * (bm25K1 + 1)) / denom
		}
		scores[i] = score
	}

	return scores
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
