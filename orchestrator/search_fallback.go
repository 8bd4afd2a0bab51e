package orchestrator

import (
	"context"
	"sort"

	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/rlmerr"
	"github.com/haasonsaas/rlm-go/search"
	"github.com/haasonsaas/rlm-go/storage"
	"github.com/haasonsaas/rlm-go/tool"
)

// searchWithFallback tries mode first. If cliLocked is true (the caller
// pinned the mode explicitly), a zero-result search fails immediately with
// a diagnostic hint rather than silently trying other modes the caller
// didn't ask for. Otherwise, on zero results, it falls back through
// searchFallbackOrder skipping whichever mode was already tried, returning
// the first non-empty result set. If every mode returns zero results the
// call fails with a hint naming every mode tried.
func (o *Orchestrator) searchWithFallback(ctx context.Context, st storage.Storage, searcher search.Searcher, newEmbed tool.EmbedderFactory, query, bufferName string, mode search.Mode, threshold float64, topK int, cliLocked bool) ([]core.SearchResult, error) {
	var bufferID *int64
	if bufferName != "" {
		buf, err := st.GetBufferByName(ctx, bufferName)
		if err == nil && buf != nil {
			id := buf.ID
			bufferID = &id
		}
	}

	embedder, embedErr := newEmbed()

	cfg := search.Config{
		TopK:        topK,
		Threshold:   threshold,
		Mode:        mode,
		BufferID:    bufferID,
		RRFK:        60,
		UseSemantic: embedErr == nil,
		UseBM25:     true,
	}

	results, err := o.runSearch(ctx, st, searcher, embedder, query, cfg)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "search failed", err)
	}
	if o.metrics != nil {
		o.metrics.RecordSearchAttempt(string(mode), len(results) > 0)
	}
	if len(results) > 0 {
		return results, nil
	}

	if cliLocked {
		return nil, rlmerr.NoChunks(
			"search mode \"" + string(mode) + "\" was explicitly requested and returned zero results; try a different --search-mode or widen --threshold")
	}

	tried := map[search.Mode]bool{mode: true}
	var attempted []string
	attempted = append(attempted, string(mode))

	for _, fallback := range searchFallbackOrder {
		if tried[fallback] {
			continue
		}
		tried[fallback] = true

		cfg.Mode = fallback
		results, err := o.runSearch(ctx, st, searcher, embedder, query, cfg)
		if err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "search failed", err)
		}
		if o.metrics != nil {
			o.metrics.RecordSearchAttempt(string(fallback), len(results) > 0)
		}
		attempted = append(attempted, string(fallback))
		if len(results) > 0 {
			return results, nil
		}
	}

	return nil, rlmerr.NoChunks("no results from any search mode (tried: " + joinStrings(attempted) + "); the buffer may be empty or the query may not match any content")
}

func (o *Orchestrator) runSearch(ctx context.Context, st storage.Storage, searcher search.Searcher, embedder search.Embedder, query string, cfg search.Config) ([]core.SearchResult, error) {
	ctx, span := o.tracer.TraceSearch(ctx, string(cfg.Mode))
	defer span.End()
	results, err := searcher.Search(ctx, st, embedder, query, cfg)
	if err != nil {
		o.tracer.RecordError(span, err)
	}
	return results, err
}

// loadChunks loads content for the first maxChunks results in search order
// (0 means unlimited) and returns them sorted by (buffer_id, index) — the
// canonical temporal order. Failures to
// load an individual chunk are counted and skipped rather than failing the
// whole call.
func (o *Orchestrator) loadChunks(ctx context.Context, st storage.Storage, results []core.SearchResult, maxChunks int) ([]core.LoadedChunk, int) {
	capped := results
	if maxChunks > 0 && len(capped) > maxChunks {
		capped = capped[:maxChunks]
	}

	loaded := make([]core.LoadedChunk, 0, len(capped))
	failures := 0
	for _, r := range capped {
		chunk, err := st.GetChunk(ctx, r.ChunkID)
		if err != nil || chunk == nil {
			failures++
			continue
		}
		loaded = append(loaded, core.LoadedChunk{
			ChunkID:       r.ChunkID,
			BufferID:      r.BufferID,
			Index:         r.Index,
			Score:         r.Score,
			SemanticScore: r.SemanticScore,
			BM25Score:     r.BM25Score,
			Content:       chunk.Content,
		})
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		if loaded[i].BufferID != loaded[j].BufferID {
			return loaded[i].BufferID < loaded[j].BufferID
		}
		return loaded[i].Index < loaded[j].Index
	})

	return loaded, failures
}

func joinStrings(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
