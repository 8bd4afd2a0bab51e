// Package orchestrator coordinates the full query pipeline: plan the
// analysis strategy, compute an adaptive scaling profile, search for
// relevant chunks (with fallback across modes), fan out subcall agents
// across batches, aggregate their findings, and synthesize a final
// response.
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/agent/prompt"
	"github.com/haasonsaas/rlm-go/config"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/metrics"
	"github.com/haasonsaas/rlm-go/rlmerr"
	"github.com/haasonsaas/rlm-go/scaling"
	"github.com/haasonsaas/rlm-go/search"
	"github.com/haasonsaas/rlm-go/storage"
	"github.com/haasonsaas/rlm-go/telemetry"
	"github.com/haasonsaas/rlm-go/tool"
)

// maxQueryLen bounds the user query length accepted by Query.
const maxQueryLen = 10_000

// searchFallbackOrder is the mode sequence tried when the initially chosen
// mode returns zero results: hybrid first (it is usually the strongest
// signal), then the two single-signal modes.
var searchFallbackOrder = []search.Mode{search.ModeHybrid, search.ModeBM25, search.ModeSemantic}

// CliOverrides lets a caller (typically a CLI flag set) pin any pipeline
// parameter ahead of the primary agent's plan and the adaptive scaling
// profile. Resolution order throughout Query is CLI override -> plan ->
// scaling profile -> config default.
//
// NumAgents and BatchSize are mutually exclusive: when NumAgents is set,
// batch size is computed as ceil(chunks/agents) and BatchSize is ignored.
// Threshold filters at the search layer (similarity score); FindingThreshold
// filters after subcall agents return (relevance assessment) — both trim
// work for the synthesizer but at different pipeline stages.
type CliOverrides struct {
	SearchMode       *search.Mode
	BatchSize        *int
	Threshold        *float64
	MaxChunks        *int
	TopK             *int
	NumAgents        *int
	FindingThreshold *core.Relevance
	SkipPlan         bool
}

// Option configures optional Orchestrator dependencies.
type Option func(*Orchestrator)

// WithMetrics attaches a Metrics instance the orchestrator records against.
// Without this option, metrics recording is skipped.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer attaches a Tracer the orchestrator opens stage spans against.
// Without this option, a no-op tracer is used.
func WithTracer(t *telemetry.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator runs the query pipeline against a single LLM provider and
// configuration. It holds no per-query state; Query is safe to call
// concurrently for independent queries.
type Orchestrator struct {
	provider agent.LlmProvider
	config   *config.AgentConfig
	prompts  prompt.PromptSet
	metrics  *metrics.Metrics
	tracer   *telemetry.Tracer
}

// New builds an Orchestrator. Prompts are resolved from cfg.PromptDir,
// falling back to the compiled-in defaults for any file that is missing.
func New(provider agent.LlmProvider, cfg *config.AgentConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		config:   cfg,
		prompts:  prompt.Load(cfg.PromptDir),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		noop, _ := telemetry.NewTracer(telemetry.Config{})
		o.tracer = noop
	}
	return o
}

// Query executes the full pipeline: plan -> search -> load -> fan out ->
// aggregate -> synthesize. storage and searcher are request-scoped; callers
// running multiple concurrent queries should share the same Storage/Searcher
// only if their implementations are documented safe for concurrent reads
// (both rlm-go's SQLiteStorage and InMemorySearcher are).
func (o *Orchestrator) Query(ctx context.Context, st storage.Storage, searcher search.Searcher, newEmbed tool.EmbedderFactory, query, bufferName string, overrides *CliOverrides) (*core.QueryResult, error) {
	if overrides == nil {
		overrides = &CliOverrides{}
	}

	if err := validateQuery(query); err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	ctx, querySpan := o.tracer.TraceQuery(ctx, queryID)
	defer querySpan.End()

	start := time.Now()
	slog.Info("query started", "query_id", queryID, "buffer", bufferName)

	plan, err := o.resolvePlan(ctx, st, query, bufferName, overrides)
	if err != nil {
		o.tracer.RecordError(querySpan, err)
		return nil, err
	}

	dataset := o.buildDatasetProfile(ctx, st, bufferName)
	scale := scaling.Compute(dataset)

	searchMode := resolveSearchMode(overrides, plan)
	threshold := resolveThreshold(overrides, plan)
	maxChunks := resolveMaxChunks(overrides, plan, scale)
	topK := resolveTopK(overrides, plan, scale, o.config.SearchTopK)

	cliLocked := overrides.SearchMode != nil
	results, err := o.searchWithFallback(ctx, st, searcher, newEmbed, query, bufferName, searchMode, threshold, topK, cliLocked)
	if err != nil {
		o.tracer.RecordError(querySpan, err)
		return nil, err
	}
	chunksAvailable := len(results)

	loaded, loadFailures := o.loadChunks(ctx, st, results, maxChunks)
	if len(loaded) == 0 {
		err := rlmerr.NoChunks(
			"search found " + itoa(chunksAvailable) + " results but all chunks failed to load from storage (" +
				itoa(loadFailures) + " failures). the database may be corrupted.")
		o.tracer.RecordError(querySpan, err)
		return nil, err
	}

	batchSize := resolveBatchSize(overrides, plan, scale, o.config.BatchSize, len(loaded))
	maxConcurrency := scale.MaxConcurrency
	concurrency := o.config.MaxConcurrency
	if maxConcurrency != nil {
		concurrency = *maxConcurrency
	}

	subcallResults := o.fanOut(ctx, query, loaded, batchSize, concurrency)

	chunkMeta := make(map[int64]struct {
		index    int
		bufferID int64
	}, len(loaded))
	for _, c := range loaded {
		chunkMeta[c.ChunkID] = struct {
			index    int
			bufferID int64
		}{c.Index, c.BufferID}
	}

	var allFindings []core.Finding
	totalTokens := 0
	batchesProcessed := 0
	batchesFailed := 0
	var batchErrors []string

	for idx, result := range subcallResults {
		if result.err != nil {
			batchesFailed++
			batchErrors = append(batchErrors, "batch "+itoa(idx)+": "+result.err.Error())
			if o.metrics != nil {
				o.metrics.RecordBatch("error", result.elapsed.Seconds())
			}
			continue
		}
		batchesProcessed++
		totalTokens += result.usage.TotalTokens
		allFindings = append(allFindings, result.findings...)
		if o.metrics != nil {
			o.metrics.RecordBatch("success", result.elapsed.Seconds())
		}
	}

	for i := range allFindings {
		if meta, ok := chunkMeta[allFindings[i].ChunkID]; ok {
			index := meta.index
			bufferID := meta.bufferID
			allFindings[i].ChunkIndex = &index
			allFindings[i].ChunkBufferID = &bufferID
		}
	}

	findingThreshold := core.RelevanceLow
	if overrides.FindingThreshold != nil {
		findingThreshold = *overrides.FindingThreshold
	}
	preFilterCount := len(allFindings)
	allFindings = filterFindings(allFindings, findingThreshold)
	findingsFiltered := preFilterCount - len(allFindings)
	if o.metrics != nil {
		o.metrics.RecordFindings(preFilterCount, len(allFindings))
	}

	sort.SliceStable(allFindings, func(i, j int) bool {
		a, b := allFindings[i], allFindings[j]
		if a.Relevance != b.Relevance {
			return a.Relevance < b.Relevance
		}
		return temporalLess(a, b)
	})

	findingsCount := len(allFindings)

	executor := tool.NewExecutor(ctx, st, searcher, newEmbed)
	var response string
	if len(allFindings) == 0 {
		response = "No relevant findings were identified for the query."
	} else {
		synthCtx, synthSpan := o.tracer.TraceSynthesis(ctx, findingsCount)
		synthesis, usage, err := o.synthesize(synthCtx, query, allFindings, executor)
		synthSpan.End()
		if err != nil {
			o.tracer.RecordError(querySpan, err)
			return nil, err
		}
		response = synthesis
		totalTokens += usage.TotalTokens
	}

	elapsed := time.Since(start)
	if o.metrics != nil {
		outcome := "success"
		if batchesFailed > 0 && batchesProcessed == 0 {
			outcome = "error"
		}
		o.metrics.RecordQuery(scale.Tier.String(), outcome, elapsed.Seconds())
	}

	analyzedIDs := make([]int64, len(loaded))
	for i, c := range loaded {
		analyzedIDs[i] = c.ChunkID
	}

	slog.Info("query completed", "query_id", queryID, "tier", scale.Tier.String(), "findings", findingsCount, "elapsed", elapsed)

	return &core.QueryResult{
		Response:          response,
		ScalingTier:       scale.Tier.String(),
		FindingsCount:     findingsCount,
		FindingsFiltered:  findingsFiltered,
		ChunksAnalyzed:    len(loaded),
		AnalyzedChunkIDs:  analyzedIDs,
		ChunksAvailable:   chunksAvailable,
		BatchesProcessed:  batchesProcessed,
		BatchesFailed:     batchesFailed,
		ChunkLoadFailures: loadFailures,
		BatchErrors:       batchErrors,
		TotalTokens:       totalTokens,
		Elapsed:           elapsed,
	}, nil
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return rlmerr.New(rlmerr.KindQueryValidation, "query cannot be empty")
	}
	if len(query) > maxQueryLen {
		return rlmerr.New(rlmerr.KindQueryValidation, "query exceeds maximum length ("+itoa(len(query))+" bytes, max "+itoa(maxQueryLen)+")")
	}
	return nil
}

func filterFindings(findings []core.Finding, threshold core.Relevance) []core.Finding {
	kept := findings[:0]
	for _, f := range findings {
		if f.Relevance.MeetsThreshold(threshold) {
			kept = append(kept, f)
		}
	}
	return kept
}

func temporalLess(a, b core.Finding) bool {
	ab, bb := int64(0), int64(0)
	if a.ChunkBufferID != nil {
		ab = *a.ChunkBufferID
	}
	if b.ChunkBufferID != nil {
		bb = *b.ChunkBufferID
	}
	if ab != bb {
		return ab < bb
	}
	ai, bi := 0, 0
	if a.ChunkIndex != nil {
		ai = *a.ChunkIndex
	}
	if b.ChunkIndex != nil {
		bi = *b.ChunkIndex
	}
	return ai < bi
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
