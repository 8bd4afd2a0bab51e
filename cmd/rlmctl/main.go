// Command rlmctl is a thin example binary wiring the pipeline's pieces
// together: it ingests a text file into sqlite storage as a chunked buffer,
// then runs a query against it through the full orchestrator pipeline.
// CLI parsing is deliberately stdlib flag rather than a framework — this is
// a wiring example, not a product CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/agent/provider"
	"github.com/haasonsaas/rlm-go/config"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/orchestrator"
	"github.com/haasonsaas/rlm-go/search"
	"github.com/haasonsaas/rlm-go/storage"
)

// chunkSizeBytes is the fixed chunk width used by the naive ingest
// splitter. Real deployments are expected to bring their own chunker;
// this one exists only so the example has something to query against.
const chunkSizeBytes = 2000

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "rlmctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  rlmctl ingest -db PATH -buffer NAME FILE
  rlmctl query  -db PATH -buffer NAME [flags] "question text"`)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dbPath := fs.String("db", "rlm.db", "sqlite database path")
	bufferName := fs.String("buffer", "", "buffer name to create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bufferName == "" || fs.NArg() != 1 {
		return errors.New("ingest requires -buffer NAME and exactly one file argument")
	}

	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	st, err := storage.NewSQLiteStorage(*dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	ctx := context.Background()
	bufferID, err := st.AddBuffer(ctx, &core.Buffer{
		Name:    *bufferName,
		Content: string(content),
		Metadata: core.BufferMetadata{
			Size:        len(content),
			ContentType: "text/plain",
		},
	})
	if err != nil {
		return fmt.Errorf("add buffer: %w", err)
	}

	chunks := splitChunks(bufferID, string(content))
	if err := st.AddChunks(ctx, bufferID, chunks); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}

	fmt.Printf("ingested %q as buffer %d (%d chunks, %d bytes)\n", *bufferName, bufferID, len(chunks), len(content))
	return nil
}

func splitChunks(bufferID int64, content string) []core.Chunk {
	var chunks []core.Chunk
	for start, idx := 0, 0; start < len(content); start, idx = start+chunkSizeBytes, idx+1 {
		end := start + chunkSizeBytes
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, core.Chunk{
			ID:        bufferID*1_000_000 + int64(idx),
			BufferID:  bufferID,
			Index:     idx,
			ByteRange: core.ByteRange{Start: start, End: end},
			Content:   content[start:end],
		})
	}
	return chunks
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	dbPath := fs.String("db", "rlm.db", "sqlite database path")
	bufferName := fs.String("buffer", "", "buffer name to query")
	searchMode := fs.String("search-mode", "", "force a search mode (hybrid|bm25|semantic)")
	topK := fs.Int("top-k", 0, "override search depth (0 = use plan/scaling default)")
	maxChunks := fs.Int("max-chunks", 0, "override the number of chunks sent to subcall agents (0 = unlimited)")
	batchSize := fs.Int("batch-size", 0, "override chunks per subcall batch (0 = use plan/scaling default)")
	numAgents := fs.Int("num-agents", 0, "split loaded chunks across exactly this many subcall agents (overrides -batch-size)")
	threshold := fs.Float64("threshold", 0, "override the search similarity threshold")
	skipPlan := fs.Bool("skip-plan", false, "skip the primary planning agent call")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("query requires exactly one quoted query-text argument")
	}
	queryText := fs.Arg(0)

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	llm, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	st, err := storage.NewSQLiteStorage(*dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	searcher := search.NewInMemorySearcher()
	noEmbedder := func() (search.Embedder, error) {
		return nil, errors.New("no embedder configured; semantic search is unavailable in this example CLI")
	}

	overrides := &orchestrator.CliOverrides{SkipPlan: *skipPlan}
	if *searchMode != "" {
		mode := search.Mode(*searchMode)
		overrides.SearchMode = &mode
	}
	if *topK > 0 {
		overrides.TopK = topK
	}
	if *maxChunks > 0 {
		overrides.MaxChunks = maxChunks
	}
	if *batchSize > 0 {
		overrides.BatchSize = batchSize
	}
	if *numAgents > 0 {
		overrides.NumAgents = numAgents
	}
	if *threshold > 0 {
		overrides.Threshold = threshold
	}

	orch := orchestrator.New(llm, cfg)
	result, err := orch.Query(context.Background(), st, searcher, noEmbedder, queryText, *bufferName, overrides)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(result.Response)
	fmt.Fprintf(os.Stderr, "\n[tier=%s chunks=%d/%d findings=%d/%d batches=%d/%d tokens=%d elapsed=%s]\n",
		result.ScalingTier, result.ChunksAnalyzed, result.ChunksAvailable,
		result.FindingsCount, result.FindingsCount+result.FindingsFiltered,
		result.BatchesProcessed, result.BatchesProcessed+result.BatchesFailed,
		result.TotalTokens, result.Elapsed)
	return nil
}

func buildProvider(cfg *config.AgentConfig) (agent.LlmProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return provider.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL)
	case "openai", "":
		return provider.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
