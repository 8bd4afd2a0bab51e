// Package tool dispatches the synthesizer's fixed six-tool vocabulary to a
// Storage and Searcher backend.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/search"
	"github.com/haasonsaas/rlm-go/storage"
)

// Size and count limits enforced before any tool dispatches. These mirror
// the reference implementation's fixed ceilings; they exist to bound the
// blast radius of an adversarial or confused model, not to express business
// logic.
const (
	maxToolArgsLen  = 100_000
	maxChunkIDs     = 200
	maxSearchTopK   = 500
	maxContextLines = 20
	maxRegexLen     = 500
	maxGrepChunks   = 5000
)

// EmbedderFactory lazily constructs the Embedder used by semantic/hybrid
// search. It is invoked at most once per Executor; errors surface as a tool
// error on the search call that triggered creation, never as a pipeline
// error.
type EmbedderFactory func() (search.Embedder, error)

// Executor dispatches ToolCalls against a Storage and Searcher. It
// implements agent.ToolExecutor. One Executor is constructed per query; its
// embedder is created on first use and cached for the Executor's lifetime.
type Executor struct {
	ctx      context.Context
	storage  storage.Storage
	searcher search.Searcher
	newEmbed EmbedderFactory

	schemas map[string]*jsonschema.Schema

	mu       sync.Mutex
	embedder search.Embedder
	embedErr error
}

// NewExecutor constructs an Executor. ctx is the query-scoped context used
// for every storage/search call the executor makes — agent.ToolExecutor's
// Execute method takes no context, so one is bound at construction instead.
func NewExecutor(ctx context.Context, st storage.Storage, searcher search.Searcher, newEmbed EmbedderFactory) *Executor {
	return &Executor{
		ctx:      ctx,
		storage:  st,
		searcher: searcher,
		newEmbed: newEmbed,
		schemas:  compileSchemas(agent.SynthesizerTools()),
	}
}

var _ agent.ToolExecutor = (*Executor)(nil)

func compileSchemas(tools agent.ToolSet) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema, tools.Len())

	for _, def := range tools.Definitions() {
		raw, err := json.Marshal(def.Parameters)
		if err != nil {
			continue
		}
		url := "mem://" + def.Name + ".json"
		if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
			continue
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			continue
		}
		schemas[def.Name] = schema
	}
	return schemas
}

// Execute dispatches call to its tool implementation. Tool-level failures
// (bad arguments, missing chunk, invalid regex) are reported via
// ToolResult.IsError; Execute itself never panics or returns a Go error.
func (e *Executor) Execute(call agent.ToolCall) agent.ToolResult {
	if len(call.Arguments) > maxToolArgsLen {
		return errorResult(call.ID, fmt.Sprintf("tool arguments too large (%d bytes, max %d)", len(call.Arguments), maxToolArgsLen))
	}

	if err := e.validateArgs(call); err != nil {
		return errorResult(call.ID, err.Error())
	}

	var (
		content string
		err     error
	)
	switch call.Name {
	case "get_chunks":
		content, err = e.toolGetChunks(call.Arguments)
	case "search":
		content, err = e.toolSearch(call.Arguments)
	case "grep_chunks":
		content, err = e.toolGrepChunks(call.Arguments)
	case "get_buffer":
		content, err = e.toolGetBuffer(call.Arguments)
	case "list_buffers":
		content, err = e.toolListBuffers()
	case "storage_stats":
		content, err = e.toolStorageStats()
	default:
		err = fmt.Errorf("unknown tool")
	}

	if err != nil {
		return errorResult(call.ID, err.Error())
	}
	return agent.ToolResult{ToolCallID: call.ID, Content: content, IsError: false}
}

func (e *Executor) validateArgs(call agent.ToolCall) error {
	schema, ok := e.schemas[call.Name]
	if !ok {
		return nil
	}
	args := call.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(args), &v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func errorResult(callID, message string) agent.ToolResult {
	return agent.ToolResult{ToolCallID: callID, Content: message, IsError: true}
}

// -----------------------------------------------------------------------
// Tool implementations
// -----------------------------------------------------------------------

func (e *Executor) toolGetChunks(args string) (string, error) {
	var parsed struct {
		ChunkIDs []int64 `json:"chunk_ids"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if len(parsed.ChunkIDs) > maxChunkIDs {
		return "", fmt.Errorf("too many chunk IDs (%d, max %d)", len(parsed.ChunkIDs), maxChunkIDs)
	}

	views := make([]*ChunkView, len(parsed.ChunkIDs))
	for i, id := range parsed.ChunkIDs {
		chunk, err := e.storage.GetChunk(e.ctx, id)
		if err != nil || chunk == nil {
			views[i] = nil
			continue
		}
		v := chunkView(*chunk)
		views[i] = &v
	}

	return marshalPretty(views)
}

func (e *Executor) toolSearch(args string) (string, error) {
	var parsed struct {
		Query string `json:"query"`
		TopK  *int   `json:"top_k"`
		Mode  string `json:"mode"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	topK := 10
	if parsed.TopK != nil {
		topK = *parsed.TopK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}
	mode := parsed.Mode
	if mode == "" {
		mode = "hybrid"
	}

	var (
		results []core.SearchResult
		err     error
	)
	switch mode {
	case "bm25":
		results, err = e.searcher.SearchBM25(e.ctx, e.storage, parsed.Query, topK)
	case "semantic":
		embedder, embErr := e.embedderFor("search")
		if embErr != nil {
			return "", embErr
		}
		results, err = e.searcher.SearchSemantic(e.ctx, e.storage, embedder, parsed.Query, topK, 0.3)
	default:
		embedder, embErr := e.embedderFor("search")
		if embErr != nil {
			return "", embErr
		}
		cfg := search.Config{TopK: topK, Threshold: 0.3, Mode: search.ModeHybrid, UseSemantic: true, UseBM25: true, RRFK: 60}
		results, err = e.searcher.Search(e.ctx, e.storage, embedder, parsed.Query, cfg)
	}
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	views := make([]searchResultView, len(results))
	for i, r := range results {
		views[i] = searchResultView{
			ChunkID:       r.ChunkID,
			BufferID:      r.BufferID,
			Score:         r.Score,
			SemanticScore: r.SemanticScore,
			BM25Score:     r.BM25Score,
		}
	}
	return marshalPretty(views)
}

func (e *Executor) embedderFor(toolName string) (search.Embedder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.embedder != nil || e.embedErr != nil {
		return e.embedder, e.embedErr
	}
	if e.newEmbed == nil {
		e.embedErr = fmt.Errorf("embedder creation failed: no embedder configured")
		return nil, e.embedErr
	}
	embedder, err := e.newEmbed()
	if err != nil {
		e.embedErr = fmt.Errorf("embedder creation failed: %w", err)
		return nil, e.embedErr
	}
	e.embedder = embedder
	return embedder, nil
}

func (e *Executor) toolGrepChunks(args string) (string, error) {
	var parsed struct {
		Pattern      string  `json:"pattern"`
		ChunkIDs     []int64 `json:"chunk_ids"`
		BufferID     *int64  `json:"buffer_id"`
		ContextLines *int    `json:"context_lines"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if len(parsed.Pattern) > maxRegexLen {
		return "", fmt.Errorf("regex pattern too long (%d bytes, max %d)", len(parsed.Pattern), maxRegexLen)
	}
	if len(parsed.ChunkIDs) > maxChunkIDs {
		return "", fmt.Errorf("too many chunk IDs (%d, max %d)", len(parsed.ChunkIDs), maxChunkIDs)
	}

	re, err := regexp.Compile(parsed.Pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex: %w", err)
	}

	contextLines := 0
	if parsed.ContextLines != nil {
		contextLines = *parsed.ContextLines
	}
	if contextLines > maxContextLines {
		contextLines = maxContextLines
	}

	chunks, err := e.resolveGrepScope(parsed.ChunkIDs, parsed.BufferID)
	if err != nil {
		return "", err
	}

	var matches []grepMatch
	for _, chunk := range chunks {
		lines := strings.Split(chunk.Content, "\n")
		for lineIdx, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			start := lineIdx - contextLines
			if start < 0 {
				start = 0
			}
			end := lineIdx + contextLines + 1
			if end > len(lines) {
				end = len(lines)
			}
			context := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				context = append(context, fmt.Sprintf("%d: %s", i+1, lines[i]))
			}
			matches = append(matches, grepMatch{
				ChunkID:     chunk.ID,
				LineNumber:  lineIdx + 1,
				MatchedLine: line,
				Context:     context,
			})
		}
	}

	return marshalPretty(matches)
}

// resolveGrepScope implements the priority chunk_ids > buffer_id > global,
// bounding the global scope to maxGrepChunks to avoid loading the entire
// corpus into memory.
func (e *Executor) resolveGrepScope(chunkIDs []int64, bufferID *int64) ([]core.Chunk, error) {
	if len(chunkIDs) > 0 {
		chunks := make([]core.Chunk, 0, len(chunkIDs))
		for _, id := range chunkIDs {
			chunk, err := e.storage.GetChunk(e.ctx, id)
			if err != nil || chunk == nil {
				continue
			}
			chunks = append(chunks, *chunk)
		}
		return chunks, nil
	}

	if bufferID != nil {
		chunks, err := e.storage.GetChunks(e.ctx, *bufferID)
		if err != nil {
			return nil, fmt.Errorf("failed to get buffer chunks: %w", err)
		}
		return chunks, nil
	}

	buffers, err := e.storage.ListBuffers(e.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buffers: %w", err)
	}

	var all []core.Chunk
	for _, b := range buffers {
		if len(all) >= maxGrepChunks {
			break
		}
		chunks, err := e.storage.GetChunks(e.ctx, b.ID)
		if err != nil {
			continue
		}
		remaining := maxGrepChunks - len(all)
		if remaining < len(chunks) {
			chunks = chunks[:remaining]
		}
		all = append(all, chunks...)
	}
	return all, nil
}

func (e *Executor) toolGetBuffer(args string) (string, error) {
	var parsed struct {
		Name *string `json:"name"`
		ID   *int64  `json:"id"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	var (
		buffer *core.Buffer
		err    error
	)
	switch {
	case parsed.Name != nil:
		buffer, err = e.storage.GetBufferByName(e.ctx, *parsed.Name)
	case parsed.ID != nil:
		buffer, err = e.storage.GetBuffer(e.ctx, *parsed.ID)
	default:
		return "", fmt.Errorf("either 'name' or 'id' must be provided")
	}
	if err != nil {
		return "", fmt.Errorf("lookup failed: %w", err)
	}

	if buffer == nil {
		return marshalPretty(nil)
	}
	view := bufferViewOf(*buffer)
	return marshalPretty(&view)
}

func (e *Executor) toolListBuffers() (string, error) {
	buffers, err := e.storage.ListBuffers(e.ctx)
	if err != nil {
		return "", fmt.Errorf("failed: %w", err)
	}

	summaries := make([]bufferSummary, len(buffers))
	for i, b := range buffers {
		summaries[i] = bufferSummary{
			ID:          b.ID,
			Name:        b.Name,
			ContentSize: b.Metadata.Size,
			ContentType: b.Metadata.ContentType,
			ChunkCount:  b.Metadata.ChunkCount,
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return marshalPretty(summaries)
}

func (e *Executor) toolStorageStats() (string, error) {
	stats, err := e.storage.Stats(e.ctx)
	if err != nil {
		return "", fmt.Errorf("failed: %w", err)
	}
	return marshalPretty(stats)
}

func marshalPretty(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialization error: %w", err)
	}
	return string(b), nil
}
