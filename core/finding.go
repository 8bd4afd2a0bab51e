package core

import "time"

// Finding is a single observation from a subcall agent analyzing one chunk.
// ChunkIndex and ChunkBufferID are populated by the orchestrator after the
// subcall agent returns, from the loaded chunk matching ChunkID; they are
// not taken from the agent's output.
type Finding struct {
	ChunkID       int64     `json:"chunk_id"`
	Relevance     Relevance `json:"relevance"`
	Findings      []string  `json:"findings,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	FollowUp      []string  `json:"follow_up,omitempty"`
	ChunkIndex    *int      `json:"chunk_index,omitempty"`
	ChunkBufferID *int64    `json:"chunk_buffer_id,omitempty"`
}

// SubagentResult is the outcome of one subcall agent's batch.
type SubagentResult struct {
	BatchIndex int
	Findings   []Finding
	Usage      TokenUsage
	Elapsed    time.Duration
}

// TokenUsage mirrors agent.TokenUsage without importing the agent package,
// so core stays a leaf with no dependency on agent/provider wiring.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// QueryResult is the final output of the orchestrator's Query pipeline.
type QueryResult struct {
	Response          string
	ScalingTier       string
	FindingsCount     int
	FindingsFiltered  int
	ChunksAnalyzed    int
	AnalyzedChunkIDs  []int64
	ChunksAvailable   int
	BatchesProcessed  int
	BatchesFailed     int
	ChunkLoadFailures int
	BatchErrors       []string
	TotalTokens       int
	Elapsed           time.Duration
}

// AnalysisPlan is the primary agent's parsed output: its recommended
// search mode, batch size, threshold, focus areas, and chunk ceiling.
// Pointer fields are absent (nil) when the planner deferred that
// parameter to the scaler or static defaults.
type AnalysisPlan struct {
	SearchMode string   `json:"search_mode"`
	BatchSize  *int     `json:"batch_size,omitempty"`
	Threshold  *float32 `json:"threshold,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
	MaxChunks  *int     `json:"max_chunks,omitempty"`
	TopK       *int     `json:"top_k,omitempty"`
}

// DefaultAnalysisPlan returns the plan used when the primary agent's
// response fails to parse: hybrid search, no overrides.
func DefaultAnalysisPlan() AnalysisPlan {
	return AnalysisPlan{SearchMode: "hybrid"}
}
