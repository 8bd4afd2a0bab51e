package agent

// ToolDefinition describes a tool in JSON-Schema form for function-calling.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ToolExecutor dispatches a ToolCall to its implementation and returns the
// ToolResult. Execute has no error return: every failure (bad arguments,
// missing chunk, regex too large) is reported as ToolResult.IsError so the
// model can see and react to it.
type ToolExecutor interface {
	Execute(call ToolCall) ToolResult
}

// ToolSet is a named collection of tool definitions scoped to an agent role.
type ToolSet struct {
	definitions []ToolDefinition
}

// Definitions returns the tool definitions in this set.
func (s ToolSet) Definitions() []ToolDefinition {
	return s.definitions
}

// IsEmpty reports whether this set contains no tools.
func (s ToolSet) IsEmpty() bool {
	return len(s.definitions) == 0
}

// Len returns the number of tools in this set.
func (s ToolSet) Len() int {
	return len(s.definitions)
}

// NoTools is the empty tool set, used by agents that receive their context
// directly rather than calling back into storage (the primary and subcall
// agents).
func NoTools() ToolSet {
	return ToolSet{}
}

// SynthesizerTools returns the fixed six-tool vocabulary available to the
// synthesizer agent: get_chunks, search, grep_chunks, get_buffer,
// list_buffers, storage_stats.
func SynthesizerTools() ToolSet {
	return ToolSet{definitions: []ToolDefinition{
		defGetChunks(),
		defSearch(),
		defGrepChunks(),
		defGetBuffer(),
		defListBuffers(),
		defStorageStats(),
	}}
}

func defGetChunks() ToolDefinition {
	return ToolDefinition{
		Name: "get_chunks",
		Description: "Retrieve one or more chunks by ID. Returns an array of chunk objects " +
			"(content + metadata) in the same order. Missing IDs return null.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"chunk_ids": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"minItems":    1,
					"description": "Array of chunk IDs to retrieve.",
				},
			},
			"required":             []string{"chunk_ids"},
			"additionalProperties": false,
		},
	}
}

func defSearch() ToolDefinition {
	return ToolDefinition{
		Name: "search",
		Description: "Search for chunks matching a query using hybrid (semantic + BM25), " +
			"semantic-only, or BM25-only search.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query text.",
				},
				"top_k": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return. Defaults to 10.",
					"default":     10,
				},
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{"hybrid", "semantic", "bm25"},
					"description": "Search mode. Defaults to 'hybrid'.",
					"default":     "hybrid",
				},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}
}

func defGrepChunks() ToolDefinition {
	return ToolDefinition{
		Name: "grep_chunks",
		Description: "Search chunk content with a regex pattern. Scope by chunk_ids (highest " +
			"priority), buffer_id, or search all chunks. Returns matching lines with optional " +
			"context.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regex pattern to search for in chunk content.",
				},
				"chunk_ids": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"description": "Grep only within these specific chunks (highest priority).",
				},
				"buffer_id": map[string]any{
					"type":        "integer",
					"description": "Grep all chunks belonging to this buffer. Ignored if chunk_ids is set.",
				},
				"context_lines": map[string]any{
					"type":        "integer",
					"description": "Number of context lines before and after each match. Defaults to 0.",
					"default":     0,
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func defGetBuffer() ToolDefinition {
	return ToolDefinition{
		Name:        "get_buffer",
		Description: "Retrieve a buffer by name or ID. Returns buffer metadata and content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Buffer name to look up.",
				},
				"id": map[string]any{
					"type":        "integer",
					"description": "Buffer ID to look up. Ignored if name is provided.",
				},
			},
			"additionalProperties": false,
			"minProperties":        1,
		},
	}
}

func defListBuffers() ToolDefinition {
	return ToolDefinition{
		Name:        "list_buffers",
		Description: "List all buffers in storage with their metadata (no content).",
		Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	}
}

func defStorageStats() ToolDefinition {
	return ToolDefinition{
		Name:        "storage_stats",
		Description: "Get storage statistics: buffer count, chunk count, total content size, schema version.",
		Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	}
}
