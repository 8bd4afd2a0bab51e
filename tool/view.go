package tool

import "github.com/haasonsaas/rlm-go/core"

// ChunkView is the serializable shape of a chunk returned by get_chunks.
type ChunkView struct {
	ID        int64  `json:"id"`
	BufferID  int64  `json:"buffer_id"`
	Content   string `json:"content"`
	Index     int    `json:"index"`
	ByteStart int    `json:"byte_start"`
	ByteEnd   int    `json:"byte_end"`
}

func chunkView(c core.Chunk) ChunkView {
	return ChunkView{
		ID:        c.ID,
		BufferID:  c.BufferID,
		Content:   c.Content,
		Index:     c.Index,
		ByteStart: c.ByteRange.Start,
		ByteEnd:   c.ByteRange.End,
	}
}

// searchResultView is the serializable shape of a search tool result.
type searchResultView struct {
	ChunkID       int64    `json:"chunk_id"`
	BufferID      int64    `json:"buffer_id"`
	Score         float64  `json:"score"`
	SemanticScore *float32 `json:"semantic_score,omitempty"`
	BM25Score     *float64 `json:"bm25_score,omitempty"`
}

// bufferView is the serializable shape of get_buffer's result (content included).
type bufferView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContentSize int    `json:"content_size"`
	ContentType string `json:"content_type"`
	ChunkCount  int    `json:"chunk_count"`
	Content     string `json:"content"`
}

func bufferViewOf(b core.Buffer) bufferView {
	return bufferView{
		ID:          b.ID,
		Name:        b.Name,
		ContentSize: b.Metadata.Size,
		ContentType: b.Metadata.ContentType,
		ChunkCount:  b.Metadata.ChunkCount,
		Content:     b.Content,
	}
}

// bufferSummary is the serializable shape of list_buffers' entries (no content).
type bufferSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContentSize int    `json:"content_size"`
	ContentType string `json:"content_type"`
	ChunkCount  int    `json:"chunk_count"`
}

// grepMatch is a single regex match within a chunk, with surrounding context.
type grepMatch struct {
	ChunkID     int64    `json:"chunk_id"`
	LineNumber  int      `json:"line_number"`
	MatchedLine string   `json:"matched_line"`
	Context     []string `json:"context"`
}
