package executor

import (
	"time"

	"github.com/polyroute/polyroute/internal/route"
)

// ChunkType discriminates streamed output units.
type ChunkType string

const (
	ChunkText             ChunkType = "text"
	ChunkStatus           ChunkType = "status"
	ChunkToolCall         ChunkType = "tool_call"
	ChunkEnhancementStart ChunkType = "enhancement_start"
	ChunkDone             ChunkType = "done"
	ChunkError            ChunkType = "error"
)

// Meta carries optional measurements attached to a chunk.
type Meta struct {
	LatencyMs int64 `json:"latency_ms,omitempty"`
	Enhanced  bool  `json:"enhanced,omitempty"`
}

// Chunk is a single unit of streamed output. Chunks are ordered within one
// request's stream; exactly one done or error chunk terminates it and nothing
// follows the terminal chunk.
type Chunk struct {
	Type      ChunkType      `json:"type"`
	Content   string         `json:"content,omitempty"`
	Model     string         `json:"model,omitempty"`
	Strategy  route.Strategy `json:"strategy"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      *Meta          `json:"meta,omitempty"`
}

// Request is the executor's view of one generation request.
type Request struct {
	ID           string
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}
