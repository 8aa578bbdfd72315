package rpc

import (
	"github.com/polyroute/polyroute/internal/executor"
	"github.com/polyroute/polyroute/internal/orchestrator"
)

// GenerateRequest is the top-level request for one generation.
type GenerateRequest = orchestrator.GenerationRequest

// GenerateEvent streams back one output unit from the daemon. It mirrors the
// executor chunk plus the request id and, on the first event, the routing
// summary.
type GenerateEvent struct {
	RequestID string `json:"request_id,omitempty"`

	Type      string              `json:"type"` // text|status|tool_call|enhancement_start|done|error
	Content   string              `json:"content,omitempty"`
	Model     string              `json:"model,omitempty"`
	Strategy  string              `json:"strategy,omitempty"`
	Timestamp int64               `json:"timestamp,omitempty"` // unix millis
	Meta      *executor.Meta      `json:"meta,omitempty"`
	Routing   *RoutingSummary     `json:"routing,omitempty"`
	Usage     *orchestrator.Usage `json:"usage,omitempty"`
}

// RoutingSummary is attached to the first event of a stream so clients can
// show which path a request took before any text arrives.
type RoutingSummary struct {
	TaskType     string `json:"task_type"`
	Complexity   string `json:"complexity"`
	Strategy     string `json:"strategy"`
	PrimaryModel string `json:"primary_model"`
	Reasoning    string `json:"reasoning,omitempty"`
}

// GenerateStreamRequest is the bidirectional stream payload for Connect RPC.
// The first message must carry the generate payload; later messages may carry
// control signals.
type GenerateStreamRequest struct {
	Generate  *GenerateRequest `json:"generate,omitempty"`
	Cancel    bool             `json:"cancel,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// EventFromChunk converts an executor chunk into the wire representation.
func EventFromChunk(requestID string, c executor.Chunk) GenerateEvent {
	return GenerateEvent{
		RequestID: requestID,
		Type:      string(c.Type),
		Content:   c.Content,
		Model:     c.Model,
		Strategy:  string(c.Strategy),
		Timestamp: c.Timestamp.UnixMilli(),
		Meta:      c.Meta,
	}
}
