package orchestrator

import (
	"time"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/route"
)

// RequestContext carries build/session context supplied by the caller.
type RequestContext struct {
	Framework           string   `json:"framework,omitempty"`
	Language            string   `json:"language,omitempty"`
	FileCount           int      `json:"file_count,omitempty"`
	ActiveFile          string   `json:"active_file,omitempty"`
	FileList            []string `json:"file_list,omitempty"`
	UserID              string   `json:"user_id,omitempty"`
	ProjectID           string   `json:"project_id,omitempty"`
	SessionID           string   `json:"session_id,omitempty"`
	ConversationHistory []string `json:"conversation_history,omitempty"`
	CurrentErrors       []string `json:"current_errors,omitempty"`
}

// GenerationRequest is the caller-facing input for one generation.
type GenerationRequest struct {
	RequestID    string          `json:"request_id,omitempty"`
	Prompt       string          `json:"prompt"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	Images       []string        `json:"images,omitempty"`
	ExistingCode string          `json:"existing_code,omitempty"`
	MaxTokens    int             `json:"max_tokens,omitempty"`
	Temperature  float64         `json:"temperature,omitempty"`
	// ForceModel bypasses routing for the model choice only; ForceComplexity
	// bypasses the complexity estimate only. Everything else still runs.
	ForceModel      string              `json:"force_model,omitempty"`
	ForceComplexity classify.Complexity `json:"force_complexity,omitempty"`
	Context         RequestContext      `json:"context,omitempty"`
}

// Usage aggregates token and cost accounting for one request.
type Usage struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	TotalTokens   int     `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// GenerationResponse is the synchronous convenience wrapper aggregating a
// full chunk stream.
type GenerationResponse struct {
	ID              string                `json:"id"`
	Content         string                `json:"content"`
	Model           string                `json:"model"`
	Usage           Usage                 `json:"usage"`
	TaskAnalysis    classify.TaskAnalysis `json:"task_analysis"`
	RoutingDecision route.RoutingDecision `json:"routing_decision"`
	LatencyMs       int64                 `json:"latency_ms"`
	Strategy        route.Strategy        `json:"strategy"`
	WasEnhanced     bool                  `json:"was_enhanced"`
}

// RequestTelemetry is the terminal per-request summary appended to the
// bounded buffer for an external learning/analytics consumer. Prompts are
// hashed, never stored.
type RequestTelemetry struct {
	RequestID    string              `json:"request_id"`
	PromptHash   string              `json:"prompt_hash"`
	TaskType     classify.TaskType   `json:"task_type"`
	Complexity   classify.Complexity `json:"complexity"`
	Strategy     route.Strategy      `json:"strategy"`
	PrimaryModel string              `json:"primary_model"`
	UsedModel    string              `json:"used_model"`
	Success      bool                `json:"success"`
	Error        string              `json:"error,omitempty"`
	InputTokens  int                 `json:"input_tokens"`
	OutputTokens int                 `json:"output_tokens"`
	CostUSD      float64             `json:"cost_usd"`
	LatencyMs    int64               `json:"latency_ms"`
	WasEnhanced  bool                `json:"was_enhanced"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Stats is the aggregate counters snapshot.
type Stats struct {
	RequestCount            int64   `json:"request_count"`
	TotalCost               float64 `json:"total_cost"`
	TotalTokens             int64   `json:"total_tokens"`
	AverageCostPerRequest   float64 `json:"average_cost_per_request"`
	AverageTokensPerRequest float64 `json:"average_tokens_per_request"`
}
