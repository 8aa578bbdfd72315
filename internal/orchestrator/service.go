// Package orchestrator is the façade over the classify → route → execute
// pipeline. It owns the running cost/usage counters and the bounded
// telemetry buffer; everything else is stateless per request.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/executor"
	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/observability"
	"github.com/polyroute/polyroute/internal/route"
)

// Service wires the classifier, router, and executor behind one entry point.
// Construct it once at process start and share it across requests; each
// request runs independently.
type Service struct {
	registry *llm.Registry
	router   *route.Router
	exec     *executor.Executor
	logger   *zap.Logger
	metrics  *observability.Metrics

	telemetry *TelemetryBuffer

	mu           sync.Mutex
	requestCount int64
	totalCost    float64
	totalTokens  int64
}

// New constructs the orchestration service. metrics may be nil.
func New(registry *llm.Registry, router *route.Router, exec *executor.Executor, logger *zap.Logger, metrics *observability.Metrics, telemetry *TelemetryBuffer) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if telemetry == nil {
		telemetry = NewTelemetryBuffer(0, 0)
	}
	return &Service{
		registry:  registry,
		router:    router,
		exec:      exec,
		logger:    logger,
		metrics:   metrics,
		telemetry: telemetry,
	}
}

// Generation is one in-flight request: the plan that was made plus the chunk
// stream carrying it out.
type Generation struct {
	ID       string
	Analysis classify.TaskAnalysis
	Decision route.RoutingDecision
	Chunks   <-chan executor.Chunk
}

// Generate classifies, routes, and executes one request. The returned stream
// terminates in exactly one done or error chunk; accounting and telemetry are
// recorded when the terminal chunk passes through.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*Generation, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	id := req.RequestID
	if id == "" {
		id = uuid.New().String()
	}

	analysis := classify.Analyze(req.Prompt, classify.Context{
		FileCount: req.Context.FileCount,
		HasImages: len(req.Images) > 0,
	})
	if req.ForceComplexity >= classify.Trivial && req.ForceComplexity <= classify.Expert {
		analysis.Complexity = req.ForceComplexity
		analysis.Reason += fmt.Sprintf("; complexity forced to %s by caller", req.ForceComplexity)
	}

	decision := s.router.RouteAnalysis(analysis)
	if req.ForceModel != "" {
		decision = s.forceModelDecision(req.ForceModel, decision)
	}

	s.metrics.RecordModelUsage("primary", decision.PrimaryModel)
	s.metrics.RecordModelUsage("parallel", decision.ParallelModel)
	s.logger.Info("routed request",
		zap.String("request_id", id),
		zap.String("task_type", string(analysis.TaskType)),
		zap.String("complexity", analysis.Complexity.String()),
		zap.String("strategy", string(decision.Strategy)),
		zap.String("primary_model", decision.PrimaryModel))

	execReq := executor.Request{
		ID:           id,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	}
	raw := s.exec.Execute(ctx, execReq, decision)

	out := make(chan executor.Chunk, 16)
	go s.account(ctx, id, req.Prompt, analysis, decision, raw, out)

	return &Generation{ID: id, Analysis: analysis, Decision: decision, Chunks: out}, nil
}

// forceModelDecision collapses the decision to a single-strategy plan around
// the caller's model, keeping that model's declared fallback.
func (s *Service) forceModelDecision(model string, prior route.RoutingDecision) route.RoutingDecision {
	if !s.registry.Has(model) {
		s.logger.Warn("forced model not in catalog, keeping routed decision",
			zap.String("model", model))
		return prior
	}
	d := route.RoutingDecision{
		Strategy:       route.StrategySingle,
		PrimaryModel:   model,
		UseCache:       true,
		StreamResponse: true,
		MaxLatencyMs:   prior.MaxLatencyMs,
		Reasoning:      fmt.Sprintf("single: model %s forced by caller", model),
	}
	if fb, ok := s.registry.Fallback(model); ok {
		d.FallbackModel = fb.ID
	}
	return d
}

// account forwards chunks to the caller while accumulating usage, then
// records stats, metrics, and one telemetry entry when the stream ends.
func (s *Service) account(ctx context.Context, id, prompt string, analysis classify.TaskAnalysis, decision route.RoutingDecision, in <-chan executor.Chunk, out chan<- executor.Chunk) {
	defer close(out)

	start := time.Now()
	var (
		contentLen int
		enhanced   bool
		terminal   *executor.Chunk
	)
	for c := range in {
		switch c.Type {
		case executor.ChunkText:
			contentLen += len(c.Content)
		case executor.ChunkEnhancementStart:
			enhanced = true
		case executor.ChunkDone, executor.ChunkError:
			cc := c
			terminal = &cc
			if c.Meta != nil && c.Meta.Enhanced {
				enhanced = true
			}
		}
		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
		if terminal != nil {
			break
		}
	}
	if terminal == nil {
		// Stream collapsed without a terminal chunk (caller cancelled).
		return
	}

	inputTokens := estimateTokens(prompt)
	outputTokens := contentLen / 4
	latency := time.Since(start).Milliseconds()
	if terminal.Meta != nil && terminal.Meta.LatencyMs > 0 {
		latency = terminal.Meta.LatencyMs
	}

	usedModel := terminal.Model
	cost := 0.0
	if m, ok := s.registry.Get(usedModel); ok {
		cost = m.EstimatedCost(inputTokens, outputTokens)
	}

	success := terminal.Type == executor.ChunkDone
	outcome := "ok"
	errMsg := ""
	if !success {
		outcome = "error"
		errMsg = terminal.Content
		s.metrics.RecordModelFailure(usedModel)
	}

	s.mu.Lock()
	s.requestCount++
	s.totalCost += cost
	s.totalTokens += int64(inputTokens + outputTokens)
	s.mu.Unlock()

	s.telemetry.Append(RequestTelemetry{
		RequestID:    id,
		PromptHash:   hashPrompt(prompt),
		TaskType:     analysis.TaskType,
		Complexity:   analysis.Complexity,
		Strategy:     decision.Strategy,
		PrimaryModel: decision.PrimaryModel,
		UsedModel:    usedModel,
		Success:      success,
		Error:        errMsg,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
		LatencyMs:    latency,
		WasEnhanced:  enhanced,
		CreatedAt:    time.Now(),
	})
	s.metrics.SetTelemetryDepth(s.telemetry.Len())
	s.metrics.RecordRequest(string(decision.Strategy), outcome, time.Duration(latency)*time.Millisecond, inputTokens, outputTokens, cost, usedModel)
}

// GenerateSync runs a request to completion and aggregates the stream.
func (s *Service) GenerateSync(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	gen, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		content  strings.Builder
		model    string
		enhanced bool
	)
	for c := range gen.Chunks {
		switch c.Type {
		case executor.ChunkText:
			content.WriteString(c.Content)
		case executor.ChunkEnhancementStart:
			enhanced = true
		case executor.ChunkDone:
			model = c.Model
			if c.Meta != nil && c.Meta.Enhanced {
				enhanced = true
			}
		case executor.ChunkError:
			return nil, fmt.Errorf("generation failed: %s", c.Content)
		}
	}

	inputTokens := estimateTokens(req.Prompt)
	outputTokens := content.Len() / 4
	cost := 0.0
	if m, ok := s.registry.Get(model); ok {
		cost = m.EstimatedCost(inputTokens, outputTokens)
	}

	return &GenerationResponse{
		ID:      gen.ID,
		Content: content.String(),
		Model:   model,
		Usage: Usage{
			InputTokens:   inputTokens,
			OutputTokens:  outputTokens,
			TotalTokens:   inputTokens + outputTokens,
			EstimatedCost: cost,
		},
		TaskAnalysis:    gen.Analysis,
		RoutingDecision: gen.Decision,
		LatencyMs:       time.Since(start).Milliseconds(),
		Strategy:        gen.Decision.Strategy,
		WasEnhanced:     enhanced,
	}, nil
}

// GetAndClearTelemetry drains the telemetry buffer for an external collector.
func (s *Service) GetAndClearTelemetry() []RequestTelemetry {
	records := s.telemetry.Drain()
	s.metrics.SetTelemetryDepth(0)
	return records
}

// GetStats returns a snapshot of the running totals.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		RequestCount: s.requestCount,
		TotalCost:    s.totalCost,
		TotalTokens:  s.totalTokens,
	}
	if s.requestCount > 0 {
		stats.AverageCostPerRequest = s.totalCost / float64(s.requestCount)
		stats.AverageTokensPerRequest = float64(s.totalTokens) / float64(s.requestCount)
	}
	return stats
}

// Registry exposes the read-only model catalog for the daemon's listing
// endpoint.
func (s *Service) Registry() *llm.Registry {
	return s.registry
}

func estimateTokens(prompt string) int {
	n := len(prompt) / 4
	if n == 0 && prompt != "" {
		n = 1
	}
	return n
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:8])
}
