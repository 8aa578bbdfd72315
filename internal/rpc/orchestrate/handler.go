package orchestrate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/polyroute/polyroute/internal/observability"
	"github.com/polyroute/polyroute/internal/orchestrator"
	"github.com/polyroute/polyroute/internal/rpc"
)

// Generator runs one classified, routed generation and yields streamed chunks.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.GenerationRequest) (*orchestrator.Generation, error)
}

// Handler processes generate requests and streams NDJSON events.
type Handler struct {
	gen     Generator
	metrics *observability.Metrics
}

// NewHandler constructs a handler instance.
func NewHandler(gen Generator, metrics *observability.Metrics) *Handler {
	return &Handler{gen: gen, metrics: metrics}
}

// ServeHTTP handles POST /v1/generate with an NDJSON stream of GenerateEvent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.metrics.RecordTransportError("ndjson", "method_not_allowed")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.metrics.IncActiveStreams("ndjson")
	defer h.metrics.DecActiveStreams("ndjson")

	var req rpc.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordTransportError("ndjson", "decode")
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	gen, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		h.metrics.RecordTransportError("ndjson", "generate_error")
		http.Error(w, fmt.Sprintf("generate: %v", err), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	routing := summarize(gen)
	writer := bufio.NewWriter(w)
	first := true
	for c := range gen.Chunks {
		ev := rpc.EventFromChunk(gen.ID, c)
		if first {
			ev.Routing = routing
			first = false
		}
		if err := json.NewEncoder(writer).Encode(ev); err != nil {
			break
		}
		writer.Flush()
		flusher.Flush()
	}
}

// summarize condenses the routing outcome for the first streamed event.
func summarize(gen *orchestrator.Generation) *rpc.RoutingSummary {
	return &rpc.RoutingSummary{
		TaskType:     string(gen.Analysis.TaskType),
		Complexity:   gen.Analysis.Complexity.String(),
		Strategy:     string(gen.Decision.Strategy),
		PrimaryModel: gen.Decision.PrimaryModel,
		Reasoning:    gen.Decision.Reasoning,
	}
}
