package route

// Strategy is the concurrency pattern chosen for one request.
type Strategy string

const (
	StrategySingle      Strategy = "single"
	StrategySpeculative Strategy = "speculative"
	StrategyParallel    Strategy = "parallel"
	StrategyEnsemble    Strategy = "ensemble"
)

// Rationale returns the reason fragment for a strategy. Kept in the same
// switch as the strategy set so reasoning strings track the routing logic.
func (s Strategy) Rationale() string {
	switch s {
	case StrategySingle:
		return "single model is enough"
	case StrategySpeculative:
		return "fast model streams while a stronger model validates"
	case StrategyParallel:
		return "two models race, winner streams"
	case StrategyEnsemble:
		return "two strong models cross-check each other"
	default:
		return "unknown strategy"
	}
}

// RoutingDecision is the immutable execution plan for one request.
type RoutingDecision struct {
	Strategy       Strategy `json:"strategy"`
	PrimaryModel   string   `json:"primary_model"`
	ParallelModel  string   `json:"parallel_model,omitempty"`
	FallbackModel  string   `json:"fallback_model,omitempty"`
	UseCache       bool     `json:"use_cache"`
	StreamResponse bool     `json:"stream_response"`
	MaxLatencyMs   int      `json:"max_latency_ms"`
	Reasoning      string   `json:"reasoning"`
}
