package llm

// ModelConfig is the static per-model entry of the catalog: identity,
// performance statistics, pricing, limits, and the declared fallback order.
// Entries are immutable after registry construction and are passed around by
// value.
type ModelConfig struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"display_name"`
	Tier          Tier     `json:"tier"`
	AvgTTFTMs     int      `json:"avg_ttft_ms"`
	AvgTokPerS    float64  `json:"avg_tokens_per_sec"`
	InCostPer1M   float64  `json:"input_cost_per_1m"`
	OutCostPer1M  float64  `json:"output_cost_per_1m"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     int      `json:"max_output_tokens"`
	Vision        bool     `json:"vision"`
	Streaming     bool     `json:"streaming"`
	Fallbacks     []string `json:"fallbacks,omitempty"`
}

// EstimatedCost returns the dollar cost for the given token counts.
func (m ModelConfig) EstimatedCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.InCostPer1M + float64(outputTokens)/1e6*m.OutCostPer1M
}

// DefaultCatalog returns the built-in model catalog. Pricing and throughput
// figures are rough published averages; they feed cost accounting and the
// fastest-model pick, not billing.
func DefaultCatalog() []ModelConfig {
	return []ModelConfig{
		{
			ID: "flash", DisplayName: "Gemini 2.0 Flash", Tier: TierSpeed,
			AvgTTFTMs: 250, AvgTokPerS: 190,
			InCostPer1M: 0.10, OutCostPer1M: 0.40,
			ContextWindow: 1_000_000, MaxOutput: 8192,
			Vision: true, Streaming: true,
			Fallbacks: []string{"mini", "haiku"},
		},
		{
			ID: "mini", DisplayName: "GPT-4o mini", Tier: TierSpeed,
			AvgTTFTMs: 350, AvgTokPerS: 140,
			InCostPer1M: 0.15, OutCostPer1M: 0.60,
			ContextWindow: 128_000, MaxOutput: 16_384,
			Vision: true, Streaming: true,
			Fallbacks: []string{"flash"},
		},
		{
			ID: "haiku", DisplayName: "Claude 3.5 Haiku", Tier: TierSpeed,
			AvgTTFTMs: 400, AvgTokPerS: 120,
			InCostPer1M: 0.80, OutCostPer1M: 4.00,
			ContextWindow: 200_000, MaxOutput: 8192,
			Streaming: true,
			Fallbacks: []string{"flash", "mini"},
		},
		{
			ID: "coder", DisplayName: "DeepSeek Coder V2", Tier: TierSpecialist,
			AvgTTFTMs: 600, AvgTokPerS: 80,
			InCostPer1M: 0.14, OutCostPer1M: 0.28,
			ContextWindow: 128_000, MaxOutput: 8192,
			Streaming: true,
			Fallbacks: []string{"mini", "flash"},
		},
		{
			ID: "gpt4o", DisplayName: "GPT-4o", Tier: TierIntelligence,
			AvgTTFTMs: 700, AvgTokPerS: 70,
			InCostPer1M: 2.50, OutCostPer1M: 10.00,
			ContextWindow: 128_000, MaxOutput: 16_384,
			Vision: true, Streaming: true,
			Fallbacks: []string{"sonnet", "mini"},
		},
		{
			ID: "sonnet", DisplayName: "Claude 3.7 Sonnet", Tier: TierIntelligence,
			AvgTTFTMs: 800, AvgTokPerS: 65,
			InCostPer1M: 3.00, OutCostPer1M: 15.00,
			ContextWindow: 200_000, MaxOutput: 64_000,
			Vision: true, Streaming: true,
			Fallbacks: []string{"gpt4o", "haiku"},
		},
		{
			ID: "opus", DisplayName: "Claude Opus 4", Tier: TierIntelligence,
			AvgTTFTMs: 1500, AvgTokPerS: 40,
			InCostPer1M: 15.00, OutCostPer1M: 75.00,
			ContextWindow: 200_000, MaxOutput: 32_000,
			Vision: true, Streaming: true,
			Fallbacks: []string{"sonnet", "gpt4o"},
		},
	}
}
