// Package route maps a task analysis onto a concrete execution plan: which
// strategy to run, which models to involve, and how long the executor may
// spend. Routing is stateless — every decision is a pure function of the
// analysis plus the static model registry, so decisions can be replayed in
// tests without side effects.
package route

import (
	"fmt"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/llm"
)

// Per-strategy latency ceilings, enforced per attempt by the executor.
const (
	singleLatencyMs      = 800
	speculativeLatencyMs = 5_000
	parallelLatencyMs    = 20_000
	ensembleLatencyMs    = 30_000
)

// Router turns task analyses into routing decisions against a registry.
type Router struct {
	registry *llm.Registry
}

// New constructs a Router over the given registry.
func New(registry *llm.Registry) *Router {
	return &Router{registry: registry}
}

// Route classifies the prompt and derives the execution plan.
func (r *Router) Route(prompt string, ctx classify.Context) RoutingDecision {
	return r.RouteAnalysis(classify.Analyze(prompt, ctx))
}

// RouteAnalysis derives the execution plan from an existing analysis. The
// orchestrator uses this entry point when a caller forces the complexity.
func (r *Router) RouteAnalysis(a classify.TaskAnalysis) RoutingDecision {
	strategy, override := strategyFor(a)

	var d RoutingDecision
	switch strategy {
	case StrategySingle:
		d = r.routeSingle(a)
	case StrategySpeculative:
		d = r.routeSpeculative(a)
	case StrategyParallel:
		d = r.routeParallel(a)
	case StrategyEnsemble:
		d = r.routeEnsemble(a)
	}

	d.StreamResponse = true
	// Racing/consensus output is not deterministic enough to reuse.
	d.UseCache = strategy == StrategySingle || strategy == StrategySpeculative
	reason := fmt.Sprintf("%s: %s", strategy, strategy.Rationale())
	if override != "" {
		reason += " (" + override + ")"
	}
	d.Reasoning = reason + "; " + a.Reason
	return d
}

// strategyFor applies the complexity→strategy table and the two overrides.
// Criticality and design requirements justify spending more compute even when
// raw text complexity looks low; the critical override wins when both apply.
func strategyFor(a classify.TaskAnalysis) (Strategy, string) {
	var s Strategy
	switch a.Complexity {
	case classify.Trivial, classify.Simple:
		s = StrategySingle
	case classify.Medium:
		s = StrategySpeculative
	case classify.Complex:
		s = StrategyParallel
	default:
		s = StrategyEnsemble
	}

	if a.IsCritical && a.Complexity < classify.Complex {
		return StrategyParallel, "forced parallel: critical task"
	}
	if a.IsDesignHeavy && a.Complexity < classify.Medium {
		return StrategySpeculative, "forced speculative: design-heavy task"
	}
	return s, ""
}

func (r *Router) routeSingle(a classify.TaskAnalysis) RoutingDecision {
	var primary llm.ModelConfig
	if a.Complexity == classify.Trivial {
		primary, _ = r.registry.Fastest()
	} else {
		primary = r.speedModelFor(a.TaskType)
	}
	primary = r.ensureVision(primary, a.RequiresVision)

	d := RoutingDecision{
		Strategy:     StrategySingle,
		PrimaryModel: primary.ID,
		MaxLatencyMs: singleLatencyMs,
	}
	if fb, ok := r.registry.Fallback(primary.ID); ok {
		d.FallbackModel = fb.ID
	}
	return d
}

func (r *Router) routeSpeculative(a classify.TaskAnalysis) RoutingDecision {
	// Fast model starts streaming immediately; the stronger parallel model
	// validates without being streamed.
	var fast, smart string
	switch {
	case a.RequiresVision || a.IsDesignHeavy || a.TaskType == classify.TaskUIComponent || a.TaskType == classify.TaskDesignSystem:
		fast, smart = "flash", "gpt4o"
	case isCodeTask(a.TaskType):
		fast, smart = "coder", "sonnet"
	default:
		fast, smart = "haiku", "sonnet"
	}

	return RoutingDecision{
		Strategy:      StrategySpeculative,
		PrimaryModel:  fast,
		ParallelModel: smart,
		FallbackModel: "mini",
		MaxLatencyMs:  speculativeLatencyMs,
	}
}

func (r *Router) routeParallel(a classify.TaskAnalysis) RoutingDecision {
	// Two intelligence-tier models race; a third model backstops both.
	primary, secondary, fallback := "sonnet", "gpt4o", "haiku"
	switch {
	case a.TaskType == classify.TaskArchitecture || a.TaskType == classify.TaskDesignSystem:
		primary, secondary, fallback = "opus", "sonnet", "gpt4o"
	case isCodeTask(a.TaskType):
		primary, secondary, fallback = "sonnet", "gpt4o", "mini"
	}

	return RoutingDecision{
		Strategy:      StrategyParallel,
		PrimaryModel:  primary,
		ParallelModel: secondary,
		FallbackModel: fallback,
		MaxLatencyMs:  parallelLatencyMs,
	}
}

func (r *Router) routeEnsemble(a classify.TaskAnalysis) RoutingDecision {
	// The two strongest models: one produces, one verifies.
	return RoutingDecision{
		Strategy:      StrategyEnsemble,
		PrimaryModel:  "opus",
		ParallelModel: "gpt4o",
		FallbackModel: "sonnet",
		MaxLatencyMs:  ensembleLatencyMs,
	}
}

// speedModelFor picks the speed-tier model specialized for a task type.
func (r *Router) speedModelFor(t classify.TaskType) llm.ModelConfig {
	var id string
	switch {
	case t == classify.TaskUIComponent || t == classify.TaskDesignSystem:
		id = "flash"
	case t == classify.TaskExplanation || t == classify.TaskDocumentation:
		id = "haiku"
	default:
		id = "mini"
	}
	if m, ok := r.registry.Get(id); ok {
		return m
	}
	m, _ := r.registry.Fastest()
	return m
}

// ensureVision swaps in a vision-capable speed model when the task needs one.
func (r *Router) ensureVision(m llm.ModelConfig, needsVision bool) llm.ModelConfig {
	if !needsVision || m.Vision {
		return m
	}
	for _, cand := range r.registry.ByTier(llm.TierSpeed) {
		if cand.Vision {
			return cand
		}
	}
	return m
}

func isCodeTask(t classify.TaskType) bool {
	switch t {
	case classify.TaskCodeGeneration, classify.TaskCodeFix, classify.TaskCodeRefactor,
		classify.TaskDebugging, classify.TaskTesting, classify.TaskSimpleEdit,
		classify.TaskAPIDesign, classify.TaskDatabase:
		return true
	default:
		return false
	}
}
