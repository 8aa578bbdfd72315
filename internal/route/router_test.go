package route_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/route"
)

func newRouter() (*route.Router, *llm.Registry) {
	reg := llm.NewRegistry(llm.DefaultCatalog())
	return route.New(reg), reg
}

func TestStrategyTable(t *testing.T) {
	r, _ := newRouter()

	cases := []struct {
		name string
		a    classify.TaskAnalysis
		want route.Strategy
	}{
		{"trivial single", classify.TaskAnalysis{TaskType: classify.TaskSimpleEdit, Complexity: classify.Trivial}, route.StrategySingle},
		{"simple single", classify.TaskAnalysis{TaskType: classify.TaskCodeFix, Complexity: classify.Simple}, route.StrategySingle},
		{"medium speculative", classify.TaskAnalysis{TaskType: classify.TaskUIComponent, Complexity: classify.Medium}, route.StrategySpeculative},
		{"complex parallel", classify.TaskAnalysis{TaskType: classify.TaskCodeGeneration, Complexity: classify.Complex}, route.StrategyParallel},
		{"expert ensemble", classify.TaskAnalysis{TaskType: classify.TaskComplexReasoning, Complexity: classify.Expert}, route.StrategyEnsemble},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := r.RouteAnalysis(tc.a)
			require.Equal(t, tc.want, d.Strategy)
			require.NotEmpty(t, d.Reasoning)
			require.True(t, d.StreamResponse)
		})
	}
}

func TestCriticalOverrideForcesParallel(t *testing.T) {
	r, _ := newRouter()

	a := classify.TaskAnalysis{TaskType: classify.TaskArchitecture, Complexity: classify.Simple, IsCritical: true}
	d := r.RouteAnalysis(a)
	require.Equal(t, route.StrategyParallel, d.Strategy)
	require.Contains(t, d.Reasoning, "critical")
}

func TestDesignOverrideForcesSpeculative(t *testing.T) {
	r, _ := newRouter()

	a := classify.TaskAnalysis{TaskType: classify.TaskUIComponent, Complexity: classify.Simple, IsDesignHeavy: true}
	d := r.RouteAnalysis(a)
	require.Equal(t, route.StrategySpeculative, d.Strategy)
}

func TestCriticalOverrideBeatsDesignOverride(t *testing.T) {
	r, _ := newRouter()

	a := classify.TaskAnalysis{
		TaskType:      classify.TaskDesignSystem,
		Complexity:    classify.Simple,
		IsDesignHeavy: true,
		IsCritical:    true,
	}
	d := r.RouteAnalysis(a)
	require.Equal(t, route.StrategyParallel, d.Strategy)
}

func TestOverridesNeverDowngrade(t *testing.T) {
	r, _ := newRouter()

	// Expert stays ensemble even when flagged critical or design-heavy.
	a := classify.TaskAnalysis{
		TaskType:      classify.TaskComplexReasoning,
		Complexity:    classify.Expert,
		IsCritical:    true,
		IsDesignHeavy: true,
	}
	d := r.RouteAnalysis(a)
	require.Equal(t, route.StrategyEnsemble, d.Strategy)
}

func TestExpertNeverRoutesSingle(t *testing.T) {
	r, _ := newRouter()

	for _, task := range []classify.TaskType{
		classify.TaskCodeGeneration, classify.TaskUIComponent, classify.TaskExplanation,
		classify.TaskArchitecture, classify.TaskComplexReasoning,
	} {
		d := r.RouteAnalysis(classify.TaskAnalysis{TaskType: task, Complexity: classify.Expert})
		require.NotEqual(t, route.StrategySingle, d.Strategy, "task %s", task)
	}
}

func TestDecisionModelsExistAndAreDistinct(t *testing.T) {
	r, reg := newRouter()

	analyses := []classify.TaskAnalysis{
		{TaskType: classify.TaskSimpleEdit, Complexity: classify.Trivial},
		{TaskType: classify.TaskUIComponent, Complexity: classify.Medium, IsDesignHeavy: true},
		{TaskType: classify.TaskCodeFix, Complexity: classify.Medium},
		{TaskType: classify.TaskExplanation, Complexity: classify.Medium},
		{TaskType: classify.TaskArchitecture, Complexity: classify.Complex, IsCritical: true},
		{TaskType: classify.TaskCodeGeneration, Complexity: classify.Complex},
		{TaskType: classify.TaskComplexReasoning, Complexity: classify.Expert},
	}

	for _, a := range analyses {
		d := r.RouteAnalysis(a)
		require.True(t, reg.Has(d.PrimaryModel), "primary %q", d.PrimaryModel)
		if d.ParallelModel != "" {
			require.True(t, reg.Has(d.ParallelModel), "parallel %q", d.ParallelModel)
			require.NotEqual(t, d.PrimaryModel, d.ParallelModel)
		}
		if d.FallbackModel != "" {
			require.True(t, reg.Has(d.FallbackModel), "fallback %q", d.FallbackModel)
			require.NotEqual(t, d.PrimaryModel, d.FallbackModel)
		}
	}
}

func TestCacheOnlyForSingleAndSpeculative(t *testing.T) {
	r, _ := newRouter()

	cases := []struct {
		complexity classify.Complexity
		want       bool
	}{
		{classify.Trivial, true},
		{classify.Medium, true},
		{classify.Complex, false},
		{classify.Expert, false},
	}
	for _, tc := range cases {
		d := r.RouteAnalysis(classify.TaskAnalysis{TaskType: classify.TaskCodeGeneration, Complexity: tc.complexity})
		require.Equal(t, tc.want, d.UseCache, "complexity %s", tc.complexity)
	}
}

func TestLatencyBudgetsPerStrategy(t *testing.T) {
	r, _ := newRouter()

	budget := func(c classify.Complexity) int {
		return r.RouteAnalysis(classify.TaskAnalysis{TaskType: classify.TaskCodeGeneration, Complexity: c}).MaxLatencyMs
	}
	require.Equal(t, 800, budget(classify.Trivial))
	require.Equal(t, 5_000, budget(classify.Medium))
	require.Equal(t, 20_000, budget(classify.Complex))
	require.Equal(t, 30_000, budget(classify.Expert))
}

func TestVisionSwapsPrimary(t *testing.T) {
	r, _ := newRouter()

	a := classify.TaskAnalysis{TaskType: classify.TaskExplanation, Complexity: classify.Simple, RequiresVision: true}
	d := r.RouteAnalysis(a)
	reg := llm.NewRegistry(llm.DefaultCatalog())
	m, ok := reg.Get(d.PrimaryModel)
	require.True(t, ok)
	require.True(t, m.Vision, "vision task routed to %q without vision support", d.PrimaryModel)
}

func TestParallelUpgradesArchitectureToStrongestModel(t *testing.T) {
	r, _ := newRouter()

	d := r.RouteAnalysis(classify.TaskAnalysis{TaskType: classify.TaskArchitecture, Complexity: classify.Complex, IsCritical: true})
	require.Equal(t, route.StrategyParallel, d.Strategy)
	require.Equal(t, "opus", d.PrimaryModel)
}

func TestRouteIsDeterministic(t *testing.T) {
	r, _ := newRouter()

	prompt := "build a responsive navbar component with dark mode support and animations"
	first := r.Route(prompt, classify.Context{})
	for i := 0; i < 20; i++ {
		require.Equal(t, first, r.Route(prompt, classify.Context{}))
	}
}
