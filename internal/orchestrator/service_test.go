package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polyroute/polyroute/internal/classify"
	"github.com/polyroute/polyroute/internal/executor"
	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/llm/mock"
	"github.com/polyroute/polyroute/internal/orchestrator"
	"github.com/polyroute/polyroute/internal/route"
)

func newService(caller *mock.Caller) *orchestrator.Service {
	reg := llm.NewRegistry(llm.DefaultCatalog())
	router := route.New(reg)
	exec := executor.New(caller, nil)
	return orchestrator.New(reg, router, exec, nil, nil, orchestrator.NewTelemetryBuffer(100, 50))
}

func TestTrivialFixRunsSingleOnFastestModel(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Output: []string{"Fixed the typo."}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt: "fix the typo in the header",
	})
	require.NoError(t, err)

	require.Equal(t, classify.TaskCodeFix, resp.TaskAnalysis.TaskType)
	require.Equal(t, classify.Trivial, resp.TaskAnalysis.Complexity)
	require.Equal(t, route.StrategySingle, resp.Strategy)
	require.Equal(t, "flash", resp.Model)
	require.Equal(t, "Fixed the typo.", resp.Content)
	require.False(t, resp.WasEnhanced)
}

func TestDesignHeavyUIRunsSpeculative(t *testing.T) {
	caller := mock.NewCaller()
	answer := "<section class=\"hero\">landing page</section>"
	caller.ScriptModel("flash", mock.Script{Output: []string{answer}})
	caller.ScriptModel("gpt4o", mock.Script{Output: []string{answer}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt: "build a stunning landing page with a hero section, gradients and dark mode animations",
	})
	require.NoError(t, err)

	require.Equal(t, classify.TaskUIComponent, resp.TaskAnalysis.TaskType)
	require.True(t, resp.TaskAnalysis.IsDesignHeavy)
	require.Equal(t, route.StrategySpeculative, resp.Strategy)
	require.Equal(t, "flash", resp.RoutingDecision.PrimaryModel)
	require.Equal(t, "gpt4o", resp.RoutingDecision.ParallelModel)
	require.Equal(t, answer, resp.Content)
}

func TestCriticalArchitectureRunsParallelOnStrongestModel(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("opus", mock.Script{Output: []string{"Split auth and payments into isolated services."}})
	caller.ScriptModel("sonnet", mock.Script{Output: []string{"slower take"}, StartDelay: 400 * time.Millisecond})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt: "design the authentication and payment architecture for our distributed real-time platform",
	})
	require.NoError(t, err)

	require.Equal(t, classify.TaskArchitecture, resp.TaskAnalysis.TaskType)
	require.True(t, resp.TaskAnalysis.IsCritical)
	require.Equal(t, route.StrategyParallel, resp.Strategy)
	require.Equal(t, "opus", resp.RoutingDecision.PrimaryModel)
	require.Equal(t, "opus", resp.Model)
	require.False(t, resp.RoutingDecision.UseCache)
}

func TestExpertReasoningRunsEnsemble(t *testing.T) {
	caller := mock.NewCaller()
	answer := "log entries are committed once replicated to a quorum"
	caller.ScriptModel("opus", mock.Script{Output: []string{answer}})
	caller.ScriptModel("gpt4o", mock.Script{Output: []string{"entries are committed once replicated to a quorum"}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt: "implement a raft consensus log replication protocol with formal verification of safety invariants",
	})
	require.NoError(t, err)

	require.Equal(t, classify.TaskComplexReasoning, resp.TaskAnalysis.TaskType)
	require.Equal(t, classify.Expert, resp.TaskAnalysis.Complexity)
	require.Equal(t, route.StrategyEnsemble, resp.Strategy)
	require.Equal(t, answer, resp.Content)
}

func TestEmptyPromptRejected(t *testing.T) {
	svc := newService(mock.NewCaller())
	_, err := svc.Generate(context.Background(), orchestrator.GenerationRequest{Prompt: "   "})
	require.Error(t, err)
}

func TestForceModelCollapsesToSingle(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("sonnet", mock.Script{Output: []string{"forced answer"}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt:     "design the authentication and payment architecture for our distributed real-time platform",
		ForceModel: "sonnet",
	})
	require.NoError(t, err)

	require.Equal(t, route.StrategySingle, resp.Strategy)
	require.Equal(t, "sonnet", resp.RoutingDecision.PrimaryModel)
	require.Equal(t, "forced answer", resp.Content)
	// Analysis is still computed even when the model choice is bypassed.
	require.Equal(t, classify.TaskArchitecture, resp.TaskAnalysis.TaskType)
}

func TestForceUnknownModelKeepsRoutedDecision(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Output: []string{"ok"}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt:     "fix the typo in the header",
		ForceModel: "gpt-7-ultra",
	})
	require.NoError(t, err)
	require.Equal(t, "flash", resp.RoutingDecision.PrimaryModel)
}

func TestForceComplexityRaisesStrategy(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("opus", mock.Script{Output: []string{"deep answer"}})
	caller.ScriptModel("gpt4o", mock.Script{Output: []string{"deep answer"}})

	svc := newService(caller)
	resp, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt:          "fix the typo in the header",
		ForceComplexity: classify.Expert,
	})
	require.NoError(t, err)
	require.Equal(t, route.StrategyEnsemble, resp.Strategy)
	require.Equal(t, classify.Expert, resp.TaskAnalysis.Complexity)
}

func TestStatsAccumulateAcrossRequests(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Output: []string{"first answer with some length"}})

	svc := newService(caller)
	for i := 0; i < 3; i++ {
		_, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
			Prompt: "fix the typo in the header",
		})
		require.NoError(t, err)
	}

	stats := svc.GetStats()
	require.Equal(t, int64(3), stats.RequestCount)
	require.Greater(t, stats.TotalCost, 0.0)
	require.Greater(t, stats.TotalTokens, int64(0))
	require.InDelta(t, stats.TotalCost/3, stats.AverageCostPerRequest, 1e-12)
}

func TestTelemetryRecordsHashNotPrompt(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Output: []string{"done"}})

	svc := newService(caller)
	prompt := "fix the typo in the header"
	_, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{Prompt: prompt})
	require.NoError(t, err)

	records := svc.GetAndClearTelemetry()
	require.Len(t, records, 1)
	rec := records[0]
	require.True(t, rec.Success)
	require.Equal(t, "flash", rec.UsedModel)
	require.Equal(t, route.StrategySingle, rec.Strategy)
	require.NotEmpty(t, rec.PromptHash)
	require.NotContains(t, rec.PromptHash, "typo")
	require.Greater(t, rec.CostUSD, 0.0)

	// Drain clears.
	require.Empty(t, svc.GetAndClearTelemetry())
}

func TestTelemetryRecordsFailures(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Err: errors.New("down")})
	caller.ScriptModel("mini", mock.Script{Err: errors.New("down")})

	svc := newService(caller)
	gen, err := svc.Generate(context.Background(), orchestrator.GenerationRequest{
		Prompt: "fix the typo in the header",
	})
	require.NoError(t, err)
	for range gen.Chunks {
	}

	records := svc.GetAndClearTelemetry()
	require.Len(t, records, 1)
	require.False(t, records[0].Success)
	require.NotEmpty(t, records[0].Error)
}

func TestGenerateSyncSurfacesExecutionError(t *testing.T) {
	caller := mock.NewCaller()
	caller.ScriptModel("flash", mock.Script{Err: errors.New("down")})
	caller.ScriptModel("mini", mock.Script{Err: errors.New("down")})

	svc := newService(caller)
	_, err := svc.GenerateSync(context.Background(), orchestrator.GenerationRequest{
		Prompt: "fix the typo in the header",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "flash")
}
