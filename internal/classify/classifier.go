// Package classify turns a free-text prompt plus build context into a
// structured task analysis. All functions are pure: no I/O, no shared state,
// deterministic for identical input. Classification never fails; unmatched
// input resolves to a safe default so routing always has something to act on.
package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Category patterns. The match order in Classify is load-bearing: categories
// are tested in a fixed priority sequence and the first hit wins, which keeps
// ambiguous prompts ("fix the button") deterministic.
var (
	designSystemRe = regexp.MustCompile(`design system|component library|style guide|design tokens`)
	uiRe           = regexp.MustCompile(`\b(button|component|form|modal|navbar|sidebar|landing page|frontend|layout|css|tailwind|responsive|animation|page|ui)\b`)
	debugRe        = regexp.MustCompile(`\b(debug|stack trace|traceback|breakpoint|root cause)\b`)
	fixRe          = regexp.MustCompile(`\b(fix|bug|broken|crash|typo|issue)\b|doesn'?t work|not working`)
	testingRe      = regexp.MustCompile(`\b(test|tests|testing|unit test|integration test|coverage|e2e)\b`)
	refactorRe     = regexp.MustCompile(`\b(refactor|clean up|cleanup|simplify|restructure|extract|decouple)\b`)
	apiRe          = regexp.MustCompile(`\b(api|endpoint|rest|graphql|webhook|grpc|openapi)\b`)
	databaseRe     = regexp.MustCompile(`\b(database|schema|sql|query|migration|postgres|mysql|mongo|orm|index)\b`)
	docsRe         = regexp.MustCompile(`\b(document|documentation|docs|readme|docstring|changelog)\b`)
	explainRe      = regexp.MustCompile(`\b(explain|understand|clarify)\b|what is|what does|how does|how do|why does|walk me through`)
	architectureRe = regexp.MustCompile(`\b(architect|architecture|system design|microservices?|infrastructure|high availability|load balanc\w*)\b`)
	criticalRe     = regexp.MustCompile(`\b(auth|authentication|oauth|login|payment|billing|subscription|checkout|security|encryption|compliance|production|data migration)\b`)
	expertRe       = regexp.MustCompile(`machine learning|neural network|\b(compiler|interpreter|cryptography|blockchain|consensus|raft|paxos|scheduler|kernel)\b|formal verification|operating system`)
	complexRe      = regexp.MustCompile(`\b(distributed|real-?time|concurren\w*|scalab\w*|multi-tenant|full-?stack|end-to-end|event-driven|sharding|replication)\b`)
	trivialRe      = regexp.MustCompile(`\b(typo|rename|indent|spacing|semicolon|whitespace|one line|single line|comment out)\b`)
	simpleEditRe   = regexp.MustCompile(`^(change|update|set|tweak|adjust|replace|bump)\b`)
	designRe       = regexp.MustCompile(`\b(beautiful|stunning|elegant|sleek|polished|glassmorphism|gradient|dark mode|hero section|branding|aesthetic|pixel-perfect|landing page)\b`)
	visionRe       = regexp.MustCompile(`\b(image|images|screenshot|figma|mockup|photo|picture|wireframe)\b`)
)

// Classify maps a prompt to its task type using the fixed priority order:
// UI > fix > testing > refactor > API > database > explanation >
// architecture/critical > expert reasoning > default code generation.
func Classify(prompt string) TaskType {
	p := strings.ToLower(prompt)

	switch {
	case designSystemRe.MatchString(p):
		return TaskDesignSystem
	case uiRe.MatchString(p):
		return TaskUIComponent
	case debugRe.MatchString(p):
		return TaskDebugging
	case fixRe.MatchString(p):
		return TaskCodeFix
	case testingRe.MatchString(p):
		return TaskTesting
	case refactorRe.MatchString(p):
		return TaskCodeRefactor
	case apiRe.MatchString(p):
		return TaskAPIDesign
	case databaseRe.MatchString(p):
		return TaskDatabase
	case docsRe.MatchString(p):
		return TaskDocumentation
	case explainRe.MatchString(p):
		return TaskExplanation
	case architectureRe.MatchString(p), criticalRe.MatchString(p):
		return TaskArchitecture
	case expertRe.MatchString(p):
		return TaskComplexReasoning
	case len(prompt) < 80 && simpleEditRe.MatchString(p):
		return TaskSimpleEdit
	default:
		return TaskCodeGeneration
	}
}

// EstimateComplexity runs the short-circuit complexity cascade. Stronger
// signals are checked first, so an expert keyword can only raise, never
// lower, the result of weaker signals evaluated later.
func EstimateComplexity(prompt string, ctx Context) Complexity {
	p := strings.ToLower(prompt)

	if len(prompt) < 50 {
		return Trivial
	}
	if trivialRe.MatchString(p) {
		return Trivial
	}
	if expertRe.MatchString(p) {
		return Expert
	}
	if complexRe.MatchString(p) {
		return Complex
	}
	if designRe.MatchString(p) {
		if len(prompt) > 500 {
			return Complex
		}
		return Medium
	}
	if criticalRe.MatchString(p) || architectureRe.MatchString(p) {
		return Complex
	}

	switch {
	case ctx.FileCount > 20 || len(prompt) > 1000:
		return Complex
	case ctx.FileCount > 10 || len(prompt) > 500:
		return Medium
	case ctx.FileCount > 5 || len(prompt) > 200:
		return Simple
	default:
		return Trivial
	}
}

// Analyze produces the full task analysis for one prompt.
func Analyze(prompt string, ctx Context) TaskAnalysis {
	p := strings.ToLower(prompt)

	taskType := Classify(prompt)
	complexity := EstimateComplexity(prompt, ctx)

	signals := Signals{
		UI:           uiRe.MatchString(p),
		DesignSystem: designSystemRe.MatchString(p),
		Fix:          fixRe.MatchString(p),
		Debug:        debugRe.MatchString(p),
		Testing:      testingRe.MatchString(p),
		Refactor:     refactorRe.MatchString(p),
		API:          apiRe.MatchString(p),
		Database:     databaseRe.MatchString(p),
		Explanation:  explainRe.MatchString(p),
		Docs:         docsRe.MatchString(p),
		Architecture: architectureRe.MatchString(p),
		Critical:     criticalRe.MatchString(p),
		Expert:       expertRe.MatchString(p),
		Complex:      complexRe.MatchString(p),
		TrivialWords: trivialRe.MatchString(p),
		Design:       designRe.MatchString(p),
		Vision:       visionRe.MatchString(p),
	}

	isDesignHeavy := signals.Design || taskType == TaskDesignSystem
	isCritical := signals.Critical || taskType == TaskArchitecture || complexity >= Complex
	requiresVision := signals.Vision || ctx.HasImages

	estimated := len(prompt)/4 + ctx.FileCount*500 + complexity.BaseTokens()
	if prompt != "" && estimated <= 0 {
		estimated = 1
	}

	var b strings.Builder
	b.WriteString(taskType.Rationale())
	fmt.Fprintf(&b, "; complexity %s (%s)", complexity, complexityRationale(prompt, ctx, complexity))
	if isDesignHeavy {
		b.WriteString("; design-heavy")
	}
	if isCritical {
		b.WriteString("; critical path")
	}
	if requiresVision {
		b.WriteString("; needs vision")
	}

	return TaskAnalysis{
		TaskType:        taskType,
		Complexity:      complexity,
		EstimatedTokens: estimated,
		RequiresVision:  requiresVision,
		IsDesignHeavy:   isDesignHeavy,
		IsCritical:      isCritical,
		Reason:          b.String(),
		Signals:         signals,
	}
}

// complexityRationale names the cascade branch that produced the estimate.
// It mirrors EstimateComplexity so the reason string cannot disagree with
// the chosen level.
func complexityRationale(prompt string, ctx Context, c Complexity) string {
	p := strings.ToLower(prompt)

	switch {
	case len(prompt) < 50:
		return "short prompt"
	case trivialRe.MatchString(p):
		return "trivial keywords"
	case expertRe.MatchString(p):
		return "expert keywords"
	case complexRe.MatchString(p):
		return "complex keywords"
	case designRe.MatchString(p):
		if c == Complex {
			return "design-heavy long prompt"
		}
		return "design-heavy prompt"
	case criticalRe.MatchString(p) || architectureRe.MatchString(p):
		return "critical-system keywords"
	case ctx.FileCount > 0:
		return fmt.Sprintf("%d files, %d chars", ctx.FileCount, len(prompt))
	default:
		return fmt.Sprintf("%d chars", len(prompt))
	}
}
