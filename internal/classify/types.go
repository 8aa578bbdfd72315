package classify

// TaskType is the closed set of task categories the classifier can produce.
type TaskType string

const (
	TaskCodeGeneration   TaskType = "code_generation"
	TaskCodeFix          TaskType = "code_fix"
	TaskCodeRefactor     TaskType = "code_refactor"
	TaskUIComponent      TaskType = "ui_component"
	TaskAPIDesign        TaskType = "api_design"
	TaskDatabase         TaskType = "database"
	TaskExplanation      TaskType = "explanation"
	TaskDocumentation    TaskType = "documentation"
	TaskArchitecture     TaskType = "architecture"
	TaskTesting          TaskType = "testing"
	TaskDebugging        TaskType = "debugging"
	TaskComplexReasoning TaskType = "complex_reasoning"
	TaskDesignSystem     TaskType = "design_system"
	TaskSimpleEdit       TaskType = "simple_edit"
)

// Rationale returns the human-readable reason fragment for a task type. The
// strings live in the same switch as the type set so they cannot drift from
// the classification logic.
func (t TaskType) Rationale() string {
	switch t {
	case TaskUIComponent:
		return "UI/component keywords detected"
	case TaskDesignSystem:
		return "design-system keywords detected"
	case TaskCodeFix:
		return "fix/bug keywords detected"
	case TaskDebugging:
		return "debugging keywords detected"
	case TaskTesting:
		return "testing keywords detected"
	case TaskCodeRefactor:
		return "refactoring keywords detected"
	case TaskAPIDesign:
		return "API design keywords detected"
	case TaskDatabase:
		return "database keywords detected"
	case TaskExplanation:
		return "explanation request detected"
	case TaskDocumentation:
		return "documentation request detected"
	case TaskArchitecture:
		return "architecture/critical-system keywords detected"
	case TaskComplexReasoning:
		return "expert-level reasoning keywords detected"
	case TaskSimpleEdit:
		return "small edit request detected"
	case TaskCodeGeneration:
		return "general code generation (default)"
	default:
		return "unclassified"
	}
}

// Complexity is the ordinal 1–5 difficulty estimate.
type Complexity int

const (
	Trivial Complexity = iota + 1
	Simple
	Medium
	Complex
	Expert
)

// String renders the complexity label.
func (c Complexity) String() string {
	switch c {
	case Trivial:
		return "trivial"
	case Simple:
		return "simple"
	case Medium:
		return "medium"
	case Complex:
		return "complex"
	case Expert:
		return "expert"
	default:
		return "unknown"
	}
}

// BaseTokens returns the output-token floor assumed for the complexity level,
// used by the token estimator.
func (c Complexity) BaseTokens() int {
	switch c {
	case Trivial:
		return 200
	case Simple:
		return 500
	case Medium:
		return 1500
	case Complex:
		return 4000
	case Expert:
		return 8000
	default:
		return 500
	}
}

// Signals records which heuristic categories fired during analysis.
type Signals struct {
	UI           bool `json:"ui,omitempty"`
	DesignSystem bool `json:"design_system,omitempty"`
	Fix          bool `json:"fix,omitempty"`
	Debug        bool `json:"debug,omitempty"`
	Testing      bool `json:"testing,omitempty"`
	Refactor     bool `json:"refactor,omitempty"`
	API          bool `json:"api,omitempty"`
	Database     bool `json:"database,omitempty"`
	Explanation  bool `json:"explanation,omitempty"`
	Docs         bool `json:"docs,omitempty"`
	Architecture bool `json:"architecture,omitempty"`
	Critical     bool `json:"critical,omitempty"`
	Expert       bool `json:"expert,omitempty"`
	Complex      bool `json:"complex,omitempty"`
	TrivialWords bool `json:"trivial_words,omitempty"`
	Design       bool `json:"design,omitempty"`
	Vision       bool `json:"vision,omitempty"`
}

// Context carries the build-context signals the classifier consumes.
type Context struct {
	FileCount int
	HasImages bool
}

// TaskAnalysis is the structured result of analyzing one prompt.
type TaskAnalysis struct {
	TaskType        TaskType   `json:"task_type"`
	Complexity      Complexity `json:"complexity"`
	EstimatedTokens int        `json:"estimated_tokens"`
	RequiresVision  bool       `json:"requires_vision"`
	IsDesignHeavy   bool       `json:"is_design_heavy"`
	IsCritical      bool       `json:"is_critical"`
	Reason          string     `json:"reason"`
	Signals         Signals    `json:"signals"`
}
