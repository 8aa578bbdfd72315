package llm

import "context"

// Tier buckets models by what they are good at.
type Tier string

const (
	TierSpeed        Tier = "speed"
	TierIntelligence Tier = "intelligence"
	TierSpecialist   Tier = "specialist"
)

// Call is the input for a single model invocation. All executor strategies
// issue calls through this one shape regardless of the provider behind it.
type Call struct {
	Model        string
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Usage captures token accounting reported by a provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamChunk is emitted during streaming responses. A terminal chunk carries
// a non-empty FinishReason; Usage is populated on the terminal chunk when the
// provider reports it.
type StreamChunk struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Caller is the model-calling capability consumed by the executor. It accepts
// a prompt and produces an ordered token/text stream; errors arrive on the
// second channel and both channels are closed when the call ends.
type Caller interface {
	Call(ctx context.Context, call Call) (<-chan StreamChunk, <-chan error)
}

// Provider is a concrete backend that can stream completions for the physical
// model names bound to it in the registry.
type Provider interface {
	Name() string
	Stream(ctx context.Context, call Call) (<-chan StreamChunk, <-chan error)
}
