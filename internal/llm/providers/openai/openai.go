package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/polyroute/polyroute/internal/llm"
)

// Provider implements an OpenAI-compatible streaming chat client. Any gateway
// speaking the /v1/chat/completions SSE dialect plugs in here.
type Provider struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// NewProvider constructs a Provider with sane defaults. rps caps outbound
// request rate; 0 disables limiting.
func NewProvider(name, baseURL, apiKey string, timeout time.Duration, rps float64) *Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}

	return &Provider{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: limiter,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Stream issues a streaming completion and forwards SSE deltas as chunks.
func (p *Provider) Stream(ctx context.Context, call llm.Call) (<-chan llm.StreamChunk, <-chan error) {
	ch := make(chan llm.StreamChunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(errCh)

		if err := p.stream(ctx, call, ch); err != nil {
			errCh <- err
		}
	}()

	return ch, errCh
}

func (p *Provider) stream(ctx context.Context, call llm.Call, out chan<- llm.StreamChunk) error {
	if call.Model == "" {
		return fmt.Errorf("model is required")
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	messages := make([]chatMessage, 0, 2)
	if call.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: call.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: call.Prompt})

	body := chatRequest{
		Model:       call.Model,
		Messages:    messages,
		MaxTokens:   call.MaxTokens,
		Temperature: call.Temperature,
		Stream:      true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("openai: status %d: %s", res.StatusCode, string(b))
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var usage llm.Usage
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		if ev.Usage != nil {
			usage = llm.Usage{
				PromptTokens:     ev.Usage.PromptTokens,
				CompletionTokens: ev.Usage.CompletionTokens,
				TotalTokens:      ev.Usage.TotalTokens,
			}
		}
		if len(ev.Choices) == 0 {
			continue
		}
		choice := ev.Choices[0]
		if choice.Delta.Content != "" {
			select {
			case out <- llm.StreamChunk{Content: choice.Delta.Content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if choice.FinishReason != "" {
			select {
			case out <- llm.StreamChunk{FinishReason: choice.FinishReason, Usage: usage}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   float64        `json:"temperature,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

var _ llm.Provider = (*Provider)(nil)
