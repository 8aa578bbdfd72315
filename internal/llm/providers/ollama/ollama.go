package ollama

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

// Provider implements a minimal Ollama streaming chat client.
type Provider struct {
	name    string
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewProvider constructs an Ollama provider. rps caps outbound request rate;
// 0 disables limiting.
func NewProvider(name, baseURL string, timeout time.Duration, rps float64) *Provider {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}

	return &Provider{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Stream issues a streaming chat request and forwards NDJSON fragments.
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
		Model:    call.Model,
		Messages: messages,
		Stream:   true,
		Options: map[string]interface{}{
			"temperature": call.Temperature,
			"num_predict": call.MaxTokens,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ollama: status %d: %s", res.StatusCode, string(b))
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frag chatFragment
		if err := json.Unmarshal(line, &frag); err != nil {
			return fmt.Errorf("decode fragment: %w", err)
		}
		chunk := llm.StreamChunk{Content: frag.Message.Content}
		if frag.Done {
			chunk.FinishReason = "stop"
			chunk.Usage = llm.Usage{
				PromptTokens:     frag.PromptEvalCount,
				CompletionTokens: frag.EvalCount,
				TotalTokens:      frag.PromptEvalCount + frag.EvalCount,
			}
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
		if frag.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFragment struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

var _ llm.Provider = (*Provider)(nil)
