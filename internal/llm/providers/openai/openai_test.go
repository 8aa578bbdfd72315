package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polyroute/polyroute/internal/llm"
)

func TestStreamParsesSSEDeltas(t *testing.T) {
	t.Parallel()

	p := NewProvider("openai", "http://mock", "key", 5*time.Second, 0)
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/v1/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var reqBody map[string]interface{}
			require.NoError(t, json.Unmarshal(body, &reqBody))
			require.Equal(t, "gpt-4o-mini", reqBody["model"])
			require.Equal(t, true, reqBody["stream"])

			sse := strings.Join([]string{
				`data: {"choices":[{"delta":{"content":"hel"}}]}`,
				`data: {"choices":[{"delta":{"content":"lo"}}]}`,
				`data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":3,"total_tokens":5}}`,
				`data: [DONE]`,
				"",
			}, "\n")

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(sse)),
			}, nil
		}),
	}

	ch, errCh := p.Stream(context.Background(), llm.Call{
		Model:  "gpt-4o-mini",
		Prompt: "hi",
	})

	var content string
	var finish llm.StreamChunk
	for c := range ch {
		if c.FinishReason != "" {
			finish = c
			continue
		}
		content += c.Content
	}
	require.NoError(t, <-errCh)
	require.Equal(t, "hello", content)
	require.Equal(t, "stop", finish.FinishReason)
	require.Equal(t, 5, finish.Usage.TotalTokens)
}

func TestStreamIncludesSystemPrompt(t *testing.T) {
	t.Parallel()

	p := NewProvider("openai", "http://mock", "", 0, 0)
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var reqBody struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			require.NoError(t, json.Unmarshal(body, &reqBody))
			require.Len(t, reqBody.Messages, 2)
			require.Equal(t, "system", reqBody.Messages[0].Role)
			require.Equal(t, "user", reqBody.Messages[1].Role)

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("data: [DONE]\n")),
			}, nil
		}),
	}

	ch, errCh := p.Stream(context.Background(), llm.Call{
		Model:        "gpt-4o-mini",
		Prompt:       "hi",
		SystemPrompt: "be brief",
	})
	for range ch {
	}
	require.NoError(t, <-errCh)
}

func TestStreamSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	p := NewProvider("openai", "http://mock", "", 0, 0)
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"error":"rate limited"}`)),
			}, nil
		}),
	}

	ch, errCh := p.Stream(context.Background(), llm.Call{Model: "gpt-4o-mini", Prompt: "hi"})
	for range ch {
	}
	err := <-errCh
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
