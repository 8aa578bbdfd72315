package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polyroute/polyroute/internal/llm"
)

// Script describes how a mocked model behaves for one request.
type Script struct {
	// Output pieces are emitted as individual text chunks.
	Output []string
	// StartDelay postpones the first chunk, ChunkDelay spaces the rest.
	StartDelay time.Duration
	ChunkDelay time.Duration
	// FailAfter emits that many output pieces and then Err. -1 (the default
	// via NewCaller) means the full output is emitted and Err, if set, ends
	// the stream instead of a finish chunk.
	FailAfter int
	Err       error
	Usage     llm.Usage
}

// Caller is a scripted test double for the model-caller seam.
type Caller struct {
	mu      sync.Mutex
	scripts map[string]Script
	calls   []string
}

// NewCaller creates an empty scripted caller.
func NewCaller() *Caller {
	return &Caller{scripts: make(map[string]Script)}
}

// ScriptModel installs the behavior for a model id.
func (c *Caller) ScriptModel(model string, s Script) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.FailAfter == 0 && s.Err == nil {
		s.FailAfter = -1
	}
	c.scripts[model] = s
}

// Calls returns the model ids invoked so far, in call order.
func (c *Caller) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Call replays the script for the requested model.
func (c *Caller) Call(ctx context.Context, call llm.Call) (<-chan llm.StreamChunk, <-chan error) {
	c.mu.Lock()
	c.calls = append(c.calls, call.Model)
	script, ok := c.scripts[call.Model]
	c.mu.Unlock()

	ch := make(chan llm.StreamChunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(errCh)

		if !ok {
			errCh <- fmt.Errorf("mock: no script for model %q", call.Model)
			return
		}
		if !sleep(ctx, script.StartDelay) {
			errCh <- ctx.Err()
			return
		}
		for i, piece := range script.Output {
			if script.Err != nil && script.FailAfter >= 0 && i >= script.FailAfter {
				errCh <- script.Err
				return
			}
			if i > 0 && !sleep(ctx, script.ChunkDelay) {
				errCh <- ctx.Err()
				return
			}
			select {
			case ch <- llm.StreamChunk{Content: piece}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if script.Err != nil {
			errCh <- script.Err
			return
		}
		select {
		case ch <- llm.StreamChunk{FinishReason: "stop", Usage: script.Usage}:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return ch, errCh
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ llm.Caller = (*Caller)(nil)

// Provider is a thin llm.Provider wrapper over a scripted Caller, for
// registry-level tests.
type Provider struct {
	NameValue string
	Scripts   *Caller
}

func (p *Provider) Name() string {
	if p.NameValue != "" {
		return p.NameValue
	}
	return "mock"
}

func (p *Provider) Stream(ctx context.Context, call llm.Call) (<-chan llm.StreamChunk, <-chan error) {
	if p.Scripts != nil {
		return p.Scripts.Call(ctx, call)
	}
	ch := make(chan llm.StreamChunk, 1)
	errCh := make(chan error, 1)
	ch <- llm.StreamChunk{Content: "mock", FinishReason: "stop"}
	close(ch)
	close(errCh)
	return ch, errCh
}

var _ llm.Provider = (*Provider)(nil)
