// Package executor carries out a routing decision against the model-caller
// seam. Each strategy produces an ordered stream of chunks on a channel; the
// producer goroutine owns the channel and closes it after emitting exactly one
// terminal chunk. Per-attempt timeouts come from the decision's latency
// budget, and calls that are no longer needed are cancelled promptly.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polyroute/polyroute/internal/llm"
	"github.com/polyroute/polyroute/internal/route"
)

// Executor drives the four execution strategies.
type Executor struct {
	caller llm.Caller
	logger *zap.Logger
}

// New constructs an Executor over a model caller.
func New(caller llm.Caller, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{caller: caller, logger: logger}
}

// Execute runs the decision's strategy and returns the chunk stream. The
// stream terminates in exactly one done or error chunk; cancelling ctx stops
// all in-flight model calls.
func (x *Executor) Execute(ctx context.Context, req Request, d route.RoutingDecision) <-chan Chunk {
	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		em := &emitter{out: out, strategy: d.Strategy, start: time.Now()}

		switch d.Strategy {
		case route.StrategySpeculative:
			x.speculative(ctx, em, req, d)
		case route.StrategyParallel:
			x.parallel(ctx, em, req, d)
		case route.StrategyEnsemble:
			x.ensemble(ctx, em, req, d)
		default:
			x.single(ctx, em, req, d)
		}
	}()
	return out
}

// emitter serializes chunk emission and enforces the single-terminal rule.
type emitter struct {
	out      chan<- Chunk
	strategy route.Strategy
	start    time.Time
	closed   bool
}

func (e *emitter) send(ctx context.Context, c Chunk) bool {
	if e.closed {
		return false
	}
	c.Strategy = e.strategy
	c.Timestamp = time.Now()
	select {
	case e.out <- c:
		return true
	case <-ctx.Done():
		e.closed = true
		return false
	}
}

func (e *emitter) text(ctx context.Context, model, content string) bool {
	return e.send(ctx, Chunk{Type: ChunkText, Model: model, Content: content})
}

func (e *emitter) status(ctx context.Context, model, msg string) bool {
	return e.send(ctx, Chunk{Type: ChunkStatus, Model: model, Content: msg})
}

func (e *emitter) enhancement(ctx context.Context, model, msg string) bool {
	return e.send(ctx, Chunk{Type: ChunkEnhancementStart, Model: model, Content: msg})
}

func (e *emitter) done(ctx context.Context, model string, enhanced bool) {
	if e.closed {
		return
	}
	e.send(ctx, Chunk{
		Type:  ChunkDone,
		Model: model,
		Meta:  &Meta{LatencyMs: time.Since(e.start).Milliseconds(), Enhanced: enhanced},
	})
	e.closed = true
}

func (e *emitter) fail(ctx context.Context, model, msg string) {
	if e.closed {
		return
	}
	e.send(ctx, Chunk{
		Type:    ChunkError,
		Model:   model,
		Content: msg,
		Meta:    &Meta{LatencyMs: time.Since(e.start).Milliseconds()},
	})
	e.closed = true
}

// attempt runs one bounded model call. When emit is set, text chunks are
// forwarded to the stream as they arrive; the full content is always
// collected and returned. A call that overruns the budget is a failure, not a
// partial success.
func (x *Executor) attempt(ctx context.Context, em *emitter, req Request, model string, budget time.Duration, emit bool) (string, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	chunks, errs := x.caller.Call(attemptCtx, llm.Call{
		Model:        model,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})

	var b strings.Builder
	emitted := false
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			if c.Content != "" {
				b.WriteString(c.Content)
				if emit {
					if !em.text(ctx, model, c.Content) {
						return b.String(), emitted, ctx.Err()
					}
					emitted = true
				}
			}
			if c.FinishReason != "" {
				return b.String(), emitted, nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				if attemptCtx.Err() == context.DeadlineExceeded {
					err = fmt.Errorf("model %s exceeded %s budget: %w", model, budget, err)
				}
				return b.String(), emitted, err
			}
		case <-attemptCtx.Done():
			return b.String(), emitted, fmt.Errorf("model %s exceeded %s budget", model, budget)
		}
	}
	// Channels closed without a finish chunk; treat collected content as the
	// complete response.
	if b.Len() == 0 {
		return "", emitted, fmt.Errorf("model %s returned no content", model)
	}
	return b.String(), emitted, nil
}

// single calls the primary model and falls back once on failure.
func (x *Executor) single(ctx context.Context, em *emitter, req Request, d route.RoutingDecision) {
	budget := budgetOf(d)
	chain := []string{d.PrimaryModel}
	if d.FallbackModel != "" {
		chain = append(chain, d.FallbackModel)
	}

	var attempted []string
	for i, model := range chain {
		_, _, err := x.attempt(ctx, em, req, model, budget, true)
		attempted = append(attempted, model)
		if err == nil {
			em.done(ctx, model, false)
			return
		}
		x.logger.Warn("model attempt failed",
			zap.String("model", model), zap.Error(err))
		if i+1 < len(chain) {
			em.status(ctx, chain[i+1], fmt.Sprintf("%s failed, falling back to %s", model, chain[i+1]))
		}
	}
	em.fail(ctx, d.PrimaryModel, exhaustedMsg(attempted))
}

// speculative streams the fast primary immediately while the stronger
// parallel model validates off-stream. Corrections are appended after an
// enhancement marker; already-sent text is never retracted.
func (x *Executor) speculative(ctx context.Context, em *emitter, req Request, d route.RoutingDecision) {
	budget := budgetOf(d)

	valCtx, cancelVal := context.WithCancel(ctx)
	defer cancelVal()

	type result struct {
		content string
		err     error
	}
	valDone := make(chan result, 1)
	go func() {
		content, _, err := x.attempt(valCtx, em, req, d.ParallelModel, budget, false)
		valDone <- result{content: content, err: err}
	}()

	fastContent, _, fastErr := x.attempt(ctx, em, req, d.PrimaryModel, budget, true)

	if fastErr != nil {
		x.logger.Warn("fast model failed, promoting validator",
			zap.String("model", d.PrimaryModel), zap.Error(fastErr))
		// Promote the smart model's stream to primary.
		select {
		case res := <-valDone:
			if res.err == nil {
				em.status(ctx, d.ParallelModel, fmt.Sprintf("%s failed, promoting %s", d.PrimaryModel, d.ParallelModel))
				em.text(ctx, d.ParallelModel, res.content)
				em.done(ctx, d.ParallelModel, false)
				return
			}
		case <-ctx.Done():
			em.fail(ctx, d.PrimaryModel, "request cancelled")
			return
		}
		x.fallbackOrFail(ctx, em, req, d, []string{d.PrimaryModel, d.ParallelModel})
		return
	}

	// Fast path delivered; the validator gets the remainder of the budget.
	// Its failure or timeout never fails the request.
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case res := <-valDone:
		if res.err == nil && materiallyDiffers(fastContent, res.content) {
			em.enhancement(ctx, d.ParallelModel, fmt.Sprintf("validation by %s suggests corrections", d.ParallelModel))
			em.text(ctx, d.ParallelModel, res.content)
			em.done(ctx, d.ParallelModel, true)
			return
		}
	case <-timer.C:
		cancelVal()
	case <-ctx.Done():
	}
	em.done(ctx, d.PrimaryModel, false)
}

// parallel races primary and parallel models; the first to produce a token
// streams and the loser is cancelled. Once a winner is chosen no loser
// content may enter the stream.
func (x *Executor) parallel(ctx context.Context, em *emitter, req Request, d route.RoutingDecision) {
	budget := budgetOf(d)
	models := []string{d.PrimaryModel, d.ParallelModel}

	type racerEvent struct {
		idx   int
		chunk llm.StreamChunk
		err   error
		eof   bool
	}
	events := make(chan racerEvent)

	raceCtx, cancelRace := context.WithTimeout(ctx, budget)
	defer cancelRace()

	cancels := make([]context.CancelFunc, len(models))
	for i, model := range models {
		callCtx, cancel := context.WithCancel(raceCtx)
		cancels[i] = cancel
		chunks, errs := x.caller.Call(callCtx, llm.Call{
			Model:        model,
			Prompt:       req.Prompt,
			SystemPrompt: req.SystemPrompt,
			MaxTokens:    req.MaxTokens,
			Temperature:  req.Temperature,
		})
		go func(idx int, chunks <-chan llm.StreamChunk, errs <-chan error) {
			for chunks != nil || errs != nil {
				select {
				case c, ok := <-chunks:
					if !ok {
						chunks = nil
						continue
					}
					select {
					case events <- racerEvent{idx: idx, chunk: c}:
					case <-raceCtx.Done():
						return
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					if err != nil {
						select {
						case events <- racerEvent{idx: idx, err: err}:
						case <-raceCtx.Done():
						}
						return
					}
				}
			}
			select {
			case events <- racerEvent{idx: idx, eof: true}:
			case <-raceCtx.Done():
			}
		}(i, chunks, errs)
	}

	winner := -1
	failed := make([]bool, len(models))
	emittedAny := false
	for {
		select {
		case ev := <-events:
			if winner >= 0 && ev.idx != winner {
				// Late loser traffic after cancellation; drop it.
				continue
			}
			switch {
			case ev.err != nil:
				failed[ev.idx] = true
				x.logger.Warn("racer failed",
					zap.String("model", models[ev.idx]), zap.Error(ev.err))
				if winner == ev.idx {
					// Winner died mid-stream; the loser was already
					// cancelled, so the fallback model takes over.
					em.status(ctx, d.FallbackModel, fmt.Sprintf("%s failed mid-stream, trying %s", models[ev.idx], d.FallbackModel))
					x.fallbackOrFail(ctx, em, req, d, models)
					return
				}
				if failed[0] && failed[1] {
					x.fallbackOrFail(ctx, em, req, d, models)
					return
				}
			case ev.eof:
				if winner == ev.idx {
					if !emittedAny {
						x.fallbackOrFail(ctx, em, req, d, models)
						return
					}
					em.done(ctx, models[winner], false)
					return
				}
				failed[ev.idx] = true
				if failed[0] && failed[1] {
					x.fallbackOrFail(ctx, em, req, d, models)
					return
				}
			default:
				if winner < 0 && ev.chunk.Content != "" {
					winner = ev.idx
					loser := 1 - ev.idx
					cancels[loser]()
					em.status(ctx, models[winner], fmt.Sprintf("%s produced first token, streaming it", models[winner]))
				}
				if ev.idx == winner {
					if ev.chunk.Content != "" {
						if !em.text(ctx, models[winner], ev.chunk.Content) {
							return
						}
						emittedAny = true
					}
					if ev.chunk.FinishReason != "" {
						em.done(ctx, models[winner], false)
						return
					}
				}
			}
		case <-raceCtx.Done():
			if ctx.Err() != nil {
				em.fail(ctx, d.PrimaryModel, "request cancelled")
				return
			}
			x.fallbackOrFail(ctx, em, req, d, models)
			return
		}
	}
}

// ensemble runs both models to completion, streams the primary's answer, and
// surfaces the secondary's divergence instead of silently dropping it.
func (x *Executor) ensemble(ctx context.Context, em *emitter, req Request, d route.RoutingDecision) {
	budget := budgetOf(d)
	models := []string{d.PrimaryModel, d.ParallelModel}

	type result struct {
		content string
		err     error
	}
	results := make([]result, len(models))
	done := make(chan int, len(models))
	for i, model := range models {
		go func(idx int, model string) {
			content, _, err := x.attempt(ctx, em, req, model, budget, false)
			results[idx] = result{content: content, err: err}
			done <- idx
		}(i, model)
	}
	for range models {
		select {
		case <-done:
		case <-ctx.Done():
			em.fail(ctx, d.PrimaryModel, "request cancelled")
			return
		}
	}

	primary, secondary := results[0], results[1]
	switch {
	case primary.err == nil:
		em.text(ctx, d.PrimaryModel, primary.content)
		if secondary.err == nil && materiallyDiffers(primary.content, secondary.content) {
			em.status(ctx, d.ParallelModel, fmt.Sprintf(
				"validation: %s diverges from the streamed answer: %s",
				d.ParallelModel, excerpt(secondary.content, 240)))
		}
		em.done(ctx, d.PrimaryModel, false)
	case secondary.err == nil:
		x.logger.Warn("ensemble primary failed, using verifier",
			zap.String("model", d.PrimaryModel), zap.Error(primary.err))
		em.status(ctx, d.ParallelModel, fmt.Sprintf("%s failed, using %s", d.PrimaryModel, d.ParallelModel))
		em.text(ctx, d.ParallelModel, secondary.content)
		em.done(ctx, d.ParallelModel, false)
	default:
		x.fallbackOrFail(ctx, em, req, d, models)
	}
}

// fallbackOrFail tries the decision's fallback model and otherwise terminates
// the stream with an error naming every attempted model.
func (x *Executor) fallbackOrFail(ctx context.Context, em *emitter, req Request, d route.RoutingDecision, attempted []string) {
	if d.FallbackModel != "" {
		_, _, err := x.attempt(ctx, em, req, d.FallbackModel, budgetOf(d), true)
		if err == nil {
			em.done(ctx, d.FallbackModel, false)
			return
		}
		x.logger.Warn("fallback model failed",
			zap.String("model", d.FallbackModel), zap.Error(err))
		attempted = append(attempted, d.FallbackModel)
	}
	em.fail(ctx, d.PrimaryModel, exhaustedMsg(attempted))
}

func exhaustedMsg(attempted []string) string {
	return fmt.Sprintf("all models failed (attempted: %s)", strings.Join(attempted, ", "))
}

func budgetOf(d route.RoutingDecision) time.Duration {
	if d.MaxLatencyMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.MaxLatencyMs) * time.Millisecond
}
