package analysis

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	// DefaultAttempts is how many model calls the invoker makes before
	// giving up on transient failures.
	DefaultAttempts = 3

	// DefaultAttemptTimeout bounds a single model call. Total invocation
	// time is bounded by attempts*timeout plus backoff; the orchestrator's
	// per-request deadline must cover that.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultBackoffBase is the first retry delay; it doubles per attempt.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultTemperature biases toward deterministic, factual completions.
	// Downstream caching assumes semantic stability for the same issue.
	DefaultTemperature = 0.1

	// DefaultMaxTokens caps the model's output; the JSON contract fits
	// comfortably within it.
	DefaultMaxTokens = 1024
)

// InvokerConfig holds the retry policy and sampling configuration as plain
// data so the policy is unit-testable without real delays.
type InvokerConfig struct {
	Attempts       int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	Temperature    float64
	MaxTokens      int

	// Sleep is the backoff wait, injectable for tests. Nil means a real
	// context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c InvokerConfig) withDefaults() InvokerConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Sleep == nil {
		c.Sleep = sleepCtx
	}
	return c
}

// Invoker calls the LLM with bounded retries and exponential backoff. It
// enforces the attempt budget and per-attempt timeout; fallback decisions
// belong to the orchestrator, not here.
type Invoker struct {
	provider Provider
	cfg      InvokerConfig
	logger   log.Logger
	hooks    Hooks
}

// NewInvoker creates an invoker for the given provider.
func NewInvoker(provider Provider, cfg InvokerConfig, logger log.Logger, hooks Hooks) *Invoker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Invoker{
		provider: provider,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		hooks:    hooks,
	}
}

// Invoke runs the prompt against the provider. It returns the raw response
// on success, or ModelUnavailableError once retries are exhausted or a
// permanent failure is seen.
func (iv *Invoker) Invoke(ctx context.Context, system, prompt string) (*CompletionResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= iv.cfg.Attempts; attempt++ {
		if attempt > 1 {
			// exponential backoff: base, 2*base, 4*base, ...
			delay := iv.cfg.BackoffBase << (attempt - 2)
			if err := iv.cfg.Sleep(ctx, delay); err != nil {
				return nil, &ModelUnavailableError{Attempts: attempt - 1, LastErr: err}
			}
		}

		start := time.Now()
		actx, cancel := context.WithTimeout(ctx, iv.cfg.AttemptTimeout)
		resp, err := iv.provider.Complete(actx, &CompletionRequest{
			System:      system,
			Prompt:      prompt,
			Temperature: iv.cfg.Temperature,
			MaxTokens:   iv.cfg.MaxTokens,
		})
		cancel()
		dur := time.Since(start).Seconds()

		if err == nil {
			if iv.hooks.OnLLMCall != nil {
				iv.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, dur, "ok")
			}
			iv.logger.Info(ctx, "model call succeeded",
				"attempt", attempt,
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
			)
			return resp, nil
		}

		lastErr = err
		if iv.hooks.OnLLMCall != nil {
			iv.hooks.OnLLMCall(0, 0, dur, "error")
		}

		if !IsTransient(err) {
			iv.logger.Error(ctx, err, "model call failed permanently", "attempt", attempt)
			return nil, &ModelUnavailableError{Attempts: attempt, LastErr: err}
		}

		iv.logger.Warn(ctx, "model call failed, will retry",
			"attempt", attempt,
			"attempts_max", iv.cfg.Attempts,
			"error", err.Error(),
		)
	}

	return nil, &ModelUnavailableError{Attempts: iv.cfg.Attempts, LastErr: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
