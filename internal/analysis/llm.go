package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the interface for any LLM backend capable of a single
// prompt-in, text-out completion.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest carries the prompt and sampling configuration for one
// model call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is the raw model output plus accounting.
type CompletionResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Usage reports token consumption for one model call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TransientError wraps a provider failure that is worth retrying: timeouts,
// rate limits, and 5xx-equivalent upstream errors. Anything not wrapped in
// TransientError (auth, bad request, config) fails the invocation
// immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient provider error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retry-eligible. Context deadline
// expiry counts as transient: a per-attempt timeout says nothing about the
// next attempt.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ModelUnavailableError is the invoker's terminal failure: either every
// attempt failed transiently, or a permanent failure short-circuited the
// retry loop. The orchestrator answers it with a fallback result rather
// than surfacing it to the caller.
type ModelUnavailableError struct {
	Attempts int
	LastErr  error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable after %d attempt(s): %v", e.Attempts, e.LastErr)
}

func (e *ModelUnavailableError) Unwrap() error { return e.LastErr }

// MalformedOutputError reports that the model responded but its output
// failed schema validation.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return "malformed model output: " + e.Reason
}
