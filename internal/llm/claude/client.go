// Package claude implements the analysis.Provider interface on top of the
// Anthropic SDK.
package claude

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/issuelens/internal/analysis"
)

// Client calls the Claude Messages API for single-shot completions.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete sends one prompt and returns the model's text output. Failures
// are classified so the invoker knows what is worth retrying.
func (c *Client) Complete(ctx context.Context, req *analysis.CompletionRequest) (*analysis.CompletionResponse, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	return fromMessage(msg), nil
}

// fromMessage flattens an SDK message into the provider-neutral response.
func fromMessage(msg *anthropic.Message) *analysis.CompletionResponse {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &analysis.CompletionResponse{
		Text:  text.String(),
		Model: string(msg.Model),
		Usage: analysis.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

// classify maps SDK and transport failures onto the invoker's taxonomy:
// rate limits, overload, 5xx, and timeouts are transient; auth and request
// errors are permanent.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408,
			apierr.StatusCode == 429,
			apierr.StatusCode >= 500:
			return &analysis.TransientError{Err: err}
		default:
			// 401/403 key problems, 400 bad request: retrying cannot help
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &analysis.TransientError{Err: err}
	}
	// anything else out of the transport layer is assumed transient
	return &analysis.TransientError{Err: err}
}
