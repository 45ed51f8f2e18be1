package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/issuelens/internal/issue"
)

// DefaultRequestTimeout bounds one full analysis: fetch plus every model
// attempt and backoff. It must exceed the invoker's worst case.
const DefaultRequestTimeout = 120 * time.Second

// IssueFetcher is the outbound collaborator that loads an issue and its
// comment thread. Failures are typed: *issue.NotFoundError and
// *issue.RateLimitedError propagate to the caller.
type IssueFetcher interface {
	FetchIssue(ctx context.Context, fp issue.Fingerprint) (*issue.Context, error)
}

// Service is the analysis orchestrator: cache lookup, then on miss
// fetch -> build prompt -> invoke model -> validate -> cache write.
type Service struct {
	fetcher        IssueFetcher
	prompts        *PromptBuilder
	invoker        *Invoker
	cache          Cache
	requestTimeout time.Duration
	logger         log.Logger
	hooks          Hooks
}

// NewService creates the orchestrator. A non-positive requestTimeout means
// DefaultRequestTimeout.
func NewService(fetcher IssueFetcher, prompts *PromptBuilder, invoker *Invoker, cache Cache, requestTimeout time.Duration, logger log.Logger, hooks Hooks) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Service{
		fetcher:        fetcher,
		prompts:        prompts,
		invoker:        invoker,
		cache:          cache,
		requestTimeout: requestTimeout,
		logger:         logger,
		hooks:          hooks,
	}
}

// Analyze returns the triage report for fp, from cache when a live entry
// exists. Concurrent calls for the same fingerprint share one upstream
// computation. Fetch failures propagate and are never cached; model and
// parse failures are absorbed into a cached fallback result.
func (s *Service) Analyze(ctx context.Context, fp issue.Fingerprint) (*Report, error) {
	start := time.Now()
	key := fp.Key()

	rep, cached, err := s.cache.Do(ctx, key, func(ctx context.Context) (*Report, error) {
		// Detach from caller cancellation: if the caller disconnects, the
		// in-flight computation still completes and populates the cache
		// for the benefit of other waiters. The request timeout is the
		// only bound.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
		defer cancel()
		return s.compute(cctx, fp)
	})
	if err != nil {
		if s.hooks.OnAnalysis != nil {
			s.hooks.OnAnalysis("error", false, time.Since(start).Seconds())
		}
		return nil, err
	}

	if cached {
		// entries are stored with Cached=false; flip on the served copy
		rep = rep.clone()
		rep.Metadata.Cached = true
	}

	if s.hooks.OnAnalysis != nil {
		outcome := "ok"
		if rep.Degraded {
			outcome = "fallback"
		}
		s.hooks.OnAnalysis(outcome, cached, time.Since(start).Seconds())
	}
	return rep, nil
}

// ClearCache drops every cached analysis.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	s.logger.Info(ctx, "analysis cache cleared")
}

// compute runs the miss path for one fingerprint.
func (s *Service) compute(ctx context.Context, fp issue.Fingerprint) (*Report, error) {
	id := ulid.Make().String()
	L := s.logger.With("analysis_id", id, "issue", fp.Key())

	ic, err := s.fetcher.FetchIssue(ctx, fp)
	if err != nil {
		var nf *issue.NotFoundError
		var rl *issue.RateLimitedError
		if errors.As(err, &nf) || errors.As(err, &rl) {
			L.Warn(ctx, "issue fetch rejected", "error", err.Error())
			return nil, err
		}
		L.Error(ctx, err, "issue fetch failed")
		return nil, fmt.Errorf("fetch issue %s: %w", fp.Key(), err)
	}

	prompt := s.prompts.Build(ic)

	var result *Result
	resp, err := s.invoker.Invoke(ctx, s.prompts.System(), prompt)
	switch {
	case err != nil:
		// retries exhausted or permanent provider failure: degrade, do not
		// fail the request
		L.Error(ctx, err, "model unavailable, substituting fallback")
		if s.hooks.OnFallback != nil {
			s.hooks.OnFallback(string(DegradedModelUnavailable))
		}
		result = Fallback(ic.Title, DegradedModelUnavailable)
	default:
		result, err = ParseResult(resp.Text)
		if err != nil {
			L.Error(ctx, err, "model output failed validation, substituting fallback", "model", resp.Model)
			if s.hooks.OnFallback != nil {
				s.hooks.OnFallback(string(DegradedMalformedOutput))
			}
			result = Fallback(ic.Title, DegradedMalformedOutput)
		}
	}

	L.Info(ctx, "analysis complete",
		"type", result.Type,
		"degraded", result.Degraded,
		"labels", len(result.SuggestedLabels),
	)

	return &Report{
		Result: *result,
		Metadata: Metadata{
			IssueURL:      ic.HTMLURL,
			IssueState:    ic.State,
			CommentsCount: ic.CommentsCount,
			CreatedAt:     ic.CreatedAt,
			Cached:        false,
		},
	}, nil
}
