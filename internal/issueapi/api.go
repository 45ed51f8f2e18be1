// Package issueapi exposes the analysis pipeline over HTTP.
package issueapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/issuelens/internal/analysis"
	"github.com/linnemanlabs/issuelens/internal/issue"
)

// AnalysisService defines the business operations issueapi needs.
type AnalysisService interface {
	Analyze(ctx context.Context, fp issue.Fingerprint) (*analysis.Report, error)
	ClearCache(ctx context.Context)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AnalysisService
}

// New creates a new API handler.
func New(logger log.Logger, svc AnalysisService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("analysis service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", a.handleAnalyze)
		r.Delete("/cache", a.handleClearCache)
	})
}

// analyzeRequest accepts either owner+repo or a full repo_url.
type analyzeRequest struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	RepoURL     string `json:"repo_url"`
	IssueNumber int    `json:"issue_number"`
}

func (req *analyzeRequest) fingerprint() (issue.Fingerprint, error) {
	owner, repo := req.Owner, req.Repo
	if owner == "" && req.RepoURL != "" {
		var err error
		owner, repo, err = issue.ParseRepoURL(req.RepoURL)
		if err != nil {
			return issue.Fingerprint{}, err
		}
	}
	if owner == "" || repo == "" {
		return issue.Fingerprint{}, errors.New("owner and repo (or repo_url) are required")
	}
	if req.IssueNumber <= 0 {
		return issue.Fingerprint{}, errors.New("issue_number must be a positive integer")
	}
	return issue.NewFingerprint(owner, repo, req.IssueNumber), nil
}

func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	fp, err := req.fingerprint()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("issuelens.issue.key", fp.Key()))

	rep, err := a.svc.Analyze(r.Context(), fp)
	if err != nil {
		a.writeAnalyzeError(w, r, fp, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("issuelens.analysis.cached", rep.Metadata.Cached),
		attribute.Bool("issuelens.analysis.degraded", rep.Degraded),
		attribute.String("issuelens.analysis.type", string(rep.Type)),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rep)
}

func (a *API) writeAnalyzeError(w http.ResponseWriter, r *http.Request, fp issue.Fingerprint, err error) {
	var nf *issue.NotFoundError
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Error())
		return
	}

	var rl *issue.RateLimitedError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
		}
		writeError(w, http.StatusTooManyRequests, rl.Error())
		return
	}

	a.logger.Error(r.Context(), err, "analysis failed", "issue", fp.Key())
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (a *API) handleClearCache(w http.ResponseWriter, r *http.Request) {
	a.svc.ClearCache(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "cache cleared"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
