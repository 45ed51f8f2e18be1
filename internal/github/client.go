// Package github fetches issue data from the GitHub API. It is the
// Issue-Fetch collaborator of the analysis pipeline: it either returns a
// complete issue context or a typed failure, and never retries on its own.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v41/github"
	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/oauth2"

	"github.com/linnemanlabs/issuelens/internal/issue"
)

// Client wraps the GitHub API client behind the analysis.IssueFetcher
// contract.
type Client struct {
	gh     *gh.Client
	logger log.Logger
}

// New creates a GitHub client. The token is optional; without it requests
// run unauthenticated against GitHub's much lower anonymous rate limits.
// baseURL overrides the API endpoint for GitHub Enterprise; empty means
// github.com.
func New(token, baseURL string, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := gh.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", baseURL, err)
		}
		client.BaseURL = parsed
	}

	return &Client{gh: client, logger: logger}, nil
}

// FetchIssue loads the issue and its comment thread. Comments are
// best-effort: a comment fetch failure yields an empty thread, not an
// error.
func (c *Client) FetchIssue(ctx context.Context, fp issue.Fingerprint) (*issue.Context, error) {
	iss, _, err := c.gh.Issues.Get(ctx, fp.Owner, fp.Repo, fp.Number)
	if err != nil {
		return nil, mapError(err, fp)
	}

	labels := make([]string, 0, len(iss.Labels))
	for _, l := range iss.Labels {
		labels = append(labels, l.GetName())
	}

	ic := &issue.Context{
		Title:         iss.GetTitle(),
		Body:          iss.GetBody(),
		State:         iss.GetState(),
		Labels:        labels,
		Comments:      c.fetchComments(ctx, fp),
		CommentsCount: iss.GetComments(),
		CreatedAt:     iss.GetCreatedAt(),
		HTMLURL:       iss.GetHTMLURL(),
	}
	return ic, nil
}

func (c *Client) fetchComments(ctx context.Context, fp issue.Fingerprint) []issue.Comment {
	opts := &gh.IssueListCommentsOptions{
		Sort:        gh.String("created"),
		Direction:   gh.String("asc"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	raw, _, err := c.gh.Issues.ListComments(ctx, fp.Owner, fp.Repo, fp.Number, opts)
	if err != nil {
		c.logger.Warn(ctx, "comment fetch failed, continuing without comments",
			"issue", fp.Key(),
			"error", err.Error(),
		)
		return nil
	}

	comments := make([]issue.Comment, 0, len(raw))
	for _, cm := range raw {
		comments = append(comments, issue.Comment{
			Author: cm.GetUser().GetLogin(),
			Body:   cm.GetBody(),
		})
	}
	return comments
}

// mapError translates go-github failures into the domain taxonomy.
func mapError(err error, fp issue.Fingerprint) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &issue.RateLimitedError{RetryAfter: time.Until(rateErr.Rate.Reset.Time)}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var after time.Duration
		if abuseErr.RetryAfter != nil {
			after = *abuseErr.RetryAfter
		}
		return &issue.RateLimitedError{RetryAfter: after}
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return &issue.NotFoundError{Fingerprint: fp}
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &issue.RateLimitedError{}
		}
	}

	return fmt.Errorf("github api: %w", err)
}
