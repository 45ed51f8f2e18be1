// Package issue defines the domain model for GitHub issues: the fingerprint
// identity used for caching, the immutable context fed to analysis, and the
// typed failures the fetch layer can report.
package issue

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Fingerprint is the stable identity of an analysis request. Owner and repo
// are normalized to lowercase so equivalent spellings share a cache entry.
type Fingerprint struct {
	Owner  string
	Repo   string
	Number int
}

// NewFingerprint builds a normalized fingerprint.
func NewFingerprint(owner, repo string, number int) Fingerprint {
	return Fingerprint{
		Owner:  strings.ToLower(strings.TrimSpace(owner)),
		Repo:   strings.ToLower(strings.TrimSpace(repo)),
		Number: number,
	}
}

// Key returns the cache key form, e.g. "facebook/react#28858".
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s/%s#%d", f.Owner, f.Repo, f.Number)
}

func (f Fingerprint) String() string { return f.Key() }

// Comment is a single issue comment, in thread order.
type Comment struct {
	Author string
	Body   string
}

// Context is the raw material fed to the model. It is built once by the
// fetch layer and never mutated afterwards.
type Context struct {
	Title         string
	Body          string
	State         string
	Labels        []string
	Comments      []Comment
	CommentsCount int
	CreatedAt     time.Time
	HTMLURL       string
}

// NotFoundError reports a bad owner/repo/issue combination. It is surfaced
// to the caller and never cached or retried.
type NotFoundError struct {
	Fingerprint Fingerprint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("issue #%d not found in %s/%s", e.Fingerprint.Number, e.Fingerprint.Owner, e.Fingerprint.Repo)
}

// RateLimitedError reports that the upstream API refused the request due to
// rate limiting. RetryAfter is zero when the upstream gave no hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("github rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "github rate limit exceeded"
}

// repoURLRe accepts the common github.com URL spellings, with or without a
// scheme, trailing slash, or .git suffix.
var repoURLRe = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)

// ParseRepoURL extracts owner and repo from a GitHub repository URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	m := repoURLRe.FindStringSubmatch(strings.TrimSpace(repoURL))
	if m == nil {
		return "", "", fmt.Errorf("invalid github repository url %q (expected https://github.com/owner/repo)", repoURL)
	}
	return m[1], m[2], nil
}
