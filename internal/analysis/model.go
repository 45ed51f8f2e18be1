package analysis

import "time"

// IssueType classifies what kind of issue the model believes it is looking at.
type IssueType string

const (
	TypeBug            IssueType = "bug"
	TypeFeatureRequest IssueType = "feature_request"
	TypeDocumentation  IssueType = "documentation"
	TypeQuestion       IssueType = "question"
	TypeOther          IssueType = "other"
)

// Valid reports whether t is one of the five enumerated issue types.
func (t IssueType) Valid() bool {
	switch t {
	case TypeBug, TypeFeatureRequest, TypeDocumentation, TypeQuestion, TypeOther:
		return true
	}
	return false
}

// DegradedReason distinguishes why a fallback result was substituted.
type DegradedReason string

const (
	// DegradedModelUnavailable means every model attempt failed.
	DegradedModelUnavailable DegradedReason = "model_unavailable"

	// DegradedMalformedOutput means the model responded but its output
	// failed schema validation.
	DegradedMalformedOutput DegradedReason = "malformed_output"
)

const (
	// MinLabels and MaxLabels bound the suggested_labels array.
	MinLabels = 1
	MaxLabels = 5
)

// Result is the structured triage output. Every field is always present and
// non-empty; the validator enforces this even when the model misbehaves.
// Degraded marks a fallback substitution so callers can warn that confidence
// is low.
type Result struct {
	Summary         string         `json:"summary"`
	Type            IssueType      `json:"type"`
	PriorityScore   string         `json:"priority_score"`
	SuggestedLabels []string       `json:"suggested_labels"`
	PotentialImpact string         `json:"potential_impact"`
	Degraded        bool           `json:"degraded"`
	DegradedReason  DegradedReason `json:"degraded_reason,omitempty"`
}

// Metadata is the envelope attached to every analysis response.
type Metadata struct {
	IssueURL      string    `json:"issue_url"`
	IssueState    string    `json:"issue_state"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	Cached        bool      `json:"cached"`
}

// Report is what the orchestrator returns: a validated (or fallback) result
// plus issue metadata. Cached is false on the instance stored in the cache
// and flipped on copies served from it.
type Report struct {
	Result
	Metadata Metadata `json:"metadata"`
}

// clone returns a deep copy so cached reports are never aliased by callers.
func (r *Report) clone() *Report {
	cp := *r
	cp.SuggestedLabels = append([]string(nil), r.SuggestedLabels...)
	return &cp
}
