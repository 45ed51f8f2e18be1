package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// priorityRe enforces the "<1-5> - <justification>" shape.
var priorityRe = regexp.MustCompile(`^[1-5] - \S.*`)

// ParseResult treats raw model output as untrusted input: it strips markdown
// fences, parses the JSON, and validates every field against its constraint
// before constructing a Result. It never trusts declared shape.
func ParseResult(raw string) (*Result, error) {
	text := stripFences(strings.TrimSpace(raw))

	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid json: %v", err), Raw: snippet(text)}
	}

	if strings.TrimSpace(r.Summary) == "" {
		return nil, &MalformedOutputError{Reason: "empty summary", Raw: snippet(text)}
	}
	if !r.Type.Valid() {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("unknown type %q", r.Type), Raw: snippet(text)}
	}
	if !priorityRe.MatchString(r.PriorityScore) {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("priority_score %q does not match \"<1-5> - <text>\"", r.PriorityScore), Raw: snippet(text)}
	}
	if strings.TrimSpace(r.PotentialImpact) == "" {
		return nil, &MalformedOutputError{Reason: "empty potential_impact", Raw: snippet(text)}
	}

	labels := dedupeLabels(r.SuggestedLabels)
	if len(labels) < MinLabels || len(labels) > MaxLabels {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("suggested_labels has %d entries, want %d-%d", len(labels), MinLabels, MaxLabels), Raw: snippet(text)}
	}
	r.SuggestedLabels = labels

	// the model has no say over the degraded marker
	r.Degraded = false
	r.DegradedReason = ""

	return &r, nil
}

// Fallback builds the documented schema-valid substitute used when the
// model call fails or returns unusable output. Availability is prioritized
// over failing the request outright.
func Fallback(title string, reason DegradedReason) *Result {
	summary := "Automated analysis was unavailable for this issue"
	if title != "" {
		summary = fmt.Sprintf("Automated analysis was unavailable for issue %q", title)
	}
	return &Result{
		Summary:         summary,
		Type:            TypeOther,
		PriorityScore:   "3 - Unable to determine priority due to analysis error",
		SuggestedLabels: []string{"needs-triage"},
		PotentialImpact: "Impact could not be assessed automatically; manual triage is recommended.",
		Degraded:        true,
		DegradedReason:  reason,
	}
}

// stripFences removes a surrounding markdown code block, with or without a
// language tag. Models wrap JSON in ```json fences despite instructions.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	start, end := 1, len(lines)
	for i := 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.Join(lines[start:end], "\n")
}

// dedupeLabels drops empty and repeated entries while preserving order.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max]
}
