package analysis

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const validOutput = `{
	"summary": "Login form submit button causes consistent app crashes on iOS 17",
	"type": "bug",
	"priority_score": "5 - Critical: blocks login for all iOS 17 users",
	"suggested_labels": ["bug", "crash", "ios"],
	"potential_impact": "Users on iOS 17 cannot log in at all"
}`

func TestParseResult_Valid(t *testing.T) {
	t.Parallel()

	r, err := ParseResult(validOutput)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if r.Type != TypeBug {
		t.Errorf("Type = %q, want bug", r.Type)
	}
	if r.Degraded {
		t.Error("valid result must not be degraded")
	}
	if len(r.SuggestedLabels) != 3 {
		t.Errorf("labels = %v", r.SuggestedLabels)
	}
}

func TestParseResult_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + validOutput + "\n```"
	r, err := ParseResult(fenced)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if r.Type != TypeBug {
		t.Errorf("Type = %q, want bug", r.Type)
	}
}

func TestParseResult_ModelCannotSetDegraded(t *testing.T) {
	t.Parallel()

	tampered := `{
		"summary": "s",
		"type": "other",
		"priority_score": "3 - moderate",
		"suggested_labels": ["x"],
		"potential_impact": "p",
		"degraded": true,
		"degraded_reason": "model_unavailable"
	}`
	r, err := ParseResult(tampered)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if r.Degraded || r.DegradedReason != "" {
		t.Error("degraded marker must be server-controlled")
	}
}

func TestParseResult_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the issue looks like a bug to me"},
		{"empty", ""},
		{"unknown type", `{"summary":"s","type":"incident","priority_score":"3 - x","suggested_labels":["a"],"potential_impact":"p"}`},
		{"empty summary", `{"summary":"  ","type":"bug","priority_score":"3 - x","suggested_labels":["a"],"potential_impact":"p"}`},
		{"empty impact", `{"summary":"s","type":"bug","priority_score":"3 - x","suggested_labels":["a"],"potential_impact":""}`},
		{"priority out of range", `{"summary":"s","type":"bug","priority_score":"7 - x","suggested_labels":["a"],"potential_impact":"p"}`},
		{"priority missing text", `{"summary":"s","type":"bug","priority_score":"3","suggested_labels":["a"],"potential_impact":"p"}`},
		{"no labels", `{"summary":"s","type":"bug","priority_score":"3 - x","suggested_labels":[],"potential_impact":"p"}`},
		{"too many labels", `{"summary":"s","type":"bug","priority_score":"3 - x","suggested_labels":["a","b","c","d","e","f"],"potential_impact":"p"}`},
		{"labels all empty", `{"summary":"s","type":"bug","priority_score":"3 - x","suggested_labels":["",""],"potential_impact":"p"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseResult(tt.raw)
			var malformed *MalformedOutputError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedOutputError, got %v", err)
			}
		})
	}
}

func TestParseResult_DedupesLabelsPreservingOrder(t *testing.T) {
	t.Parallel()

	raw := `{"summary":"s","type":"bug","priority_score":"3 - x","suggested_labels":["bug"," crash","bug","ios"],"potential_impact":"p"}`
	r, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	want := []string{"bug", "crash", "ios"}
	if !reflect.DeepEqual(r.SuggestedLabels, want) {
		t.Errorf("labels = %v, want %v", r.SuggestedLabels, want)
	}
}

func TestFallback_SchemaValid(t *testing.T) {
	t.Parallel()

	r := Fallback("Add dark mode support", DegradedModelUnavailable)

	if !r.Degraded {
		t.Error("fallback must be marked degraded")
	}
	if r.DegradedReason != DegradedModelUnavailable {
		t.Errorf("reason = %q", r.DegradedReason)
	}
	if r.Type != TypeOther {
		t.Errorf("Type = %q, want other", r.Type)
	}
	if !priorityRe.MatchString(r.PriorityScore) {
		t.Errorf("fallback priority %q violates its own shape constraint", r.PriorityScore)
	}
	if len(r.SuggestedLabels) < MinLabels || len(r.SuggestedLabels) > MaxLabels {
		t.Errorf("fallback labels out of bounds: %v", r.SuggestedLabels)
	}
	if r.Summary == "" || r.PotentialImpact == "" {
		t.Error("fallback fields must be non-empty")
	}

	// the fallback itself must survive validation minus the marker
	cp := *r
	cp.Degraded = false
	cp.DegradedReason = ""
	raw, _ := json.Marshal(cp)
	if _, err := ParseResult(string(raw)); err != nil {
		t.Errorf("fallback does not satisfy the result schema: %v", err)
	}
}

func TestResult_RoundTrip(t *testing.T) {
	t.Parallel()

	orig, err := ParseResult(validOutput)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Result
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(*orig, back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, *orig)
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unclosed", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences = %q, want %q", got, tt.want)
			}
		})
	}
}
