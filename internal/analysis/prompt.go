package analysis

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/issuelens/internal/issue"
)

const (
	// DefaultBodyBudget caps issue body length before prompt assembly so a
	// pathological issue cannot blow up token cost.
	DefaultBodyBudget = 4000

	// commentBudget caps each comment body; maxComments caps how many
	// comments from the thread are included.
	commentBudget = 500
	maxComments   = 10

	// truncationMarker tells the model content was cut.
	truncationMarker = "\n... (truncated for length)"
)

// systemPrompt fixes the model's role. The output contract itself lives in
// the user prompt next to the schema directive and few-shot examples.
const systemPrompt = `You are an expert GitHub issue analyst. You read an issue and its comment thread and produce a structured triage assessment. You respond with ONLY a valid JSON object, never markdown or prose outside it.`

// schemaDirective is the sole mechanism enforcing output shape; the model
// has no compile-time contract.
const schemaDirective = `Required JSON format:
{
  "summary": "A comprehensive paragraph (approx 50-70 words) explaining the issue context, the problem, and any proposed solution.",
  "type": "One of: bug, feature_request, documentation, question, or other",
  "priority_score": "A number from 1-5 followed by ' - ' and a one-sentence justification, where 1=low, 2=minor, 3=moderate, 4=high, 5=critical",
  "suggested_labels": ["1 to 5 short relevant labels"],
  "potential_impact": "A paragraph explaining the consequences for users and maintainers if this is not addressed."
}`

// fewShotExamples anchor the output format and priority calibration. Each
// analysis block is itself a valid instance of the Result schema.
const fewShotExamples = `Example 1 - Bug Report:
Issue Title: "Application crashes when clicking submit button"
Issue Body: "When I click the submit button on the login form, the app crashes immediately. This happens consistently on iOS 17."
Analysis:
{
  "summary": "Login form submit button causes consistent app crashes on iOS 17",
  "type": "bug",
  "priority_score": "5 - Critical: Blocks core functionality (login) for all iOS 17 users",
  "suggested_labels": ["bug", "crash", "ios", "login"],
  "potential_impact": "Users cannot log in on iOS 17, completely blocking app access for this user segment"
}

Example 2 - Feature Request:
Issue Title: "Add dark mode support"
Issue Body: "It would be great to have a dark mode option for better viewing at night."
Analysis:
{
  "summary": "Request for dark mode theme option for improved nighttime viewing experience",
  "type": "feature_request",
  "priority_score": "2 - Low: Nice-to-have enhancement, not blocking any functionality",
  "suggested_labels": ["enhancement", "ui", "dark-mode"],
  "potential_impact": "Would improve user experience for users who prefer dark interfaces, but no current functionality is broken"
}

Example 3 - Question:
Issue Title: "How to configure SSL certificates?"
Issue Body: "I'm trying to set up SSL but can't find documentation on where to place the certificates."
Analysis:
{
  "summary": "User needs guidance on SSL certificate configuration and file placement",
  "type": "question",
  "priority_score": "3 - Moderate: Indicates documentation gap affecting user onboarding",
  "suggested_labels": ["question", "documentation", "ssl"],
  "potential_impact": "May indicate unclear documentation that could confuse other users during setup"
}`

// PromptBuilder assembles the instruction + few-shot + issue-content prompt.
// It is a pure function of its input: identical contexts produce
// byte-identical prompts, which cache-equivalent reruns and tests rely on.
type PromptBuilder struct {
	bodyBudget int
}

// NewPromptBuilder creates a builder with the given body character budget.
// A non-positive budget falls back to DefaultBodyBudget.
func NewPromptBuilder(bodyBudget int) *PromptBuilder {
	if bodyBudget <= 0 {
		bodyBudget = DefaultBodyBudget
	}
	return &PromptBuilder{bodyBudget: bodyBudget}
}

// System returns the fixed system prompt.
func (b *PromptBuilder) System() string { return systemPrompt }

// Build renders the user prompt for one issue.
func (b *PromptBuilder) Build(ic *issue.Context) string {
	body := truncate(ic.Body, b.bodyBudget)
	if body == "" {
		body = "No description provided"
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following GitHub issue and provide a structured JSON response.\n\n")
	sb.WriteString("**IMPORTANT**: Respond with ONLY valid JSON in the exact format specified below. Do not include any markdown, explanations, or text outside the JSON object.\n\n")
	sb.WriteString(schemaDirective)
	sb.WriteString("\n\n**Few-Shot Examples:**\n\n")
	sb.WriteString(fewShotExamples)
	sb.WriteString("\n\n---\n\nNow analyze this issue:\n\n")
	fmt.Fprintf(&sb, "**Issue Title:** %s\n\n", ic.Title)
	fmt.Fprintf(&sb, "**Issue Body:**\n%s\n\n", body)
	sb.WriteString("**Comments:**\n")
	sb.WriteString(formatComments(ic.Comments))
	sb.WriteString("\n\n**Existing Labels:** ")
	if len(ic.Labels) == 0 {
		sb.WriteString("None")
	} else {
		sb.WriteString(strings.Join(ic.Labels, ", "))
	}
	sb.WriteString("\n\nProvide your analysis as valid JSON only:")
	return sb.String()
}

func formatComments(comments []issue.Comment) string {
	if len(comments) == 0 {
		return "No comments yet."
	}
	if len(comments) > maxComments {
		comments = comments[:maxComments]
	}
	var sb strings.Builder
	for i, c := range comments {
		author := c.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&sb, "\nComment %d by %s:\n%s\n", i+1, author, truncate(c.Body, commentBudget))
	}
	return sb.String()
}

// truncate cuts s to at most limit characters (runes, so a multi-byte
// character is never split) and appends the truncation marker.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncationMarker
}
