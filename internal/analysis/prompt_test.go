package analysis

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/issuelens/internal/issue"
)

func testContext() *issue.Context {
	return &issue.Context{
		Title:         "Application crashes on startup",
		Body:          "It crashes every time on macOS 14.",
		State:         "open",
		Labels:        []string{"bug", "macos"},
		CommentsCount: 1,
		Comments:      []issue.Comment{{Author: "alice", Body: "same on 14.2"}},
		CreatedAt:     time.Date(2024, 4, 18, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	b := NewPromptBuilder(DefaultBodyBudget)
	ic := testContext()

	first := b.Build(ic)
	for i := 0; i < 5; i++ {
		if got := b.Build(ic); got != first {
			t.Fatalf("prompt differs on repeat call %d", i)
		}
	}
}

func TestBuild_ContainsIssueContent(t *testing.T) {
	t.Parallel()

	p := NewPromptBuilder(DefaultBodyBudget).Build(testContext())

	for _, want := range []string{
		"Application crashes on startup",
		"It crashes every time on macOS 14.",
		"Comment 1 by alice:",
		"same on 14.2",
		"**Existing Labels:** bug, macos",
		`"suggested_labels"`,
		"feature_request",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuild_TruncatesLongBody(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Body = strings.Repeat("a", 20000)

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)

	if !strings.Contains(p, truncationMarker) {
		t.Error("prompt missing truncation marker")
	}
	if strings.Contains(p, strings.Repeat("a", DefaultBodyBudget+1)) {
		t.Errorf("body not truncated to %d chars", DefaultBodyBudget)
	}
	if !strings.Contains(p, strings.Repeat("a", DefaultBodyBudget)) {
		t.Error("truncated body shorter than budget")
	}
}

func TestBuild_EmptyBody(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Body = ""

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)
	if !strings.Contains(p, "No description provided") {
		t.Error("expected empty-body placeholder")
	}
}

func TestBuild_NoComments(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Comments = nil

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)
	if !strings.Contains(p, "No comments yet.") {
		t.Error("expected no-comments placeholder")
	}
}

func TestBuild_LimitsComments(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Comments = nil
	for i := 0; i < 25; i++ {
		ic.Comments = append(ic.Comments, issue.Comment{
			Author: fmt.Sprintf("user%d", i+1),
			Body:   fmt.Sprintf("comment number %d", i+1),
		})
	}

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)
	if !strings.Contains(p, "Comment 10 by user10:") {
		t.Error("expected 10th comment present")
	}
	if strings.Contains(p, "Comment 11 by") {
		t.Error("expected comments beyond 10 to be dropped")
	}
}

func TestBuild_TruncatesLongComment(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Comments = []issue.Comment{{Author: "bob", Body: strings.Repeat("b", 2000)}}

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)
	if strings.Contains(p, strings.Repeat("b", commentBudget+1)) {
		t.Errorf("comment not truncated to %d chars", commentBudget)
	}
	if !strings.Contains(p, truncationMarker) {
		t.Error("expected truncation marker for long comment")
	}
}

func TestBuild_NoLabels(t *testing.T) {
	t.Parallel()

	ic := testContext()
	ic.Labels = nil

	p := NewPromptBuilder(DefaultBodyBudget).Build(ic)
	if !strings.Contains(p, "**Existing Labels:** None") {
		t.Error("expected None placeholder for labels")
	}
}

func TestTruncate_MultiByteSafe(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("é", 10)
	got := truncate(s, 4)
	if !strings.HasPrefix(got, "éééé") || !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("truncate = %q", got)
	}
}
