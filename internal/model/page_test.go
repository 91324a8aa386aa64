package model

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestDisplayName tests stripping of disambiguation suffixes.
func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "plain title", title: "Aristotle", want: "Aristotle"},
		{name: "disambiguated title", title: "John Smith (explorer)", want: "John Smith"},
		{name: "parenthetical only", title: "(Untitled)", want: "(Untitled)"},
		{name: "inner parenthesis", title: "Henry (the) Navigator", want: "Henry (the) Navigator"},
		{name: "surrounding whitespace", title: "  Plato  ", want: "Plato"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DisplayName(tt.title); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

// TestPageIsEmpty tests detection of missing pages.
func TestPageIsEmpty(t *testing.T) {
	t.Parallel()

	t.Run("page without content is empty", func(t *testing.T) {
		t.Parallel()

		if !NewPage("Nobody", "", "").IsEmpty() {
			t.Error("expected empty page")
		}
	})

	t.Run("page with summary is not empty", func(t *testing.T) {
		t.Parallel()

		if NewPage("Plato", "", "Greek philosopher").IsEmpty() {
			t.Error("expected non-empty page")
		}
	})
}

// TestPageClone tests that clones are independent.
func TestPageClone(t *testing.T) {
	t.Parallel()

	original := NewPage("Plato", "| birth_date = 428 BC", "Greek philosopher")
	clone := original.Clone()
	clone.UserAdded = true
	clone.PortraitURL = "https://example.org/plato.jpg"

	if original.UserAdded || original.PortraitURL != "" {
		t.Error("modifying the clone changed the original")
	}

	var nilPage *Page
	if nilPage.Clone() != nil {
		t.Error("clone of nil page should be nil")
	}
}

// TestPageTruncateSummary tests the summary size limit.
func TestPageTruncateSummary(t *testing.T) {
	t.Parallel()

	t.Run("short summary is unchanged", func(t *testing.T) {
		t.Parallel()

		page := NewPage("Plato", "", "short")
		page.TruncateSummary()
		if page.Summary != "short" {
			t.Errorf("got %q", page.Summary)
		}
	})

	t.Run("long summary is cut on a rune boundary", func(t *testing.T) {
		t.Parallel()

		page := NewPage("Plato", "", strings.Repeat("é", MaxSummaryLength))
		page.TruncateSummary()
		if len(page.Summary) > MaxSummaryLength {
			t.Errorf("summary length %d exceeds limit", len(page.Summary))
		}
		if !utf8.ValidString(page.Summary) {
			t.Error("truncated summary is not valid UTF-8")
		}
	})
}
