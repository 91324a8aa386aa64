package model

import (
	"strings"
	"unicode/utf8"
)

// Page represents one remote page resolved to its canonical title.
//
// Title, Sidebar and Summary are fixed once the page has been fetched.
// PortraitURL and UserAdded are filled in later by the crawler.
type Page struct {
	// Title is the canonical title returned by the API after
	// normalization and redirect resolution. It is the page identity.
	Title string `json:"title"`

	// Sidebar is the raw wikitext of the lead section, which holds the
	// infobox template. Empty when the page does not exist.
	Sidebar string `json:"sidebar,omitempty"`

	// Summary is the plain-text intro of the page.
	Summary string `json:"summary,omitempty"`

	// PortraitURL is the thumbnail URL of the page image, if any.
	PortraitURL string `json:"portrait_url,omitempty"`

	// UserAdded is true when the page was the direct target of an
	// add operation rather than discovered through a link.
	UserAdded bool `json:"user_added"`
}

// NewPage creates a page with the given canonical title and content.
func NewPage(title, sidebar, summary string) *Page {
	return &Page{
		Title:   title,
		Sidebar: sidebar,
		Summary: summary,
	}
}

// IsEmpty reports whether the page has no retrievable content.
// Missing pages are cached as empty pages so they are never fetched twice.
func (p *Page) IsEmpty() bool {
	return p.Sidebar == "" && p.Summary == ""
}

// Clone returns a copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// DisplayName strips a trailing parenthetical disambiguation from title,
// e.g. "John Smith (explorer)" becomes "John Smith".
func DisplayName(title string) string {
	trimmed := strings.TrimSpace(title)
	if !strings.HasSuffix(trimmed, ")") {
		return trimmed
	}
	open := strings.LastIndex(trimmed, " (")
	if open <= 0 {
		return trimmed
	}
	return strings.TrimSpace(trimmed[:open])
}

// MaxSummaryLength is the maximum number of bytes kept from an intro summary.
const MaxSummaryLength = 8 * 1024

// TruncateSummary ensures the summary does not exceed MaxSummaryLength,
// cutting on a rune boundary.
func (p *Page) TruncateSummary() {
	if len(p.Summary) <= MaxSummaryLength {
		return
	}
	cut := MaxSummaryLength
	for cut > 0 && !utf8.RuneStart(p.Summary[cut]) {
		cut--
	}
	p.Summary = p.Summary[:cut]
}
