package wiki

import "context"

// MaxTitlesPerQuery is the number of titles the API accepts per request.
const MaxTitlesPerQuery = 50

// Kind selects what a Query retrieves.
type Kind int

const (
	// KindSidebar retrieves the wikitext of the lead section, which holds
	// the infobox.
	KindSidebar Kind = iota

	// KindSummary retrieves the plain-text intro.
	KindSummary

	// KindThumbnail retrieves the page image thumbnail URL.
	KindThumbnail

	// KindSearch is a full-text search. It is only issued by
	// Client.Search and is not valid in a Query.
	KindSearch
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindSidebar:
		return "sidebar"
	case KindSummary:
		return "summary"
	case KindThumbnail:
		return "thumbnail"
	case KindSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Query is one request for up to MaxTitlesPerQuery titles.
type Query struct {
	// Kind selects the content to retrieve.
	Kind Kind

	// Titles are the requested titles as spelled by the caller.
	Titles []string

	// Continue carries the continuation parameters of the previous
	// response. Nil on the first request.
	Continue map[string]string
}

// RemotePage is the content of one page in a Result. Only the field that
// matches the query kind is set.
type RemotePage struct {
	// Title is the canonical title.
	Title string

	// Missing is true when the page does not exist.
	Missing bool

	// Sidebar is the lead section wikitext.
	Sidebar string

	// Summary is the plain-text intro.
	Summary string

	// Thumbnail is the thumbnail URL.
	Thumbnail string
}

// Redirect maps a requested spelling to the title the API resolved it to.
// Title normalization ("plato" to "Plato") is reported the same way.
type Redirect struct {
	From string
	To   string
}

// Result is one response page of a Query.
type Result struct {
	// Pages holds one entry per canonical title in this response.
	Pages []RemotePage

	// Redirects holds normalization entries followed by redirects.
	Redirects []Redirect

	// Continue is non-empty when more results are available. It must be
	// sent back as Query.Continue until it comes back empty.
	Continue map[string]string
}

// Source answers queries against a content API.
// Client is the production implementation; tests use in-memory fakes.
type Source interface {
	Query(ctx context.Context, q Query) (*Result, error)
}
