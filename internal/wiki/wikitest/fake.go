// Package wikitest provides an in-memory wiki.Source for tests.
package wikitest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/nao1215/peoplenet/internal/infobox"
	"github.com/nao1215/peoplenet/internal/wiki"
)

// Page is the content of one fake page.
type Page struct {
	Sidebar   string
	Summary   string
	Thumbnail string
}

// Source is a wiki.Source backed by maps. It normalizes titles the way
// MediaWiki does, resolves redirects, paginates responses when a page size
// is set and counts every call.
type Source struct {
	mu        sync.Mutex
	pages     map[string]Page
	redirects map[string]string
	failures  map[string]error
	pageSize  int
	calls     map[wiki.Kind]int
	queries   []wiki.Query
	hook      func(wiki.Query)
}

var _ wiki.Source = (*Source)(nil)

// NewSource creates an empty Source.
func NewSource() *Source {
	return &Source{
		pages:     make(map[string]Page),
		redirects: make(map[string]string),
		failures:  make(map[string]error),
		calls:     make(map[wiki.Kind]int),
	}
}

// AddPage adds a page under its canonical title.
func (s *Source) AddPage(title, sidebar, summary string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pages[title]
	p.Sidebar, p.Summary = sidebar, summary
	s.pages[title] = p
	return s
}

// AddThumbnail sets the thumbnail URL of a page.
func (s *Source) AddThumbnail(title, url string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pages[title]
	p.Thumbnail = url
	s.pages[title] = p
	return s
}

// AddRedirect makes from a redirect to to.
func (s *Source) AddRedirect(from, to string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
	return s
}

// SetPageSize limits the number of pages per response. Larger queries are
// answered across several continued responses. 0 disables pagination.
func (s *Source) SetPageSize(n int) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
	return s
}

// FailOn makes every query naming title fail with a *wiki.RemoteError
// wrapping err. A nil err removes the failure.
func (s *Source) FailOn(title string, err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, title)
	} else {
		s.failures[title] = err
	}
	return s
}

// OnQuery registers a function called at the start of every query, before
// failures are injected.
func (s *Source) OnQuery(fn func(wiki.Query)) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
	return s
}

// Calls returns the number of queries received.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// CallsFor returns the number of queries of one kind.
func (s *Source) CallsFor(kind wiki.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// Queries returns a copy of every query received, in arrival order.
func (s *Source) Queries() []wiki.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wiki.Query(nil), s.queries...)
}

// Query implements wiki.Source.
func (s *Source) Query(ctx context.Context, q wiki.Query) (*wiki.Result, error) {
	s.mu.Lock()
	s.calls[q.Kind]++
	s.queries = append(s.queries, q)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.Titles) > wiki.MaxTitlesPerQuery {
		return nil, fmt.Errorf("%w: %d titles", wiki.ErrTooManyTitles, len(q.Titles))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, title := range q.Titles {
		if err, ok := s.failures[title]; ok {
			return nil, &wiki.RemoteError{Kind: q.Kind, StatusCode: 503, Err: err}
		}
	}

	res := &wiki.Result{}
	seen := make(map[string]bool)
	canonical := make([]string, 0, len(q.Titles))
	for _, title := range q.Titles {
		current := title
		if normalized := infobox.NormalizeTitle(title); normalized != title && normalized != "" {
			res.Redirects = append(res.Redirects, wiki.Redirect{From: title, To: normalized})
			current = normalized
		}
		for hops := 0; hops < 10; hops++ {
			to, ok := s.redirects[current]
			if !ok {
				break
			}
			res.Redirects = append(res.Redirects, wiki.Redirect{From: current, To: to})
			current = to
		}
		if !seen[current] {
			seen[current] = true
			canonical = append(canonical, current)
		}
	}
	sort.Strings(canonical)

	offset := 0
	if v, ok := q.Continue["offset"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &wiki.RemoteError{Kind: q.Kind, StatusCode: 400, Code: "badcontinue", Err: err}
		}
		offset = n
	}
	end := len(canonical)
	if s.pageSize > 0 && offset+s.pageSize < end {
		end = offset + s.pageSize
		res.Continue = map[string]string{"offset": strconv.Itoa(end), "continue": "||"}
	}

	for _, title := range canonical[min(offset, len(canonical)):end] {
		p, ok := s.pages[title]
		rp := wiki.RemotePage{Title: title, Missing: !ok}
		switch q.Kind {
		case wiki.KindSidebar:
			rp.Sidebar = p.Sidebar
		case wiki.KindSummary:
			rp.Summary = p.Summary
		case wiki.KindThumbnail:
			rp.Thumbnail = p.Thumbnail
		}
		res.Pages = append(res.Pages, rp)
	}
	return res, nil
}
