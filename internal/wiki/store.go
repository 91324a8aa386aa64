package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/peoplenet/internal/model"
)

const (
	// DefaultConcurrency is the number of batches fetched in parallel.
	DefaultConcurrency = 4

	// maxContinuations bounds how many continuation requests one query may
	// need before the API is considered broken.
	maxContinuations = 1000
)

// Store fetches pages through a Source and memoizes them in a Cache.
//
// Store owns no graph state. The crawler is the only writer; the exporter
// reads through Lookup.
type Store struct {
	// source answers the remote queries.
	source Source

	// cache holds every page fetched so far, people or not.
	cache Cache

	// batchSize is the number of titles per query, at most
	// MaxTitlesPerQuery.
	batchSize int

	// concurrency is the number of batches in flight.
	concurrency int

	logger  *slog.Logger
	metrics *Metrics

	// thumbnailed holds the canonical titles whose thumbnail was already
	// queried, with or without a result.
	thumbnailMu sync.Mutex
	thumbnailed map[string]bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCache sets the cache backend. The default is a MemoryCache.
func WithCache(c Cache) StoreOption {
	return func(s *Store) {
		s.cache = c
	}
}

// WithBatchSize sets the number of titles per query. Values outside
// 1..MaxTitlesPerQuery are ignored.
func WithBatchSize(n int) StoreOption {
	return func(s *Store) {
		if n >= 1 && n <= MaxTitlesPerQuery {
			s.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches are fetched in parallel.
func WithConcurrency(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithStoreMetrics sets the metrics collectors.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a Store reading from source.
func NewStore(source Source, opts ...StoreOption) *Store {
	s := &Store{
		source:      source,
		batchSize:   MaxTitlesPerQuery,
		concurrency: DefaultConcurrency,
		thumbnailed: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// FetchPage fetches a single page.
func (s *Store) FetchPage(ctx context.Context, title string) (*model.Page, error) {
	pages, err := s.FetchPages(ctx, []string{title})
	if err != nil {
		return nil, err
	}
	return pages[title], nil
}

// FetchPages returns the page of every title, keyed by the title as
// passed in. Titles that were fetched before are served from the cache;
// the rest are fetched in batches. Pages that do not exist come back
// empty.
//
// When a batch fails, nothing from that batch is cached and the error is
// returned. Batches that completed before the failure stay cached.
func (s *Store) FetchPages(ctx context.Context, titles []string) (map[string]*model.Page, error) {
	result := make(map[string]*model.Page, len(titles))
	pending := make([]string, 0, len(titles))
	for _, title := range titles {
		if _, done := result[title]; done {
			continue
		}
		if strings.TrimSpace(title) == "" {
			// The API rejects empty titles, so answer locally.
			result[title] = model.NewPage(title, "", "")
			continue
		}
		if p, ok := s.cache.Lookup(title); ok {
			result[title] = p
			continue
		}
		result[title] = nil
		pending = append(pending, title)
	}

	s.metrics.observeCache(len(result)-len(pending), len(pending))
	if len(pending) == 0 {
		return result, nil
	}

	batches := chunk(pending, s.batchSize)
	s.logger.Debug("fetching pages",
		"requested", len(titles),
		"remote", len(pending),
		"batches", len(batches),
	)

	fetched := make([]map[string]*model.Page, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			pages, err := s.fetchBatch(gctx, batch)
			if err != nil {
				return err
			}
			fetched[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pages := range fetched {
		for title, p := range pages {
			result[title] = p
		}
	}
	return result, nil
}

// fetchBatch fetches sidebar and summary of at most batchSize titles and
// commits them as one Batch.
func (s *Store) fetchBatch(ctx context.Context, titles []string) (map[string]*model.Page, error) {
	sidebars, err := s.queryAll(ctx, KindSidebar, titles)
	if err != nil {
		return nil, err
	}
	summaries, err := s.queryAll(ctx, KindSummary, titles)
	if err != nil {
		return nil, err
	}

	batch := Batch{
		Pages:   make(map[string]*model.Page, len(titles)),
		Aliases: make(map[string]string),
	}
	canonical := make(map[string]string, len(titles))
	for _, title := range titles {
		target := resolveRedirect(title, sidebars.redirects)
		if target == title {
			target = resolveRedirect(title, summaries.redirects)
		}
		canonical[title] = target
		if target != title {
			batch.Aliases[title] = target
		}
		if _, ok := batch.Pages[target]; ok {
			continue
		}

		page := model.NewPage(target, sidebars.pages[target].Sidebar, summaries.pages[target].Summary)
		page.TruncateSummary()
		batch.Pages[target] = page
	}

	if err := s.cache.Commit(batch); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	pages := make(map[string]*model.Page, len(titles))
	for _, title := range titles {
		if p, ok := s.cache.Lookup(title); ok {
			pages[title] = p
			continue
		}
		pages[title] = batch.Pages[canonical[title]].Clone()
	}
	return pages, nil
}

// FetchThumbnails sets PortraitURL on the cached pages of titles. Titles
// that are not cached are ignored; no page is ever created here. Each
// title is queried at most once per Store, even when it has no thumbnail.
func (s *Store) FetchThumbnails(ctx context.Context, titles []string) error {
	seen := make(map[string]bool, len(titles))
	canonical := make([]string, 0, len(titles))
	s.thumbnailMu.Lock()
	for _, title := range titles {
		p, ok := s.cache.Lookup(title)
		if !ok || p.IsEmpty() || p.PortraitURL != "" || seen[p.Title] || s.thumbnailed[p.Title] {
			continue
		}
		seen[p.Title] = true
		canonical = append(canonical, p.Title)
	}
	s.thumbnailMu.Unlock()
	if len(canonical) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, batch := range chunk(canonical, s.batchSize) {
		g.Go(func() error {
			res, err := s.queryAll(gctx, KindThumbnail, batch)
			if err != nil {
				return err
			}
			portraits := make(map[string]string, len(batch))
			for _, title := range batch {
				if p := res.pages[resolveRedirect(title, res.redirects)]; p.Thumbnail != "" {
					portraits[title] = p.Thumbnail
				}
			}
			if err := s.cache.Commit(Batch{Portraits: portraits}); err != nil {
				return fmt.Errorf("failed to commit thumbnails: %w", err)
			}
			s.thumbnailMu.Lock()
			for _, title := range batch {
				s.thumbnailed[title] = true
			}
			s.thumbnailMu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Lookup returns a cached page without any remote call.
func (s *Store) Lookup(title string) (*model.Page, bool) {
	return s.cache.Lookup(title)
}

// Visited reports whether title, in any spelling fetched before, is cached.
func (s *Store) Visited(title string) bool {
	_, ok := s.cache.Lookup(title)
	return ok
}

// MarkUserAdded sets the user-added flag of a cached page.
func (s *Store) MarkUserAdded(title string, added bool) (bool, error) {
	return s.cache.Update(title, func(p *model.Page) {
		p.UserAdded = added
	})
}

// ClearUserAdded clears the user-added flag of every cached page.
func (s *Store) ClearUserAdded() error {
	var flagged []string
	err := s.cache.Each(func(p *model.Page) bool {
		if p.UserAdded {
			flagged = append(flagged, p.Title)
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, title := range flagged {
		if _, err := s.MarkUserAdded(title, false); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of cached pages.
func (s *Store) Len() int {
	return s.cache.Len()
}

// merged is the union of every response page of one query.
type merged struct {
	pages     map[string]remoteContent
	redirects map[string]string
}

// remoteContent is the merged content of one canonical title.
type remoteContent struct {
	Sidebar   string
	Summary   string
	Thumbnail string
}

// queryAll runs q and follows continuation until the API reports no more
// results, merging content per canonical title.
func (s *Store) queryAll(ctx context.Context, kind Kind, titles []string) (*merged, error) {
	out := &merged{
		pages:     make(map[string]remoteContent, len(titles)),
		redirects: make(map[string]string),
	}

	q := Query{Kind: kind, Titles: titles}
	seen := make(map[string]bool)
	for range maxContinuations {
		res, err := s.source.Query(ctx, q)
		if err != nil {
			return nil, err
		}

		for _, p := range res.Pages {
			c := out.pages[p.Title]
			if p.Sidebar != "" {
				c.Sidebar = p.Sidebar
			}
			if p.Summary != "" {
				c.Summary = p.Summary
			}
			if p.Thumbnail != "" {
				c.Thumbnail = p.Thumbnail
			}
			out.pages[p.Title] = c
		}
		for _, r := range res.Redirects {
			out.redirects[r.From] = r.To
		}

		if len(res.Continue) == 0 {
			return out, nil
		}
		token := continueToken(res.Continue)
		if seen[token] {
			return nil, &RemoteError{Kind: kind, Err: ErrContinuationLoop}
		}
		seen[token] = true
		q.Continue = res.Continue
	}
	return nil, &RemoteError{Kind: kind, Err: ErrContinuationLoop}
}

// continueToken serializes continuation parameters in key order.
func continueToken(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
		sb.WriteByte('&')
	}
	return sb.String()
}

// resolveRedirect follows normalization and redirect entries from title to
// its final target. Cycles stop at the first repeated title.
func resolveRedirect(title string, redirects map[string]string) string {
	seen := make(map[string]bool)
	for !seen[title] {
		seen[title] = true
		next, ok := redirects[title]
		if !ok {
			break
		}
		title = next
	}
	return title
}

// chunk splits titles into slices of at most size elements.
func chunk(titles []string, size int) [][]string {
	batches := make([][]string, 0, (len(titles)+size-1)/size)
	for start := 0; start < len(titles); start += size {
		end := min(start+size, len(titles))
		batches = append(batches, titles[start:end])
	}
	return batches
}
