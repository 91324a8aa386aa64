package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nao1215/peoplenet/internal/graph"
	"github.com/nao1215/peoplenet/internal/infobox"
	"github.com/nao1215/peoplenet/internal/model"
	"github.com/nao1215/peoplenet/internal/person"
	"github.com/nao1215/peoplenet/internal/wiki"
)

const (
	// DefaultMaxDepth is the deepest expansion accepted by default.
	DefaultMaxDepth = 5

	// DefaultMaxNodes bounds how many nodes one AddPerson may add.
	DefaultMaxNodes = 1000
)

// Builder grows and shrinks the people graph.
//
// Design decision: the Builder owns the graph and the Store owns the
// pages. Reset only replaces the graph, so the cache stays warm.
type Builder struct {
	// store fetches and memoizes pages.
	store *wiki.Store

	// classifier decides which pages become nodes.
	classifier *person.Classifier

	// maxDepth is the largest depth AddPerson and RemovePerson accept.
	maxDepth int

	// maxNodes limits the nodes added by one AddPerson. 0 means no limit.
	maxNodes int

	// followFields are infobox field patterns whose links are followed.
	// Empty means every field is followed (subject to ignoreFields).
	followFields []string

	// ignoreFields are infobox field patterns whose links are never
	// followed.
	ignoreFields []string

	// portraits enables thumbnail fetching for new nodes.
	portraits bool

	logger *slog.Logger

	// busy is set while an operation runs.
	busy atomic.Bool

	// mu guards graph. The running operation is the only writer.
	mu    sync.RWMutex
	graph *graph.Graph
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClassifier sets the person classifier.
func WithClassifier(c *person.Classifier) BuilderOption {
	return func(b *Builder) {
		b.classifier = c
	}
}

// WithMaxDepth sets the largest accepted depth.
func WithMaxDepth(depth int) BuilderOption {
	return func(b *Builder) {
		if depth >= 0 {
			b.maxDepth = depth
		}
	}
}

// WithMaxNodes sets how many nodes one AddPerson may add, root included.
// 0 removes the limit.
func WithMaxNodes(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 0 {
			b.maxNodes = n
		}
	}
}

// WithFollowFields restricts expansion to links found in matching fields.
// Patterns use path.Match syntax over the FieldKey form of the field name
// (e.g. "spouse", "influence*").
func WithFollowFields(patterns ...string) BuilderOption {
	return func(b *Builder) {
		b.followFields = patterns
	}
}

// WithIgnoreFields excludes links found in matching fields. Ignore
// patterns win over follow patterns.
func WithIgnoreFields(patterns ...string) BuilderOption {
	return func(b *Builder) {
		b.ignoreFields = patterns
	}
}

// WithPortraits enables or disables thumbnail fetching. Enabled by
// default.
func WithPortraits(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.portraits = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder with an empty graph.
func NewBuilder(store *wiki.Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:     store,
		maxDepth:  DefaultMaxDepth,
		maxNodes:  DefaultMaxNodes,
		portraits: true,
		graph:     graph.New(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.classifier == nil {
		b.classifier = person.NewClassifier()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// AddPerson adds title and expands the graph depth levels around it.
//
// It returns false without touching the graph when title is not a person.
// Otherwise the root is added and marked user-added, then every level
// links each frontier person to the people its infobox links to. Titles
// already expanded during this call are not expanded again.
//
// Remote failures are returned as they come from the Store and match
// wiki.ErrRemote. When ctx is cancelled, or a remote failure happens after
// the root was added, AddPerson returns true with the error: the root and
// every completed level stay in the graph.
func (b *Builder) AddPerson(ctx context.Context, title string, depth int) (bool, error) {
	if err := b.checkDepth(depth); err != nil {
		return false, err
	}
	if !b.busy.CompareAndSwap(false, true) {
		return false, ErrBusy
	}
	defer b.busy.Store(false)

	root, err := b.store.FetchPage(ctx, title)
	if err != nil {
		return false, err
	}
	if !b.isPerson(root) {
		b.logger.Debug("not a person", "title", title)
		return false, nil
	}

	if b.portraits {
		if err := b.store.FetchThumbnails(ctx, []string{root.Title}); err != nil {
			return false, err
		}
	}
	if _, err := b.store.MarkUserAdded(root.Title, true); err != nil {
		return false, fmt.Errorf("failed to mark %q as user-added: %w", root.Title, err)
	}

	b.mu.Lock()
	added := 0
	if !b.graph.HasNode(root.Title) {
		added++
	}
	b.graph.AddNode(root.Title)
	b.mu.Unlock()

	op := &expansion{
		connected: make(map[string]bool),
		added:     added,
	}
	frontier := []string{root.Title}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		next, err := b.expand(ctx, op, frontier)
		if err != nil {
			return true, err
		}
		b.logger.Debug("level committed",
			"root", root.Title,
			"level", level,
			"frontier", len(frontier),
			"next", len(next),
		)
		frontier = next
	}

	b.logger.Info("person added",
		"title", root.Title,
		"depth", depth,
		"new_nodes", op.added,
	)
	return true, nil
}

// expansion is the state of one AddPerson call.
type expansion struct {
	// connected holds the titles already expanded by this call.
	connected map[string]bool

	// added counts the nodes this call added.
	added int
}

// link is one edge found while expanding a level.
type link struct {
	from, to string
	labels   []string
}

// expand processes one level and returns the next frontier.
func (b *Builder) expand(ctx context.Context, op *expansion, frontier []string) ([]string, error) {
	sources := make([]string, 0, len(frontier))
	for _, title := range frontier {
		if !op.connected[title] {
			sources = append(sources, title)
		}
	}
	if len(sources) == 0 {
		return nil, nil
	}

	pages, err := b.store.FetchPages(ctx, sources)
	if err != nil {
		return nil, err
	}

	// Gather the links of the whole level so they are fetched in one call.
	type outgoing struct {
		targets []string
		labels  map[string][]string
	}
	perSource := make([]outgoing, len(sources))
	var targets []string
	seen := make(map[string]bool)
	for i, source := range sources {
		ts, labels := b.links(infobox.Parse(pages[source].Sidebar))
		perSource[i] = outgoing{targets: ts, labels: labels}
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}

	neighbors, err := b.store.FetchPages(ctx, targets)
	if err != nil {
		return nil, err
	}

	// Classify against the pages and decide the edges of the level.
	var edges []link
	var newPeople []string
	people := make(map[string]bool)
	for i, source := range sources {
		byCanonical := make(map[string]int)
		for _, t := range perSource[i].targets {
			page := neighbors[t]
			if page == nil || page.Title == source {
				continue
			}
			if !people[page.Title] {
				if !b.isPerson(page) {
					continue
				}
				if !b.hasNode(page.Title) {
					if b.maxNodes > 0 && op.added >= b.maxNodes {
						continue
					}
					op.added++
					newPeople = append(newPeople, page.Title)
				}
				people[page.Title] = true
			}

			// Redirects can make two spellings point to one person.
			if j, ok := byCanonical[page.Title]; ok {
				edges[j].labels = appendUnique(edges[j].labels, perSource[i].labels[t]...)
				continue
			}
			byCanonical[page.Title] = len(edges)
			edges = append(edges, link{
				from:   source,
				to:     page.Title,
				labels: appendUnique(nil, perSource[i].labels[t]...),
			})
		}
	}

	if b.portraits && len(newPeople) > 0 {
		if err := b.store.FetchThumbnails(ctx, newPeople); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	for _, e := range edges {
		b.graph.AddNode(e.to)
		b.graph.SetEdge(e.from, e.to, e.labels)
	}
	b.mu.Unlock()

	for _, source := range sources {
		op.connected[source] = true
	}

	next := make([]string, 0, len(edges))
	queued := make(map[string]bool)
	for _, e := range edges {
		if !op.connected[e.to] && !queued[e.to] {
			queued[e.to] = true
			next = append(next, e.to)
		}
	}
	return next, nil
}

// links returns the link targets of box in textual order and the fields
// linking to each, honouring the follow and ignore patterns.
func (b *Builder) links(box *infobox.Infobox) ([]string, map[string][]string) {
	var targets []string
	labels := make(map[string][]string)
	for _, rel := range box.Relations() {
		if !b.followField(rel.Field) {
			continue
		}
		for _, t := range rel.Targets {
			if _, ok := labels[t]; !ok {
				targets = append(targets, t)
			}
			labels[t] = append(labels[t], rel.Field)
		}
	}
	return targets, labels
}

// followField checks if links in field should be followed.
//
// Logic:
//  1. If the field matches any ignore pattern, skip it
//  2. If follow patterns are set and the field matches none, skip it
//  3. Otherwise, follow it
func (b *Builder) followField(field string) bool {
	key := infobox.FieldKey(field)
	for _, pattern := range b.ignoreFields {
		if matchField(pattern, key) {
			return false
		}
	}
	if len(b.followFields) == 0 {
		return true
	}
	for _, pattern := range b.followFields {
		if matchField(pattern, key) {
			return true
		}
	}
	return false
}

// matchField matches a FieldKey against a pattern. Malformed patterns
// match nothing.
func matchField(pattern, key string) bool {
	matched, err := path.Match(infobox.FieldKey(pattern), key)
	return err == nil && matched
}

// RemovePerson removes title and the nodes within depth hops of it.
//
// The first layer is title itself. Each further layer is the neighbors of
// the previous layer that are still present, collected before the
// previous layer is removed. Nothing is fetched. It returns false when
// title, or the canonical title it is an alias of, is not a node.
func (b *Builder) RemovePerson(title string, depth int) (bool, error) {
	if err := b.checkDepth(depth); err != nil {
		return false, err
	}
	if !b.busy.CompareAndSwap(false, true) {
		return false, ErrBusy
	}
	defer b.busy.Store(false)

	canonical := title
	if !b.hasNode(canonical) {
		p, ok := b.store.Lookup(title)
		if !ok || !b.hasNode(p.Title) {
			return false, nil
		}
		canonical = p.Title
	}

	var removed []string
	b.mu.Lock()
	layer := []string{canonical}
	for i := 0; i <= depth && len(layer) > 0; i++ {
		inLayer := make(map[string]bool, len(layer))
		for _, t := range layer {
			inLayer[t] = true
		}
		var next []string
		seen := make(map[string]bool)
		for _, t := range layer {
			for _, n := range b.graph.Neighbors(t) {
				if !inLayer[n] && !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		for _, t := range layer {
			if b.graph.RemoveNode(t) {
				removed = append(removed, t)
			}
		}
		sort.Strings(next)
		layer = next
	}
	b.mu.Unlock()

	for _, t := range removed {
		if _, err := b.store.MarkUserAdded(t, false); err != nil {
			return true, fmt.Errorf("failed to clear user-added flag of %q: %w", t, err)
		}
	}

	b.logger.Info("person removed", "title", canonical, "depth", depth, "removed", len(removed))
	return true, nil
}

// Reset discards the graph. Cached pages are kept; user-added flags are
// cleared.
func (b *Builder) Reset() error {
	if !b.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer b.busy.Store(false)

	b.mu.Lock()
	b.graph = graph.New()
	b.mu.Unlock()

	if err := b.store.ClearUserAdded(); err != nil {
		return fmt.Errorf("failed to clear user-added flags: %w", err)
	}
	b.logger.Debug("graph reset")
	return nil
}

// Busy reports whether an operation is running.
func (b *Builder) Busy() bool {
	return b.busy.Load()
}

// Snapshot returns a copy of the graph. Edges of a level appear all at
// once, never partially.
func (b *Builder) Snapshot() *graph.Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graph.Clone()
}

// Store returns the page store.
func (b *Builder) Store() *wiki.Store {
	return b.store
}

// Stats returns current graph statistics.
func (b *Builder) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Nodes:       b.graph.Len(),
		Edges:       b.graph.EdgeCount(),
		CachedPages: b.store.Len(),
	}
}

// Stats contains graph statistics.
type Stats struct {
	// Nodes is the number of people in the graph.
	Nodes int

	// Edges is the number of relations in the graph.
	Edges int

	// CachedPages is the number of pages fetched so far, people or not.
	CachedPages int
}

func (b *Builder) checkDepth(depth int) error {
	if depth < 0 || depth > b.maxDepth {
		return fmt.Errorf("%w: %d (allowed 0..%d)", ErrDepthOutOfRange, depth, b.maxDepth)
	}
	return nil
}

// isPerson classifies page. Titles already in the graph were classified
// when they were added.
func (b *Builder) isPerson(page *model.Page) bool {
	return b.hasNode(page.Title) || b.classifier.IsPerson(page)
}

func (b *Builder) hasNode(title string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graph.HasNode(title)
}

// appendUnique appends the labels not already in dst, keeping order.
func appendUnique(dst []string, labels ...string) []string {
	for _, l := range labels {
		if !slices.Contains(dst, l) {
			dst = append(dst, l)
		}
	}
	return dst
}
