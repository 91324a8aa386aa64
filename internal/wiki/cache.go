package wiki

import (
	"sort"
	"sync"

	"github.com/nao1215/peoplenet/internal/model"
)

// Batch is the unit of atomic cache mutation. A Batch is applied
// completely or not at all.
type Batch struct {
	// Pages are new pages keyed by canonical title. A canonical title that
	// is already cached keeps its existing page.
	Pages map[string]*model.Page

	// Aliases maps requested spellings to canonical titles.
	Aliases map[string]string

	// Portraits sets PortraitURL on pages keyed by canonical title. Titles
	// that are neither cached nor in Pages are ignored.
	Portraits map[string]string
}

// Cache stores pages by canonical title and resolves aliases.
// Implementations must be safe for concurrent use and must return copies
// so that callers cannot modify cached pages in place.
type Cache interface {
	// Lookup returns the page for a canonical title or an alias.
	Lookup(title string) (*model.Page, bool)

	// Commit applies a batch atomically.
	Commit(b Batch) error

	// Update applies fn to the cached page of title, resolving aliases.
	// It reports false when the title is not cached. fn must not change
	// the page title.
	Update(title string, fn func(*model.Page)) (bool, error)

	// Each calls fn for every page in title order until fn returns false.
	Each(fn func(*model.Page) bool) error

	// Len returns the number of cached pages.
	Len() int
}

// MemoryCache is an in-memory Cache. It lives as long as the process.
type MemoryCache struct {
	mu      sync.RWMutex
	pages   map[string]*model.Page
	aliases map[string]string
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		pages:   make(map[string]*model.Page),
		aliases: make(map[string]string),
	}
}

// resolve maps an alias to its canonical title. Callers hold mu.
func (c *MemoryCache) resolve(title string) string {
	if _, ok := c.pages[title]; ok {
		return title
	}
	if canonical, ok := c.aliases[title]; ok {
		return canonical
	}
	return title
}

// Lookup implements Cache.
func (c *MemoryCache) Lookup(title string) (*model.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.pages[c.resolve(title)]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Commit implements Cache. It cannot fail.
func (c *MemoryCache) Commit(b Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for title, p := range b.Pages {
		if _, ok := c.pages[title]; !ok {
			c.pages[title] = p.Clone()
		}
	}
	for alias, canonical := range b.Aliases {
		if alias != canonical {
			c.aliases[alias] = canonical
		}
	}
	for title, url := range b.Portraits {
		if p, ok := c.pages[c.resolve(title)]; ok {
			p.PortraitURL = url
		}
	}
	return nil
}

// Update implements Cache.
func (c *MemoryCache) Update(title string, fn func(*model.Page)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pages[c.resolve(title)]
	if !ok {
		return false, nil
	}
	canonical := p.Title
	fn(p)
	p.Title = canonical
	return true, nil
}

// Each implements Cache.
func (c *MemoryCache) Each(fn func(*model.Page) bool) error {
	c.mu.RLock()
	titles := make([]string, 0, len(c.pages))
	for title := range c.pages {
		titles = append(titles, title)
	}
	c.mu.RUnlock()
	sort.Strings(titles)

	for _, title := range titles {
		p, ok := c.Lookup(title)
		if !ok {
			continue
		}
		if !fn(p) {
			break
		}
	}
	return nil
}

// Len implements Cache.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
