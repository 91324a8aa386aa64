package community

import (
	"math/rand/v2"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"

	"github.com/nao1215/peoplenet/internal/graph"
)

const (
	// DefaultResolution is the modularity resolution. Higher values give
	// more, smaller communities.
	DefaultResolution = 1.0

	// DefaultSeed seeds the Louvain random source.
	DefaultSeed uint64 = 1
)

// Clusterer assigns every node to exactly one community.
type Clusterer struct {
	resolution float64
	seed       uint64
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithResolution sets the modularity resolution. Non-positive values are
// ignored.
func WithResolution(r float64) Option {
	return func(c *Clusterer) {
		if r > 0 {
			c.resolution = r
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(c *Clusterer) {
		c.seed = seed
	}
}

// NewClusterer creates a Clusterer.
func NewClusterer(opts ...Option) *Clusterer {
	c := &Clusterer{
		resolution: DefaultResolution,
		seed:       DefaultSeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cluster partitions the nodes of g.
//
// A graph with 0 or 1 node yields exactly one community, which is empty
// for the empty graph. A graph without edges yields one community per
// node. Titles within a community are sorted; communities are ordered by
// size, largest first, then by their first title.
func (c *Clusterer) Cluster(g *graph.Graph) [][]string {
	titles := g.Nodes()
	if len(titles) <= 1 {
		return [][]string{titles}
	}
	if g.EdgeCount() == 0 {
		communities := make([][]string, len(titles))
		for i, title := range titles {
			communities[i] = []string{title}
		}
		return communities
	}

	p := g.Undirected()
	src := rand.NewPCG(c.seed, c.seed^0x9e3779b97f4a7c15)
	reduced := community.Modularize(p, c.resolution, src)

	communities := make([][]string, 0)
	for _, members := range reduced.Communities() {
		if len(members) == 0 {
			continue
		}
		group := make([]string, 0, len(members))
		for _, n := range members {
			group = append(group, p.Titles[n.ID()])
		}
		sort.Strings(group)
		communities = append(communities, group)
	}
	sortCommunities(communities)
	return communities
}

// Modularity returns the modularity score of communities over g. Titles
// that are not nodes of g are ignored.
func (c *Clusterer) Modularity(g *graph.Graph, communities [][]string) float64 {
	if g.EdgeCount() == 0 {
		return 0
	}
	p := g.Undirected()
	groups := make([][]gonumgraph.Node, 0, len(communities))
	for _, titles := range communities {
		group := make([]gonumgraph.Node, 0, len(titles))
		for _, title := range titles {
			if id, ok := p.ID(title); ok {
				group = append(group, p.Node(id))
			}
		}
		groups = append(groups, group)
	}
	return community.Q(p, groups, c.resolution)
}

// Index maps every title to the index of its community.
func Index(communities [][]string) map[string]int {
	index := make(map[string]int)
	for i, group := range communities {
		for _, title := range group {
			index[title] = i
		}
	}
	return index
}

func sortCommunities(communities [][]string) {
	sort.Slice(communities, func(i, j int) bool {
		if len(communities[i]) != len(communities[j]) {
			return len(communities[i]) > len(communities[j])
		}
		return communities[i][0] < communities[j][0]
	})
}
