package graph

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge is a directed relation between two people.
type Edge struct {
	// From is the title whose infobox holds the link.
	From string `json:"from"`

	// To is the linked title.
	To string `json:"to"`

	// Labels are the infobox fields linking From to To, in textual order.
	Labels []string `json:"labels"`
}

// relation is the gonum edge type. It carries the labels of the edge.
type relation struct {
	from, to graph.Node
	labels   []string
}

func (e relation) From() graph.Node { return e.from }
func (e relation) To() graph.Node   { return e.to }

func (e relation) ReversedEdge() graph.Edge {
	return relation{from: e.to, to: e.from, labels: e.labels}
}

// Graph is a directed graph of canonical titles.
type Graph struct {
	// ids interns titles. Entries are never removed so a title keeps its
	// id when it is removed and added again.
	ids map[string]int64

	// titles is the reverse of ids.
	titles map[int64]string

	// adjacency holds the present nodes and edges.
	adjacency *simple.DirectedGraph
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		ids:       make(map[string]int64),
		titles:    make(map[int64]string),
		adjacency: simple.NewDirectedGraph(),
	}
}

// intern returns the id of title, allocating one if needed.
func (g *Graph) intern(title string) int64 {
	if id, ok := g.ids[title]; ok {
		return id
	}
	id := int64(len(g.ids))
	g.ids[title] = id
	g.titles[id] = title
	return id
}

// ID returns the id of a present node.
func (g *Graph) ID(title string) (int64, bool) {
	id, ok := g.ids[title]
	if !ok || g.adjacency.Node(id) == nil {
		return 0, false
	}
	return id, true
}

// AddNode adds title and returns its id. Adding a present node is a no-op.
func (g *Graph) AddNode(title string) int64 {
	id := g.intern(title)
	if g.adjacency.Node(id) == nil {
		g.adjacency.AddNode(simple.Node(id))
	}
	return id
}

// HasNode reports whether title is a node.
func (g *Graph) HasNode(title string) bool {
	_, ok := g.ID(title)
	return ok
}

// RemoveNode removes title and all its incident edges. It reports false
// when title is not a node.
func (g *Graph) RemoveNode(title string) bool {
	id, ok := g.ID(title)
	if !ok {
		return false
	}
	g.adjacency.RemoveNode(id)
	return true
}

// SetEdge sets the edge from -> to with the given labels, replacing the
// labels of an existing edge. Both ends must be nodes; self-loops are
// rejected. It reports whether the edge was set.
func (g *Graph) SetEdge(from, to string, labels []string) bool {
	if from == to {
		return false
	}
	fid, ok := g.ID(from)
	if !ok {
		return false
	}
	tid, ok := g.ID(to)
	if !ok {
		return false
	}
	g.adjacency.SetEdge(relation{
		from:   simple.Node(fid),
		to:     simple.Node(tid),
		labels: slices.Clone(labels),
	})
	return true
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.Labels(from, to)
	return ok
}

// Labels returns a copy of the labels of the edge from -> to.
func (g *Graph) Labels(from, to string) ([]string, bool) {
	fid, ok := g.ID(from)
	if !ok {
		return nil, false
	}
	tid, ok := g.ID(to)
	if !ok {
		return nil, false
	}
	e := g.adjacency.Edge(fid, tid)
	if e == nil {
		return nil, false
	}
	return slices.Clone(e.(relation).labels), true //nolint:forcetypeassert // only relation edges are stored
}

// Neighbors returns the titles adjacent to title in either direction,
// sorted.
func (g *Graph) Neighbors(title string) []string {
	id, ok := g.ID(title)
	if !ok {
		return nil
	}
	nodes := graph.NodesOf(g.adjacency.From(id))
	for _, n := range graph.NodesOf(g.adjacency.To(id)) {
		if !g.adjacency.HasEdgeFromTo(id, n.ID()) {
			nodes = append(nodes, n)
		}
	}
	return g.sortedTitles(nodes)
}

// Nodes returns every node title, sorted.
func (g *Graph) Nodes() []string {
	return g.sortedTitles(graph.NodesOf(g.adjacency.Nodes()))
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return g.adjacency.Nodes().Len()
}

// Edges returns every edge sorted by source then target.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0)
	it := g.adjacency.Edges()
	for it.Next() {
		e := it.Edge().(relation) //nolint:forcetypeassert // only relation edges are stored
		edges = append(edges, Edge{
			From:   g.titles[e.from.ID()],
			To:     g.titles[e.to.ID()],
			Labels: slices.Clone(e.labels),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.adjacency.Edges().Len()
}

// Clone returns a deep copy. Ids are preserved.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		ids:       make(map[string]int64, len(g.ids)),
		titles:    make(map[int64]string, len(g.titles)),
		adjacency: simple.NewDirectedGraph(),
	}
	for title, id := range g.ids {
		c.ids[title] = id
		c.titles[id] = title
	}
	nodes := g.adjacency.Nodes()
	for nodes.Next() {
		c.adjacency.AddNode(nodes.Node())
	}
	edges := g.adjacency.Edges()
	for edges.Next() {
		e := edges.Edge().(relation) //nolint:forcetypeassert // only relation edges are stored
		c.adjacency.SetEdge(relation{from: e.from, to: e.to, labels: slices.Clone(e.labels)})
	}
	return c
}

func (g *Graph) sortedTitles(nodes []graph.Node) []string {
	titles := make([]string, 0, len(nodes))
	for _, n := range nodes {
		titles = append(titles, g.titles[n.ID()])
	}
	sort.Strings(titles)
	return titles
}
