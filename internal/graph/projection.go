package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// Projection is the undirected view of a Graph used for clustering and
// layout. Node ids are indexes into Titles, which is sorted, so the same
// set of titles always yields the same ids.
//
// Edges are weighted by how many directions connect the pair: 1 when
// only one title links the other, 2 when both do.
type Projection struct {
	// Titles maps projection ids to titles.
	Titles []string

	*simple.WeightedUndirectedGraph
}

var _ graph.WeightedUndirected = (*Projection)(nil)

// Undirected returns the undirected projection of g.
func (g *Graph) Undirected() *Projection {
	titles := g.Nodes()
	index := make(map[string]int64, len(titles))
	for i, title := range titles {
		index[title] = int64(i)
	}

	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range titles {
		wg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		from, to := index[e.From], index[e.To]
		weight := 1.0
		if existing := wg.WeightedEdge(from, to); existing != nil {
			weight += existing.Weight()
		}
		wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: weight})
	}

	return &Projection{Titles: titles, WeightedUndirectedGraph: wg}
}

// ID returns the projection id of title.
func (p *Projection) ID(title string) (int64, bool) {
	i := sort.SearchStrings(p.Titles, title)
	if i < len(p.Titles) && p.Titles[i] == title {
		return int64(i), true
	}
	return 0, false
}

// Nodes returns the nodes ordered by id. The embedded graph iterates a
// map, which would make seeded algorithms depend on map order.
func (p *Projection) Nodes() graph.Nodes {
	return orderedNodes(p.WeightedUndirectedGraph.Nodes())
}

// From returns the neighbors of id ordered by id.
func (p *Projection) From(id int64) graph.Nodes {
	return orderedNodes(p.WeightedUndirectedGraph.From(id))
}

// Subgraph returns the projection induced by titles, which must be
// sorted. Ids of the result follow the order of titles.
func (p *Projection) Subgraph(titles []string) *Projection {
	wg := simple.NewWeightedUndirectedGraph(0, 0)
	local := make(map[int64]int64, len(titles))
	for i, title := range titles {
		id, ok := p.ID(title)
		if !ok {
			continue
		}
		local[id] = int64(i)
		wg.AddNode(simple.Node(int64(i)))
	}
	edges := p.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		from, fok := local[e.From().ID()]
		to, tok := local[e.To().ID()]
		if fok && tok {
			wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: e.Weight()})
		}
	}
	return &Projection{Titles: titles, WeightedUndirectedGraph: wg}
}

func orderedNodes(it graph.Nodes) graph.Nodes {
	nodes := graph.NodesOf(it)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}
