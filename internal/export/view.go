package export

import (
	"github.com/nao1215/peoplenet/internal/layout"
)

const (
	// UserAddedSize is the size of nodes added by an explicit request.
	UserAddedSize = 120

	// DiscoveredSize is the size of nodes found by expansion.
	DiscoveredSize = 30
)

// View is the render-ready form of the graph.
type View struct {
	// Nodes are sorted by ID.
	Nodes []NodeView `json:"nodes"`

	// Edges are sorted by source then target.
	Edges []EdgeView `json:"edges"`

	// Communities are the node IDs of each community. NodeView.Community
	// indexes this list.
	Communities [][]string `json:"communities"`

	// Modularity is the modularity score of Communities.
	Modularity float64 `json:"modularity"`
}

// NodeView is one person.
type NodeView struct {
	// ID is the canonical title.
	ID string `json:"id"`

	// DisplayName is the title without disambiguation suffix.
	DisplayName string `json:"display_name"`

	Position    layout.Position `json:"position"`
	PortraitURL string          `json:"portrait_url,omitempty"`

	// Size is UserAddedSize or DiscoveredSize.
	Size int `json:"size"`

	// UserAdded reports whether the node was requested explicitly.
	UserAdded bool `json:"user_added"`

	// Community is the index of the node's community.
	Community int `json:"community"`

	Color Color `json:"color"`
}

// Color is an RGB color.
type Color struct {
	R   uint8  `json:"r"`
	G   uint8  `json:"g"`
	B   uint8  `json:"b"`
	Hex string `json:"hex"`
}

// EdgeView is one directed relation.
type EdgeView struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Labels []string `json:"labels"`
}

// Relation describes how Owner's infobox refers to Other.
type Relation struct {
	// Owner is the title whose infobox holds the fields.
	Owner string `json:"owner"`

	// Fields are the infobox fields linking Owner to Other, in textual
	// order.
	Fields []string `json:"fields"`

	Other string `json:"other"`
}

// Node returns the node with the given ID.
func (v *View) Node(id string) (NodeView, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}
