package report

import (
	"sort"
	"time"

	"github.com/nao1215/peoplenet/internal/export"
)

// Report is one rendered state of the graph with run metadata.
type Report struct {
	// Version is the peoplenet version that generated this report.
	Version string `json:"version,omitempty"`

	// GeneratedAt is when the report was created.
	GeneratedAt time.Time `json:"generated_at"`

	// Roots are the titles an expansion was requested for.
	Roots []string `json:"roots"`

	// Depth is the expansion depth requested for the roots.
	Depth int `json:"depth"`

	// CachedPages is the number of pages fetched so far, people or not.
	CachedPages int `json:"cached_pages"`

	// Partial is set when the expansion stopped early and the view holds
	// only the levels completed before that.
	Partial bool `json:"partial,omitempty"`

	// Error describes why the expansion stopped early.
	Error string `json:"error,omitempty"`

	// View is the render-ready graph.
	View *export.View `json:"view"`
}

// NewReport creates a Report for view.
func NewReport(view *export.View, roots []string, depth int) *Report {
	return &Report{
		GeneratedAt: time.Now(),
		Roots:       roots,
		Depth:       depth,
		View:        view,
	}
}

// NodeCount returns the number of people in the report.
func (r *Report) NodeCount() int {
	if r.View == nil {
		return 0
	}
	return len(r.View.Nodes)
}

// EdgeCount returns the number of relations in the report.
func (r *Report) EdgeCount() int {
	if r.View == nil {
		return 0
	}
	return len(r.View.Edges)
}

// CommunityCount returns the number of communities in the report.
func (r *Report) CommunityCount() int {
	if r.View == nil {
		return 0
	}
	return len(r.View.Communities)
}

// Connected is a node with its number of distinct neighbors.
type Connected struct {
	ID     string
	Degree int
}

// MostConnected returns up to n nodes with the most distinct neighbors,
// ties broken by ID.
func (r *Report) MostConnected(n int) []Connected {
	if r.View == nil || n <= 0 {
		return nil
	}
	neighbors := make(map[string]map[string]bool)
	link := func(a, b string) {
		if neighbors[a] == nil {
			neighbors[a] = make(map[string]bool)
		}
		neighbors[a][b] = true
	}
	for _, e := range r.View.Edges {
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}

	ranked := make([]Connected, 0, len(r.View.Nodes))
	for _, node := range r.View.Nodes {
		if d := len(neighbors[node.ID]); d > 0 {
			ranked = append(ranked, Connected{ID: node.ID, Degree: d})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
