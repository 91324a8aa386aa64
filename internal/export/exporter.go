package export

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/nao1215/peoplenet/internal/community"
	"github.com/nao1215/peoplenet/internal/graph"
	"github.com/nao1215/peoplenet/internal/infobox"
	"github.com/nao1215/peoplenet/internal/layout"
	"github.com/nao1215/peoplenet/internal/model"
)

const (
	// Saturation and Value are the fixed HSV components of community
	// colors. Only the hue varies.
	Saturation = 0.65
	Value      = 0.9
)

// Pages reads cached pages. *wiki.Store implements it.
type Pages interface {
	Lookup(title string) (*model.Page, bool)
}

// Exporter builds views and answers selection queries.
type Exporter struct {
	pages     Pages
	clusterer *community.Clusterer
	engine    *layout.Engine
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClusterer sets the community clusterer.
func WithClusterer(c *community.Clusterer) Option {
	return func(e *Exporter) {
		e.clusterer = c
	}
}

// WithLayoutEngine sets the layout engine.
func WithLayoutEngine(engine *layout.Engine) Option {
	return func(e *Exporter) {
		e.engine = engine
	}
}

// NewExporter creates an Exporter reading pages from pages.
func NewExporter(pages Pages, opts ...Option) *Exporter {
	e := &Exporter{pages: pages}
	for _, opt := range opts {
		opt(e)
	}
	if e.clusterer == nil {
		e.clusterer = community.NewClusterer()
	}
	if e.engine == nil {
		e.engine = layout.NewEngine()
	}
	return e
}

// Export builds the view of g. g should be a snapshot that no one
// mutates during the call.
func (e *Exporter) Export(g *graph.Graph) *View {
	communities := make([][]string, 0)
	for _, group := range e.clusterer.Cluster(g) {
		if len(group) > 0 {
			communities = append(communities, group)
		}
	}
	index := community.Index(communities)
	palette := Palette(len(communities))
	positions := e.engine.Compute(g)

	view := &View{
		Nodes:       make([]NodeView, 0, g.Len()),
		Edges:       make([]EdgeView, 0, g.EdgeCount()),
		Communities: communities,
		Modularity:  e.clusterer.Modularity(g, communities),
	}
	for _, title := range g.Nodes() {
		node := NodeView{
			ID:          title,
			DisplayName: model.DisplayName(title),
			Position:    positions[title],
			Size:        DiscoveredSize,
			Community:   index[title],
			Color:       palette[index[title]],
		}
		if p, ok := e.pages.Lookup(title); ok {
			node.PortraitURL = p.PortraitURL
			node.UserAdded = p.UserAdded
			if p.UserAdded {
				node.Size = UserAddedSize
			}
		}
		view.Nodes = append(view.Nodes, node)
	}
	for _, edge := range g.Edges() {
		view.Edges = append(view.Edges, EdgeView{
			Source: edge.From,
			Target: edge.To,
			Labels: edge.Labels,
		})
	}
	return view
}

// Palette returns n colors with hues i/n of the color wheel.
func Palette(n int) []Color {
	colors := make([]Color, n)
	for i := range colors {
		c := colorful.Hsv(360*float64(i)/float64(n), Saturation, Value)
		r, g, b := c.RGB255()
		colors[i] = Color{R: r, G: g, B: b, Hex: c.Hex()}
	}
	return colors
}

// DescribeSelection returns the summary of a selected node.
func (e *Exporter) DescribeSelection(title string) (string, bool) {
	p, ok := e.pages.Lookup(title)
	if !ok {
		return "", false
	}
	return p.Summary, true
}

// DescribeRelation returns how source and target refer to each other, one
// entry per direction that has at least one field. Each direction is read
// from the owner's own infobox, so a one-sided relation yields one entry.
func (e *Exporter) DescribeRelation(source, target string) []Relation {
	relations := make([]Relation, 0, 2)
	src, ok := e.pages.Lookup(source)
	if !ok {
		return relations
	}
	dst, ok := e.pages.Lookup(target)
	if !ok {
		return relations
	}

	for _, pair := range [][2]*model.Page{{src, dst}, {dst, src}} {
		owner, other := pair[0], pair[1]
		if owner.Title == other.Title {
			break
		}
		if fields := e.fieldsLinking(owner, other.Title); len(fields) > 0 {
			relations = append(relations, Relation{
				Owner:  owner.Title,
				Fields: fields,
				Other:  other.Title,
			})
		}
	}
	return relations
}

// fieldsLinking returns the fields of owner's infobox that link to the
// canonical title other, through any cached alias.
func (e *Exporter) fieldsLinking(owner *model.Page, other string) []string {
	var fields []string
	for _, rel := range infobox.Parse(owner.Sidebar).Relations() {
		for _, t := range rel.Targets {
			if e.canonical(t) == other {
				fields = append(fields, rel.Field)
				break
			}
		}
	}
	return fields
}

func (e *Exporter) canonical(title string) string {
	if p, ok := e.pages.Lookup(title); ok {
		return p.Title
	}
	return title
}
