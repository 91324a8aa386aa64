package layout

import (
	"math"
	"math/rand/v2"
	"sort"

	gonumlayout "gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/nao1215/peoplenet/internal/graph"
)

const (
	// DefaultIterations is the number of force updates per component.
	DefaultIterations = 100

	// DefaultSpacing is the radius allotted to a single node.
	DefaultSpacing = 50.0

	// DefaultSeed seeds the initial placement.
	DefaultSeed uint64 = 1

	// margin separates packed components, relative to spacing.
	margin = 0.5
)

// Position is a point in layout space. Y grows downwards, as on screen.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Engine computes layouts.
type Engine struct {
	iterations int
	spacing    float64
	seed       uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithIterations sets the number of force updates per component.
func WithIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.iterations = n
		}
	}
}

// WithSpacing sets the radius allotted to a single node.
func WithSpacing(s float64) Option {
	return func(e *Engine) {
		if s > 0 {
			e.spacing = s
		}
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		iterations: DefaultIterations,
		spacing:    DefaultSpacing,
		seed:       DefaultSeed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// component is one laid out connected component.
type component struct {
	titles []string

	// local holds positions inside the unit disc, by title order.
	local []r2.Vec

	// radius is the radius of the component on the canvas.
	radius float64
}

// Compute returns a position for every node of g.
func (e *Engine) Compute(g *graph.Graph) map[string]Position {
	positions := make(map[string]Position, g.Len())
	if g.Len() == 0 {
		return positions
	}

	p := g.Undirected()
	components := e.components(p)
	for i := range components {
		e.place(p, &components[i], i)
	}
	e.pack(components, positions)
	return positions
}

// components returns the connected components with sorted titles,
// largest first.
func (e *Engine) components(p *graph.Projection) []component {
	var components []component
	for _, nodes := range topo.ConnectedComponents(p) {
		titles := make([]string, 0, len(nodes))
		for _, n := range nodes {
			titles = append(titles, p.Titles[n.ID()])
		}
		sort.Strings(titles)
		components = append(components, component{titles: titles})
	}
	sort.Slice(components, func(i, j int) bool {
		a, b := components[i].titles, components[j].titles
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a[0] < b[0]
	})
	return components
}

// place lays out one component inside the unit disc.
func (e *Engine) place(p *graph.Projection, c *component, index int) {
	n := len(c.titles)
	c.radius = e.spacing * math.Sqrt(float64(n))
	if n == 1 {
		c.local = []r2.Vec{{}}
		return
	}

	sub := p.Subgraph(c.titles)
	eades := gonumlayout.EadesR2{
		Updates:   e.iterations,
		Repulsion: 1,
		Rate:      0.05,
		Theta:     0.2,
		Src:       rand.NewPCG(e.seed, uint64(index)),
	}
	optimizer := gonumlayout.NewOptimizerR2(sub, eades.Update)
	for optimizer.Update() {
	}

	c.local = make([]r2.Vec, n)
	for i := range c.titles {
		c.local[i] = optimizer.Coord2(int64(i))
	}
	if !normalize(c.local) {
		circle(c.local)
	}
}

// normalize centers points on their mean and scales them into the unit
// disc. It reports false when the points are not finite.
func normalize(points []r2.Vec) bool {
	var center r2.Vec
	for _, v := range points {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return false
		}
		center = r2.Add(center, v)
	}
	center = r2.Scale(1/float64(len(points)), center)

	maxNorm := 0.0
	for i, v := range points {
		points[i] = r2.Sub(v, center)
		maxNorm = math.Max(maxNorm, r2.Norm(points[i]))
	}
	if maxNorm == 0 {
		return false
	}
	for i, v := range points {
		points[i] = r2.Scale(1/maxNorm, v)
	}
	return true
}

// circle spreads points evenly on the unit circle.
func circle(points []r2.Vec) {
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(len(points))
		points[i] = r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	}
}

// pack places components in rows and writes node positions.
func (e *Engine) pack(components []component, positions map[string]Position) {
	perRow := int(math.Ceil(math.Sqrt(float64(len(components)))))
	gap := e.spacing * margin

	var x, y, rowHeight float64
	for i, c := range components {
		if i > 0 && i%perRow == 0 {
			x = 0
			y += rowHeight + gap
			rowHeight = 0
		}
		center := r2.Vec{X: x + c.radius, Y: y + c.radius}
		for j, title := range c.titles {
			v := r2.Add(center, r2.Scale(c.radius, c.local[j]))
			positions[title] = Position{X: v.X, Y: v.Y}
		}
		x += 2*c.radius + gap
		rowHeight = math.Max(rowHeight, 2*c.radius)
	}
}
