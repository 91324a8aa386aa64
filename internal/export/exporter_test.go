package export

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/nao1215/peoplenet/internal/crawler"
	"github.com/nao1215/peoplenet/internal/graph"
	"github.com/nao1215/peoplenet/internal/wiki"
	"github.com/nao1215/peoplenet/internal/wiki/wikitest"
)

func newFamily() *wikitest.Source {
	return wikitest.NewSource().
		AddPage("Philip II of Macedon", "| birth_date = 382 BC | children = [[Alexander the Great]] | spouse = [[Olympias]]", "King of Macedon.").
		AddPage("Alexander the Great", "| birth_date = 356 BC | tutor = [[Aristotle]] | mother = [[Olympias]]", "Conqueror.").
		AddPage("Olympias", "| birth_date = 375 BC | spouse = [[Philip II of Macedon|Philip II]] | children = [[Alexander III of Macedon]]", "Queen.").
		AddPage("Aristotle", "| birth_date = 384 BC", "Philosopher.").
		AddPage("Homer (poet)", "| birth_date = 800 BC", "Poet.").
		AddRedirect("Alexander III of Macedon", "Alexander the Great").
		AddThumbnail("Philip II of Macedon", "https://upload.example/philip.jpg")
}

func setup(t *testing.T, source *wikitest.Source) (*crawler.Builder, *Exporter) {
	t.Helper()

	store := wiki.NewStore(source)
	b := crawler.NewBuilder(store)
	ctx := context.Background()
	if _, err := b.AddPerson(ctx, "Philip II of Macedon", 2); err != nil {
		t.Fatalf("AddPerson() error = %v", err)
	}
	if _, err := b.AddPerson(ctx, "Homer (poet)", 0); err != nil {
		t.Fatalf("AddPerson() error = %v", err)
	}
	return b, NewExporter(store)
}

// TestExport tests view assembly.
func TestExport(t *testing.T) {
	t.Parallel()

	t.Run("nodes carry size, name, portrait and position", func(t *testing.T) {
		t.Parallel()

		b, e := setup(t, newFamily())
		view := e.Export(b.Snapshot())

		ids := make([]string, 0, len(view.Nodes))
		for _, n := range view.Nodes {
			ids = append(ids, n.ID)
		}
		want := []string{"Alexander the Great", "Aristotle", "Homer (poet)", "Olympias", "Philip II of Macedon"}
		if diff := cmp.Diff(want, ids); diff != "" {
			t.Fatalf("node IDs mismatch (-want +got):\n%s", diff)
		}

		philip, _ := view.Node("Philip II of Macedon")
		if philip.Size != UserAddedSize || !philip.UserAdded {
			t.Errorf("expected user-added size for Philip, got %+v", philip)
		}
		if philip.PortraitURL != "https://upload.example/philip.jpg" {
			t.Errorf("unexpected portrait %q", philip.PortraitURL)
		}
		alexander, _ := view.Node("Alexander the Great")
		if alexander.Size != DiscoveredSize || alexander.UserAdded {
			t.Errorf("expected discovered size for Alexander, got %+v", alexander)
		}
		homer, _ := view.Node("Homer (poet)")
		if homer.DisplayName != "Homer" || homer.Size != UserAddedSize {
			t.Errorf("unexpected Homer node %+v", homer)
		}

		seen := make(map[[2]float64]bool)
		for _, n := range view.Nodes {
			key := [2]float64{n.Position.X, n.Position.Y}
			if seen[key] {
				t.Errorf("duplicate position %v", key)
			}
			seen[key] = true
		}
	})

	t.Run("edges mirror the graph", func(t *testing.T) {
		t.Parallel()

		b, e := setup(t, newFamily())
		view := e.Export(b.Snapshot())
		var want []EdgeView
		for _, edge := range b.Snapshot().Edges() {
			want = append(want, EdgeView{Source: edge.From, Target: edge.To, Labels: edge.Labels})
		}
		if len(want) != 6 {
			t.Fatalf("expected 6 edges in the graph, got %d", len(want))
		}
		if diff := cmp.Diff(want, view.Edges); diff != "" {
			t.Errorf("Edges mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("communities color their nodes", func(t *testing.T) {
		t.Parallel()

		b, e := setup(t, newFamily())
		view := e.Export(b.Snapshot())
		if len(view.Communities) < 2 {
			t.Fatalf("expected the isolated node in its own community, got %v", view.Communities)
		}

		palette := Palette(len(view.Communities))
		covered := 0
		for i, group := range view.Communities {
			for _, id := range group {
				n, ok := view.Node(id)
				if !ok {
					t.Fatalf("community member %q is not a node", id)
				}
				if n.Community != i || n.Color != palette[i] {
					t.Errorf("node %q: community %d color %v, want %d %v", id, n.Community, n.Color, i, palette[i])
				}
				covered++
			}
		}
		if covered != len(view.Nodes) {
			t.Errorf("communities cover %d of %d nodes", covered, len(view.Nodes))
		}
	})

	t.Run("empty graph", func(t *testing.T) {
		t.Parallel()

		view := NewExporter(wiki.NewStore(wikitest.NewSource())).Export(graph.New())
		if len(view.Nodes) != 0 || len(view.Edges) != 0 || len(view.Communities) != 0 {
			t.Errorf("expected empty view, got %+v", view)
		}
	})
}

// TestPalette tests community colors.
func TestPalette(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 7} {
		colors := Palette(n)
		if len(colors) != n {
			t.Fatalf("Palette(%d) returned %d colors", n, len(colors))
		}
		for i, c := range colors {
			parsed, err := colorful.Hex(c.Hex)
			if err != nil {
				t.Fatalf("invalid hex %q: %v", c.Hex, err)
			}
			h, s, v := parsed.Hsv()
			wantHue := 360 * float64(i) / float64(n)
			if math.Abs(h-wantHue) > 1.5 && math.Abs(h-wantHue-360) > 1.5 {
				t.Errorf("Palette(%d)[%d] hue = %.1f, want %.1f", n, i, h, wantHue)
			}
			if math.Abs(s-Saturation) > 0.02 || math.Abs(v-Value) > 0.02 {
				t.Errorf("Palette(%d)[%d] s, v = %.2f, %.2f", n, i, s, v)
			}
			r, g, b := parsed.RGB255()
			if r != c.R || g != c.G || b != c.B {
				t.Errorf("hex %q does not match rgb %d %d %d", c.Hex, c.R, c.G, c.B)
			}
		}
	}
}

// TestDescribe tests selection lookups.
func TestDescribe(t *testing.T) {
	t.Parallel()

	_, e := setup(t, newFamily())

	t.Run("selection returns the summary", func(t *testing.T) {
		t.Parallel()

		if got, ok := e.DescribeSelection("Olympias"); !ok || got != "Queen." {
			t.Errorf("DescribeSelection() = %q, %v", got, ok)
		}
		if _, ok := e.DescribeSelection("Nobody"); ok {
			t.Error("expected no summary for an unknown title")
		}
	})

	tests := []struct {
		name           string
		source, target string
		want           []Relation
	}{
		{
			name:   "one-sided relation",
			source: "Philip II of Macedon",
			target: "Alexander the Great",
			want: []Relation{
				{Owner: "Philip II of Macedon", Fields: []string{"children"}, Other: "Alexander the Great"},
			},
		},
		{
			name:   "one-sided relation seen from the other end",
			source: "Alexander the Great",
			target: "Philip II of Macedon",
			want: []Relation{
				{Owner: "Philip II of Macedon", Fields: []string{"children"}, Other: "Alexander the Great"},
			},
		},
		{
			name:   "both directions",
			source: "Philip II of Macedon",
			target: "Olympias",
			want: []Relation{
				{Owner: "Philip II of Macedon", Fields: []string{"spouse"}, Other: "Olympias"},
				{Owner: "Olympias", Fields: []string{"spouse"}, Other: "Philip II of Macedon"},
			},
		},
		{
			name:   "links through an alias",
			source: "Olympias",
			target: "Alexander the Great",
			want: []Relation{
				{Owner: "Olympias", Fields: []string{"children"}, Other: "Alexander the Great"},
				{Owner: "Alexander the Great", Fields: []string{"mother"}, Other: "Olympias"},
			},
		},
		{
			name:   "unrelated",
			source: "Olympias",
			target: "Homer (poet)",
			want:   []Relation{},
		},
		{
			name:   "unknown title",
			source: "Olympias",
			target: "Nobody",
			want:   []Relation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, e.DescribeRelation(tt.source, tt.target)); diff != "" {
				t.Errorf("DescribeRelation() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
