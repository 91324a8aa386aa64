package crawler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/nao1215/peoplenet/internal/graph"
	"github.com/nao1215/peoplenet/internal/infobox"
	"github.com/nao1215/peoplenet/internal/wiki"
	"github.com/nao1215/peoplenet/internal/wiki/wikitest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newPhilosophers returns a source with a small network:
//
//	Aristotle -> Plato, Alexander the Great (and the non-person Stagira)
//	Plato -> Socrates, Aristotle
//	Alexander the Great -> Aristotle
//	Socrates -> Plato, Xenophon
func newPhilosophers() *wikitest.Source {
	return wikitest.NewSource().
		AddPage("Aristotle", "| birth_date = 384 BC | birth_place = [[Stagira]] | teacher = [[Plato]] | notable_students = [[Alexander the Great|Alexander]]", "Greek philosopher.").
		AddPage("Plato", "| birth_date = 428 BC | teacher = [[Socrates]] | students = [[Aristotle]]", "Athenian philosopher.").
		AddPage("Socrates", "| birth_date = 470 BC | influenced = [[Plato]], [[Xenophon]]", "").
		AddPage("Xenophon", "| birth_date = 430 BC", "").
		AddPage("Alexander the Great", "| birth_date = 356 BC | tutor = [[Aristotle]]", "King of Macedon.").
		AddPage("Stagira", "| population = 100", "Ancient city.").
		AddRedirect("Platon", "Plato").
		AddThumbnail("Aristotle", "https://upload.example/aristotle.jpg").
		AddThumbnail("Plato", "https://upload.example/plato.jpg")
}

// newChain returns a source with the chain A -> B -> C -> D.
func newChain() *wikitest.Source {
	return wikitest.NewSource().
		AddPage("A", "| birth_date = 1 | next = [[B]]", "").
		AddPage("B", "| birth_date = 2 | next = [[C]]", "").
		AddPage("C", "| birth_date = 3 | next = [[D]]", "").
		AddPage("D", "| birth_date = 4", "")
}

func newBuilder(source wiki.Source, opts ...BuilderOption) *Builder {
	return NewBuilder(wiki.NewStore(source), opts...)
}

// distances returns the undirected hop distance of every node from root.
func distances(g *graph.Graph, root string) map[string]int {
	dist := map[string]int{root: 0}
	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(current) {
			if _, ok := dist[n]; !ok {
				dist[n] = dist[current] + 1
				queue = append(queue, n)
			}
		}
	}
	return dist
}

// TestAddPerson tests graph expansion.
func TestAddPerson(t *testing.T) {
	t.Parallel()

	t.Run("depth 0 adds exactly the root", func(t *testing.T) {
		t.Parallel()

		source := newPhilosophers()
		b := newBuilder(source)
		ok, err := b.AddPerson(context.Background(), "Aristotle", 0)
		if err != nil || !ok {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}

		g := b.Snapshot()
		if diff := cmp.Diff([]string{"Aristotle"}, g.Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
		if g.EdgeCount() != 0 {
			t.Errorf("expected no edges, got %v", g.Edges())
		}

		p, _ := b.Store().Lookup("Aristotle")
		if !p.UserAdded || p.PortraitURL != "https://upload.example/aristotle.jpg" {
			t.Errorf("expected user-added root with portrait, got %+v", p)
		}
	})

	t.Run("non-person leaves the graph unchanged", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers())
		ctx := context.Background()
		if _, err := b.AddPerson(ctx, "Xenophon", 0); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}

		for _, title := range []string{"Stagira", "Nobody", ""} {
			ok, err := b.AddPerson(ctx, title, 2)
			if err != nil || ok {
				t.Errorf("AddPerson(%q) = %v, %v", title, ok, err)
			}
		}
		if diff := cmp.Diff([]string{"Xenophon"}, b.Snapshot().Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("aristotle links to plato as teacher", func(t *testing.T) {
		t.Parallel()

		source := wikitest.NewSource().
			AddPage("Aristotle", "| birth_date = 1 Jan | teacher = [[Plato]]", "").
			AddPage("Plato", "| birth_date = 428 BC", "")
		b := newBuilder(source)
		if ok, err := b.AddPerson(context.Background(), "Aristotle", 1); err != nil || !ok {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}

		g := b.Snapshot()
		if diff := cmp.Diff([]string{"Aristotle", "Plato"}, g.Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
		want := []graph.Edge{{From: "Aristotle", To: "Plato", Labels: []string{"teacher"}}}
		if diff := cmp.Diff(want, g.Edges()); diff != "" {
			t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("levels expand breadth first", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers())
		if ok, err := b.AddPerson(context.Background(), "Aristotle", 2); err != nil || !ok {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}

		g := b.Snapshot()
		wantNodes := []string{"Alexander the Great", "Aristotle", "Plato", "Socrates"}
		if diff := cmp.Diff(wantNodes, g.Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
		wantEdges := []graph.Edge{
			{From: "Alexander the Great", To: "Aristotle", Labels: []string{"tutor"}},
			{From: "Aristotle", To: "Alexander the Great", Labels: []string{"notable_students"}},
			{From: "Aristotle", To: "Plato", Labels: []string{"teacher"}},
			{From: "Plato", To: "Aristotle", Labels: []string{"students"}},
			{From: "Plato", To: "Socrates", Labels: []string{"teacher"}},
		}
		if diff := cmp.Diff(wantEdges, g.Edges()); diff != "" {
			t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
		}

		plato, _ := b.Store().Lookup("Plato")
		if plato.UserAdded {
			t.Error("discovered nodes must not be user-added")
		}
		if plato.PortraitURL != "https://upload.example/plato.jpg" {
			t.Errorf("expected portrait for discovered node, got %q", plato.PortraitURL)
		}
	})

	t.Run("edges stay within depth hops of the root", func(t *testing.T) {
		t.Parallel()

		for depth := 0; depth <= 4; depth++ {
			b := newBuilder(newPhilosophers())
			if _, err := b.AddPerson(context.Background(), "Socrates", depth); err != nil {
				t.Fatalf("AddPerson(depth %d) error = %v", depth, err)
			}
			g := b.Snapshot()
			dist := distances(g, "Socrates")
			for _, e := range g.Edges() {
				df, okf := dist[e.From]
				dt, okt := dist[e.To]
				if !okf || !okt || min(df, dt) > depth-1 {
					t.Errorf("depth %d: edge %s -> %s is not within %d hops", depth, e.From, e.To, depth)
				}
			}
			for _, n := range g.Nodes() {
				if dist[n] > depth {
					t.Errorf("depth %d: node %s at distance %d", depth, n, dist[n])
				}
			}
		}
	})

	t.Run("display text does not change labels", func(t *testing.T) {
		t.Parallel()

		for _, sidebar := range []string{
			"| birth_date = 1 | spouse = [[Pythias]]",
			"| birth_date = 1 | spouse = [[Pythias|his wife]]",
		} {
			source := wikitest.NewSource().
				AddPage("Aristotle", sidebar, "").
				AddPage("Pythias", "| birth_date = 2", "")
			b := newBuilder(source)
			if _, err := b.AddPerson(context.Background(), "Aristotle", 1); err != nil {
				t.Fatalf("AddPerson() error = %v", err)
			}
			labels, ok := b.Snapshot().Labels("Aristotle", "Pythias")
			if !ok {
				t.Fatalf("expected edge for %q", sidebar)
			}
			if diff := cmp.Diff(infobox.LinkInfo(sidebar, "Pythias"), labels); diff != "" {
				t.Errorf("labels mismatch for %q (-want +got):\n%s", sidebar, diff)
			}
		}
	})

	t.Run("redirects merge into the canonical node", func(t *testing.T) {
		t.Parallel()

		source := newPhilosophers().
			AddPage("Dion", "| birth_date = 408 BC | teacher = [[Platon]] | influences = [[Plato]] | self = [[Dion]]", "")
		b := newBuilder(source)
		if _, err := b.AddPerson(context.Background(), "Dion", 1); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}

		g := b.Snapshot()
		want := []graph.Edge{{From: "Dion", To: "Plato", Labels: []string{"teacher", "influences"}}}
		if diff := cmp.Diff(want, g.Edges()); diff != "" {
			t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
		}
		if g.HasNode("Platon") {
			t.Error("alias must not become a node")
		}
	})

	t.Run("root alias resolves to the canonical title", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers())
		if ok, err := b.AddPerson(context.Background(), "Platon", 0); err != nil || !ok {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}
		if diff := cmp.Diff([]string{"Plato"}, b.Snapshot().Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reset and re-add need no remote calls", func(t *testing.T) {
		t.Parallel()

		source := newPhilosophers()
		b := newBuilder(source)
		ctx := context.Background()
		if _, err := b.AddPerson(ctx, "Aristotle", 1); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}
		first := b.Snapshot()

		if err := b.Reset(); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if b.Snapshot().Len() != 0 {
			t.Fatal("expected empty graph after reset")
		}
		if p, _ := b.Store().Lookup("Aristotle"); p.UserAdded {
			t.Error("expected user-added flag cleared by reset")
		}

		before := source.Calls()
		if _, err := b.AddPerson(ctx, "Aristotle", 1); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}
		if got := source.Calls() - before; got != 0 {
			t.Errorf("expected 0 additional calls, got %d", got)
		}

		second := b.Snapshot()
		if diff := cmp.Diff(first.Nodes(), second.Nodes()); diff != "" {
			t.Errorf("nodes differ after reset (-first +second):\n%s", diff)
		}
		if diff := cmp.Diff(first.Edges(), second.Edges()); diff != "" {
			t.Errorf("edges differ after reset (-first +second):\n%s", diff)
		}
	})

	t.Run("visited titles are not fetched again", func(t *testing.T) {
		t.Parallel()

		source := newPhilosophers()
		b := newBuilder(source)
		ctx := context.Background()
		if _, err := b.AddPerson(ctx, "Aristotle", 1); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}

		before := source.Calls()
		// Stagira was classified as a non-person during the first call.
		if ok, err := b.AddPerson(ctx, "Stagira", 1); err != nil || ok {
			t.Fatalf("AddPerson(Stagira) = %v, %v", ok, err)
		}
		if _, err := b.AddPerson(ctx, "Plato", 0); err != nil {
			t.Fatalf("AddPerson(Plato) error = %v", err)
		}
		if got := source.Calls() - before; got != 0 {
			t.Errorf("expected 0 additional calls, got %d", got)
		}
	})

	t.Run("remote failure keeps completed levels", func(t *testing.T) {
		t.Parallel()

		source := newPhilosophers().FailOn("Plato", errors.New("unavailable"))
		b := newBuilder(source)
		ctx := context.Background()

		ok, err := b.AddPerson(ctx, "Aristotle", 1)
		if !ok || !errors.Is(err, wiki.ErrRemote) {
			t.Fatalf("AddPerson() = %v, %v; want true and a remote error", ok, err)
		}
		if diff := cmp.Diff([]string{"Aristotle"}, b.Snapshot().Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
		if b.Store().Visited("Stagira") {
			t.Error("failed batch must not be cached")
		}

		source.FailOn("Plato", nil)
		if ok, err := b.AddPerson(ctx, "Aristotle", 1); err != nil || !ok {
			t.Fatalf("retry AddPerson() = %v, %v", ok, err)
		}
		if b.Snapshot().Len() != 3 {
			t.Errorf("expected 3 nodes after retry, got %v", b.Snapshot().Nodes())
		}
	})

	t.Run("remote failure on the root", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers().FailOn("Aristotle", errors.New("unavailable")))
		ok, err := b.AddPerson(context.Background(), "Aristotle", 1)
		if ok || !errors.Is(err, wiki.ErrRemote) {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}
		if b.Snapshot().Len() != 0 {
			t.Error("expected empty graph")
		}
	})

	t.Run("cancellation stops between levels", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		source := newChain()
		source.OnQuery(func(q wiki.Query) {
			if slices.Contains(q.Titles, "C") {
				cancel()
			}
		})
		b := newBuilder(source)

		ok, err := b.AddPerson(ctx, "A", 3)
		if !ok || !errors.Is(err, context.Canceled) {
			t.Fatalf("AddPerson() = %v, %v; want true and context.Canceled", ok, err)
		}
		want := []graph.Edge{{From: "A", To: "B", Labels: []string{"next"}}}
		if diff := cmp.Diff(want, b.Snapshot().Edges()); diff != "" {
			t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
		}
		if b.Store().Visited("C") {
			t.Error("cancelled batch must not be cached")
		}
		if b.Busy() {
			t.Error("builder still busy after cancellation")
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := newBuilder(newChain())
		ok, err := b.AddPerson(ctx, "A", 1)
		if ok || !errors.Is(err, context.Canceled) {
			t.Fatalf("AddPerson() = %v, %v", ok, err)
		}
	})

	t.Run("node limit", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers(), WithMaxNodes(2))
		if _, err := b.AddPerson(context.Background(), "Aristotle", 2); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}
		g := b.Snapshot()
		if diff := cmp.Diff([]string{"Aristotle", "Plato"}, g.Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
		if !g.HasEdge("Plato", "Aristotle") {
			t.Error("edges between present nodes must still be recorded")
		}
	})

	t.Run("field filters", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			opts []BuilderOption
			want []string
		}{
			{
				name: "follow teacher only",
				opts: []BuilderOption{WithFollowFields("teacher")},
				want: []string{"Aristotle", "Plato", "Socrates"},
			},
			{
				name: "ignore students by glob",
				opts: []BuilderOption{WithIgnoreFields("*students", "Tutor")},
				want: []string{"Aristotle", "Plato", "Socrates"},
			},
			{
				name: "ignore wins over follow",
				opts: []BuilderOption{WithFollowFields("*"), WithIgnoreFields("teacher")},
				want: []string{"Alexander the Great", "Aristotle"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				b := newBuilder(newPhilosophers(), tt.opts...)
				if _, err := b.AddPerson(context.Background(), "Aristotle", 2); err != nil {
					t.Fatalf("AddPerson() error = %v", err)
				}
				if diff := cmp.Diff(tt.want, b.Snapshot().Nodes()); diff != "" {
					t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("depth is validated", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(newPhilosophers(), WithMaxDepth(2))
		ctx := context.Background()
		for _, depth := range []int{-1, 3} {
			if _, err := b.AddPerson(ctx, "Aristotle", depth); !errors.Is(err, ErrDepthOutOfRange) {
				t.Errorf("AddPerson(depth %d) error = %v, want ErrDepthOutOfRange", depth, err)
			}
			if _, err := b.RemovePerson("Aristotle", depth); !errors.Is(err, ErrDepthOutOfRange) {
				t.Errorf("RemovePerson(depth %d) error = %v, want ErrDepthOutOfRange", depth, err)
			}
		}
	})
}

// TestRemovePerson tests cascading removal.
func TestRemovePerson(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T) *Builder {
		t.Helper()

		b := newBuilder(newPhilosophers())
		if _, err := b.AddPerson(context.Background(), "Aristotle", 2); err != nil {
			t.Fatalf("AddPerson() error = %v", err)
		}
		return b
	}

	tests := []struct {
		name      string
		title     string
		depth     int
		wantNodes []string
	}{
		{
			name:      "depth 0 leaves neighbors isolated",
			title:     "Plato",
			depth:     0,
			wantNodes: []string{"Alexander the Great", "Aristotle", "Socrates"},
		},
		{
			name:      "depth 1 removes direct neighbors",
			title:     "Plato",
			depth:     1,
			wantNodes: []string{"Alexander the Great"},
		},
		{
			name:      "depth 2 cascades further",
			title:     "Plato",
			depth:     2,
			wantNodes: []string{},
		},
		{
			name:      "leaf",
			title:     "Socrates",
			depth:     0,
			wantNodes: []string{"Alexander the Great", "Aristotle", "Plato"},
		},
		{
			name:      "alias",
			title:     "Platon",
			depth:     0,
			wantNodes: []string{"Alexander the Great", "Aristotle", "Socrates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := build(t)
			if tt.title == "Platon" {
				if _, err := b.Store().FetchPage(context.Background(), "Platon"); err != nil {
					t.Fatalf("FetchPage() error = %v", err)
				}
			}

			ok, err := b.RemovePerson(tt.title, tt.depth)
			if err != nil || !ok {
				t.Fatalf("RemovePerson() = %v, %v", ok, err)
			}
			g := b.Snapshot()
			if diff := cmp.Diff(tt.wantNodes, g.Nodes()); diff != "" {
				t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
			}
			for _, e := range g.Edges() {
				if !g.HasNode(e.From) || !g.HasNode(e.To) {
					t.Errorf("dangling edge %v", e)
				}
			}
		})
	}

	t.Run("depth 0 removes incident edges", func(t *testing.T) {
		t.Parallel()

		b := build(t)
		if _, err := b.RemovePerson("Socrates", 0); err != nil {
			t.Fatalf("RemovePerson() error = %v", err)
		}
		g := b.Snapshot()
		if g.HasEdge("Plato", "Socrates") {
			t.Error("expected incident edge removed")
		}
		if g.EdgeCount() != 4 {
			t.Errorf("expected 4 edges left, got %v", g.Edges())
		}
	})

	t.Run("missing title", func(t *testing.T) {
		t.Parallel()

		b := build(t)
		for _, title := range []string{"Xenophon", "Stagira", "Nobody"} {
			ok, err := b.RemovePerson(title, 1)
			if err != nil || ok {
				t.Errorf("RemovePerson(%q) = %v, %v", title, ok, err)
			}
		}
		if b.Snapshot().Len() != 4 {
			t.Error("graph changed on a failed removal")
		}
	})

	t.Run("clears user-added flag", func(t *testing.T) {
		t.Parallel()

		b := build(t)
		if _, err := b.RemovePerson("Aristotle", 0); err != nil {
			t.Fatalf("RemovePerson() error = %v", err)
		}
		if p, _ := b.Store().Lookup("Aristotle"); p.UserAdded {
			t.Error("expected user-added flag cleared")
		}
	})
}

// TestBusy tests that operations do not overlap.
func TestBusy(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	source := newPhilosophers().OnQuery(func(wiki.Query) {
		once.Do(func() {
			close(started)
			<-release
		})
	})
	b := newBuilder(source)

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := b.AddPerson(context.Background(), "Aristotle", 1)
		done <- result{ok, err}
	}()
	<-started

	if !b.Busy() {
		t.Error("expected Busy() during an operation")
	}
	if _, err := b.AddPerson(context.Background(), "Plato", 0); !errors.Is(err, ErrBusy) {
		t.Errorf("AddPerson() error = %v, want ErrBusy", err)
	}
	if _, err := b.RemovePerson("Aristotle", 0); !errors.Is(err, ErrBusy) {
		t.Errorf("RemovePerson() error = %v, want ErrBusy", err)
	}
	if err := b.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset() error = %v, want ErrBusy", err)
	}
	if snapshot := b.Snapshot(); snapshot.Len() != 0 {
		t.Errorf("expected empty snapshot before the first commit, got %v", snapshot.Nodes())
	}

	close(release)
	r := <-done
	if r.err != nil || !r.ok {
		t.Fatalf("AddPerson() = %v, %v", r.ok, r.err)
	}
	if b.Busy() {
		t.Error("expected Busy() to clear")
	}

	stats := b.Stats()
	if stats.Nodes != 3 || stats.Edges != 2 || stats.CachedPages != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
