package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// runSession runs a scripted session and returns its output.
func runSession(t *testing.T, s *session, script ...string) string {
	t.Helper()

	var out bytes.Buffer
	s.in = strings.NewReader(strings.Join(script, "\n") + "\n")
	s.out = &out
	if err := s.run(t.Context()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	return out.String()
}

// TestSession tests the interactive commands.
func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("scripted session", func(t *testing.T) {
		t.Parallel()

		a := newTestApp(t, newPhilosophers(), nil)
		out := runSession(t, newSession(a, nil, nil),
			"add 1 Aristotle",
			"select Aristotle",
			"select Nobody",
			"relation Aristotle | Plato",
			"relation Aristotle | Stagira",
			"remove 0 Alexander the Great",
			"remove 0 Homer",
			"export json",
			"frobnicate",
			"add x",
			"relation Aristotle",
			"",
			"reset",
			"stats",
			"quit",
			"add 0 Plato",
		)

		wants := []string{
			"3 people",
			"Greek philosopher.",
			`"Nobody" has not been fetched`,
			"Aristotle: teacher -> Plato",
			"Plato: students -> Aristotle",
			"Aristotle: birth_place -> Stagira",
			"2 people",
			`"Homer" is not in the graph`,
			`"id": "Aristotle"`,
			`error: unknown command "frobnicate"`,
			"error: usage: <depth> <title>",
			"error: usage: relation <a> | <b>",
			"graph cleared",
			"0 people, 0 relations",
		}
		for _, want := range wants {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, `"id": "Alexander the Great"`) {
			t.Errorf("expected Alexander the Great to be removed before export:\n%s", out)
		}
		if a.builder.Stats().Nodes != 0 {
			t.Error("expected commands after quit to be ignored")
		}
	})

	t.Run("non-person is reported", func(t *testing.T) {
		t.Parallel()

		a := newTestApp(t, newPhilosophers(), nil)
		out := runSession(t, newSession(a, nil, nil), "add 0 Stagira")
		if !strings.Contains(out, `"Stagira" is not a person`) {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("depth is bounded", func(t *testing.T) {
		t.Parallel()

		a := newTestApp(t, newPhilosophers(), nil)
		out := runSession(t, newSession(a, nil, nil), "add 9 Plato", "remove 9 Plato")
		if strings.Count(out, "error: ") != 2 {
			t.Errorf("expected two errors:\n%s", out)
		}
	})

	t.Run("interrupted add keeps the session", func(t *testing.T) {
		t.Parallel()

		a := newTestApp(t, newPhilosophers(), nil)
		s := newSession(a, nil, nil)
		s.interrupt = func(ctx context.Context) (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(ctx)
			cancel()
			return ctx, cancel
		}

		out := runSession(t, s, "add 1 Aristotle", "help")
		if !strings.Contains(out, "cancelled, completed levels kept") {
			t.Errorf("expected cancellation notice:\n%s", out)
		}
		if !strings.Contains(out, "Commands:") {
			t.Errorf("expected the session to continue after cancellation:\n%s", out)
		}
	})

	t.Run("end of input ends the session", func(t *testing.T) {
		t.Parallel()

		a := newTestApp(t, newPhilosophers(), nil)
		var out bytes.Buffer
		s := newSession(a, strings.NewReader(""), &out)
		if err := s.run(t.Context()); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if !strings.HasPrefix(out.String(), "peoplenet session.") {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}

// TestDepthAndTitle tests argument splitting.
func TestDepthAndTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args      string
		wantDepth int
		wantTitle string
		wantErr   bool
	}{
		{args: "2 Ada Lovelace", wantDepth: 2, wantTitle: "Ada Lovelace"},
		{args: "0 Plato ", wantDepth: 0, wantTitle: "Plato"},
		{args: "Plato", wantErr: true},
		{args: "two Plato", wantErr: true},
		{args: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			t.Parallel()

			depth, title, err := depthAndTitle(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if depth != tt.wantDepth || title != tt.wantTitle {
				t.Errorf("got (%d, %q), want (%d, %q)", depth, title, tt.wantDepth, tt.wantTitle)
			}
		})
	}
}
