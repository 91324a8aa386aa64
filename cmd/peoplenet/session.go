package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/crawler"
)

// sessionHelp lists the session commands.
const sessionHelp = `Commands:
  add <depth> <title>       add a person and expand <depth> levels around them
  remove <depth> <title>    remove a person and <depth> layers of neighbors
  reset                     empty the graph (the page cache is kept)
  export [text|json|markdown]
                            print the current graph
  select <title>            print the summary of a person
  relation <a> | <b>        print the infobox fields linking two people
  stats                     print graph statistics
  help                      print this help
  quit                      leave the session

Ctrl+C cancels a running add and keeps the levels completed so far.
`

// NewSessionCmd creates the session command.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Edit the network interactively",
		Long: `Session reads commands from standard input, one per line, and applies them
to one graph that lives for the whole session. It is the line-oriented
counterpart of an interactive graph view: people are added and removed,
the graph is exported at any point, and selections print what a viewer
would show for a clicked node or edge.

` + sessionHelp,
		Args: cobra.NoArgs,
		RunE: runSessionCmd,
	}

	cmd.Flags().Int("max-nodes", 0,
		"People one expansion may add (default from config, 0 means unlimited)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file when the session ends")

	return cmd
}

// runSessionCmd executes the session command.
func runSessionCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}

	s := newSession(a, cmd.InOrStdin(), cmd.OutOrStdout())
	runErr := s.run(cmd.Context())
	if err := a.Close(); err != nil {
		logger.Error("cleanup failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// session is one interactive editing session.
type session struct {
	app *app
	in  io.Reader
	out io.Writer

	// interrupt derives the context of one operation. The default cancels
	// it on SIGINT.
	interrupt func(context.Context) (context.Context, context.CancelFunc)
}

func newSession(a *app, in io.Reader, out io.Writer) *session {
	return &session{
		app: a,
		in:  in,
		out: out,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
}

// errQuit ends the session loop.
var errQuit = errors.New("quit")

// run reads commands until quit, end of input, or ctx is done.
// Failed commands are reported and the session continues.
func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "peoplenet session. Type \"help\" for commands.")

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// execute runs one command line.
func (s *session) execute(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "":
		return nil
	case "add":
		return s.add(ctx, rest)
	case "remove", "rm":
		return s.remove(rest)
	case "reset":
		if err := s.app.builder.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "graph cleared")
		return nil
	case "export":
		return s.export(rest)
	case "select":
		return s.selectPerson(rest)
	case "relation":
		return s.relation(rest)
	case "stats":
		s.printStats()
		return nil
	case "help", "?":
		fmt.Fprint(s.out, sessionHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type \"help\")", name)
	}
}

// depthAndTitle splits "<depth> <title>".
func depthAndTitle(args string) (int, string, error) {
	d, title, _ := strings.Cut(args, " ")
	title = strings.TrimSpace(title)
	depth, err := strconv.Atoi(d)
	if err != nil || title == "" {
		return 0, "", errors.New("usage: <depth> <title>")
	}
	return depth, title, nil
}

func (s *session) add(ctx context.Context, args string) error {
	depth, title, err := depthAndTitle(args)
	if err != nil {
		return err
	}

	opCtx, cancel := s.interrupt(ctx)
	defer cancel()

	added, err := s.app.builder.AddPerson(opCtx, title, depth)
	switch {
	case errors.Is(err, crawler.ErrBusy):
		return err
	case err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil:
		fmt.Fprintln(s.out, "cancelled, completed levels kept")
	case err != nil:
		return err
	case !added:
		fmt.Fprintf(s.out, "%q is not a person\n", title)
		return nil
	}
	s.printStats()
	return nil
}

func (s *session) remove(args string) error {
	depth, title, err := depthAndTitle(args)
	if err != nil {
		return err
	}
	removed, err := s.app.builder.RemovePerson(title, depth)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(s.out, "%q is not in the graph\n", title)
		return nil
	}
	s.printStats()
	return nil
}

func (s *session) export(format string) error {
	w, err := newWriter(s.out, format, s.app.cfg.Verbose)
	if err != nil {
		return err
	}
	_, err = w.Write(s.app.newReport(nil, 0, nil))
	return err
}

func (s *session) selectPerson(title string) error {
	if title == "" {
		return errors.New("usage: select <title>")
	}
	summary, ok := s.app.exporter.DescribeSelection(title)
	if !ok {
		fmt.Fprintf(s.out, "%q has not been fetched\n", title)
		return nil
	}
	if summary == "" {
		summary = "(no summary)"
	}
	fmt.Fprintln(s.out, summary)
	return nil
}

func (s *session) relation(args string) error {
	a, b, ok := strings.Cut(args, "|")
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !ok || a == "" || b == "" {
		return errors.New("usage: relation <a> | <b>")
	}

	relations := s.app.exporter.DescribeRelation(a, b)
	if len(relations) == 0 {
		fmt.Fprintf(s.out, "no relation between %q and %q\n", a, b)
		return nil
	}
	for _, r := range relations {
		fmt.Fprintf(s.out, "%s: %s -> %s\n", r.Owner, strings.Join(r.Fields, ", "), r.Other)
	}
	return nil
}

func (s *session) printStats() {
	stats := s.app.builder.Stats()
	fmt.Fprintf(s.out, "%d people, %d relations, %d cached pages\n",
		stats.Nodes, stats.Edges, stats.CachedPages)
}
