package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/config"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <title>...",
		Short: "Build the network around one or more people",
		Long: `Crawl adds each title to the graph and expands it --depth levels: the people
linked from the infobox of every person found so far are added, along with an
edge labeled by the infobox fields that link them.

Titles that are not people are skipped with a warning. Interrupting the crawl
(Ctrl+C) stops after the current level and writes the levels completed so far.

Examples:
  # Aristotle and the people his infobox links to
  peoplenet crawl Aristotle

  # Two levels around two people, as JSON for a graph renderer
  peoplenet crawl --depth 2 --json "Ada Lovelace" "Charles Babbage"

  # Markdown report written to a file, metrics for node_exporter
  peoplenet crawl -m -o report.md --metrics-file /var/lib/node_exporter/peoplenet.prom Plato`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Levels expanded around each title")
	cmd.Flags().Int("max-nodes", config.DefaultMaxNodes,
		"People one expansion may add (0 means unlimited)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file after the crawl")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	// Handle interrupt signals
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}

	runErr := runCrawl(ctx, a, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := a.Close(); err != nil {
		logger.Error("cleanup failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// runCrawl expands every root and writes one report of the resulting graph.
// When an expansion fails after the graph was changed, the report is still
// written and marked partial.
func runCrawl(ctx context.Context, a *app, roots []string, stdout, stderr io.Writer) error {
	cfg := a.cfg
	a.logger.Info("starting crawl",
		"roots", roots,
		"depth", cfg.Depth,
		"endpoint", cfg.Endpoint,
		"cache", cfg.UseCache,
	)

	start := time.Now()
	var crawlErr error
	for _, root := range roots {
		added, err := a.builder.AddPerson(ctx, root, cfg.Depth)
		if err != nil {
			crawlErr = fmt.Errorf("failed to expand %q: %w", root, err)
			break
		}
		if !added {
			a.logger.Warn("not a person, skipped", "title", root)
			fmt.Fprintf(stderr, "Skipped %q: not a person\n", root)
		}
	}

	stats := a.builder.Stats()
	a.logger.Info("crawl finished",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"people", stats.Nodes,
		"relations", stats.Edges,
		"cachedPages", stats.CachedPages,
	)

	if crawlErr != nil && stats.Nodes == 0 {
		return crawlErr
	}
	if errors.Is(crawlErr, context.Canceled) {
		fmt.Fprintln(stderr, "Crawl interrupted, writing completed levels")
	}

	if err := writeReport(a, roots, crawlErr, stdout); err != nil {
		return errors.Join(crawlErr, err)
	}
	return crawlErr
}

// writeReport renders the current graph to the configured destination.
func writeReport(a *app, roots []string, crawlErr error, stdout io.Writer) error {
	out, err := openOutput(a.cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer out.Close()

	w, err := newWriter(out, reportFormat(a.cfg), a.cfg.Verbose)
	if err != nil {
		return err
	}
	if _, err := w.Write(a.newReport(roots, a.cfg.Depth, crawlErr)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
