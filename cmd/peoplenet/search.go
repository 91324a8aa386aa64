package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/wiki"
)

// defaultSearchLimit is the number of hits printed by default.
const defaultSearchLimit = 10

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Find page titles to start a crawl from",
		Long: `Search runs a full-text search on the wiki and prints matching page titles with
a short snippet. Use it to find the exact title of a person before crawling.

Examples:
  peoplenet search lovelace
  peoplenet search --limit 3 "greek philosopher"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultSearchLimit, "Maximum number of results")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	// Search never touches the page cache.
	cfg.UseCache = false
	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	hits, err := a.client.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printHits(cmd, hits)
	return nil
}

func printHits(cmd *cobra.Command, hits []wiki.SearchHit) {
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}
	for i, h := range hits {
		fmt.Fprintf(out, "%2d. %s\n", i+1, h.Title)
		if h.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", h.Snippet)
		}
	}
}
