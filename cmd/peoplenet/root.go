package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for peoplenet.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peoplenet",
		Short: "Build a network of famous people from wiki infoboxes",
		Long: `peoplenet crawls a MediaWiki content API, starting from one person, and follows
the links in the infobox of each page. Linked pages that describe a person become
nodes; the infobox fields that link them become labeled edges.

The resulting graph is grouped into communities, laid out and exported as JSON,
Markdown or plain text. Fetched pages are kept in memory for the run, so each page
is requested once. With --cache they are also stored on disk and reused by later
runs.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .peoplenet in current or home directory)")
	cmd.PersistentFlags().String("endpoint", "",
		"MediaWiki api.php URL (default: English Wikipedia)")
	cmd.PersistentFlags().Bool("cache", false,
		"Store fetched pages in the on-disk cache and reuse them across runs")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSessionCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
