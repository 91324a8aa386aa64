package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/config"
)

//go:embed templates/peoplenet.yaml
var configTemplate embed.FS

// templatePath is the embedded configuration template.
const templatePath = "templates/peoplenet.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new peoplenet configuration file",
		Long: `Initialize creates a new .peoplenet configuration file in the current directory.

The generated file includes:
- The content API endpoint, timeouts and rate limit
- Expansion limits and the infobox fields to follow
- Cache and export settings
- Documentation for all available options

Examples:
  # Create .peoplenet in current directory
  peoplenet init

  # Create config file at a specific path
  peoplenet init -o myconfig.yaml

  # Force overwrite existing file
  peoplenet init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Headers may hold API tokens, so the file is private to the owner.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The wiki endpoint and custom headers")
	fmt.Fprintln(out, "  - Expansion depth and node limits")
	fmt.Fprintln(out, "  - Infobox fields to follow or ignore")

	return nil
}
