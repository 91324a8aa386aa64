package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/peoplenet/internal/config"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// getVersion returns version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		if buildInfo.Main.Version != "" {
			return buildInfo.Main.Version
		}
	}
	return "(devel)"
}

// buildSetting returns a VCS setting recorded by the go tool.
func buildSetting(key string) (string, bool) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return "", false
}

// getCommit returns commit hash.
// Priority: ldflags > debug.ReadBuildInfo > "unknown"
func getCommit() string {
	if commit != "" {
		return commit
	}
	if rev, ok := buildSetting("vcs.revision"); ok {
		if len(rev) > 7 {
			return rev[:7]
		}
		return rev
	}
	return "unknown"
}

// getDate returns build date.
// Priority: ldflags > debug.ReadBuildInfo > "unknown"
func getDate() string {
	if date != "" {
		return date
	}
	if t, ok := buildSetting("vcs.time"); ok {
		return t
	}
	return "unknown"
}

// reproducibilityDeps are the modules whose version changes exported
// communities and positions for a fixed seed, or the cache file format.
var reproducibilityDeps = []string{
	"gonum.org/v1/gonum",
	"modernc.org/sqlite",
}

// depVersion returns the version of a dependency linked into the binary.
func depVersion(path string) string {
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range buildInfo.Deps {
			if dep.Path == path {
				if dep.Replace != nil {
					return dep.Replace.Version
				}
				return dep.Version
			}
		}
	}
	return "unknown"
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash, and build date of peoplenet, the default
content API and user agent, and the versions of the graph and cache libraries.
Exports with the same seed are only identical across builds that share them.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "peoplenet version %s\n", getVersion())
			fmt.Fprintf(out, "  commit:     %s\n", getCommit())
			fmt.Fprintf(out, "  built:      %s\n", getDate())
			fmt.Fprintf(out, "  endpoint:   %s\n", config.DefaultEndpoint)
			fmt.Fprintf(out, "  user agent: %s\n", config.DefaultUserAgent)
			for _, path := range reproducibilityDeps {
				fmt.Fprintf(out, "  %s %s\n", path, depVersion(path))
			}
		},
	}
}
