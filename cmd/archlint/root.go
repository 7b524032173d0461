package main

import (
	"github.com/spf13/cobra"

	"archlint/internal/version"
)

// Exit codes. Violations and operational failures are distinguished so
// CI pipelines can tell a failing architecture from a failing tool.
const (
	ExitClean            = 0
	ExitViolations       = 1
	ExitOperationalError = 2
)

var rootCmd = &cobra.Command{
	Use:   "archlint",
	Short: "archlint - architecture fitness checks",
	Long: `archlint evaluates declarative architecture rules against the dependency
graph, resolved imports, and file annotations stored in the repository index.

Rule kinds:
  deny            forbid dependencies between matched nodes
  require         mandate an outgoing relation from matched nodes
  forbid_cycles   reject dependency cycles up to a depth bound
  forbid_import   forbid imports crossing a path glob boundary`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("archlint version {{.Version}}\n")
}
