package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"archlint/internal/config"
)

var (
	validateRules  string
	validateFormat string
	validateRefs   bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with the rule document",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the rule document without evaluating it",
	Long: `Parse and schema-check the rule document. With --check-refs the node
ids referenced by deny and require matchers are compared against the
index; unknown ids produce warnings, never failures.

Examples:
  archlint rules validate
  archlint rules validate --rules=architecture-rules.toml
  archlint rules validate --check-refs`,
	Run: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateRules, "rules", "", "Rule document path (default from config)")
	validateCmd.Flags().StringVar(&validateFormat, "format", "human", "Output format (json, human)")
	validateCmd.Flags().BoolVar(&validateRefs, "check-refs", false, "Warn about matcher refs absent from the index")
	rulesCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	logger := newLogger(validateFormat)

	repoRoot := mustGetRepoRoot()

	// Reference checking needs the index; plain validation does not,
	// so the config is loaded without opening the database.
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	rulesPath := resolveRulesPath(repoRoot, validateRules, cfg)
	rs := mustLoadRules(rulesPath, cfg)

	var warnings []string

	if validateRefs {
		engine, _ := mustGetEngine(repoRoot, logger)
		refs, err := engine.CheckReferences(rs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking references: %v\n", err)
			os.Exit(ExitOperationalError)
		}
		warnings = refs
	}

	response := &ValidateResponseCLI{
		RulesPath:  rulesPath,
		Valid:      true,
		Version:    rs.Version,
		RuleCounts: rs.CountByKind(),
		Warnings:   warnings,
	}

	output, err := FormatResponse(response, OutputFormat(validateFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(ExitOperationalError)
	}
	fmt.Println(output)
}
