package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archlint/internal/export"
	"archlint/internal/fitness"
	"archlint/internal/rules"
)

var (
	checkRules      string
	checkFormat     string
	checkStrictWarn bool
	checkReport     bool
	checkReportDir  string
	checkCompress   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate architecture rules against the index",
	Long: `Evaluate every rule in the rule document against the repository index
and report violations.

Exit codes:
  0  no violations, or warnings only
  1  at least one error-severity violation (warnings too with --strict-warn)
  2  rules invalid, index unavailable, or another operational failure

Examples:
  archlint check
  archlint check --rules=architecture-rules.yaml
  archlint check --format=json
  archlint check --strict-warn
  archlint check --report --report-dir=out/`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRules, "rules", "", "Rule document path (default from config)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format (json, human)")
	checkCmd.Flags().BoolVar(&checkStrictWarn, "strict-warn", false, "Treat warnings as failures")
	checkCmd.Flags().BoolVar(&checkReport, "report", false, "Write a report file for this run")
	checkCmd.Flags().StringVar(&checkReportDir, "report-dir", "", "Report output directory (default from config)")
	checkCmd.Flags().BoolVar(&checkCompress, "compress", false, "Compress the report with zstd")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(checkFormat)

	repoRoot := mustGetRepoRoot()
	engine, cfg := mustGetEngine(repoRoot, logger)

	rulesPath := resolveRulesPath(repoRoot, checkRules, cfg)
	rs := mustLoadRules(rulesPath, cfg)

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating rules: %v\n", err)
		os.Exit(ExitOperationalError)
	}

	counts := fitness.CountBySeverity(violations)
	response := &CheckResponseCLI{
		RulesPath:  rulesPath,
		RuleCount:  len(rs.Rules),
		Errors:     counts[rules.SeverityError],
		Warnings:   counts[rules.SeverityWarn],
		Violations: violations,
	}

	if checkReport {
		dir := checkReportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		opts := export.Options{
			Dir:        dir,
			RulesPath:  rulesPath,
			IndexState: indexStateID(),
			Compress:   checkCompress || cfg.Export.Compress,
			RuleCount:  len(rs.Rules),
			Duration:   time.Since(start).Milliseconds(),
		}

		exporter := export.NewExporter(repoRoot, logger)
		report := exporter.BuildReport(violations, opts)
		path, err := exporter.Write(report, opts)
		if err != nil {
			logger.Warn("Failed to write report", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response.ReportPath = path
	}

	output, err := FormatResponse(response, OutputFormat(checkFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(ExitOperationalError)
	}
	fmt.Println(output)

	if response.Errors > 0 || (checkStrictWarn && response.Warnings > 0) {
		os.Exit(ExitViolations)
	}
}
