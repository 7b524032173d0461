package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archlint/internal/export"
)

var (
	exportRules    string
	exportOut      string
	exportCompress bool
	exportFormat   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Evaluate rules and write a report file",
	Long: `Evaluate every rule and write the violation report as JSON with run
provenance (run id, rules path, timestamp, duration, tool version).
Unlike check, the exit code reflects only operational success; gate CI
on check instead.

Examples:
  archlint export
  archlint export --out=out/reports --compress`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportRules, "rules", "", "Rule document path (default from config)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Report output directory (default from config)")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Compress the report with zstd")
	exportCmd.Flags().StringVar(&exportFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(exportFormat)

	repoRoot := mustGetRepoRoot()
	engine, cfg := mustGetEngine(repoRoot, logger)

	rulesPath := resolveRulesPath(repoRoot, exportRules, cfg)
	rs := mustLoadRules(rulesPath, cfg)

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating rules: %v\n", err)
		os.Exit(ExitOperationalError)
	}

	dir := exportOut
	if dir == "" {
		dir = cfg.Export.Dir
	}
	opts := export.Options{
		Dir:        dir,
		RulesPath:  rulesPath,
		IndexState: indexStateID(),
		Compress:   exportCompress || cfg.Export.Compress,
		RuleCount:  len(rs.Rules),
		Duration:   time.Since(start).Milliseconds(),
	}

	exporter := export.NewExporter(repoRoot, logger)
	report := exporter.BuildReport(violations, opts)
	path, err := exporter.Write(report, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(ExitOperationalError)
	}

	if exportFormat == "json" {
		output, err := FormatResponse(report, FormatJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(ExitOperationalError)
		}
		fmt.Println(output)
		return
	}
	fmt.Printf("Report written: %s (%d violations)\n", path, report.Summary.ViolationCount)
}
