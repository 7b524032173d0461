// Package export writes evaluation reports to disk for CI artifacts
// and later inspection. Reports are JSON, optionally zstd-compressed.
package export

import (
	"archlint/internal/fitness"
)

// Report is the on-disk evaluation report
type Report struct {
	Metadata   ReportMetadata      `json:"metadata"`
	Summary    ReportSummary       `json:"summary"`
	Violations []fitness.Violation `json:"violations"`
}

// ReportMetadata records the provenance of one evaluation run
type ReportMetadata struct {
	RunID      string `json:"runId"`
	Repo       string `json:"repo"`
	RulesPath  string `json:"rulesPath"`
	IndexState string `json:"indexState,omitempty"`
	Generated  string `json:"generated"` // ISO 8601 timestamp
	DurationMS int64  `json:"durationMs"`
	Version    string `json:"version"`
}

// ReportSummary aggregates the violation list
type ReportSummary struct {
	RuleCount      int `json:"ruleCount"`
	ViolationCount int `json:"violationCount"`
	Errors         int `json:"errors"`
	Warnings       int `json:"warnings"`
}

// Options configures one report write
type Options struct {
	Dir        string // Output directory, created if missing
	RulesPath  string // Rules file the run evaluated
	IndexState string // Opaque index state id, empty when unknown
	Compress   bool   // Write .json.zst instead of .json
	RuleCount  int
	Duration   int64 // Milliseconds
}
