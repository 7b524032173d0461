package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"archlint/internal/errors"
	"archlint/internal/fitness"
	"archlint/internal/logging"
	"archlint/internal/rules"
	"archlint/internal/version"
)

// Exporter writes evaluation reports
type Exporter struct {
	repoRoot string
	logger   *logging.Logger
}

// NewExporter creates a report exporter
func NewExporter(repoRoot string, logger *logging.Logger) *Exporter {
	return &Exporter{
		repoRoot: repoRoot,
		logger:   logger,
	}
}

// BuildReport assembles a report from an evaluation result. The run id
// is freshly generated; everything else is provenance handed in by the
// caller.
func (e *Exporter) BuildReport(violations []fitness.Violation, opts Options) *Report {
	counts := fitness.CountBySeverity(violations)

	return &Report{
		Metadata: ReportMetadata{
			RunID:      uuid.New().String(),
			Repo:       filepath.Base(e.repoRoot),
			RulesPath:  opts.RulesPath,
			IndexState: opts.IndexState,
			Generated:  time.Now().Format(time.RFC3339),
			DurationMS: opts.Duration,
			Version:    version.Version,
		},
		Summary: ReportSummary{
			RuleCount:      opts.RuleCount,
			ViolationCount: len(violations),
			Errors:         counts[rules.SeverityError],
			Warnings:       counts[rules.SeverityWarn],
		},
		Violations: violations,
	}
}

// Write serializes the report into opts.Dir and returns the path of
// the written file. The filename carries the run id so repeated runs
// never clobber each other.
func (e *Exporter) Write(report *Report, opts Options) (string, error) {
	if opts.Dir == "" {
		opts.Dir = filepath.Join(e.repoRoot, ".archlint", "reports")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", errors.New(errors.ExportFailed,
			fmt.Sprintf("failed to create report directory %s", opts.Dir), err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.New(errors.ExportFailed, "failed to serialize report", err)
	}

	name := fmt.Sprintf("report-%s.json", report.Metadata.RunID)
	if opts.Compress {
		name += ".zst"
		data, err = compress(data)
		if err != nil {
			return "", errors.New(errors.ExportFailed, "failed to compress report", err)
		}
	}

	path := filepath.Join(opts.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.New(errors.ExportFailed,
			fmt.Sprintf("failed to write report to %s", path), err)
	}

	e.logger.Debug("Report written", map[string]interface{}{
		"path":       path,
		"violations": report.Summary.ViolationCount,
		"compressed": opts.Compress,
		"bytes":      len(data),
	})

	return path, nil
}

// ReadReport loads a report written by Write, transparently handling
// the compressed variant by extension.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ExportFailed,
			fmt.Sprintf("failed to read report %s", path), err)
	}

	if filepath.Ext(path) == ".zst" {
		data, err = decompress(data)
		if err != nil {
			return nil, errors.New(errors.ExportFailed,
				fmt.Sprintf("failed to decompress report %s", path), err)
		}
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.New(errors.ExportFailed,
			fmt.Sprintf("failed to parse report %s", path), err)
	}
	return &report, nil
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
