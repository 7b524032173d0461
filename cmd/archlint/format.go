package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"archlint/internal/fitness"
	"archlint/internal/rules"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// CheckResponseCLI is the check command's output shape
type CheckResponseCLI struct {
	RulesPath  string              `json:"rulesPath"`
	RuleCount  int                 `json:"ruleCount"`
	Errors     int                 `json:"errors"`
	Warnings   int                 `json:"warnings"`
	Violations []fitness.Violation `json:"violations"`
	ReportPath string              `json:"reportPath,omitempty"`
}

// ValidateResponseCLI is the rules validate command's output shape
type ValidateResponseCLI struct {
	RulesPath  string                 `json:"rulesPath"`
	Valid      bool                   `json:"valid"`
	Version    int                    `json:"version"`
	RuleCounts map[rules.RuleKind]int `json:"ruleCounts"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *CheckResponseCLI:
		return formatCheckHuman(v)
	case *ValidateResponseCLI:
		return formatValidateHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatCheckHuman(resp *CheckResponseCLI) (string, error) {
	var b strings.Builder

	if len(resp.Violations) == 0 {
		b.WriteString(fmt.Sprintf("OK: %d rules, no violations\n", resp.RuleCount))
		return b.String(), nil
	}

	for _, v := range resp.Violations {
		prefix := strings.ToUpper(string(v.Severity))
		location := ""
		if v.FilePath != "" {
			location = fmt.Sprintf(" (%s:%d)", v.FilePath, v.LineNumber)
		}
		b.WriteString(fmt.Sprintf("%s  [%s] %s%s\n", prefix, v.RuleName, v.Message, location))
		if v.RuleDescription != "" {
			b.WriteString(fmt.Sprintf("        %s\n", v.RuleDescription))
		}
	}

	b.WriteString(fmt.Sprintf("\n%d violations (%d errors, %d warnings) across %d rules\n",
		len(resp.Violations), resp.Errors, resp.Warnings, resp.RuleCount))

	if resp.ReportPath != "" {
		b.WriteString(fmt.Sprintf("Report: %s\n", resp.ReportPath))
	}

	return b.String(), nil
}

func formatValidateHuman(resp *ValidateResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s: valid (version %d)\n", resp.RulesPath, resp.Version))

	total := 0
	for _, kind := range []rules.RuleKind{rules.RuleDeny, rules.RuleRequire, rules.RuleCycle, rules.RuleImportBoundary} {
		if n := resp.RuleCounts[kind]; n > 0 {
			b.WriteString(fmt.Sprintf("  %-16s %d\n", kind, n))
			total += n
		}
	}
	b.WriteString(fmt.Sprintf("  %-16s %d\n", "total", total))

	for _, w := range resp.Warnings {
		b.WriteString(fmt.Sprintf("warning: %s\n", w))
	}

	return b.String(), nil
}
