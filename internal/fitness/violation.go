package fitness

import (
	"sort"

	"archlint/internal/rules"
)

// Violation is one rule breach. Created only by evaluators, never
// mutated afterwards, never persisted by this package.
type Violation struct {
	RuleName        string         `json:"ruleName"`
	RuleDescription string         `json:"ruleDescription,omitempty"`
	RuleKind        rules.RuleKind `json:"ruleKind"`
	Severity        rules.Severity `json:"severity"`
	FilePath        string         `json:"filePath,omitempty"`
	LineNumber      int            `json:"lineNumber,omitempty"`
	FromID          string         `json:"fromId,omitempty"`
	ToID            string         `json:"toId,omitempty"`
	Message         string         `json:"message"`
}

// SortViolations orders violations by (rule name, file path) for
// diff-stable output. The sort is stable, so violations that tie keep
// their deterministic discovery order (imports arrive sorted by file
// and line, cycles by canonical start node).
func SortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].RuleName != violations[j].RuleName {
			return violations[i].RuleName < violations[j].RuleName
		}
		return violations[i].FilePath < violations[j].FilePath
	})
}

// CountBySeverity returns how many violations exist per severity
func CountBySeverity(violations []Violation) map[rules.Severity]int {
	counts := make(map[rules.Severity]int)
	for _, v := range violations {
		counts[v.Severity]++
	}
	return counts
}
