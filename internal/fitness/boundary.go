package fitness

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"archlint/internal/paths"
	"archlint/internal/rules"
)

// evaluateBoundary flags imports whose file path and import target
// match a forbidden glob pair. Pure path matching: it runs over every
// import row whether or not the target resolved to a graph node.
func evaluateBoundary(rule rules.Rule, snap *snapshot) []Violation {
	boundary := rule.ImportBoundary

	var violations []Violation
	for _, imp := range snap.imports {
		filePath := paths.NormalizePath(imp.FilePath)
		target := paths.NormalizeImportPath(imp.ImportPath)

		// Glob syntax was validated at load time, so a match error
		// cannot occur here.
		fromMatch, _ := doublestar.Match(boundary.FromGlob, filePath)
		if !fromMatch {
			continue
		}
		toMatch, _ := doublestar.Match(boundary.ToGlob, target)
		if !toMatch {
			continue
		}

		violations = append(violations, Violation{
			RuleName:        rule.Name,
			RuleDescription: rule.Description,
			RuleKind:        rules.RuleImportBoundary,
			Severity:        rule.Severity,
			FilePath:        imp.FilePath,
			LineNumber:      imp.LineNumber,
			Message:         fmt.Sprintf("import %q crosses forbidden boundary %s -> %s", imp.ImportPath, boundary.FromGlob, boundary.ToGlob),
		})
	}

	return violations
}
