package fitness

import (
	"fmt"

	"archlint/internal/rules"
)

// evaluateDeny flags resolved imports that cross a forbidden
// node-to-node boundary. The owning node of the importing file comes
// from its annotations; rows without a resolvable owner are skipped
// silently, as are self-imports. A forward relation owner->target of
// an unless_relations kind exempts the import.
func evaluateDeny(rule rules.Rule, snap *snapshot) []Violation {
	deny := rule.Deny

	var violations []Violation
	for _, imp := range snap.imports {
		if imp.ResolvedRefID == nil {
			continue
		}
		target := *imp.ResolvedRefID

		owner, ok := snap.ownerByFile[imp.FilePath]
		if !ok {
			continue
		}
		if owner == target {
			continue
		}

		if !deny.From.Matches(owner, snap.nodeKind[owner]) {
			continue
		}
		if !deny.To.Matches(target, snap.nodeKind[target]) {
			continue
		}

		if len(deny.UnlessRelations) > 0 && snap.hasRelation(owner, target, deny.UnlessRelations) {
			continue
		}

		violations = append(violations, Violation{
			RuleName:        rule.Name,
			RuleDescription: rule.Description,
			RuleKind:        rules.RuleDeny,
			Severity:        rule.Severity,
			FilePath:        imp.FilePath,
			LineNumber:      imp.LineNumber,
			FromID:          owner,
			ToID:            target,
			Message:         fmt.Sprintf("forbidden dependency %s -> %s via import %q", owner, target, imp.ImportPath),
		})
	}

	return violations
}
