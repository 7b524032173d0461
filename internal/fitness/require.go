package fitness

import (
	"fmt"

	"archlint/internal/rules"
)

// evaluateRequire flags nodes that lack a mandated outgoing relation.
// With an empty target matcher and no relation filter the rule
// degenerates to "must have at least one outgoing relation of any
// kind", the weakest structural requirement.
func evaluateRequire(rule rules.Rule, snap *snapshot) []Violation {
	require := rule.Require

	var violations []Violation
	for _, node := range snap.nodes {
		if !require.For.Matches(node.RefID, rules.NodeKind(node.Kind)) {
			continue
		}

		if nodeSatisfiesRequire(require, node.RefID, snap) {
			continue
		}

		detail := "any relation"
		if require.Relation != nil {
			detail = fmt.Sprintf("a %q relation", *require.Relation)
		}
		violations = append(violations, Violation{
			RuleName:        rule.Name,
			RuleDescription: rule.Description,
			RuleKind:        rules.RuleRequire,
			Severity:        rule.Severity,
			FromID:          node.RefID,
			Message:         fmt.Sprintf("node %s lacks %s to a required target", node.RefID, detail),
		})
	}

	return violations
}

func nodeSatisfiesRequire(require *rules.RequireRule, refID string, snap *snapshot) bool {
	for _, rel := range snap.outgoing[refID] {
		if require.Relation != nil && rules.RelationKind(rel.Kind) != *require.Relation {
			continue
		}
		if require.Target.Matches(rel.DstRefID, snap.nodeKind[rel.DstRefID]) {
			return true
		}
	}
	return false
}
