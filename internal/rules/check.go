package rules

import "fmt"

// CheckReferences performs the non-fatal post-load pass: every ref_id
// literal referenced by a matcher should name an existing node.
// Unknown identifiers are not errors, since such matchers simply never
// match during evaluation, but they usually indicate a typo or a
// renamed node, so they are surfaced as human-readable warnings.
func CheckReferences(rs *RuleSet, nodeIDs map[string]struct{}) []string {
	var warnings []string

	warn := func(ruleName, position, refID string) {
		warnings = append(warnings,
			fmt.Sprintf("rule %q: %s references unknown node %q (this matcher will never match)", ruleName, position, refID))
	}

	check := func(ruleName, position string, m Matcher) {
		if m.RefID == "" {
			return
		}
		if _, ok := nodeIDs[m.RefID]; !ok {
			warn(ruleName, position, m.RefID)
		}
	}

	for _, r := range rs.Rules {
		switch {
		case r.Deny != nil:
			check(r.Name, "deny.from", r.Deny.From)
			check(r.Name, "deny.to", r.Deny.To)
		case r.Require != nil:
			check(r.Name, "require.for", r.Require.For)
			check(r.Name, "require.target", r.Require.Target)
		}
	}

	return warnings
}
