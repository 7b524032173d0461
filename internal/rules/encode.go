package rules

import (
	"gopkg.in/yaml.v3"
)

// EncodeYAML serializes a rule set back to its wire form. Reloading the
// output yields the same typed rules, which keeps checked-in rule
// documents stable under tooling round trips.
func EncodeYAML(rs *RuleSet) ([]byte, error) {
	doc := ruleDocument{
		Version: rs.Version,
		Rules:   make([]ruleEntry, 0, len(rs.Rules)),
	}

	for _, r := range rs.Rules {
		entry := ruleEntry{
			Name:        r.Name,
			Description: r.Description,
		}
		// Version 1 documents have no severity concept; everything is
		// an error there, so only version 2 carries the field.
		if rs.Version >= 2 {
			entry.Severity = string(r.Severity)
		}

		switch {
		case r.Deny != nil:
			entry.Deny = &denySpec{
				From:            encodeMatcher(r.Deny.From),
				To:              encodeMatcher(r.Deny.To),
				UnlessRelations: encodeRelationKinds(r.Deny.UnlessRelations),
			}
		case r.Require != nil:
			spec := &requireSpec{
				For:    encodeMatcher(r.Require.For),
				Target: encodeMatcher(r.Require.Target),
			}
			if r.Require.Relation != nil {
				spec.Relation = string(*r.Require.Relation)
			}
			entry.Require = spec
		case r.Cycle != nil:
			depth := r.Cycle.MaxDepth
			entry.ForbidCycles = &cycleSpec{
				Relations: relationList(encodeRelationKinds(r.Cycle.Relations)),
				MaxDepth:  &depth,
			}
		case r.ImportBoundary != nil:
			entry.ForbidImport = &boundarySpec{
				From: r.ImportBoundary.FromGlob,
				To:   r.ImportBoundary.ToGlob,
			}
		}

		doc.Rules = append(doc.Rules, entry)
	}

	return yaml.Marshal(&doc)
}

func encodeMatcher(m Matcher) *matcherSpec {
	return &matcherSpec{
		RefID: m.RefID,
		Kind:  string(m.Kind),
	}
}

func encodeRelationKinds(kinds []RelationKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}
