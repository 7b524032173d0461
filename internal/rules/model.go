// Package rules defines the architecture rule model and its schema
// validator. Loading is the single construction point for rules: a rule
// value that exists has already passed validation, so evaluators never
// re-check structure.
package rules

// NodeKind classifies a graph node. The set is closed; the validator
// rejects anything else.
type NodeKind string

const (
	KindDomain    NodeKind = "domain"
	KindFeature   NodeKind = "feature"
	KindService   NodeKind = "service"
	KindEntity    NodeKind = "entity"
	KindDocRecord NodeKind = "doc-record"
)

var nodeKinds = map[NodeKind]struct{}{
	KindDomain:    {},
	KindFeature:   {},
	KindService:   {},
	KindEntity:    {},
	KindDocRecord: {},
}

// IsValidNodeKind reports whether s names a known node category
func IsValidNodeKind(s string) bool {
	_, ok := nodeKinds[NodeKind(s)]
	return ok
}

// RelationKind classifies a directed edge between two nodes. The set is
// closed; the validator rejects anything else.
type RelationKind string

const (
	RelPartOf        RelationKind = "part-of"
	RelDependsOn     RelationKind = "depends-on"
	RelUses          RelationKind = "uses"
	RelImplements    RelationKind = "implements"
	RelTouchesEntity RelationKind = "touches-entity"
	RelTouchesCode   RelationKind = "touches-code"
)

var relationKinds = map[RelationKind]struct{}{
	RelPartOf:        {},
	RelDependsOn:     {},
	RelUses:          {},
	RelImplements:    {},
	RelTouchesEntity: {},
	RelTouchesCode:   {},
}

// IsValidRelationKind reports whether s names a known relation kind
func IsValidRelationKind(s string) bool {
	_, ok := relationKinds[RelationKind(s)]
	return ok
}

// Severity distinguishes fatal violations from advisory ones
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Matcher selects graph nodes by identifier and/or category. A field
// left empty matches any value; a fully empty matcher matches every
// node. Positions that require specificity (deny.from, deny.to,
// require.for) are enforced by the validator, not here.
type Matcher struct {
	RefID string   `json:"refId,omitempty"`
	Kind  NodeKind `json:"kind,omitempty"`
}

// Matches reports whether a node with the given identifier and category
// satisfies this matcher. Pure and total.
func (m Matcher) Matches(refID string, kind NodeKind) bool {
	if m.RefID != "" && m.RefID != refID {
		return false
	}
	if m.Kind != "" && m.Kind != kind {
		return false
	}
	return true
}

// IsEmpty reports whether the matcher has no constraints at all
func (m Matcher) IsEmpty() bool {
	return m.RefID == "" && m.Kind == ""
}

// RuleKind names a rule variant
type RuleKind string

const (
	RuleDeny           RuleKind = "deny"
	RuleRequire        RuleKind = "require"
	RuleCycle          RuleKind = "cycle"
	RuleImportBoundary RuleKind = "import_boundary"
)

// DenyRule forbids source-level imports crossing a node-to-node
// boundary unless an exempting relation exists
type DenyRule struct {
	From            Matcher        `json:"from"`
	To              Matcher        `json:"to"`
	UnlessRelations []RelationKind `json:"unlessRelations,omitempty"`
}

// RequireRule mandates that matching nodes carry an outgoing relation
// to a matching target
type RequireRule struct {
	For      Matcher       `json:"for"`
	Target   Matcher       `json:"target"`
	Relation *RelationKind `json:"relation,omitempty"`
}

// CycleRule forbids dependency cycles within the chosen relation kinds,
// bounded by MaxDepth edges
type CycleRule struct {
	Relations []RelationKind `json:"relations"`
	MaxDepth  int            `json:"maxDepth"`
}

// ImportBoundaryRule forbids imports whose file path and target match a
// glob pair, independent of the graph
type ImportBoundaryRule struct {
	FromGlob string `json:"fromGlob"`
	ToGlob   string `json:"toGlob"`
}

// Rule is one validated rule. Exactly one variant pointer is non-nil;
// the loader guarantees this.
type Rule struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`

	Deny           *DenyRule           `json:"deny,omitempty"`
	Require        *RequireRule        `json:"require,omitempty"`
	Cycle          *CycleRule          `json:"cycle,omitempty"`
	ImportBoundary *ImportBoundaryRule `json:"importBoundary,omitempty"`
}

// Kind returns the variant of this rule
func (r Rule) Kind() RuleKind {
	switch {
	case r.Deny != nil:
		return RuleDeny
	case r.Require != nil:
		return RuleRequire
	case r.Cycle != nil:
		return RuleCycle
	default:
		return RuleImportBoundary
	}
}

// RuleSet is a validated rule document
type RuleSet struct {
	Version int    `json:"version"`
	Rules   []Rule `json:"rules"`
}

// CountByKind returns how many rules exist per variant
func (rs *RuleSet) CountByKind() map[RuleKind]int {
	counts := make(map[RuleKind]int)
	for _, r := range rs.Rules {
		counts[r.Kind()]++
	}
	return counts
}
