package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"archlint/internal/errors"
)

// DefaultMaxCycleDepth applies to forbid_cycles rules that omit max_depth
const DefaultMaxCycleDepth = 10

// LoadOptions carries evaluation limits into schema validation.
// Zero values fall back to the package defaults.
type LoadOptions struct {
	// DefaultMaxDepth replaces DefaultMaxCycleDepth for rules that
	// omit max_depth.
	DefaultMaxDepth int
	// MaxDepthCap rejects documents whose max_depth exceeds it.
	// Zero means no ceiling.
	MaxDepthCap int
}

func (o LoadOptions) defaultDepth() int {
	if o.DefaultMaxDepth > 0 {
		return o.DefaultMaxDepth
	}
	return DefaultMaxCycleDepth
}

var supportedVersions = map[int]struct{}{1: {}, 2: {}}

// ruleDocument is the wire shape of a rule document
type ruleDocument struct {
	Version int         `yaml:"version" toml:"version"`
	Rules   []ruleEntry `yaml:"rules" toml:"rules"`
}

type ruleEntry struct {
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description,omitempty" toml:"description,omitempty"`
	Severity    string `yaml:"severity,omitempty" toml:"severity,omitempty"`

	Deny         *denySpec     `yaml:"deny,omitempty" toml:"deny,omitempty"`
	Require      *requireSpec  `yaml:"require,omitempty" toml:"require,omitempty"`
	ForbidCycles *cycleSpec    `yaml:"forbid_cycles,omitempty" toml:"forbid_cycles,omitempty"`
	ForbidImport *boundarySpec `yaml:"forbid_import,omitempty" toml:"forbid_import,omitempty"`
}

type matcherSpec struct {
	RefID string `yaml:"ref_id,omitempty" toml:"ref_id,omitempty"`
	Kind  string `yaml:"kind,omitempty" toml:"kind,omitempty"`
}

type denySpec struct {
	From            *matcherSpec `yaml:"from" toml:"from"`
	To              *matcherSpec `yaml:"to" toml:"to"`
	UnlessRelations []string     `yaml:"unless_relations,omitempty" toml:"unless_relations,omitempty"`
}

type requireSpec struct {
	For      *matcherSpec `yaml:"for" toml:"for"`
	Target   *matcherSpec `yaml:"target" toml:"target"`
	Relation string       `yaml:"relation,omitempty" toml:"relation,omitempty"`
}

type cycleSpec struct {
	Relations relationList `yaml:"relations" toml:"relations"`
	MaxDepth  *int         `yaml:"max_depth,omitempty" toml:"max_depth,omitempty"`
}

type boundarySpec struct {
	From string `yaml:"from" toml:"from"`
	To   string `yaml:"to" toml:"to"`
}

// relationList accepts either a single scalar or a sequence in YAML.
// TOML documents always use the list form.
type relationList []string

func (l *relationList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*l = relationList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*l = relationList(many)
		return nil
	default:
		return fmt.Errorf("relations must be a string or a list of strings")
	}
}

// LoadFile reads, parses, and validates a rule document. The format is
// chosen by extension: .yaml/.yml or .toml. Validation fails fast on
// the first schema error; there is no partial result.
func LoadFile(path string) (*RuleSet, error) {
	return LoadFileWith(path, LoadOptions{})
}

// LoadFileWith is LoadFile with explicit evaluation limits, used when
// the caller carries configured overrides.
func LoadFileWith(path string, opts LoadOptions) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.RulesNotFound,
				fmt.Sprintf("rule document not found at %s", path), err)
		}
		return nil, errors.New(errors.RulesInvalid, "failed to read rule document", err)
	}

	var doc ruleDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.New(errors.RulesInvalid, "malformed YAML rule document", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, errors.New(errors.RulesInvalid, "malformed TOML rule document", err)
		}
	default:
		return nil, errors.New(errors.RulesInvalid,
			fmt.Sprintf("unsupported rule document extension %q (want .yaml, .yml or .toml)", filepath.Ext(path)), nil)
	}

	rs, err := buildRuleSet(&doc, opts)
	if err != nil {
		return nil, errors.New(errors.RulesInvalid, "invalid rule document", err)
	}
	return rs, nil
}

// Parse validates an already-decoded YAML document. Used by tests and
// by callers that hold the document in memory.
func Parse(data []byte) (*RuleSet, error) {
	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.RulesInvalid, "malformed YAML rule document", err)
	}
	rs, err := buildRuleSet(&doc, LoadOptions{})
	if err != nil {
		return nil, errors.New(errors.RulesInvalid, "invalid rule document", err)
	}
	return rs, nil
}

// buildRuleSet turns the wire document into typed rules, enforcing the
// schema in document order and stopping at the first violation.
func buildRuleSet(doc *ruleDocument, opts LoadOptions) (*RuleSet, error) {
	if _, ok := supportedVersions[doc.Version]; !ok {
		return nil, fmt.Errorf("unsupported rule document version %d (supported: 1, 2)", doc.Version)
	}

	seen := make(map[string]struct{}, len(doc.Rules))
	result := make([]Rule, 0, len(doc.Rules))

	for i, entry := range doc.Rules {
		if entry.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("rule %q: duplicate name", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		variants := 0
		if entry.Deny != nil {
			variants++
		}
		if entry.Require != nil {
			variants++
		}
		if entry.ForbidCycles != nil {
			variants++
		}
		if entry.ForbidImport != nil {
			variants++
		}
		if variants == 0 {
			return nil, fmt.Errorf("rule %q: no rule body (want one of deny, require, forbid_cycles, forbid_import)", entry.Name)
		}
		if variants > 1 {
			return nil, fmt.Errorf("rule %q: multiple rule bodies (want exactly one)", entry.Name)
		}

		severity, err := resolveSeverity(doc.Version, entry)
		if err != nil {
			return nil, err
		}

		rule := Rule{
			Name:        entry.Name,
			Description: entry.Description,
			Severity:    severity,
		}

		switch {
		case entry.Deny != nil:
			deny, err := buildDeny(entry.Name, entry.Deny)
			if err != nil {
				return nil, err
			}
			rule.Deny = deny
		case entry.Require != nil:
			require, err := buildRequire(entry.Name, entry.Require)
			if err != nil {
				return nil, err
			}
			rule.Require = require
		case entry.ForbidCycles != nil:
			cycle, err := buildCycle(entry.Name, entry.ForbidCycles, opts)
			if err != nil {
				return nil, err
			}
			rule.Cycle = cycle
		case entry.ForbidImport != nil:
			boundary, err := buildBoundary(entry.Name, entry.ForbidImport)
			if err != nil {
				return nil, err
			}
			rule.ImportBoundary = boundary
		}

		result = append(result, rule)
	}

	return &RuleSet{Version: doc.Version, Rules: result}, nil
}

func resolveSeverity(version int, entry ruleEntry) (Severity, error) {
	if entry.Severity == "" {
		return SeverityError, nil
	}
	if version < 2 {
		return "", fmt.Errorf("rule %q: severity requires document version 2", entry.Name)
	}
	switch Severity(entry.Severity) {
	case SeverityError, SeverityWarn:
		return Severity(entry.Severity), nil
	default:
		return "", fmt.Errorf("rule %q: invalid severity %q (want error or warn)", entry.Name, entry.Severity)
	}
}

func buildMatcher(ruleName, position string, spec *matcherSpec, requireSpecific bool) (Matcher, error) {
	m := Matcher{}
	if spec != nil {
		m.RefID = spec.RefID
		if spec.Kind != "" {
			if !IsValidNodeKind(spec.Kind) {
				return Matcher{}, fmt.Errorf("rule %q: %s matcher has unknown node kind %q", ruleName, position, spec.Kind)
			}
			m.Kind = NodeKind(spec.Kind)
		}
	}
	if requireSpecific && m.IsEmpty() {
		return Matcher{}, fmt.Errorf("rule %q: %s matcher must set ref_id or kind", ruleName, position)
	}
	return m, nil
}

func buildRelationKinds(ruleName, field string, raw []string) ([]RelationKind, error) {
	kinds := make([]RelationKind, 0, len(raw))
	for _, s := range raw {
		if !IsValidRelationKind(s) {
			return nil, fmt.Errorf("rule %q: %s has unknown relation kind %q", ruleName, field, s)
		}
		kinds = append(kinds, RelationKind(s))
	}
	return kinds, nil
}

func buildDeny(name string, spec *denySpec) (*DenyRule, error) {
	from, err := buildMatcher(name, "deny.from", spec.From, true)
	if err != nil {
		return nil, err
	}
	to, err := buildMatcher(name, "deny.to", spec.To, true)
	if err != nil {
		return nil, err
	}
	unless, err := buildRelationKinds(name, "deny.unless_relations", spec.UnlessRelations)
	if err != nil {
		return nil, err
	}
	return &DenyRule{From: from, To: to, UnlessRelations: unless}, nil
}

func buildRequire(name string, spec *requireSpec) (*RequireRule, error) {
	forMatcher, err := buildMatcher(name, "require.for", spec.For, true)
	if err != nil {
		return nil, err
	}
	// An empty target is meaningful: it matches any node, so the rule
	// degenerates to "must have at least one outgoing relation".
	target, err := buildMatcher(name, "require.target", spec.Target, false)
	if err != nil {
		return nil, err
	}

	rule := &RequireRule{For: forMatcher, Target: target}
	if spec.Relation != "" {
		if !IsValidRelationKind(spec.Relation) {
			return nil, fmt.Errorf("rule %q: require.relation has unknown relation kind %q", name, spec.Relation)
		}
		kind := RelationKind(spec.Relation)
		rule.Relation = &kind
	}
	return rule, nil
}

func buildCycle(name string, spec *cycleSpec, opts LoadOptions) (*CycleRule, error) {
	if len(spec.Relations) == 0 {
		return nil, fmt.Errorf("rule %q: forbid_cycles requires relations", name)
	}
	kinds, err := buildRelationKinds(name, "forbid_cycles.relations", spec.Relations)
	if err != nil {
		return nil, err
	}

	depth := opts.defaultDepth()
	if spec.MaxDepth != nil {
		if *spec.MaxDepth < 1 {
			return nil, fmt.Errorf("rule %q: forbid_cycles.max_depth must be at least 1", name)
		}
		depth = *spec.MaxDepth
	}
	if opts.MaxDepthCap > 0 && depth > opts.MaxDepthCap {
		return nil, fmt.Errorf("rule %q: forbid_cycles.max_depth %d exceeds the configured cap %d", name, depth, opts.MaxDepthCap)
	}
	return &CycleRule{Relations: kinds, MaxDepth: depth}, nil
}

func buildBoundary(name string, spec *boundarySpec) (*ImportBoundaryRule, error) {
	if spec.From == "" {
		return nil, fmt.Errorf("rule %q: forbid_import requires a from glob", name)
	}
	if spec.To == "" {
		return nil, fmt.Errorf("rule %q: forbid_import requires a to glob", name)
	}
	if !doublestar.ValidatePattern(spec.From) {
		return nil, fmt.Errorf("rule %q: forbid_import.from is not a valid glob: %q", name, spec.From)
	}
	if !doublestar.ValidatePattern(spec.To) {
		return nil, fmt.Errorf("rule %q: forbid_import.to is not a valid glob: %q", name, spec.To)
	}
	return &ImportBoundaryRule{FromGlob: spec.From, ToGlob: spec.To}, nil
}
