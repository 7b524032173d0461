// Package fitness evaluates architecture rules against a read-only
// index snapshot and produces a deterministic, severity-aware list of
// violations. The engine is a pure function of (rules, snapshot): it
// holds no mutable state between calls and is safe to invoke
// concurrently against the same store.
package fitness

import (
	"fmt"

	"archlint/internal/logging"
	"archlint/internal/rules"
)

// Engine runs rule evaluation against a store
type Engine struct {
	store  Store
	logger *logging.Logger
}

// NewEngine creates an evaluation engine
func NewEngine(store Store, logger *logging.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// EvaluateAll dispatches every rule to its evaluator, concatenates the
// results, and sorts them by (rule name, file path). Zero matches is
// not an error; the only failure mode is a store read error, which is
// propagated with no partial result.
func (e *Engine) EvaluateAll(rs *rules.RuleSet) ([]Violation, error) {
	snap, err := readSnapshot(e.store)
	if err != nil {
		return nil, fmt.Errorf("failed to read index snapshot: %w", err)
	}

	violations := make([]Violation, 0)
	for _, rule := range rs.Rules {
		switch rule.Kind() {
		case rules.RuleDeny:
			violations = append(violations, evaluateDeny(rule, snap)...)
		case rules.RuleRequire:
			violations = append(violations, evaluateRequire(rule, snap)...)
		case rules.RuleCycle:
			violations = append(violations, evaluateCycle(rule, snap)...)
		case rules.RuleImportBoundary:
			violations = append(violations, evaluateBoundary(rule, snap)...)
		}
	}

	SortViolations(violations)

	e.logger.Debug("Rule evaluation complete", map[string]interface{}{
		"rules":      len(rs.Rules),
		"nodes":      len(snap.nodes),
		"relations":  len(snap.relations),
		"imports":    len(snap.imports),
		"violations": len(violations),
	})

	return violations, nil
}

// CheckReferences runs the non-fatal reference pass against the current
// node set. Warnings never gate evaluation.
func (e *Engine) CheckReferences(rs *rules.RuleSet) ([]string, error) {
	snap, err := readSnapshot(e.store)
	if err != nil {
		return nil, fmt.Errorf("failed to read index snapshot: %w", err)
	}
	return rules.CheckReferences(rs, snap.nodeIDSet()), nil
}
