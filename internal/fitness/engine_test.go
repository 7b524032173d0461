package fitness

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"archlint/internal/logging"
	"archlint/internal/rules"
	"archlint/internal/storage"
)

// memStore is an in-memory Store for tests. Fixtures are declared in
// the same order the SQL snapshot would return them (sorted).
type memStore struct {
	nodes       []storage.Node
	relations   []storage.Relation
	imports     []storage.ResolvedImport
	annotations []storage.FileAnnotation
}

func (m *memStore) Nodes() ([]storage.Node, error)                     { return m.nodes, nil }
func (m *memStore) Relations() ([]storage.Relation, error)             { return m.relations, nil }
func (m *memStore) ResolvedImports() ([]storage.ResolvedImport, error) { return m.imports, nil }
func (m *memStore) FileAnnotations() ([]storage.FileAnnotation, error) {
	return m.annotations, nil
}

// failStore simulates a store-read failure
type failStore struct{ memStore }

func (f *failStore) Relations() ([]storage.Relation, error) {
	return nil, errors.New("disk I/O error")
}

func testEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	logger := logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.ErrorLevel,
	})
	return NewEngine(store, logger)
}

func strPtr(s string) *string { return &s }

func relPtr(k rules.RelationKind) *rules.RelationKind { return &k }

func singleRuleSet(r rules.Rule) *rules.RuleSet {
	if r.Severity == "" {
		r.Severity = rules.SeverityError
	}
	return &rules.RuleSet{Version: 2, Rules: []rules.Rule{r}}
}

// --- deny ---

func denyFixtureStore() *memStore {
	return &memStore{
		nodes: []storage.Node{
			{RefID: "auth", Kind: "domain"},
			{RefID: "billing", Kind: "domain"},
		},
		imports: []storage.ResolvedImport{
			{FilePath: "src/billing/invoice.py", LineNumber: 3, ImportPath: "auth.tokens", ResolvedRefID: strPtr("auth")},
		},
		annotations: []storage.FileAnnotation{
			{FilePath: "src/billing/invoice.py", AnnotationKey: "domain", RefID: "billing"},
		},
	}
}

func TestDenyBasicViolation(t *testing.T) {
	engine := testEngine(t, denyFixtureStore())

	rs := singleRuleSet(rules.Rule{
		Name:        "no-billing-to-auth",
		Description: "billing must not reach into auth",
		Deny: &rules.DenyRule{
			From: rules.Matcher{RefID: "billing"},
			To:   rules.Matcher{RefID: "auth"},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}

	v := violations[0]
	if v.RuleKind != rules.RuleDeny {
		t.Errorf("expected deny kind, got %q", v.RuleKind)
	}
	if v.FilePath != "src/billing/invoice.py" || v.LineNumber != 3 {
		t.Errorf("unexpected location: %s:%d", v.FilePath, v.LineNumber)
	}
	if v.FromID != "billing" || v.ToID != "auth" {
		t.Errorf("unexpected endpoints: %s -> %s", v.FromID, v.ToID)
	}
	if !strings.Contains(v.Message, "auth.tokens") {
		t.Errorf("expected offending import in message, got %q", v.Message)
	}
}

func TestDenyUnlessRelationExempts(t *testing.T) {
	store := denyFixtureStore()
	store.relations = []storage.Relation{
		{SrcRefID: "billing", DstRefID: "auth", Kind: "depends-on"},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "no-billing-to-auth",
		Deny: &rules.DenyRule{
			From:            rules.Matcher{RefID: "billing"},
			To:              rules.Matcher{RefID: "auth"},
			UnlessRelations: []rules.RelationKind{rules.RelDependsOn},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("declared relation should exempt the import, got %d violations", len(violations))
	}
}

func TestDenyExemptionIsForwardOnly(t *testing.T) {
	store := denyFixtureStore()
	// Reverse direction only: auth -> billing must not exempt.
	store.relations = []storage.Relation{
		{SrcRefID: "auth", DstRefID: "billing", Kind: "depends-on"},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "no-billing-to-auth",
		Deny: &rules.DenyRule{
			From:            rules.Matcher{RefID: "billing"},
			To:              rules.Matcher{RefID: "auth"},
			UnlessRelations: []rules.RelationKind{rules.RelDependsOn},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Errorf("reverse relation must not exempt, got %d violations", len(violations))
	}
}

func TestDenySkipsUnownedAndSelfImports(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{
			{RefID: "auth", Kind: "domain"},
			{RefID: "billing", Kind: "domain"},
		},
		imports: []storage.ResolvedImport{
			// No annotation for this file: skipped silently.
			{FilePath: "src/orphan.py", LineNumber: 1, ImportPath: "auth.tokens", ResolvedRefID: strPtr("auth")},
			// Self-import: owner == target.
			{FilePath: "src/auth/session.py", LineNumber: 2, ImportPath: "auth.tokens", ResolvedRefID: strPtr("auth")},
			// Unresolved target: skipped.
			{FilePath: "src/auth/session.py", LineNumber: 4, ImportPath: "os.path", ResolvedRefID: nil},
		},
		annotations: []storage.FileAnnotation{
			{FilePath: "src/auth/session.py", AnnotationKey: "domain", RefID: "auth"},
		},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "deny-anything-to-auth",
		Deny: &rules.DenyRule{
			From: rules.Matcher{Kind: rules.KindDomain},
			To:   rules.Matcher{RefID: "auth"},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestDenyOwnerSkipsUnknownAnnotationRefs(t *testing.T) {
	store := denyFixtureStore()
	// An annotation whose ref is not a node id sorts first; the owner
	// lookup must skip it and use the first known node id.
	store.annotations = []storage.FileAnnotation{
		{FilePath: "src/billing/invoice.py", AnnotationKey: "author", RefID: "alice"},
		{FilePath: "src/billing/invoice.py", AnnotationKey: "domain", RefID: "billing"},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "no-billing-to-auth",
		Deny: &rules.DenyRule{
			From: rules.Matcher{RefID: "billing"},
			To:   rules.Matcher{RefID: "auth"},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 || violations[0].FromID != "billing" {
		t.Errorf("expected owner billing via second annotation, got %v", violations)
	}
}

// --- require ---

func TestRequirePerNodeViolations(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{
			{RefID: "checkout", Kind: "domain"},
			{RefID: "identity", Kind: "domain"},
			{RefID: "platform", Kind: "service"},
		},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "domains-belong-somewhere",
		Require: &rules.RequireRule{
			For:      rules.Matcher{Kind: rules.KindDomain},
			Target:   rules.Matcher{},
			Relation: relPtr(rules.RelPartOf),
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected one violation per domain, got %d", len(violations))
	}
	if violations[0].FromID != "checkout" || violations[1].FromID != "identity" {
		t.Errorf("unexpected nodes: %v", violations)
	}
	if violations[0].ToID != "" || violations[0].FilePath != "" {
		t.Errorf("require violations carry no target or location: %+v", violations[0])
	}

	// Satisfying one node halves the violations.
	store.relations = []storage.Relation{
		{SrcRefID: "checkout", DstRefID: "platform", Kind: "part-of"},
	}
	violations, err = engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 || violations[0].FromID != "identity" {
		t.Errorf("expected only identity to violate, got %v", violations)
	}
}

func TestRequireRelationKindFilter(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{
			{RefID: "catalog", Kind: "domain"},
			{RefID: "platform", Kind: "service"},
		},
		relations: []storage.Relation{
			// Wrong kind: uses instead of part-of.
			{SrcRefID: "catalog", DstRefID: "platform", Kind: "uses"},
		},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "domains-belong-somewhere",
		Require: &rules.RequireRule{
			For:      rules.Matcher{Kind: rules.KindDomain},
			Target:   rules.Matcher{},
			Relation: relPtr(rules.RelPartOf),
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Errorf("relation of the wrong kind must not satisfy the rule, got %v", violations)
	}
}

func TestRequireAnyOutgoingRelation(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{
			{RefID: "connected", Kind: "feature"},
			{RefID: "isolated", Kind: "feature"},
		},
		relations: []storage.Relation{
			{SrcRefID: "connected", DstRefID: "isolated", Kind: "touches-code"},
		},
	}
	engine := testEngine(t, store)

	// Empty target + no relation filter: any outgoing relation counts.
	rs := singleRuleSet(rules.Rule{
		Name: "no-islands",
		Require: &rules.RequireRule{
			For:    rules.Matcher{Kind: rules.KindFeature},
			Target: rules.Matcher{},
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 || violations[0].FromID != "isolated" {
		t.Errorf("expected only the isolated node to violate, got %v", violations)
	}
}

// --- cycle ---

func cycleStore(relations ...storage.Relation) *memStore {
	seen := make(map[string]struct{})
	var nodes []storage.Node
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			nodes = append(nodes, storage.Node{RefID: id, Kind: "service"})
		}
	}
	for _, r := range relations {
		add(r.SrcRefID)
		add(r.DstRefID)
	}
	return &memStore{nodes: nodes, relations: relations}
}

func cycleRule(maxDepth int, kinds ...rules.RelationKind) *rules.RuleSet {
	return singleRuleSet(rules.Rule{
		Name:  "no-cycles",
		Cycle: &rules.CycleRule{Relations: kinds, MaxDepth: maxDepth},
	})
}

func TestCycleTwoNodes(t *testing.T) {
	store := cycleStore(
		storage.Relation{SrcRefID: "A", DstRefID: "B", Kind: "uses"},
		storage.Relation{SrcRefID: "B", DstRefID: "A", Kind: "uses"},
	)
	engine := testEngine(t, store)

	violations, err := engine.EvaluateAll(cycleRule(10, rules.RelUses))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected exactly 1 violation for the A<->B cycle, got %d", len(violations))
	}
	msg := violations[0].Message
	if !strings.Contains(msg, "A") || !strings.Contains(msg, "B") || !strings.Contains(msg, "->") {
		t.Errorf("expected both nodes joined by an arrow, got %q", msg)
	}
}

func TestCycleThreeNodesReportedOnce(t *testing.T) {
	store := cycleStore(
		storage.Relation{SrcRefID: "A", DstRefID: "B", Kind: "uses"},
		storage.Relation{SrcRefID: "B", DstRefID: "C", Kind: "uses"},
		storage.Relation{SrcRefID: "C", DstRefID: "A", Kind: "uses"},
	)
	engine := testEngine(t, store)

	violations, err := engine.EvaluateAll(cycleRule(10, rules.RelUses))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation (not one per rotation), got %d", len(violations))
	}
	for _, node := range []string{"A", "B", "C"} {
		if !strings.Contains(violations[0].Message, node) {
			t.Errorf("expected %s in message %q", node, violations[0].Message)
		}
	}
	// Canonical rotation starts at the smallest id and returns to it.
	if !strings.HasPrefix(violations[0].Message, "dependency cycle: A -> B -> C -> A") {
		t.Errorf("expected canonical path, got %q", violations[0].Message)
	}
}

func TestCycleSelfRelation(t *testing.T) {
	store := cycleStore(
		storage.Relation{SrcRefID: "A", DstRefID: "A", Kind: "depends-on"},
	)
	engine := testEngine(t, store)

	violations, err := engine.EvaluateAll(cycleRule(10, rules.RelDependsOn))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation for the self-relation, got %d", len(violations))
	}
	if !strings.Contains(violations[0].Message, "A -> A") {
		t.Errorf("expected A -> A in message, got %q", violations[0].Message)
	}
}

func TestCycleMaxDepthBounds(t *testing.T) {
	// N0 -> N1 -> N2 -> N3 -> N4 -> N0: a 5-edge cycle.
	store := cycleStore(
		storage.Relation{SrcRefID: "N0", DstRefID: "N1", Kind: "uses"},
		storage.Relation{SrcRefID: "N1", DstRefID: "N2", Kind: "uses"},
		storage.Relation{SrcRefID: "N2", DstRefID: "N3", Kind: "uses"},
		storage.Relation{SrcRefID: "N3", DstRefID: "N4", Kind: "uses"},
		storage.Relation{SrcRefID: "N4", DstRefID: "N0", Kind: "uses"},
	)
	engine := testEngine(t, store)

	tests := []struct {
		maxDepth int
		want     int
	}{
		{3, 0},
		{4, 0},
		{5, 1},
		{10, 1},
	}

	for _, tt := range tests {
		violations, err := engine.EvaluateAll(cycleRule(tt.maxDepth, rules.RelUses))
		if err != nil {
			t.Fatalf("EvaluateAll failed: %v", err)
		}
		if len(violations) != tt.want {
			t.Errorf("maxDepth=%d: expected %d violations, got %d", tt.maxDepth, tt.want, len(violations))
		}
	}
}

func TestCycleDepthBoundaryInclusive(t *testing.T) {
	store := cycleStore(
		storage.Relation{SrcRefID: "A", DstRefID: "B", Kind: "uses"},
		storage.Relation{SrcRefID: "B", DstRefID: "C", Kind: "uses"},
		storage.Relation{SrcRefID: "C", DstRefID: "A", Kind: "uses"},
	)
	engine := testEngine(t, store)

	violations, err := engine.EvaluateAll(cycleRule(3, rules.RelUses))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Errorf("a 3-edge cycle at maxDepth 3 must be reported, got %d", len(violations))
	}
}

func TestCycleRelationKindFilter(t *testing.T) {
	// The cycle exists only through a mix of kinds; filtering to uses
	// alone must break it.
	store := cycleStore(
		storage.Relation{SrcRefID: "A", DstRefID: "B", Kind: "uses"},
		storage.Relation{SrcRefID: "B", DstRefID: "A", Kind: "implements"},
	)
	engine := testEngine(t, store)

	violations, err := engine.EvaluateAll(cycleRule(10, rules.RelUses))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("cycle through excluded kinds must not be reported, got %v", violations)
	}

	violations, err = engine.EvaluateAll(cycleRule(10, rules.RelUses, rules.RelImplements))
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Errorf("expected the cycle with both kinds included, got %d", len(violations))
	}
}

// --- import boundary ---

func TestBoundaryGlobPair(t *testing.T) {
	store := &memStore{
		imports: []storage.ResolvedImport{
			{FilePath: "components/features/map/renderer.py", LineNumber: 7, ImportPath: "components.features.calendar.events"},
			{FilePath: "components/features/map/renderer.py", LineNumber: 8, ImportPath: "components.shared.utils"},
		},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "map-keeps-out-of-calendar",
		ImportBoundary: &rules.ImportBoundaryRule{
			FromGlob: "components/features/map/**",
			ToGlob:   "components/features/calendar/**",
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(violations))
	}
	v := violations[0]
	if v.FilePath != "components/features/map/renderer.py" || v.LineNumber != 7 {
		t.Errorf("unexpected location: %s:%d", v.FilePath, v.LineNumber)
	}
	if !strings.Contains(v.Message, "components.features.calendar.events") {
		t.Errorf("expected raw import target in message, got %q", v.Message)
	}
}

func TestBoundaryIgnoresResolution(t *testing.T) {
	// Boundary rules apply whether or not the import resolved to a node.
	store := &memStore{
		imports: []storage.ResolvedImport{
			{FilePath: "components/features/map/a.py", LineNumber: 1, ImportPath: "components.features.calendar.x", ResolvedRefID: strPtr("calendar")},
			{FilePath: "components/features/map/b.py", LineNumber: 1, ImportPath: "components.features.calendar.y", ResolvedRefID: nil},
		},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "map-keeps-out-of-calendar",
		ImportBoundary: &rules.ImportBoundaryRule{
			FromGlob: "components/features/map/**",
			ToGlob:   "components/features/calendar/**",
		},
	})

	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 2 {
		t.Errorf("expected both rows to violate, got %d", len(violations))
	}
}

// --- aggregator ---

func TestEvaluateAllOrderingAndIdempotence(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{
			{RefID: "auth", Kind: "domain"},
			{RefID: "billing", Kind: "domain"},
		},
		relations: []storage.Relation{
			{SrcRefID: "auth", DstRefID: "billing", Kind: "uses"},
			{SrcRefID: "billing", DstRefID: "auth", Kind: "uses"},
		},
		imports: []storage.ResolvedImport{
			{FilePath: "src/billing/invoice.py", LineNumber: 3, ImportPath: "auth.tokens", ResolvedRefID: strPtr("auth")},
		},
		annotations: []storage.FileAnnotation{
			{FilePath: "src/billing/invoice.py", AnnotationKey: "domain", RefID: "billing"},
		},
	}
	engine := testEngine(t, store)

	rs := &rules.RuleSet{Version: 2, Rules: []rules.Rule{
		{
			Name:     "z-no-use-cycles",
			Severity: rules.SeverityWarn,
			Cycle:    &rules.CycleRule{Relations: []rules.RelationKind{rules.RelUses}, MaxDepth: 10},
		},
		{
			Name:     "a-no-billing-to-auth",
			Severity: rules.SeverityError,
			Deny: &rules.DenyRule{
				From: rules.Matcher{RefID: "billing"},
				To:   rules.Matcher{RefID: "auth"},
			},
		},
	}}

	first, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(first))
	}
	// Sorted by rule name regardless of declaration order.
	if first[0].RuleName != "a-no-billing-to-auth" || first[1].RuleName != "z-no-use-cycles" {
		t.Errorf("unexpected order: %s, %s", first[0].RuleName, first[1].RuleName)
	}

	second, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("second EvaluateAll failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-evaluation on an unchanged store must be identical:\n%v\n%v", first, second)
	}
}

func TestEvaluateAllEmptyRuleSet(t *testing.T) {
	engine := testEngine(t, &memStore{})

	violations, err := engine.EvaluateAll(&rules.RuleSet{Version: 1})
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected empty result, got %v", violations)
	}
}

func TestEvaluateAllPropagatesStoreError(t *testing.T) {
	engine := testEngine(t, &failStore{})

	_, err := engine.EvaluateAll(singleRuleSet(rules.Rule{
		Name:  "no-cycles",
		Cycle: &rules.CycleRule{Relations: []rules.RelationKind{rules.RelUses}, MaxDepth: 10},
	}))
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("expected underlying cause in error, got %q", err.Error())
	}
}

func TestEngineCheckReferences(t *testing.T) {
	store := &memStore{
		nodes: []storage.Node{{RefID: "auth", Kind: "domain"}},
	}
	engine := testEngine(t, store)

	rs := singleRuleSet(rules.Rule{
		Name: "stale",
		Deny: &rules.DenyRule{
			From: rules.Matcher{RefID: "legacy"},
			To:   rules.Matcher{RefID: "auth"},
		},
	})

	warnings, err := engine.CheckReferences(rs)
	if err != nil {
		t.Fatalf("CheckReferences failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "legacy") {
		t.Errorf("expected a warning about legacy, got %v", warnings)
	}

	// Warnings never gate evaluation.
	violations, err := engine.EvaluateAll(rs)
	if err != nil {
		t.Fatalf("EvaluateAll failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("unknown ref must simply never match, got %v", violations)
	}
}
