package fitness

import (
	"sort"
	"strings"

	"archlint/internal/rules"
)

// evaluateCycle finds dependency cycles within the rule's relation
// kinds using a depth-bounded DFS. Each distinct cycle is reported
// exactly once regardless of which node the outer scan visits first:
// discovered cycles are rotated to start at their lexicographically
// smallest node (direction preserved) and deduplicated on that
// canonical form. The depth bound counts edges and is inclusive.
func evaluateCycle(rule rules.Rule, snap *snapshot) []Violation {
	adj := snap.adjacency(rule.Cycle.Relations)

	starts := make([]string, 0, len(adj))
	for node := range adj {
		starts = append(starts, node)
	}
	sort.Strings(starts)

	seen := make(map[string]struct{})
	var violations []Violation

	record := func(cycle []string) {
		canonical := canonicalizeCycle(cycle)
		key := strings.Join(canonical, "\x00")
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		violations = append(violations, Violation{
			RuleName:        rule.Name,
			RuleDescription: rule.Description,
			RuleKind:        rules.RuleCycle,
			Severity:        rule.Severity,
			FromID:          canonical[0],
			Message:         "dependency cycle: " + strings.Join(append(canonical, canonical[0]), " -> "),
		})
	}

	for _, start := range starts {
		findCycles(start, adj, rule.Cycle.MaxDepth, record)
	}

	return violations
}

// findCycles runs a bounded DFS from start. The active path is kept on
// an explicit stack; an edge landing on a node already on the path
// closes a cycle made of the path from that ancestor plus the closing
// edge. A self-relation closes immediately as a cycle of length 1.
func findCycles(start string, adj map[string][]string, maxDepth int, record func([]string)) {
	onPath := map[string]int{start: 0}
	path := []string{start}

	var dfs func()
	dfs = func() {
		current := path[len(path)-1]
		for _, next := range adj[current] {
			if idx, ok := onPath[next]; ok {
				// Closing edge count: the path edges from the ancestor
				// to current, plus this edge.
				if len(path)-idx <= maxDepth {
					cycle := make([]string, len(path)-idx)
					copy(cycle, path[idx:])
					record(cycle)
				}
				continue
			}
			if len(path) >= maxDepth {
				continue
			}
			onPath[next] = len(path)
			path = append(path, next)
			dfs()
			path = path[:len(path)-1]
			delete(onPath, next)
		}
	}
	dfs()
}

// canonicalizeCycle rotates a node sequence so it starts at the
// lexicographically smallest id, preserving direction.
func canonicalizeCycle(cycle []string) []string {
	minIdx := 0
	for i, node := range cycle {
		if node < cycle[minIdx] {
			minIdx = i
		}
	}
	if minIdx == 0 {
		return cycle
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[minIdx:]...)
	rotated = append(rotated, cycle[:minIdx]...)
	return rotated
}
