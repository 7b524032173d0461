package fitness

import (
	"sort"

	"archlint/internal/rules"
	"archlint/internal/storage"
)

// Store is the read-only view of the index the evaluators run against.
// *storage.Snapshot satisfies it; tests substitute an in-memory fake.
// Every method reflects the index as of the call; the engine never
// caches across evaluations.
type Store interface {
	Nodes() ([]storage.Node, error)
	Relations() ([]storage.Relation, error)
	ResolvedImports() ([]storage.ResolvedImport, error)
	FileAnnotations() ([]storage.FileAnnotation, error)
}

// relationKey identifies one directed typed edge
type relationKey struct {
	src  string
	dst  string
	kind rules.RelationKind
}

// snapshot holds one consistent read of the store plus the lookup
// structures the evaluators share. Built once per EvaluateAll call.
type snapshot struct {
	nodes     []storage.Node
	relations []storage.Relation
	imports   []storage.ResolvedImport

	nodeKind    map[string]rules.NodeKind
	outgoing    map[string][]storage.Relation
	relationSet map[relationKey]struct{}
	ownerByFile map[string]string
}

// readSnapshot reads all four tables and builds the shared indexes.
// The first failing read aborts the evaluation; there is no partial
// violation list.
func readSnapshot(store Store) (*snapshot, error) {
	nodes, err := store.Nodes()
	if err != nil {
		return nil, err
	}
	relations, err := store.Relations()
	if err != nil {
		return nil, err
	}
	imports, err := store.ResolvedImports()
	if err != nil {
		return nil, err
	}
	annotations, err := store.FileAnnotations()
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		nodes:       nodes,
		relations:   relations,
		imports:     imports,
		nodeKind:    make(map[string]rules.NodeKind, len(nodes)),
		outgoing:    make(map[string][]storage.Relation),
		relationSet: make(map[relationKey]struct{}, len(relations)),
		ownerByFile: make(map[string]string),
	}

	for _, n := range nodes {
		snap.nodeKind[n.RefID] = rules.NodeKind(n.Kind)
	}

	for _, r := range relations {
		snap.outgoing[r.SrcRefID] = append(snap.outgoing[r.SrcRefID], r)
		snap.relationSet[relationKey{r.SrcRefID, r.DstRefID, rules.RelationKind(r.Kind)}] = struct{}{}
	}

	// The owning node of a file is the first annotation value that is
	// itself a known node id. Annotation rows arrive ordered by file
	// and key, so "first" is stable across runs.
	for _, a := range annotations {
		if _, claimed := snap.ownerByFile[a.FilePath]; claimed {
			continue
		}
		if _, known := snap.nodeKind[a.RefID]; known {
			snap.ownerByFile[a.FilePath] = a.RefID
		}
	}

	return snap, nil
}

// hasRelation reports whether a directed edge src->dst of any of the
// given kinds exists. Forward direction only.
func (s *snapshot) hasRelation(src, dst string, kinds []rules.RelationKind) bool {
	for _, kind := range kinds {
		if _, ok := s.relationSet[relationKey{src, dst, kind}]; ok {
			return true
		}
	}
	return false
}

// nodeIDSet returns the set of known node ids, for reference checking
func (s *snapshot) nodeIDSet() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.nodes))
	for _, n := range s.nodes {
		ids[n.RefID] = struct{}{}
	}
	return ids
}

// adjacency builds a directed adjacency map restricted to the given
// relation kinds. Neighbor lists are sorted so traversal order, and
// therefore cycle discovery order, is deterministic.
func (s *snapshot) adjacency(kinds []rules.RelationKind) map[string][]string {
	wanted := make(map[rules.RelationKind]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}

	adj := make(map[string][]string)
	seen := make(map[relationKey]struct{})
	for _, r := range s.relations {
		kind := rules.RelationKind(r.Kind)
		if _, ok := wanted[kind]; !ok {
			continue
		}
		// Collapse parallel edges of different kinds
		key := relationKey{r.SrcRefID, r.DstRefID, ""}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		adj[r.SrcRefID] = append(adj[r.SrcRefID], r.DstRefID)
	}

	for src := range adj {
		sort.Strings(adj[src])
	}

	return adj
}
