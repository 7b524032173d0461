package storage

import (
	"database/sql"
	"fmt"
)

// Node represents a graph node record
type Node struct {
	RefID string
	Kind  string
}

// Relation represents a directed typed edge between two nodes
type Relation struct {
	SrcRefID string
	DstRefID string
	Kind     string
}

// ResolvedImport represents one import statement row. ResolvedRefID is
// nil when the indexer could not match the target to a graph node.
type ResolvedImport struct {
	FilePath      string
	LineNumber    int
	ImportPath    string
	ResolvedRefID *string
}

// FileAnnotation represents a file-to-node annotation row
type FileAnnotation struct {
	FilePath      string
	AnnotationKey string
	RefID         string
}

// Snapshot provides read-only access to the index contents. Every
// method reads fresh from the database; staleness handling belongs to
// the indexer, not here.
type Snapshot struct {
	db *DB
}

// NewSnapshot creates a snapshot reader over an open index database
func NewSnapshot(db *DB) *Snapshot {
	return &Snapshot{db: db}
}

// Nodes returns all graph nodes ordered by ref_id
func (s *Snapshot) Nodes() ([]Node, error) {
	rows, err := s.db.Query(`
		SELECT ref_id, kind
		FROM nodes
		ORDER BY ref_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.RefID, &n.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}

	return nodes, nil
}

// Relations returns all directed edges ordered by source, destination, kind
func (s *Snapshot) Relations() ([]Relation, error) {
	rows, err := s.db.Query(`
		SELECT src_ref_id, dst_ref_id, kind
		FROM relations
		ORDER BY src_ref_id, dst_ref_id, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var relations []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.SrcRefID, &r.DstRefID, &r.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		relations = append(relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relations: %w", err)
	}

	return relations, nil
}

// ResolvedImports returns all import rows ordered by file and line
func (s *Snapshot) ResolvedImports() ([]ResolvedImport, error) {
	rows, err := s.db.Query(`
		SELECT file_path, line_number, import_path, resolved_ref_id
		FROM resolved_imports
		ORDER BY file_path, line_number, import_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved imports: %w", err)
	}
	defer rows.Close()

	var imports []ResolvedImport
	for rows.Next() {
		var imp ResolvedImport
		var resolved sql.NullString
		if err := rows.Scan(&imp.FilePath, &imp.LineNumber, &imp.ImportPath, &resolved); err != nil {
			return nil, fmt.Errorf("failed to scan resolved import: %w", err)
		}
		if resolved.Valid {
			imp.ResolvedRefID = &resolved.String
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resolved imports: %w", err)
	}

	return imports, nil
}

// FileAnnotations returns all annotation rows ordered by file and key
func (s *Snapshot) FileAnnotations() ([]FileAnnotation, error) {
	rows, err := s.db.Query(`
		SELECT file_path, annotation_key, ref_id
		FROM file_annotations
		ORDER BY file_path, annotation_key, ref_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file annotations: %w", err)
	}
	defer rows.Close()

	var annotations []FileAnnotation
	for rows.Next() {
		var a FileAnnotation
		if err := rows.Scan(&a.FilePath, &a.AnnotationKey, &a.RefID); err != nil {
			return nil, fmt.Errorf("failed to scan file annotation: %w", err)
		}
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file annotations: %w", err)
	}

	return annotations, nil
}

// Meta returns an index_meta value, or empty string when the key is absent
func (s *Snapshot) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query index_meta: %w", err)
	}
	return value, nil
}
