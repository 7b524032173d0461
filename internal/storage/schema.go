package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createNodesTable(tx); err != nil {
			return err
		}
		if err := createRelationsTable(tx); err != nil {
			return err
		}
		if err := createResolvedImportsTable(tx); err != nil {
			return err
		}
		if err := createFileAnnotationsTable(tx); err != nil {
			return err
		}
		if err := createIndexMetaTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Index schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Index schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running index schema migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves.
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createNodesTable creates the nodes table. One row per graph node;
// kind is drawn from the closed node-category set.
func createNodesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS nodes (
			ref_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('domain', 'feature', 'service', 'entity', 'doc-record'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createRelationsTable creates the relations table for directed typed edges
func createRelationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS relations (
			src_ref_id TEXT NOT NULL,
			dst_ref_id TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('part-of', 'depends-on', 'uses', 'implements', 'touches-entity', 'touches-code')),

			PRIMARY KEY (src_ref_id, dst_ref_id, kind)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create relations table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_relations_src ON relations(src_ref_id)",
		"CREATE INDEX IF NOT EXISTS idx_relations_dst ON relations(dst_ref_id)",
		"CREATE INDEX IF NOT EXISTS idx_relations_kind ON relations(kind)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createResolvedImportsTable creates the resolved_imports table.
// One row per import statement; resolved_ref_id is NULL when the
// indexer could not match the target to a graph node.
func createResolvedImportsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS resolved_imports (
			file_path TEXT NOT NULL,
			line_number INTEGER NOT NULL,
			import_path TEXT NOT NULL,
			resolved_ref_id TEXT,

			PRIMARY KEY (file_path, line_number, import_path)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create resolved_imports table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_resolved_imports_file ON resolved_imports(file_path)",
		"CREATE INDEX IF NOT EXISTS idx_resolved_imports_resolved ON resolved_imports(resolved_ref_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createFileAnnotationsTable creates the file_annotations table mapping
// file paths to owning graph nodes
func createFileAnnotationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS file_annotations (
			file_path TEXT NOT NULL,
			annotation_key TEXT NOT NULL,
			ref_id TEXT NOT NULL,

			PRIMARY KEY (file_path, annotation_key, ref_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create file_annotations table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_file_annotations_file ON file_annotations(file_path)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createIndexMetaTable creates the index_meta bookkeeping table written
// by the indexer (state id, indexed-at timestamp)
func createIndexMetaTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index_meta table: %w", err)
	}
	return nil
}
