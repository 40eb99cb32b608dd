package store

import (
	"database/sql"
	"fmt"
)

// schemaStatements creates the twelve tables the store owns if they do not
// already exist. Indexes are created alongside their tables; migrations that
// add columns to already-existing tables run separately in migrations.go.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		metadata TEXT,
		timestamp INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_timestamp ON memories(timestamp);`,

	`CREATE TABLE IF NOT EXISTS q_entries (
		key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		action TEXT NOT NULL,
		q_value REAL NOT NULL DEFAULT 0,
		visits INTEGER NOT NULL DEFAULT 0,
		last_update INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_q_entries_state ON q_entries(state);`,

	`CREATE TABLE IF NOT EXISTS trajectories (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT,
		reward REAL NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_trajectories_timestamp ON trajectories(timestamp);`,

	`CREATE TABLE IF NOT EXISTS learning_data (
		algorithm TEXT PRIMARY KEY,
		q_table_json TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS neural_patterns (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT,
		embedding BLOB,
		confidence REAL NOT NULL DEFAULT 0,
		usage INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		metadata TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_neural_patterns_category ON neural_patterns(category);`,

	`CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 1.0,
		data TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);`,
	`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);`,

	`CREATE TABLE IF NOT EXISTS agents (
		name TEXT PRIMARY KEY,
		data_json TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS compressed_patterns (
		id TEXT PRIMARY KEY,
		layer TEXT NOT NULL,
		data_blob BLOB,
		compression_ratio REAL NOT NULL DEFAULT 1.0,
		created_at INTEGER NOT NULL,
		metadata TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_compressed_patterns_layer ON compressed_patterns(layer);`,
	`CREATE INDEX IF NOT EXISTS idx_compressed_patterns_created ON compressed_patterns(created_at);`,

	`CREATE TABLE IF NOT EXISTS file_sequences (
		from_file TEXT NOT NULL,
		to_file TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (from_file, to_file)
	);`,

	`CREATE TABLE IF NOT EXISTS errors (
		key TEXT PRIMARY KEY,
		data_json TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS stats (
		key TEXT PRIMARY KEY,
		value_text TEXT
	);`,

	`CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value_text TEXT
	);`,
}

func createSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
