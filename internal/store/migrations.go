package store

import (
	"database/sql"
	"fmt"

	"nerdmem/internal/logging"
)

// columnMigration adds a column to an already-existing table when missing.
type columnMigration struct {
	table  string
	column string
	def    string
}

// pendingColumnMigrations covers tables that may have been created by an
// older schema version without a column the current schema expects.
var pendingColumnMigrations = []columnMigration{
	{"neural_patterns", "embedding", "BLOB"},
	{"neural_patterns", "updated_at", "INTEGER NOT NULL DEFAULT 0"},
}

// runMigrations applies pendingColumnMigrations, then rewrites any legacy
// 768-dim vectors found in neural_patterns.embedding down to dim, matching
// the documented schema-evolution rule.
func runMigrations(db *sql.DB, dim int) error {
	for _, m := range pendingColumnMigrations {
		if !tableExists(db, m.table) {
			continue
		}
		if columnExists(db, m.table, m.column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.def)
		if _, err := db.Exec(stmt); err != nil {
			logging.Get(logging.CategoryStore).Warn("migration failed for %s.%s: %v", m.table, m.column, err)
			continue
		}
		logging.Store("migration applied: %s.%s", m.table, m.column)
	}

	if err := rewriteLegacyDimensions(db, dim); err != nil {
		logging.Get(logging.CategoryStore).Warn("legacy dimension rewrite failed: %v", err)
	}
	return nil
}

// rewriteLegacyDimensions resizes any neural_patterns.embedding whose byte
// length doesn't match 4*dim, per the spec's schema-evolution rule covering
// sibling databases that advertise stale (e.g. 768-dim) vectors.
func rewriteLegacyDimensions(db *sql.DB, dim int) error {
	if !tableExists(db, "neural_patterns") {
		return nil
	}
	rows, err := db.Query(`SELECT id, embedding FROM neural_patterns WHERE embedding IS NOT NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type legacyRow struct {
		id  string
		vec []float32
	}
	var toFix []legacyRow
	wantBytes := 4 * dim
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			continue
		}
		if len(blob) == wantBytes || len(blob) == 0 {
			continue
		}
		toFix = append(toFix, legacyRow{id: id, vec: unpackEmbedding(blob)})
	}

	for _, r := range toFix {
		resized := resizeEmbedding(r.vec, dim)
		if _, err := db.Exec(`UPDATE neural_patterns SET embedding = ? WHERE id = ?`, packEmbedding(resized), r.id); err != nil {
			logging.Get(logging.CategoryStore).Warn("failed to rewrite legacy embedding for pattern %s: %v", r.id, err)
		}
	}
	if len(toFix) > 0 {
		logging.Store("rewrote %d legacy-dimension neural pattern embeddings to dim=%d", len(toFix), dim)
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	return err == nil && count > 0
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
