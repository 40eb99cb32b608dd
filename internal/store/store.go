// Package store persists nerdmem's memory, reinforcement-learning, and
// consolidation state in a single SQLite database, with a JSON mirror kept
// for legacy read-only consumers.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
)

// Store owns the SQLite database and the JSON mirror that sits beside it.
// All reads and writes to the underlying tables go through Store so that
// stale-row reconciliation and the mirror-vs-database freshness rule stay
// centralized.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	dbPath     string
	mirrorPath string
	dim        int
	vectorExt  bool
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the documented pragmas, and ensures the twelve tables exist. dim is the
// configured embedding dimension used for schema-evolution rewrites.
func Open(path, mirrorPath string, dim int) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.Wrap(errs.KindTransientIO, "failed to create store directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreBusy, "failed to open sqlite database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("pragma failed (%s): %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path, mirrorPath: mirrorPath, dim: dim}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindCorruption, "failed to create schema", err)
	}
	if err := runMigrations(db, dim); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindCorruption, "failed to run migrations", err)
	}
	s.detectVectorExtension()

	logging.Store("store opened at %s (dim=%d, vec0=%v)", path, dim, s.vectorExt)
	return s, nil
}

// detectVectorExtension probes for a usable vec0 virtual table. The store
// opens either way; without vec0, internal/sona uses its fallback backend,
// which writes and reads compressed_patterns rows directly.
func (s *Store) detectVectorExtension() {
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// VectorExtensionAvailable reports whether the sqlite-vec0 virtual table
// type was usable at Open time.
func (s *Store) VectorExtensionAvailable() bool {
	return s.vectorExt
}

// Dimension returns the configured embedding dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// DB returns the underlying connection for packages that need direct SQL
// access (e.g. the validator's checks and the sona native backend in the
// default build).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the filesystem path of the main SQLite database file.
func (s *Store) Path() string {
	return s.dbPath
}

// MirrorPath returns the filesystem path of the JSON mirror file.
func (s *Store) MirrorPath() string {
	return s.mirrorPath
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	logging.Store("closing store")
	return s.db.Close()
}

// Stats returns row counts for every owned table, used by the diagnose
// command and by C5's stats bookkeeping.
func (s *Store) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := []string{
		"memories", "q_entries", "trajectories", "learning_data",
		"neural_patterns", "edges", "agents", "compressed_patterns",
		"file_sequences", "errors", "stats", "kv_store",
	}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			continue
		}
		out[t] = count
	}
	return out, nil
}
