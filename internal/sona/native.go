package sona

import (
	"database/sql"
	"time"

	"nerdmem/internal/errs"
	"nerdmem/internal/logging"
	"nerdmem/internal/store"
)

// nativeBackend bulk-adds to the store's HNSW-compatible vec0 virtual
// table. It is only constructed when creating that vec0 table succeeds on
// the connection vectorDBFor returns (the real sqlite-vec extension under
// the sqlite_vec+cgo build, or whatever the store's own driver provides).
type nativeBackend struct {
	db    *sql.DB
	table string
	dim   int
}

const nativeTableName = "sona_patterns"

func newNativeBackend(s *store.Store, dim int) (*nativeBackend, error) {
	db := vectorDBFor(s, s.Path())
	if db == nil {
		return nil, errs.New(errs.KindBackendUnavailable, "no vector-capable connection available")
	}
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS ` + nativeTableName + ` USING vec0(embedding BLOB, content TEXT, metadata TEXT)`); err != nil {
		return nil, errs.Wrap(errs.KindBackendUnavailable, "failed to create native vec0 pattern table", err)
	}
	return &nativeBackend{db: db, table: nativeTableName, dim: dim}, nil
}

func (b *nativeBackend) Name() string { return "native" }

func (b *nativeBackend) StorePattern(layer string, embedding []float32, metadata string) (bool, error) {
	blob := packLittleEndian(embedding)
	_, err := b.db.Exec(`INSERT INTO `+b.table+` (embedding, content, metadata) VALUES (?, ?, ?)`, blob, layer, metadata)
	if err != nil {
		return false, errs.Wrap(errs.KindBackendUnavailable, "native pattern insert failed", err)
	}
	return true, nil
}

func (b *nativeBackend) GetPatterns(layer string, limit int) ([]store.CompressedPattern, error) {
	rows, err := b.db.Query(`SELECT embedding, content, metadata FROM `+b.table+` WHERE content = ? LIMIT ?`, layer, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindBackendUnavailable, "native pattern query failed", err)
	}
	defer rows.Close()

	var out []store.CompressedPattern
	now := time.Now().Unix()
	for rows.Next() {
		var blob []byte
		var content, metadata string
		if err := rows.Scan(&blob, &content, &metadata); err != nil {
			continue
		}
		out = append(out, store.CompressedPattern{
			Layer:            content,
			DataBlob:         blob,
			CompressionRatio: compressionRatio(len(blob)/4, len(blob)),
			CreatedAt:        now,
			Metadata:         metadata,
		})
	}
	return out, nil
}

// selfTest performs the spec's three-call self-test: insert the same dummy
// vector three times and read back the pattern count. A count that remains
// zero marks the backend buggy so the caller installs the fallback for the
// remainder of the process.
func (b *nativeBackend) selfTest() bool {
	dummy := make([]float32, b.dim)
	for i := range dummy {
		dummy[i] = 1.0
	}
	for i := 0; i < 3; i++ {
		if _, err := b.StorePattern("__selftest__", dummy, ""); err != nil {
			logging.SonaWarn("native backend self-test insert %d failed: %v", i, err)
			return false
		}
	}
	patterns, err := b.GetPatterns("__selftest__", 10)
	if err != nil || len(patterns) == 0 {
		logging.SonaWarn("native backend self-test found no patterns after 3 inserts")
		return false
	}
	return true
}
