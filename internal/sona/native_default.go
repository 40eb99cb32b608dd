//go:build !(sqlite_vec && cgo)

package sona

import (
	"database/sql"

	"nerdmem/internal/store"
)

// vectorDBFor returns the connection the native backend issues its vec0
// DDL/DML against. The default pure-Go build reuses the store's own
// connection and registers no vec0 module of its own; where that connection
// has no vec0 table type, newNativeBackend fails and the fallback is used.
func vectorDBFor(s *store.Store, _ string) *sql.DB {
	return s.DB()
}
