//go:build sqlite_vec && cgo

package sona

import (
	"database/sql"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"nerdmem/internal/store"
)

func init() {
	// Under the sqlite_vec+cgo build, auto-load the real sqlite-vec
	// extension into connections of the cgo mattn/go-sqlite3 driver.
	vec.Auto()
}

// vectorDBFor opens a side connection on the mattn driver with the real
// sqlite-vec extension auto-loaded, so the native backend exercises the
// actual extension instead of the store's own connection.
func vectorDBFor(_ *store.Store, dbPath string) *sql.DB {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil
	}
	return db
}
