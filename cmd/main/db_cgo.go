//go:build cgo_sqlite

package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriver is the cgo driver, selected with -tags cgo_sqlite.
const sqliteDriver = "sqlite3"

// initDB opens the dictionary database and checks that it is reachable.
func initDB(dataSource string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriver, dataSource)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s database: %w", sqliteDriver, err)
	}
	return db, nil
}
