// Package sqlitestore is the file-backed development implementation of
// store.Store, used when DATABASE_URL is not a postgres:// DSN. It uses
// the pure-Go modernc.org/sqlite driver; golang-migrate's own sqlite
// driver depends on the cgo mattn/go-sqlite3 binding, which this repo
// deliberately avoids, so the embedded schema is applied directly with
// a single idempotent script instead of going through golang-migrate
// (the postgres backend still does, per internal/store/postgres).
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/zksl-labs/anchor-core/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed migrations/0001_init.up.sql
var schema embed.FS

const driverName = "sqlite"

type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database file at path
// and applies the embedded schema.
func Open(path string) (store.Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid "database is locked" churn

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}

	ddl, err := schema.ReadFile("migrations/0001_init.up.sql")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: read embedded schema: %w", err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
