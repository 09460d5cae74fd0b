// Package storeopen selects a store.Store implementation from a
// database URL. It lives outside package store to avoid an import
// cycle: the backend packages (postgres, sqlite) import store for its
// interface types, so the selection logic that imports the backends
// cannot live in package store itself.
package storeopen

import (
	"fmt"
	"strings"

	"github.com/zksl-labs/anchor-core/internal/store"
	pgstore "github.com/zksl-labs/anchor-core/internal/store/postgres"
	sqlitestore "github.com/zksl-labs/anchor-core/internal/store/sqlite"
)

// Open selects a Store implementation from databaseURL: a postgres://
// or postgresql:// DSN opens the production Postgres backend
// (auto-creating the database when autoCreate is set); anything else is
// treated as a sqlite file path, the development backend.
func Open(databaseURL string, autoCreate bool) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return pgstore.Open(databaseURL, autoCreate)
	case databaseURL == "":
		return nil, fmt.Errorf("store: DATABASE_URL is required")
	default:
		return sqlitestore.Open(databaseURL)
	}
}
