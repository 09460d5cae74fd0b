// Package pgstore is the Postgres-backed implementation of store.Store,
// the production relational backend for the proofs, validators, and
// indexer_state tables (§6). Connection and auto-create handling follow
// the teacher repo's own pgdb.OpenDb pattern; schema is versioned with
// golang-migrate against an embedded migration set.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/zksl-labs/anchor-core/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const driverName = "postgres"

type pgStore struct {
	db *sql.DB
}

// Open connects to dsn, auto-creating the target database when
// autoCreate is set and the database does not yet exist, then applies
// pending migrations.
func Open(dsn string, autoCreate bool) (store.Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := connect(ctx, db, dsn, autoCreate); err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}

	if err := migrateUp(db); err != nil {
		return nil, fmt.Errorf("pgstore: migrate: %w", err)
	}

	return &pgStore{db: db}, nil
}

func connect(ctx context.Context, db *sql.DB, dsn string, autoCreate bool) error {
	if err := db.PingContext(ctx); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "3D000" && autoCreate {
			log.Info("pgstore: database does not exist, creating it")
			if err := createDatabase(ctx, dsn); err != nil {
				return err
			}
			return connect(ctx, db, dsn, false)
		}
		return err
	}
	return nil
}

func createDatabase(ctx context.Context, dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("pgstore: cannot auto-create unless DSN is in URL form")
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return fmt.Errorf("pgstore: cannot auto-create with an empty database name")
	}
	parsed.Path = ""

	rootDB, err := sql.Open(driverName, parsed.String())
	if err != nil {
		return err
	}
	defer rootDB.Close()

	_, err = rootDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	return err
}

func migrateUp(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *pgStore) Close() error {
	return s.db.Close()
}
