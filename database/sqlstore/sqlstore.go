// Package sqlstore implements the storage backend on SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/erikbos/moontv-server/database/model"
)

type Store struct {
	kind model.StorageKind
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specifically for writes
	dbWriteHandle *sqlx.DB
}

// ConfigFile holds configuration options
type ConfigFile struct {
	// DSN is the database filename for sqlite, or a connection string for postgres.
	DSN string `mapstructure:"dsn"`
}

// New opens the database and creates the schema if necessary.
func New(ctx context.Context, kind model.StorageKind, o *ConfigFile) (*Store, error) {
	if o == nil || o.DSN == "" {
		return nil, fmt.Errorf("%s database dsn not set", kind)
	}

	switch kind {
	case model.KindSQLite:
		if inMemoryDSN(o.DSN) {
			return nil, fmt.Errorf("%w: in-memory sqlite database %q is not supported, use a file", model.ErrMalformed, o.DSN)
		}
		readDB, err := sqlx.ConnectContext(ctx, "sqlite3", o.DSN)
		if err != nil {
			return nil, err
		}
		readDB.SetMaxOpenConns(max(4, runtime.NumCPU()))

		writeDB, err := sqlx.ConnectContext(ctx, "sqlite3", o.DSN)
		if err != nil {
			readDB.Close()
			return nil, err
		}
		// sqlite needs to have a single writer
		writeDB.SetMaxOpenConns(1)

		if err := dbInitSchema(ctx, writeDB, sqliteSchema); err != nil {
			readDB.Close()
			writeDB.Close()
			return nil, err
		}
		return &Store{kind: kind, dbReadHandle: readDB, dbWriteHandle: writeDB}, nil

	case model.KindPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", o.DSN)
		if err != nil {
			return nil, err
		}
		if err := dbInitSchema(ctx, db, postgresSchema); err != nil {
			db.Close()
			return nil, err
		}
		return &Store{kind: kind, dbReadHandle: db, dbWriteHandle: db}, nil
	}
	return nil, fmt.Errorf("sqlstore does not support storage kind %q", kind)
}

// inMemoryDSN returns true for sqlite DSNs that do not name a file. The read
// and write handles each open the DSN, so they would not share data.
func inMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (s *Store) Kind() model.StorageKind { return s.kind }

func (s *Store) Close() error {
	if s.dbReadHandle == s.dbWriteHandle {
		return s.dbWriteHandle.Close()
	}
	return errors.Join(s.dbReadHandle.Close(), s.dbWriteHandle.Close())
}

// ClearAllData empties all tables in one transaction.
func (s *Store) ClearAllData(ctx context.Context) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// getJSON reads a single JSON document, returning nil if the row does not exist.
func getJSON[T any](ctx context.Context, db *sqlx.DB, query string, args ...any) (*T, error) {
	var data string
	if err := db.GetContext(ctx, &data, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return &v, nil
}
