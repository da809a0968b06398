// Package sqlstore implements the repository interfaces over database/sql.
//
// The same code serves SQLite and PostgreSQL; a Dialect supplies bind markers
// and column types. The sqlite and postgres packages open a connection pool
// with driver-specific settings and hand it to New.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trashmob-eco/trashmob/internal/schema"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// New wraps an open connection pool. It does not run migrations; call Migrate.
func New(conn *sql.DB, dialect Dialect) *DB {
	return &DB{conn: conn, dialect: dialect}
}

// Conn exposes the underlying pool for fixtures and health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate creates every registered table and its foreign-key indexes.
// CREATE ... IF NOT EXISTS makes it safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, t := range schema.Tables {
		if _, err := db.conn.ExecContext(ctx, db.dialect.CreateTableSQL(t)); err != nil {
			return fmt.Errorf("sqlstore: creating table %s: %w", t.Name, err)
		}
		for _, stmt := range db.dialect.CreateIndexSQL(t) {
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlstore: creating index on %s: %w", t.Name, err)
			}
		}
	}
	return nil
}
