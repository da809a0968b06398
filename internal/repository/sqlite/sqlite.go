// Package sqlite opens the SQLite backend of the repository layer.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the server builds
// without cgo. Use ":memory:" for a throwaway database in tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/trashmob.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (lost on close)
func New(ctx context.Context, dbPath string) (*sqlstore.DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == MemoryPath {
		// Every connection to ":memory:" is a separate database, so the pool
		// is pinned to one connection that is never recycled.
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
		conn.SetConnMaxIdleTime(0)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath == MemoryPath {
		// Pragmas apply per connection; with a single connection Exec is enough.
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := sqlstore.New(conn, sqlstore.SQLite)
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// dsn attaches the pragmas every pooled connection needs. WAL lets readers
// proceed while a deletion transaction writes; foreign keys are off by
// default in SQLite.
func dsn(dbPath string) string {
	if dbPath == MemoryPath {
		return dbPath
	}
	path := dbPath
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
