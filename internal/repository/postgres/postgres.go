// Package postgres opens the PostgreSQL backend of the repository layer
// through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/trashmob-eco/trashmob/internal/config"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"
)

// PingTimeout bounds the connectivity check in Open.
const PingTimeout = 10 * time.Second

// Open creates the connection pool described by cfg, verifies connectivity
// and runs migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.DB, error) {
	conn, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := sqlstore.New(conn, sqlstore.Postgres)
	if err := db.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}
