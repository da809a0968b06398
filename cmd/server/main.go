// Command server runs the TrashMob account API: profile lookup and user
// deletion on top of SQLite or PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/trashmob-eco/trashmob/internal/config"
	"github.com/trashmob-eco/trashmob/internal/repository/postgres"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlite"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"
	"github.com/trashmob-eco/trashmob/internal/server"
)

// startupTimeout bounds opening, migrating and seeding the database.
const startupTimeout = time.Minute

// anonymousUserName is the display name of the identity that takes over a
// deleted user's retained rows.
const anonymousUserName = "Anonymous"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	db, err := openDatabase(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		db.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the database.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openDatabase opens and migrates the configured backend and seeds the
// anonymous identity row that retained records are reassigned to.
func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlstore.DB, error) {
	var (
		db  *sqlstore.DB
		err error
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.Database)
	default:
		if cfg.Database.Path != sqlite.MemoryPath {
			dir := filepath.Dir(cfg.Database.Path)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err = sqlite.New(ctx, cfg.Database.Path)
	}
	if err != nil {
		return nil, err
	}

	anonymousID := cfg.Deletion.AnonymousUserID
	if err := db.EnsureUser(ctx, anonymousID, anonymousUserName); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding anonymous user: %w", err)
	}

	logger.Info("database ready",
		slog.String("driver", cfg.Database.Driver),
		slog.String("anonymousUserID", anonymousID.String()),
	)
	return db, nil
}
