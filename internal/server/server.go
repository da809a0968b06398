// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// Routes:
//
//	GET    /health                 liveness + database ping
//	GET    /metrics                Prometheus exposition
//	GET    /api/me                 caller's profile            (auth)
//	DELETE /api/me                 delete caller's account     (auth, rate limited)
//	DELETE /api/admin/users/{id}   delete any account          (auth + site admin, rate limited)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trashmob-eco/trashmob/internal/auth"
	"github.com/trashmob-eco/trashmob/internal/config"
	"github.com/trashmob-eco/trashmob/internal/handler"
	"github.com/trashmob-eco/trashmob/internal/middleware"
	"github.com/trashmob-eco/trashmob/internal/repository/sqlstore"
	"github.com/trashmob-eco/trashmob/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the database handle; Start closes the database
// on the way out.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New builds the dependency graph on top of an opened, migrated database:
// sqlstore.DB -> services -> handlers -> routes.
func New(cfg *config.Config, db *sqlstore.DB, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	health := handler.NewHealthHandler(s.db, s.logger)
	s.router.Get("/health", health.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.config.Auth.JWTSecret == "" {
		s.logger.Warn("JWT_SECRET not set, authenticated API is disabled")
		return nil
	}

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	accounts := service.NewAccountService(s.db, s.logger)
	deletions := service.NewUserDeletionService(s.db, s.config.Deletion.AnonymousUserID, s.logger)
	users := handler.NewUserHandler(accounts, deletions, s.config.Deletion.Timeout, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", users.HandleGetMe)
		r.With(middleware.DeletionRateLimit()).Delete("/me", users.HandleDeleteMe)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireSiteAdmin(accounts, s.logger))
			r.With(middleware.DeletionRateLimit()).Delete("/users/{id}", users.HandleDeleteUser)
		})
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer func() {
		if err := s.db.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// a deletion may legitimately run up to its own timeout
		WriteTimeout: s.config.Deletion.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Environment),
			slog.String("database", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
