// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main constructs a Config, and New wires the
// entire dependency chain in one place —
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs (the service gets a repository
// interface, the handler gets the service), so nothing reaches around the
// layering or into globals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/glucolog/internal/auth"
	"github.com/sakif/glucolog/internal/handler"
	"github.com/sakif/glucolog/internal/middleware"
	sqliteRepo "github.com/sakif/glucolog/internal/repository/sqlite"
	"github.com/sakif/glucolog/internal/service"
)

// Config holds everything the server needs, assembled once in main from
// the environment. Handlers and services read this injected value — never
// os.Getenv — so the whole configuration surface is visible here.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	// JWTSecret signs access and refresh tokens. Required.
	JWTSecret string

	// Google OAuth client. When ClientID is empty the /auth/google routes
	// are not registered and email/password is the only sign-in mode.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// Limits are the clinical value invariants for measurements.
	Limits service.Limits
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and wires the full dependency graph.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                      → SPA shell (HTML)
//	GET    /static/*              → static assets
//	GET    /auth/google/login     → redirect to Google
//	GET    /auth/google/callback  → OAuth callback
//	POST   /api/auth/register     → email/password registration
//	POST   /api/auth/login        → email/password sign-in
//	POST   /api/auth/refresh      → redeem refresh cookie
//	POST   /api/auth/logout       → clear session cookies
//	GET    /api/auth/me           → caller's profile            [auth]
//	PUT    /api/auth/me           → update profile              [auth]
//	GET    /api/records           → list records, newest first  [auth]
//	POST   /api/records           → create record               [auth]
//	GET    /api/records/stats     → dashboard summary           [auth]
//	GET    /api/records/{id}      → single record               [auth]
//	PUT    /api/records/{id}      → update record               [auth]
//	DELETE /api/records/{id}      → delete record               [auth]
func (s *Server) setupRoutes() error {
	// Global middleware — order matters: request id and real IP first so
	// the logger sees them, recoverer before anything that can panic.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Static assets for the SPA.
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// SPA shell.
	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pageHandler.HandleIndex)

	// Auth plumbing. The token service is required — the API is useless
	// without authentication, so a missing secret is a startup error, not
	// a degraded mode.
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	resolver := auth.NewResolver(tokens, s.db)

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("Google OAuth not configured — /auth/google routes disabled")
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	authHandler := handler.NewAuthHandler(google, authService, s.logger)

	recordService := service.NewRecordService(s.db, s.config.Limits, s.logger)
	recordHandler := handler.NewRecordHandler(recordService, s.logger)

	if google != nil {
		s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Everything below requires a resolved identity.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(resolver))

			r.Get("/auth/me", authHandler.HandleMe)
			r.Put("/auth/me", authHandler.HandleUpdateMe)

			r.Get("/records", recordHandler.HandleList)
			r.Post("/records", recordHandler.HandleCreate)
			r.Get("/records/stats", recordHandler.HandleStats)
			r.Get("/records/{id}", recordHandler.HandleGet)
			r.Put("/records/{id}", recordHandler.HandleUpdate)
			r.Delete("/records/{id}", recordHandler.HandleDelete)
		})
	})

	return nil
}

// Router exposes the configured router, mainly for httptest-based suites.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server and handles graceful shutdown:
//  1. Stop accepting new connections on SIGINT/SIGTERM
//  2. Give in-flight requests 30 seconds to finish
//  3. Close the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
