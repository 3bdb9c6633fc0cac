// Package main is the entry point for the glucolog server.
//
// main stays minimal: read configuration, build the logger, hand both to
// internal/server. All real logic lives in the imported packages so it can
// be constructed and tested without running a process.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/glucolog/internal/server"
	"github.com/sakif/glucolog/internal/service"
)

func main() {
	// Load a local .env if present. In production the variables come from
	// the real environment and the file simply doesn't exist.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	templateDir, _ := filepath.Abs("web/templates")
	staticDir, _ := filepath.Abs("web/static")

	// DB_PATH overrides the default for production deployments,
	// e.g. DB_PATH=/var/lib/glucolog/prod.db
	dbPath := "data/glucolog.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// The API cannot authenticate anyone without it, so it is required.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	googleCallbackURL := os.Getenv("GOOGLE_CALLBACK_URL")
	if googleCallbackURL == "" {
		googleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", port)
	}

	// Clinical validation bounds; the defaults match standard mmol/L
	// meter ranges and can be tuned per deployment.
	limits := service.DefaultLimits()
	if v := os.Getenv("LEVEL_MIN"); v != "" {
		limits.LevelMin = parseFloat(logger, "LEVEL_MIN", v)
	}
	if v := os.Getenv("LEVEL_MAX"); v != "" {
		limits.LevelMax = parseFloat(logger, "LEVEL_MAX", v)
	}
	if v := os.Getenv("NOTE_MAX_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			logger.Error("invalid NOTE_MAX_LEN value", slog.String("value", v))
			os.Exit(1)
		}
		limits.NoteMaxLen = n
	}

	cfg := server.Config{
		Port:               port,
		TemplateDir:        templateDir,
		StaticDir:          staticDir,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GoogleClientID:     googleClientID,
		GoogleClientSecret: googleClientSecret,
		GoogleCallbackURL:  googleCallbackURL,
		Limits:             limits,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFloat(logger *slog.Logger, name, value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Error("invalid "+name+" value", slog.String("value", value))
		os.Exit(1)
	}
	return f
}
