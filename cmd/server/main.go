// Package main is the entry point for the inkwell API server.
//
// main stays minimal: read configuration, build the logger, make sure the
// database directory exists, then hand everything to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Everything comes from the environment; see internal/config for names
	// and defaults. AUTH_SECRET is the only required variable:
	//   AUTH_SECRET=$(openssl rand -hex 32)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// SQLite creates the file but not its parent directories.
	if cfg.DBPath != sqlite.MemoryPath {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
