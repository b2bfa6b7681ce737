package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NathanTDL/tldraw-ai/internal/config"
	"github.com/NathanTDL/tldraw-ai/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("loading configuration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("creating data directory failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("initializing server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
