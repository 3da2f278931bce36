package main

import (
	"log/slog"
	"os"

	"admin-console/internal/app"
	"admin-console/internal/config"
	"admin-console/internal/logger"
)

func main() {
	cfg, err := config.LoadMock()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	server, err := app.NewMockServer(cfg, log)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
