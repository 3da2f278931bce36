package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"admin-console/internal/app"
	"admin-console/internal/config"
	"admin-console/internal/logger"
)

// With arguments the console runs them as one command and exits; otherwise
// it reads commands from stdin.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console, err := app.NewConsole(cfg, os.Stdout, log)
	if err != nil {
		log.Error("failed to initialize console", "error", err)
		os.Exit(1)
	}
	defer console.Close()

	if len(os.Args) > 1 {
		if err := console.Exec(ctx, quoteArgs(os.Args[1:])); err != nil {
			stop()
			console.Close()
			os.Exit(1)
		}
		return
	}

	if err := console.Run(ctx, os.Stdin, logger.IsTerminal(os.Stdin)); err != nil && ctx.Err() == nil {
		log.Error("console stopped", "error", err)
		os.Exit(1)
	}
}

// quoteArgs rejoins shell arguments so values with spaces survive the
// console's own splitting.
func quoteArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t") {
			arg = `"` + arg + `"`
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " ")
}
