// Package app wires configuration into the running console and the
// development backend.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"admin-console/internal/config"
	"admin-console/internal/console"
	"admin-console/internal/envelope"
	"admin-console/internal/event"
	"admin-console/internal/gateway"
	"admin-console/internal/guard"
	"admin-console/internal/service"
	"admin-console/internal/session"
)

type Console struct {
	shell        *console.Shell
	store        *session.Store
	cleanupFuncs []func()
}

// NewConsole builds the request layer from cfg and a shell writing to out.
func NewConsole(cfg *config.Config, out io.Writer, logger *slog.Logger) (*Console, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mode, err := session.ParseMode(cfg.SessionMode)
	if err != nil {
		return nil, err
	}
	format, err := console.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	storeOpts := []session.Option{session.WithLogger(logger)}
	if cfg.SessionFile != "" {
		storeOpts = append(storeOpts, session.WithPersister(session.NewFilePersister(cfg.SessionFile)))
	}
	store, err := session.NewStore(mode, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	bus := event.NewBus(logger)
	events, unsubscribe := bus.Subscribe()

	gw, err := gateway.New(gateway.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.RequestTimeout,
		Codes:          envelope.Codes{Success: cfg.EnvelopeSuccessCode, Unauthorized: cfg.EnvelopeUnauthCode},
		Scheme:         cfg.AuthScheme,
		RateLimit:      rate.Limit(cfg.RateLimitRPS),
		RateLimitBurst: cfg.RateLimitBurst,
		LoginView:      console.ViewLogin,
		Logger:         logger,
	}, store, bus)
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("failed to initialize gateway: %w", err)
	}

	auth := service.NewAuthService(gw, store, bus, cfg.WhoAmIPath, logger)
	authGuard := guard.New(store, auth, guard.WithLoginView(console.ViewLogin), guard.WithLogger(logger))

	shell := console.NewShell(console.Deps{
		Auth:         auth,
		Users:        service.NewUserService(gw),
		Universities: service.NewUniversityService(gw),
		Store:        store,
		Guard:        authGuard,
		Events:       events,
		Format:       format,
		PageSize:     cfg.PageSize,
		Out:          out,
		Logger:       logger,
	})

	return &Console{
		shell:        shell,
		store:        store,
		cleanupFuncs: []func(){unsubscribe},
	}, nil
}

// Run starts an interactive session reading commands from in.
func (c *Console) Run(ctx context.Context, in io.Reader, prompt bool) error {
	return c.shell.Run(ctx, in, prompt)
}

// Exec runs a single command, as given on the command line, and reports its
// error after printing it.
func (c *Console) Exec(ctx context.Context, line string) error {
	_, err := c.shell.Handle(ctx, line)
	return err
}

func (c *Console) Session() session.Session {
	return c.store.Get()
}

func (c *Console) Close() {
	for _, cleanup := range c.cleanupFuncs {
		cleanup()
	}
}
