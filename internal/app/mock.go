package app

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

	"admin-console/internal/config"
	"admin-console/internal/mockapi"
)

// MockServer runs the development backend until interrupted.
type MockServer struct {
	server  *http.Server
	backend *mockapi.Server
	logger  *slog.Logger
}

func NewMockServer(cfg *config.MockConfig, logger *slog.Logger) (*MockServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := mockapi.New(mockapi.OptionsFromConfig(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mock backend: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           backend,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return &MockServer{server: server, backend: backend, logger: logger}, nil
}

func (m *MockServer) Backend() *mockapi.Server {
	return m.backend
}

func (m *MockServer) Run() error {
	go func() {
		m.logger.Info("mock backend starting", "addr", m.server.Addr)
		if serveErr := m.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			m.logger.Error("mock backend failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	m.logger.Info("mock backend stopped")
	return nil
}
