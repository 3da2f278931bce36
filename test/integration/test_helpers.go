//go:build integration

package integration

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"admin-console/internal/app"
	"admin-console/internal/config"
	"admin-console/internal/mockapi"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

func newBackend(t *testing.T, mutate func(*mockapi.Options)) (*mockapi.Server, *httptest.Server) {
	t.Helper()

	opts := mockapi.Options{
		JWTSecret:        "integration-secret",
		AdminEmail:       adminEmail,
		AdminPassword:    adminPassword,
		CORSOrigins:      []string{"http://localhost:5173"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		BcryptCost:       bcrypt.MinCost,
	}
	if mutate != nil {
		mutate(&opts)
	}

	backend, err := mockapi.New(opts)
	require.NoError(t, err)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return backend, server
}

func consoleConfig(baseURL, mode string) *config.Config {
	return &config.Config{
		APIBaseURL:          baseURL + "/api",
		RequestTimeout:      5 * time.Second,
		SessionMode:         mode,
		AuthScheme:          "Bearer",
		EnvelopeSuccessCode: 0,
		EnvelopeUnauthCode:  -2,
		WhoAmIPath:          "/auth/me",
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
		PageSize:            2,
		LogLevel:            "info",
		OutputFormat:        "table",
	}
}

type session struct {
	console *app.Console
	out     *bytes.Buffer
}

func newSession(t *testing.T, cfg *config.Config) *session {
	t.Helper()

	out := &bytes.Buffer{}
	c, err := app.NewConsole(cfg, out, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return &session{console: c, out: out}
}

// run executes one command and returns its output and error.
func (s *session) run(line string) (string, error) {
	s.out.Reset()
	err := s.console.Exec(context.Background(), line)
	return s.out.String(), err
}
