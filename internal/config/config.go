package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL          string
	RequestTimeout      time.Duration
	SessionMode         string
	AuthScheme          string
	SessionFile         string
	EnvelopeSuccessCode int
	EnvelopeUnauthCode  int
	WhoAmIPath          string
	RateLimitRPS        float64
	RateLimitBurst      int
	PageSize            int
	LogLevel            string
	OutputFormat        string
}

// MockConfig configures the development backend.
type MockConfig struct {
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
	JWTSecret         string
	TokenTTL          time.Duration
	CORSOrigins       []string
	RateLimitRPM      int
	AuthRateLimitRPM  int
	AdminEmail        string
	AdminPassword     string
	UnauthorizedAs401 bool
	LogLevel          string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:          getEnv("API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 10*time.Second),
		SessionMode:         strings.ToLower(getEnv("SESSION_MODE", "cookie")),
		AuthScheme:          getEnv("AUTH_SCHEME", "Bearer"),
		SessionFile:         getEnvAllowEmpty("SESSION_FILE", "./state/session.json"),
		EnvelopeSuccessCode: getInt("ENVELOPE_SUCCESS_CODE", 0),
		EnvelopeUnauthCode:  getInt("ENVELOPE_UNAUTHORIZED_CODE", -2),
		WhoAmIPath:          getEnv("WHOAMI_PATH", "/auth/me"),
		RateLimitRPS:        getFloat("CLIENT_RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getInt("CLIENT_RATE_LIMIT_BURST", 20),
		PageSize:            getInt("PAGE_SIZE", 10),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		OutputFormat:        strings.ToLower(getEnv("OUTPUT_FORMAT", "table")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.APIBaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.SessionMode {
	case "cookie", "bearer":
	default:
		return fmt.Errorf("SESSION_MODE must be cookie or bearer, got %q", c.SessionMode)
	}

	if c.SessionMode == "bearer" && strings.TrimSpace(c.AuthScheme) == "" {
		return fmt.Errorf("AUTH_SCHEME cannot be empty in bearer mode")
	}

	if c.EnvelopeSuccessCode == c.EnvelopeUnauthCode {
		return fmt.Errorf("ENVELOPE_SUCCESS_CODE and ENVELOPE_UNAUTHORIZED_CODE must differ")
	}

	if !strings.HasPrefix(c.WhoAmIPath, "/") {
		return fmt.Errorf("WHOAMI_PATH must start with /")
	}

	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("CLIENT_RATE_LIMIT_RPS and CLIENT_RATE_LIMIT_BURST cannot be negative")
	}

	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be at least 1")
	}

	switch c.OutputFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be table, json or yaml, got %q", c.OutputFormat)
	}

	return nil
}

func LoadMock() (*MockConfig, error) {
	_ = godotenv.Load()

	cfg := &MockConfig{
		Port:              getEnv("MOCK_PORT", "8080"),
		ReadTimeout:       getDuration("MOCK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      getDuration("MOCK_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getDuration("MOCK_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:    getDuration("MOCK_REQUEST_TIMEOUT", 30*time.Second),
		JWTSecret:         strings.TrimSpace(os.Getenv("MOCK_JWT_SECRET")),
		TokenTTL:          getDuration("MOCK_TOKEN_TTL", 2*time.Hour),
		CORSOrigins:       splitCSV(getEnv("MOCK_CORS_ORIGINS", "http://localhost:5173")),
		RateLimitRPM:      getInt("MOCK_RATE_LIMIT_RPM", 600),
		AuthRateLimitRPM:  getInt("MOCK_AUTH_RATE_LIMIT_RPM", 30),
		AdminEmail:        getEnv("MOCK_ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:     getEnv("MOCK_ADMIN_PASSWORD", "admin123"),
		UnauthorizedAs401: getBool("MOCK_UNAUTHORIZED_AS_401", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *MockConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("MOCK_JWT_SECRET is required")
	}

	if c.Port == "" {
		return fmt.Errorf("MOCK_PORT cannot be empty")
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("MOCK_TOKEN_TTL must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("MOCK_REQUEST_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.AdminEmail) == "" || c.AdminPassword == "" {
		return fmt.Errorf("MOCK_ADMIN_EMAIL and MOCK_ADMIN_PASSWORD are required")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key string, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	return strings.TrimSpace(v)
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
