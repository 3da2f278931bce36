// Package mockapi is an in-memory development backend that speaks the
// envelope contract. It serves the console during local development and the
// integration tests, and lets tests script failures.
package mockapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"admin-console/internal/config"
	"admin-console/internal/envelope"
	"admin-console/internal/middleware"
	"admin-console/internal/model"
)

// SessionCookie carries the session token in cookie mode.
const SessionCookie = "admin_session"

type Options struct {
	JWTSecret         string
	TokenTTL          time.Duration
	AdminEmail        string
	AdminPassword     string
	UnauthorizedCode  int
	UnauthorizedAs401 bool
	CORSOrigins       []string
	RateLimitRPM      int
	AuthRateLimitRPM  int
	RequestTimeout    time.Duration
	BcryptCost        int
	Logger            *slog.Logger
	Now               func() time.Time
}

// OptionsFromConfig maps the environment configuration onto server options.
func OptionsFromConfig(cfg *config.MockConfig, logger *slog.Logger) Options {
	return Options{
		JWTSecret:         cfg.JWTSecret,
		TokenTTL:          cfg.TokenTTL,
		AdminEmail:        cfg.AdminEmail,
		AdminPassword:     cfg.AdminPassword,
		UnauthorizedAs401: cfg.UnauthorizedAs401,
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRPM:      cfg.RateLimitRPM,
		AuthRateLimitRPM:  cfg.AuthRateLimitRPM,
		RequestTimeout:    cfg.RequestTimeout,
		Logger:            logger,
	}
}

type Server struct {
	handler http.Handler
	store   *store
	tokens  *tokenIssuer
	faults  *faultInjector
	logger  *slog.Logger
}

func New(opts Options) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("mockapi: JWT secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 2 * time.Hour
	}
	if opts.UnauthorizedCode == 0 {
		opts.UnauthorizedCode = envelope.DefaultCodes.Unauthorized
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	st := newStore(opts.BcryptCost, opts.Now)
	s := &Server{
		store:  st,
		tokens: newTokenIssuer(opts.JWTSecret, opts.TokenTTL, opts.Now, st),
		faults: &faultInjector{
			unauthorizedCode:  opts.UnauthorizedCode,
			unauthorizedAs401: opts.UnauthorizedAs401,
		},
		logger: opts.Logger,
	}

	if opts.AdminEmail != "" {
		if _, err := s.SeedUser(opts.AdminEmail, opts.AdminPassword, model.RoleAdmin); err != nil {
			return nil, err
		}
	}

	s.handler = s.routes(opts)
	return s, nil
}

func (s *Server) routes(opts Options) http.Handler {
	h := &handlers{store: s.store, tokens: s.tokens, cookieName: SessionCookie, logger: s.logger}
	auth := middleware.NewAuthMiddleware(s.tokens, SessionCookie, opts.UnauthorizedCode, opts.UnauthorizedAs401)
	rateLimit := middleware.NewRateLimitMiddleware(opts.RateLimitRPM, opts.AuthRateLimitRPM)
	adminOnly := chi.Chain(auth.RequireAuth, auth.RequireRoles(model.RoleAdmin))

	r := chi.NewRouter()
	r.Use(s.faults.Handler)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(opts.RequestTimeout))

		api.Route("/auth", func(a chi.Router) {
			a.Post("/login", h.login)
			a.Post("/logout", h.logout)
			a.With(auth.RequireAuth).Get("/me", h.me)
		})

		api.With(auth.RequireAuth).Get("/users", h.listUsers)
		api.With(auth.RequireAuth).Get("/users/{id}", h.getUser)
		api.With(auth.RequireAuth).Get("/universities", h.listUniversities)
		api.With(auth.RequireAuth).Get("/universities/all", h.allUniversities)
		api.With(auth.RequireAuth).Get("/universities/{id}", h.getUniversity)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(adminOnly...)

			admin.Post("/users", h.createUser)
			admin.Put("/users/{id}", h.updateUser)
			admin.Delete("/users/{id}", h.deleteUser)
			admin.Post("/universities", h.createUniversity)
			admin.Put("/universities/{id}", h.updateUniversity)
			admin.Delete("/universities/{id}", h.deleteUniversity)
			admin.Post("/universities/{id}/restore", h.restoreUniversity)
		})
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SeedUser adds an active account.
func (s *Server) SeedUser(email, password string, role int) (model.User, error) {
	return s.store.createUser(model.UserCreate{
		Email:    email,
		Password: password,
		Role:     role,
		Status:   model.StatusActive,
	})
}

// SeedUniversities adds universities in order, attributed to the first user.
func (s *Server) SeedUniversities(names ...string) ([]model.University, error) {
	out := make([]model.University, 0, len(names))
	for _, name := range names {
		u, err := s.store.createUniversity(name, 1)
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
	return out, nil
}

// FailNext answers the next API request with fault. Faults queue up.
func (s *Server) FailNext(fault Fault) {
	s.faults.failNext(fault)
}

// HoldNext stalls the next request whose path or request URI equals target
// until the returned release func is called.
func (s *Server) HoldNext(target string) (release func()) {
	return s.faults.holdNext(target)
}

// Requests lists every API request seen so far as "METHOD /uri".
func (s *Server) Requests() []string {
	return s.faults.requests()
}

// RevokeSessions invalidates every token issued so far.
func (s *Server) RevokeSessions() {
	s.tokens.RevokeAll()
}
