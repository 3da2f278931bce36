package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"admin-console/internal/event"
	"admin-console/internal/gateway"
	"admin-console/internal/model"
	"admin-console/internal/session"
	"admin-console/pkg/apierror"
)

// SessionGateway is the gateway as seen by login and logout, which also
// manage the cookie jar in cookie mode.
type SessionGateway interface {
	gateway.Caller
	SessionCookies() []session.Cookie
	ResetCookies()
}

type AuthService struct {
	gw         SessionGateway
	store      *session.Store
	bus        event.Bus
	whoAmIPath string
	now        func() time.Time
	logger     *slog.Logger
}

func NewAuthService(gw SessionGateway, store *session.Store, bus event.Bus, whoAmIPath string, logger *slog.Logger) *AuthService {
	if whoAmIPath == "" {
		whoAmIPath = "/auth/me"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		gw:         gw,
		store:      store,
		bus:        bus,
		whoAmIPath: whoAmIPath,
		now:        time.Now,
		logger:     logger.With("component", "auth"),
	}
}

// Login authenticates and records the session in the store. In bearer mode
// the returned token becomes the credential; in cookie mode the jar's cookies
// do.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.LoginResponse, error) {
	req := model.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if req.Email == "" || req.Password == "" {
		return model.LoginResponse{}, apierror.Business(apierror.CodeParam, "email and password are required")
	}

	resp, err := gateway.Do[model.LoginResponse](ctx, s.gw, http.MethodPost, "/auth/login", req, nil)
	if err != nil {
		return model.LoginResponse{}, err
	}

	var cred session.Credential
	switch s.store.Mode() {
	case session.ModeBearer:
		cred = session.Credential{Token: resp.Token, Scheme: resp.TokenType}
	default:
		cred = session.Credential{Cookies: s.gw.SessionCookies()}
	}
	if resp.ExpiresIn > 0 {
		cred.ExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}

	if err := s.store.Set(cred); err != nil {
		return model.LoginResponse{}, err
	}

	s.logger.Info("logged in", "email", req.Email, "mode", string(s.store.Mode()))
	s.bus.Publish(event.Event{Type: event.TypeSessionStarted, Payload: req.Email})
	return resp, nil
}

// Logout ends the session on the server and always clears it locally, even
// when the call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	callErr := gateway.Exec(ctx, s.gw, http.MethodPost, "/auth/logout", nil)

	s.gw.ResetCookies()
	if err := s.store.Clear(); err != nil {
		s.logger.Error("clear session on logout", "error", err)
	}
	s.bus.Publish(event.Event{Type: event.TypeSessionEnded})

	// An unauthorized logout means the server had already forgotten us.
	if apierror.KindOf(callErr) == apierror.KindUnauthorized {
		return nil
	}
	return callErr
}

// Me is the who-am-I probe used by the auth guard.
func (s *AuthService) Me(ctx context.Context) (model.CurrentUser, error) {
	return gateway.Do[model.CurrentUser](ctx, s.gw, http.MethodGet, s.whoAmIPath, nil, nil)
}
