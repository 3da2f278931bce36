package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"admin-console/internal/model"
)

type Store struct {
	mu      sync.RWMutex
	mode    Mode
	current Session
	persist Persister
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates the process-wide store and resumes a persisted session of
// the same mode, if any.
func NewStore(mode Mode, opts ...Option) (*Store, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	s := &Store{
		mode:   mode,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")

	if s.persist == nil {
		return s, nil
	}

	saved, found, err := s.persist.Load()
	if err != nil {
		return nil, fmt.Errorf("load persisted session: %w", err)
	}
	if !found {
		return s, nil
	}
	if saved.Mode != mode || !saved.Present {
		s.logger.Info("discarding persisted session of another mode", "persisted_mode", string(saved.Mode), "mode", string(mode))
		if err := s.persist.Remove(); err != nil {
			return nil, fmt.Errorf("remove stale session: %w", err)
		}
		return s, nil
	}

	s.current = saved
	return s, nil
}

func (s *Store) Mode() Mode {
	return s.mode
}

func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Set records a successful login.
func (s *Store) Set(cred Credential) error {
	if s.mode == ModeBearer && strings.TrimSpace(cred.Token) == "" {
		return ErrEmptyCredential
	}
	if s.mode == ModeBearer && cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = tokenExpiry(cred.Token)
	}

	s.mu.Lock()
	s.current = Session{
		Present:    true,
		Mode:       s.mode,
		Credential: cred,
		CreatedAt:  s.now().UTC(),
	}
	snapshot := s.current.clone()
	s.mu.Unlock()

	return s.save(snapshot)
}

// SetUser attaches the identity reported by the who-am-I probe. It is a no-op
// without a session.
func (s *Store) SetUser(user model.CurrentUser) error {
	s.mu.Lock()
	if !s.current.Present {
		s.mu.Unlock()
		return nil
	}
	s.current.User = &user
	snapshot := s.current.clone()
	s.mu.Unlock()

	return s.save(snapshot)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	wasPresent := s.current.Present
	s.current = Session{}
	s.mu.Unlock()

	if wasPresent {
		s.logger.Debug("session cleared")
	}
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Remove(); err != nil {
		return fmt.Errorf("remove persisted session: %w", err)
	}
	return nil
}

// IsKnown reports whether a credential or marker is present. It is an
// optimistic hint, never proof of a valid session. A marker past its known
// expiry is cleared here, so the store never reports a session it already
// knows to be dead.
func (s *Store) IsKnown() bool {
	s.mu.Lock()
	if !s.current.Present {
		s.mu.Unlock()
		return false
	}
	exp := s.current.Credential.ExpiresAt
	if exp.IsZero() || s.now().Before(exp) {
		s.mu.Unlock()
		return true
	}
	s.current = Session{}
	s.mu.Unlock()

	s.logger.Info("session expired locally", "expired_at", exp)
	if s.persist != nil {
		if err := s.persist.Remove(); err != nil {
			s.logger.Warn("remove expired session", "error", err)
		}
	}
	return false
}

func (s *Store) save(snapshot Session) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(snapshot); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the server
// stays the judge of validity.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
