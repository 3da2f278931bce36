package mockapi

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"admin-console/internal/middleware"
	"admin-console/internal/model"
)

var errInvalidToken = errors.New("invalid token")

// tokenIssuer signs HS256 session tokens and tracks revocations. Every token
// carries the issuer generation; bumping it invalidates all sessions at once.
type tokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
	users      *store
	mu         sync.RWMutex
	generation int64
	revoked    map[string]time.Time
}

func newTokenIssuer(secret string, ttl time.Duration, now func() time.Time, users *store) *tokenIssuer {
	return &tokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     now,
		users:   users,
		revoked: map[string]time.Time{},
	}
}

func (t *tokenIssuer) Issue(user model.User) (model.LoginResponse, time.Time, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	t.mu.RLock()
	generation := t.generation
	t.mu.RUnlock()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"role":  user.Role,
		"gen":   generation,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return model.LoginResponse{}, time.Time{}, err
	}

	return model.LoginResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(t.ttl.Seconds()),
	}, expiresAt, nil
}

func (t *tokenIssuer) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}

	sub, _ := claimsMap["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errInvalidToken
	}
	generation, _ := claimsMap["gen"].(float64)
	jti, _ := claimsMap["jti"].(string)

	t.mu.RLock()
	_, revoked := t.revoked[jti]
	stale := int64(generation) != t.generation
	t.mu.RUnlock()
	if revoked || stale {
		return nil, errInvalidToken
	}

	// Role and status come from the store so that edits take effect on the
	// next request.
	user, err := t.users.user(userID)
	if err != nil || user.Status != model.StatusActive {
		return nil, errInvalidToken
	}

	return &middleware.Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		TokenID: jti,
	}, nil
}

func (t *tokenIssuer) Revoke(jti string) {
	if jti == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, until := range t.revoked {
		if now.After(until) {
			delete(t.revoked, id)
		}
	}
	t.revoked[jti] = now.Add(t.ttl)
}

// RevokeAll invalidates every token issued so far.
func (t *tokenIssuer) RevokeAll() {
	t.mu.Lock()
	t.generation++
	t.mu.Unlock()
}
