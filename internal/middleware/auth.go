package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"admin-console/internal/envelope"
	"admin-console/pkg/apierror"
)

// Claims identify the caller of an authenticated request.
type Claims struct {
	UserID  int64
	Email   string
	Role    int
	TokenID string
}

type tokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	validator         tokenValidator
	cookieName        string
	unauthorizedCode  int
	unauthorizedAs401 bool
}

// NewAuthMiddleware accepts a bearer token or the session cookie named
// cookieName. Rejections use the in-body unauthorized code, or HTTP 401 when
// unauthorizedAs401 is set.
func NewAuthMiddleware(validator tokenValidator, cookieName string, unauthorizedCode int, unauthorizedAs401 bool) *AuthMiddleware {
	return &AuthMiddleware{
		validator:         validator,
		cookieName:        cookieName,
		unauthorizedCode:  unauthorizedCode,
		unauthorizedAs401: unauthorizedAs401,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.tokenFromRequest(r)
		if token == "" {
			m.writeUnauthorized(w, "authentication required")
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				m.writeUnauthorized(w, "authentication required")
				return
			}

			if !slices.Contains(allowedRoles, claims.Role) {
				envelope.Write(w, http.StatusOK, apierror.CodeForbidden, "insufficient permissions", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenFromRequest returns the bearer token or, failing that, the session
// cookie value.
func (m *AuthMiddleware) tokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if m.cookieName == "" {
		return ""
	}
	if ck, err := r.Cookie(m.cookieName); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

func (m *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, message string) {
	if m.unauthorizedAs401 {
		envelope.Write(w, http.StatusUnauthorized, m.unauthorizedCode, message, nil)
		return
	}
	envelope.Write(w, http.StatusOK, m.unauthorizedCode, message, nil)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*Claims)
	return claims, ok
}
