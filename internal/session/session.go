// Package session owns the client's belief about whether the operator is
// logged in. Only the gateway and the auth guard read or mutate it.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"admin-console/internal/model"
)

type Mode string

const (
	// ModeCookie relies on a server-managed cookie; the store only keeps a
	// marker (and the cookies, so a later process can resume).
	ModeCookie Mode = "cookie"
	// ModeBearer attaches Authorization: <scheme> <token> to every call.
	ModeBearer Mode = "bearer"
)

var ErrEmptyCredential = errors.New("session: bearer mode requires a token")

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeCookie:
		return ModeCookie, nil
	case ModeBearer:
		return ModeBearer, nil
	default:
		return "", fmt.Errorf("unknown session mode %q (want cookie or bearer)", raw)
	}
}

type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func CookiesFromHTTP(in []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out
}

func (c Cookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

type Credential struct {
	Token     string    `json:"token,omitempty"`
	Scheme    string    `json:"scheme,omitempty"`
	Cookies   []Cookie  `json:"cookies,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type Session struct {
	Present    bool               `json:"present"`
	Mode       Mode               `json:"mode"`
	Credential Credential         `json:"credential"`
	User       *model.CurrentUser `json:"user,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (s Session) clone() Session {
	out := s
	if s.Credential.Cookies != nil {
		out.Credential.Cookies = append([]Cookie(nil), s.Credential.Cookies...)
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
