package mockapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"admin-console/internal/middleware"
	"admin-console/internal/model"
)

type handlers struct {
	store      *store
	tokens     *tokenIssuer
	cookieName string
	logger     *slog.Logger
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || len(payload.Password) < minPasswordLength {
		writeError(w, h.logger, errParam("email and a password of at least 6 characters are required"))
		return
	}

	user, err := h.store.authenticate(payload.Email, payload.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "login successful", resp)
}

// logout always succeeds. A token presented with the request is revoked.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r, h.cookieName); token != "" {
		if claims, err := h.tokens.ValidateToken(token); err == nil {
			h.tokens.Revoke(claims.TokenID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "logout successful", nil)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	writeSuccess(w, "ok", model.CurrentUser{ID: claims.UserID, Email: claims.Email, Role: claims.Role})
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	items, total := h.store.listUsers(page, size)
	writeSuccess(w, "ok", listResponse[model.User]{List: items, Total: total, Page: page, Size: size})
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.store.user(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "ok", user)
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var payload model.UserCreate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.store.createUser(payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "user created", user)
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var payload model.UserUpdate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.store.updateUser(id, payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "user updated", user)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.store.deleteUser(id, claims.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "user deleted", nil)
}

func (h *handlers) listUniversities(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	showDeleted := r.URL.Query().Get("show_deleted") == "true"
	items, total := h.store.listUniversities(page, size, showDeleted)
	writeSuccess(w, "ok", listResponse[model.University]{List: items, Total: total, Page: page, Size: size})
}

func (h *handlers) allUniversities(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "ok", h.store.allUniversities())
}

func (h *handlers) getUniversity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	u, err := h.store.university(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "ok", u)
}

func (h *handlers) createUniversity(w http.ResponseWriter, r *http.Request) {
	var payload model.UniversityInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	u, err := h.store.createUniversity(payload.Name, claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "university created", u)
}

func (h *handlers) updateUniversity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var payload model.UniversityInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	u, err := h.store.updateUniversity(id, payload.Name, claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "university updated", u)
}

func (h *handlers) deleteUniversity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.store.deleteUniversity(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "university deleted", nil)
}

func (h *handlers) restoreUniversity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.store.restoreUniversity(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeSuccess(w, "university restored", nil)
}

func requestToken(r *http.Request, cookieName string) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if ck, err := r.Cookie(cookieName); err == nil {
		return ck.Value
	}
	return ""
}
