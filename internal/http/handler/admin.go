package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"themeboard/internal/auth"
	"themeboard/internal/theme"
)

// AdminHandler serves the moderation endpoints. Every route sits behind
// auth.RequireAdmin, which puts the verified Admin in the request context.
type AdminHandler struct {
	Svc    *theme.Service
	Guard  *auth.Guard
	Logger *slog.Logger
}

type updateThemeReq struct {
	Content string `json:"content"`
}

type sessionResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// admin fetches the capability or writes a 403.
func admin(w http.ResponseWriter, r *http.Request) (auth.Admin, bool) {
	a, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusForbidden, "Unauthorized")
	}
	return a, ok
}

func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := admin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": true})
}

func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	if _, ok := admin(w, r); !ok {
		return
	}

	token, expires, err := h.Guard.IssueSession()
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{Token: token, ExpiresAt: expires})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	a, ok := admin(w, r)
	if !ok {
		return
	}

	stats, err := h.Svc.Stats(r.Context(), a)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	a, ok := admin(w, r)
	if !ok {
		return
	}
	id, ok := themeID(w, r)
	if !ok {
		return
	}
	var req updateThemeReq
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Svc.AdminUpdateContent(r.Context(), a, id, req.Content)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) ToggleCompleted(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Svc.ToggleCompleted)
}

// ToggleArchived also serves the legacy toggle-hidden route.
func (h *AdminHandler) ToggleArchived(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Svc.ToggleArchived)
}

func (h *AdminHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, auth.Admin, int64) (*theme.Theme, error)) {
	a, ok := admin(w, r)
	if !ok {
		return
	}
	id, ok := themeID(w, r)
	if !ok {
		return
	}

	updated, err := fn(r.Context(), a, id)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := admin(w, r)
	if !ok {
		return
	}
	id, ok := themeID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Delete(r.Context(), a, id); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Theme deleted successfully"})
}
