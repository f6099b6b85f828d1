package handler

import (
	"log/slog"
	"net/http"

	"themeboard/internal/theme"
)

// ThemeHandler serves the public board.
type ThemeHandler struct {
	Svc    *theme.Service
	Logger *slog.Logger
}

type createThemeReq struct {
	Content string `json:"content"`
}

func (h *ThemeHandler) List(w http.ResponseWriter, r *http.Request) {
	themes, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

func (h *ThemeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createThemeReq
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.Svc.Create(r.Context(), req.Content)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ThemeHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	id, ok := themeID(w, r)
	if !ok {
		return
	}

	updated, err := h.Svc.Upvote(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
