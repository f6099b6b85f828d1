package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domainerrors "themeboard/internal/errors"
)

// maxBodyBytes caps request bodies; a theme is at most 50 characters.
const maxBodyBytes = 4 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps a service error to its status and message. Anything that
// is not a domain error is reported as a plain 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		}
		writeErrorMessage(w, status, domainErr.Message)
		return
	}

	logger.ErrorContext(r.Context(), "unexpected error", "error", err, "path", r.URL.Path)
	writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeErrorMessage(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// themeID parses the {id} URL parameter.
func themeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid theme id")
		return 0, false
	}
	return id, true
}
