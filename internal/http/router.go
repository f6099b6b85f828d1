package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"themeboard/internal/auth"
	"themeboard/internal/config"
	"themeboard/internal/http/handler"
	mw "themeboard/internal/http/middleware"
	"themeboard/internal/ratelimit"
	"themeboard/internal/theme"
)

type Deps struct {
	Config config.Config
	Themes *theme.Service
	Guard  *auth.Guard
	// Limiter throttles public writes per client IP; nil disables it.
	Limiter *ratelimit.KeyedRateLimiter
	Logger  *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(chimw.Recoverer)

	if len(d.Config.CORS.AllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORS.AllowedOrigins, d.Config.CORS.AllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	themes := &handler.ThemeHandler{Svc: d.Themes, Logger: logger}
	admin := &handler.AdminHandler{Svc: d.Themes, Guard: d.Guard, Logger: logger}

	r.Route("/api", func(r chi.Router) {
		r.Get("/themes", themes.List)

		r.Group(func(r chi.Router) {
			if d.Limiter != nil {
				r.Use(mw.RateLimit(d.Limiter))
			}
			r.Post("/themes", themes.Create)
			r.Post("/themes/{id}/upvote", themes.Upvote)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(d.Guard))

			r.Get("/verify", admin.Verify)
			r.Post("/session", admin.Session)
			r.Get("/stats", admin.Stats)

			r.Put("/themes/{id}", admin.UpdateContent)
			r.Patch("/themes/{id}/toggle-complete", admin.ToggleCompleted)
			r.Patch("/themes/{id}/toggle-archived", admin.ToggleArchived)
			r.Patch("/themes/{id}/toggle-hidden", admin.ToggleArchived)
			r.Delete("/themes/{id}", admin.Delete)
		})
	})

	return r
}
