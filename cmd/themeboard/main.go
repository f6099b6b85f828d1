package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"themeboard/internal/auth"
	"themeboard/internal/config"
	"themeboard/internal/db"
	httpx "themeboard/internal/http"
	"themeboard/internal/logger"
	"themeboard/internal/ratelimit"
	"themeboard/internal/theme"
)

func main() {
	if err := run(); err != nil {
		slog.Error("themeboard stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Format:      cfg.Log.Format,
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.Log.Level),
		AddSource:   cfg.Log.AddSource,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := db.Open(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer st.Close()

	guardCfg := auth.GuardConfig{
		Token:         cfg.Admin.Token,
		TokenHash:     cfg.Admin.TokenHash,
		SessionSecret: cfg.Admin.SessionSecret,
		SessionTTL:    cfg.Admin.SessionTTL,
	}
	if guardCfg.Token == "" && guardCfg.TokenHash == "" {
		guardCfg.Token = auth.GenerateToken()
		log.Warn("ADMIN_TOKEN not set, generated one for this run", "admin_token", guardCfg.Token)
	}
	guard, err := auth.NewGuard(guardCfg)
	if err != nil {
		return err
	}

	var limiter *ratelimit.KeyedRateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0)
		defer limiter.Stop()
	}

	r := httpx.NewRouter(httpx.Deps{
		Config:  *cfg,
		Themes:  theme.NewService(st, log),
		Guard:   guard,
		Limiter: limiter,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTP.Addr, "driver", cfg.Storage.ResolvedDriver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
