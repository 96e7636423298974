package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contract-sender/internal/auth"
	"contract-sender/internal/config"
	"contract-sender/pkg/logger"

	"github.com/gin-gonic/gin"
)

const shutdownGrace = 20 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("console api exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(logger.Options{Env: cfg.App.Env, File: cfg.Log.File})
	slog.SetDefault(log)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("dependencies: %w", err)
	}
	defer d.Close()

	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log, "/healthz", "/metrics"))
	registerRoutes(r, cfg, d, authManager)

	// /v1/sms/events is a long-lived stream, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("console api listening", "addr", srv.Addr, "env", cfg.App.Env, "backend", cfg.Backend.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
