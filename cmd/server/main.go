package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/api"
	"github.com/taylorsterlingwrites/threshold-compass/internal/auth"
	"github.com/taylorsterlingwrites/threshold-compass/internal/config"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	repos, err := storage.Open(ctx, cfg.StorageBackend, cfg.DataDir, cfg.PostgresDSN, logger)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.Errorf("storage close: %v", err)
		}
	}()

	if err := seedDevUser(ctx, repos.Users, cfg, logger); err != nil {
		return err
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	app := &api.Deps{
		Log:      logger,
		Analyzer: analytics.New(cfg.Engine()),
		Repos:    repos,
	}
	router := api.NewRouter(app, auth.NewProvider(cfg, repos.Users, logger), cfg.Origins())

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s (storage=%s auth=%s)", cfg.HTTPAddr, cfg.StorageBackend, cfg.AuthMode)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Infof("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
		return err
	}
	logger.Infof("server stopped gracefully")
	return nil
}

// seedDevUser creates the demo account behind cfg.DevToken when it is missing.
func seedDevUser(ctx context.Context, users storage.UserRepository, cfg *config.Config, logger internal.Logger) error {
	if cfg.AuthMode != "token" || cfg.DevToken == "" {
		return nil
	}
	_, err := users.GetUserByToken(ctx, cfg.DevToken)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("looking up dev user: %w", err)
	}
	u := internal.DefaultUser("u1")
	u.Token = cfg.DevToken
	u.Name = "Demo User"
	u.CreatedAt = time.Now()
	if err := users.SaveUser(ctx, &u); err != nil {
		return fmt.Errorf("seeding dev user: %w", err)
	}
	logger.Infof("seeded demo user %s", u.ID)
	return nil
}
