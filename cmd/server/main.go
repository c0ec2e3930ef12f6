// Package main is the entry point for the back-office API server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/internal/domain/auth"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting back-office server", "version", version, "storage", cfg.Storage)

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	if application.Memory != nil {
		app.SeedMemory(application.Memory, app.DemoBranchID)
		log.Infow("demo catalog loaded", "branch_id", app.DemoBranchID)
	}
	application.StartBackground(ctx)

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			log.Fatalw("failed to generate development secret", "error", err)
		}
		jwtConfig.Secret = secret
		log.Warn("JWT_SECRET is empty; using a random per-process secret, tokens from other processes will be rejected")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log.WithComponent("http"),
		JWTValidator:  auth.NewJWTService(jwtConfig),
		Opname:        application.Opname,
		Review:        application.Review,
		History:       application.History,
		Ledger:        application.Ledger,
		Health:        application.HealthHandler(version),
		MaxImportSize: cfg.MaxImportSize,
		Debug:         cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Errorw("server failed", "error", err)
		}
	}

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// randomSecret returns 32 random bytes, hex-encoded.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
