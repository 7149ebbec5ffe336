// World Connector backend: identity issuing, document store, live sync.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"worldconnector/internal/api"
	"worldconnector/internal/auth"
	"worldconnector/internal/config"
	"worldconnector/internal/live"
	"worldconnector/internal/middleware"
	"worldconnector/internal/store"
	"worldconnector/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "namespace", cfg.AppNamespace, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	hub := live.NewHub()
	authSvc := auth.NewService(cfg.TokenSecret, cfg.TokenTTL)
	handler := api.NewHandler(repo, hub, authSvc, cfg.AppNamespace)

	// Operator convenience: mint a bootstrap credential for a known identity
	// so a connector can sign in via exchange instead of anonymously.
	if identity := os.Getenv("MINT_BOOTSTRAP_FOR"); identity != "" {
		credential, mintErr := authSvc.MintBootstrapCredential(identity)
		if mintErr != nil {
			slog.Error("Failed to mint bootstrap credential", "user_id", identity, "error", mintErr)
			os.Exit(1)
		}
		slog.Info("Bootstrap credential minted", "user_id", identity, "credential", credential)
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(corsOrigins(cfg)))

	// Public health check.
	r.Get("/health", handler.Health)

	// API + sync socket.
	handler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	// Note: sync sockets stay open indefinitely, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	live.StartJanitor(ctx, hub, live.DefaultSweepInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// corsOrigins restricts cross-origin requests to the configured frontend in
// production; development allows any origin.
func corsOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
