// cmd/server/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/firmsite/seminar-enrollment/config"
	"github.com/firmsite/seminar-enrollment/internal/cache"
	"github.com/firmsite/seminar-enrollment/internal/database"
	"github.com/firmsite/seminar-enrollment/internal/handler"
	applogger "github.com/firmsite/seminar-enrollment/internal/logger"
	"github.com/firmsite/seminar-enrollment/internal/repository"
	"github.com/firmsite/seminar-enrollment/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config/config.yaml)")
	flag.Parse()

	ctx := context.Background()

	// ── 1. Config and logging ─────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// ── 2. PostgreSQL and schema migrations ───────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.RunMigrations(pool, logger); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	// ── 3. Optional quota cache ───────────────────────────────────────────
	// A nil cache is valid: quota reads fall through to the database.
	var quotaCache *cache.QuotaCache
	if cfg.Redis.Addr != "" {
		quotaCache, err = cache.New(cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, quota cache disabled", zap.Error(err))
			quotaCache = nil
		}
	}
	defer quotaCache.Close()

	// ── 4. Wire up layers ─────────────────────────────────────────────────
	repo := &repository.Repository{
		Events:       repository.NewEventRepository(pool),
		Applications: repository.NewApplicationRepository(pool),
	}
	svc := service.NewEnrollmentService(repo, quotaCache, logger)
	h := handler.NewEnrollmentHandler(svc)

	// ── 5. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.CORS(cfg.Server.AllowOrigins))

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/quota", h.GetQuotaInfo)
		r.Post("/{id}/applications", h.SubmitApplication)
		r.Get("/{id}/applications", h.ListApplications)
		r.Delete("/{id}/applications", h.CancelApplication)
	})
	r.Patch("/applications/{id}/status", h.UpdateApplicationStatus)

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
