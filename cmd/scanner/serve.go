package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hnolivos/arbitrage-scanner/internal/api"
	"github.com/hnolivos/arbitrage-scanner/internal/config"
	"github.com/hnolivos/arbitrage-scanner/internal/events"
	"github.com/hnolivos/arbitrage-scanner/internal/fetch"
	"github.com/hnolivos/arbitrage-scanner/internal/jobs"
	"github.com/hnolivos/arbitrage-scanner/internal/logging"
	"github.com/hnolivos/arbitrage-scanner/internal/progress"
	"github.com/hnolivos/arbitrage-scanner/internal/scan"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with a background scan worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher, cleanup, err := fetch.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}
	defer cleanup()

	tracker := progress.NewTracker(cfg.Scanner.LogBuffer)
	orchestrator := scan.NewOrchestrator(fetcher, tracker, cfg.Scanner.MaxWorkers, logger)

	var publisher *events.Publisher
	if cfg.Events.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		publisher = events.NewPublisher(redisClient, cfg.Events.Stream, logger)
	}

	manager := jobs.NewManager(orchestrator, publisher, titleTransform, logger)
	defer manager.Close()

	go manager.StartWorker(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers := api.NewHandlers(manager, tracker, logger)
	r.Mount("/", handlers.Routes())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr, "mode", cfg.Scanner.Mode)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
