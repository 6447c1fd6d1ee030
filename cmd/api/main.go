package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/audioweather/internal/api"
	"github.com/nikhilbhutani/audioweather/internal/audit"
	"github.com/nikhilbhutani/audioweather/internal/config"
	"github.com/nikhilbhutani/audioweather/internal/database"
	"github.com/nikhilbhutani/audioweather/internal/llm"
	"github.com/nikhilbhutani/audioweather/internal/logging"
	"github.com/nikhilbhutani/audioweather/internal/multimodal/stt"
	"github.com/nikhilbhutani/audioweather/internal/pipeline"
	"github.com/nikhilbhutani/audioweather/internal/queue"
	"github.com/nikhilbhutani/audioweather/internal/staging"
	"github.com/nikhilbhutani/audioweather/internal/summarizer"
	"github.com/nikhilbhutani/audioweather/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	area, err := staging.New(cfg.Staging.Dir)
	if err != nil {
		slog.Error("failed to prepare uploads dir", "error", err)
		os.Exit(1)
	}

	transcriber, err := stt.NewProvider(cfg.STT)
	if err != nil {
		slog.Error("failed to create transcription provider", "error", err)
		os.Exit(1)
	}

	textGen, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		slog.Error("failed to create text generation provider", "error", err)
		os.Exit(1)
	}

	if !llm.SupportsModel(textGen, cfg.LLM.Model) {
		slog.Warn("LLM_MODEL is not a known model of the provider",
			"provider", textGen.Name(), "model", cfg.LLM.Model, "known", textGen.Models())
	}

	var opts []pipeline.Option

	// Database (optional; runs are only recorded when DATABASE_URL is set)
	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without run audit", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, os.DirFS(cfg.Database.MigrationsPath)); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			opts = append(opts, pipeline.WithRecorder(audit.NewService(db)))
		}
	}

	// Redis (optional; deferred cleanup needs the worker queue)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	var readyRedis *redis.Client
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, failed cleanups will only be logged", "error", err)
	} else {
		readyRedis = rdb
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		opts = append(opts, pipeline.WithCleanupQueue(qc))
	}

	orchestrator := pipeline.New(
		area,
		transcriber,
		weather.NewClient(cfg.Weather),
		summarizer.New(textGen, cfg.LLM.Model),
		opts...,
	)

	router := api.NewRouter(db, readyRedis, cfg, orchestrator)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"uploads_dir", area.Dir(),
			"stt", transcriber.Name(),
			"llm", textGen.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
