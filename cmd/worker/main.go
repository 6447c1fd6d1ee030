package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/audioweather/internal/config"
	"github.com/nikhilbhutani/audioweather/internal/logging"
	"github.com/nikhilbhutani/audioweather/internal/queue"
	"github.com/nikhilbhutani/audioweather/internal/queue/workers"
	"github.com/nikhilbhutani/audioweather/internal/staging"
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

	area, err := staging.New(cfg.Staging.Dir)
	if err != nil {
		slog.Error("failed to open uploads dir", "error", err)
		os.Exit(1)
	}

	redisOpt := queue.RedisOpt(cfg.Redis)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			queue.QueueDefault: 3,
			queue.QueueLow:     1,
		},
	})

	registry := queue.NewHandlersRegistry()

	stagingWorker := workers.NewStagingWorker(area, cfg.Staging.MaxAge)
	registry.Register(queue.TypeStagingRemove, stagingWorker.ProcessRemove)
	registry.Register(queue.TypeStagingSweep, stagingWorker.ProcessSweep)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if cfg.Staging.SweepInterval > 0 {
		task, err := queue.NewStagingSweepTask(queue.StagingSweepPayload{
			MaxAgeSeconds: int64(cfg.Staging.MaxAge / time.Second),
		})
		if err != nil {
			slog.Error("failed to build sweep task", "error", err)
			os.Exit(1)
		}
		cronSpec := fmt.Sprintf("@every %s", cfg.Staging.SweepInterval)
		entryID, err := scheduler.Register(cronSpec, task, asynq.Queue(queue.QueueLow), asynq.Unique(cfg.Staging.SweepInterval))
		if err != nil {
			slog.Error("failed to schedule staging sweep", "error", err)
			os.Exit(1)
		}
		slog.Info("staging sweep scheduled", "entry_id", entryID, "every", cfg.Staging.SweepInterval.String(), "max_age", cfg.Staging.MaxAge.String())
	}

	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	slog.Info("starting worker", "uploads_dir", area.Dir(), "concurrency", 4)
	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		scheduler.Shutdown()
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	slog.Info("worker stopped")
}
