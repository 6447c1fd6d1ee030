package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

// NewHandlersRegistry returns a registry whose handlers are wrapped with task logging.
func NewHandlersRegistry() *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(logTask)
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, fn func(context.Context, *asynq.Task) error) {
	r.mux.HandleFunc(taskType, fn)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		taskID, _ := asynq.GetTaskID(ctx)
		err := next.ProcessTask(ctx, t)
		if err != nil {
			slog.Error("task failed", "type", t.Type(), "task_id", taskID, "error", err)
			return err
		}
		slog.Info("task done", "type", t.Type(), "task_id", taskID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
}
