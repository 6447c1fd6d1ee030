package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/audioweather/internal/queue"
	"github.com/nikhilbhutani/audioweather/internal/staging"
)

// StagingWorker deletes staged audio left behind by failed inline cleanups.
type StagingWorker struct {
	area          *staging.Area
	defaultMaxAge time.Duration
}

func NewStagingWorker(area *staging.Area, defaultMaxAge time.Duration) *StagingWorker {
	return &StagingWorker{area: area, defaultMaxAge: defaultMaxAge}
}

func (w *StagingWorker) ProcessRemove(ctx context.Context, t *asynq.Task) error {
	var payload queue.StagingRemovePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := w.area.Remove(payload.Filename); err != nil {
		return fmt.Errorf("remove staged audio: %w", err)
	}

	slog.Info("deferred staged audio removed", "file", payload.Filename, "request_id", payload.RequestID)
	return nil
}

func (w *StagingWorker) ProcessSweep(ctx context.Context, t *asynq.Task) error {
	var payload queue.StagingSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	maxAge := w.defaultMaxAge
	if payload.MaxAgeSeconds > 0 {
		maxAge = time.Duration(payload.MaxAgeSeconds) * time.Second
	}

	removed, err := w.area.Sweep(maxAge)
	if removed > 0 {
		slog.Info("staging sweep removed orphaned audio", "removed", removed, "max_age", maxAge.String())
	}
	if err != nil {
		return fmt.Errorf("sweep staging dir: %w", err)
	}
	return nil
}
