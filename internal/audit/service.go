package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/audioweather/internal/models"
)

// execer is the part of *pgxpool.Pool the service needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Service stores run metadata. It never sees transcriptions, forecasts or answers.
type Service struct {
	db execer
}

func NewService(db execer) *Service {
	return &Service{db: db}
}

const insertRun = `INSERT INTO audio_weather_runs
	(id, request_id, status, failed_stage, audio_bytes, provider, model, input_tokens, output_tokens, cost_usd, latency_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (s *Service) RecordRun(ctx context.Context, run models.RunRecord) error {
	_, err := s.db.Exec(ctx, insertRun,
		run.ID, run.RequestID, run.Status, run.FailedStage, run.AudioBytes,
		run.Provider, run.Model, run.InputTokens, run.OutputTokens, run.CostUSD,
		run.LatencyMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audio weather run: %w", err)
	}
	return nil
}
