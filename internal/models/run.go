package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusRejected  = "rejected"
	RunStatusFailed    = "failed"
)

// RunRecord is the audit trail of one pipeline run. It never carries the
// transcription, the forecast or the generated answer.
type RunRecord struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RequestID    string    `json:"request_id,omitempty" db:"request_id"`
	Status       string    `json:"status" db:"status"`
	FailedStage  string    `json:"failed_stage,omitempty" db:"failed_stage"`
	AudioBytes   int64     `json:"audio_bytes" db:"audio_bytes"`
	Provider     string    `json:"provider,omitempty" db:"provider"`
	Model        string    `json:"model,omitempty" db:"model"`
	InputTokens  int       `json:"input_tokens" db:"input_tokens"`
	OutputTokens int       `json:"output_tokens" db:"output_tokens"`
	CostUSD      float64   `json:"cost_usd" db:"cost_usd"`
	LatencyMs    int64     `json:"latency_ms" db:"latency_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
