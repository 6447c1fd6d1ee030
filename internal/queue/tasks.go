package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeStagingRemove = "staging:remove"
	TypeStagingSweep  = "staging:sweep"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// StagingRemovePayload names a staged audio file whose inline cleanup failed.
type StagingRemovePayload struct {
	Filename  string `json:"filename"`
	RequestID string `json:"request_id,omitempty"`
}

// StagingSweepPayload bounds the age of staged files kept by a sweep.
type StagingSweepPayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

func NewStagingRemoveTask(p StagingRemovePayload) (*asynq.Task, error) {
	if p.Filename == "" {
		return nil, fmt.Errorf("staging remove task: empty filename")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeStagingRemove, data), nil
}

func NewStagingSweepTask(p StagingSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeStagingSweep, data), nil
}
