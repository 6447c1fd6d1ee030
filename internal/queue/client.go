package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/audioweather/internal/config"
)

// RedisOpt is the asynq connection shared by the client, worker server and scheduler.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueStagingRemove schedules deletion of a staged file the request could not remove itself.
func (c *Client) EnqueueStagingRemove(ctx context.Context, filename, requestID string) error {
	task, err := NewStagingRemoveTask(StagingRemovePayload{Filename: filename, RequestID: requestID})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.ProcessIn(30*time.Second),
		asynq.Timeout(30*time.Second),
	)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	slog.Debug("task enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}
