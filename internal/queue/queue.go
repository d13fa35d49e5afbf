package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskDeliverNotification = "notification:deliver"
	TaskReapNotifications   = "notification:reap"
)

type DeliverPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// Enqueuer hands delivery work off to the background worker so the creating
// caller never blocks on channel adapters.
type Enqueuer interface {
	EnqueueDeliver(ctx context.Context, notificationID uuid.UUID, processAt *time.Time) error
	Close() error
}

type enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt) Enqueuer {
	return &enqueuer{client: asynq.NewClient(redisOpt)}
}

func (e *enqueuer) EnqueueDeliver(ctx context.Context, notificationID uuid.UUID, processAt *time.Time) error {
	payload, err := json.Marshal(DeliverPayload{NotificationID: notificationID})
	if err != nil {
		return fmt.Errorf("marshal deliver payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue("default"),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
		asynq.Retention(24 * time.Hour),
	}
	if processAt != nil && processAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(*processAt))
	}

	task := asynq.NewTask(TaskDeliverNotification, payload)
	if _, err := e.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue deliver task: %w", err)
	}
	return nil
}

func (e *enqueuer) Close() error {
	return e.client.Close()
}
