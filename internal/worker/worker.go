// Package worker runs background delivery and the expiry reaper on asynq.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/queue"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/channel"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/delivery"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/directory"
)

type Worker struct {
	server         *asynq.Server
	scheduler      *asynq.Scheduler
	notifRepo      repository.NotificationRepository
	directory      directory.Service
	dispatcher     *delivery.Dispatcher
	retention      time.Duration
	reaperSchedule string
	logger         *slog.Logger
}

func New(
	redisOpt asynq.RedisClientOpt,
	notifRepo repository.NotificationRepository,
	dir directory.Service,
	dispatcher *delivery.Dispatcher,
	retention time.Duration,
	reaperSchedule string,
	concurrency int,
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 10,
		},
	})
	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Worker{
		server:         server,
		scheduler:      scheduler,
		notifRepo:      notifRepo,
		directory:      dir,
		dispatcher:     dispatcher,
		retention:      retention,
		reaperSchedule: reaperSchedule,
		logger:         logger,
	}
}

// Start runs the task server and the periodic reaper until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDeliverNotification, w.HandleDeliver)
	mux.HandleFunc(queue.TaskReapNotifications, w.HandleReap)

	if _, err := w.scheduler.Register(w.reaperSchedule, asynq.NewTask(queue.TaskReapNotifications, nil)); err != nil {
		return err
	}
	if err := w.scheduler.Start(); err != nil {
		return err
	}

	if err := w.server.Start(mux); err != nil {
		w.scheduler.Shutdown()
		return err
	}

	w.logger.Info("notification worker started",
		slog.String("reaper_schedule", w.reaperSchedule))

	<-ctx.Done()

	w.scheduler.Shutdown()
	w.server.Stop()
	w.server.Shutdown()
	w.logger.Info("notification worker stopped")
	return nil
}

// HandleDeliver loads the notification, resolves its effective channels
// against the recipient's preferences and fans out. A notification deleted
// or expired before the task ran is not an error.
func (w *Worker) HandleDeliver(ctx context.Context, t *asynq.Task) error {
	var payload queue.DeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	notif, err := w.notifRepo.GetByID(ctx, payload.NotificationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if notif.IsExpired() {
		return nil
	}

	contact, err := w.directory.GetContactInfo(ctx, notif.RecipientID)
	if errors.Is(err, domain.ErrNotFound) {
		w.logger.Warn("notification recipient missing from directory",
			slog.String("notification_id", notif.ID.String()),
			slog.String("recipient_id", notif.RecipientID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	effective := channel.Resolve(notif.Channels, contact.Preferences)
	outcomes := w.dispatcher.Dispatch(ctx, notif, effective, contact)

	for ch, outcome := range outcomes {
		if outcome.Delivered {
			continue
		}
		w.logger.Warn("notification channel not delivered",
			slog.String("notification_id", notif.ID.String()),
			slog.String("channel", string(ch)),
			slog.String("reason", outcome.Error))
	}
	return nil
}

// HandleReap purges expired rows, then read/archived rows older than the
// retention period. The two triggers are independent.
func (w *Worker) HandleReap(ctx context.Context, t *asynq.Task) error {
	expired, err := w.notifRepo.DeleteExpired(ctx)
	if err != nil {
		return err
	}

	stale, err := w.notifRepo.DeleteStale(ctx, w.retention)
	if err != nil {
		return err
	}

	w.logger.Info("notification reaper run",
		slog.Int64("expired_deleted", expired),
		slog.Int64("stale_deleted", stale))
	return nil
}
