// Package delivery fans a notification out to its enabled channels.
package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
)

// Adapter sends one notification over one external channel. Implementations
// are opaque collaborators; the dispatcher only cares about success/failure.
type Adapter interface {
	Send(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo) error
}

// Outcome is the per-channel result of one dispatch.
type Outcome struct {
	Channel   domain.Channel `json:"channel"`
	Delivered bool           `json:"delivered"`
	Error     string         `json:"error,omitempty"`
}

type Dispatcher struct {
	notifRepo repository.NotificationRepository
	email     Adapter
	push      Adapter
	sms       Adapter
	logger    *slog.Logger
}

func NewDispatcher(notifRepo repository.NotificationRepository, email, push, sms Adapter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifRepo: notifRepo,
		email:     email,
		push:      push,
		sms:       sms,
		logger:    logger,
	}
}

// Dispatch attempts every enabled channel and waits for all of them. In-app
// is a local state write and runs synchronously; email, push and SMS each run
// in their own goroutine so one channel's failure or latency never affects a
// sibling. There is no retry: a failed channel is recorded with
// delivered=false and the notification itself is left untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, notif *domain.Notification, effective domain.Channels, contact *domain.ContactInfo) map[domain.Channel]Outcome {
	outcomes := make(map[domain.Channel]Outcome)
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(o Outcome) {
		mu.Lock()
		outcomes[o.Channel] = o
		mu.Unlock()
	}

	if effective.InApp {
		record(d.deliverInApp(ctx, notif))
	}

	external := []struct {
		channel domain.Channel
		enabled bool
		adapter Adapter
	}{
		{domain.ChannelEmail, effective.Email, d.email},
		{domain.ChannelPush, effective.Push, d.push},
		{domain.ChannelSms, effective.Sms, d.sms},
	}

	for _, ch := range external {
		if !ch.enabled {
			continue
		}
		wg.Add(1)
		go func(channel domain.Channel, adapter Adapter) {
			defer wg.Done()
			record(d.deliverExternal(ctx, notif, contact, channel, adapter))
		}(ch.channel, ch.adapter)
	}

	wg.Wait()
	return outcomes
}

// deliverInApp touches only the delivered paths of the in-app record; a
// concurrent MarkRead may have written readAt since the row was loaded.
func (d *Dispatcher) deliverInApp(ctx context.Context, notif *domain.Notification) Outcome {
	if err := d.notifRepo.MarkChannelDelivered(ctx, notif.ID, domain.ChannelInApp); err != nil {
		d.logger.Error("failed to record in-app delivery",
			slog.String("notification_id", notif.ID.String()),
			slog.Any("error", err))
		return Outcome{Channel: domain.ChannelInApp, Delivered: false, Error: err.Error()}
	}
	return Outcome{Channel: domain.ChannelInApp, Delivered: true}
}

func (d *Dispatcher) deliverExternal(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo, channel domain.Channel, adapter Adapter) Outcome {
	if adapter == nil {
		return d.fail(ctx, notif, channel, "no adapter configured")
	}

	if err := adapter.Send(ctx, notif, contact); err != nil {
		return d.fail(ctx, notif, channel, err.Error())
	}

	now := time.Now()
	state := domain.ChannelDelivery{Delivered: true, DeliveredAt: &now}
	if err := d.notifRepo.SetChannelDelivery(ctx, notif.ID, channel, state); err != nil {
		d.logger.Error("failed to record channel delivery",
			slog.String("notification_id", notif.ID.String()),
			slog.String("channel", string(channel)),
			slog.Any("error", err))
	}
	return Outcome{Channel: channel, Delivered: true}
}

func (d *Dispatcher) fail(ctx context.Context, notif *domain.Notification, channel domain.Channel, reason string) Outcome {
	d.logger.Warn("channel delivery failed",
		slog.String("notification_id", notif.ID.String()),
		slog.String("channel", string(channel)),
		slog.String("reason", reason))

	state := domain.ChannelDelivery{Delivered: false, Error: reason}
	if err := d.notifRepo.SetChannelDelivery(ctx, notif.ID, channel, state); err != nil {
		d.logger.Error("failed to record channel failure",
			slog.String("notification_id", notif.ID.String()),
			slog.String("channel", string(channel)),
			slog.Any("error", err))
	}
	return Outcome{Channel: channel, Delivered: false, Error: reason}
}
