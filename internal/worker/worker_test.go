package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/queue"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/delivery"
	"github.com/travel-guide-ai/travelmate-notifications/internal/worker"
	"github.com/travel-guide-ai/travelmate-notifications/tests/mocks"
)

func newTestWorker(repo *mocks.NotificationRepository, dir *mocks.DirectoryService, dispatcher *delivery.Dispatcher) *worker.Worker {
	return worker.New(asynq.RedisClientOpt{Addr: "localhost:6379"}, repo, dir, dispatcher, 30*24*time.Hour, "@every 1h", 1, nil)
}

func deliverTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.DeliverPayload{NotificationID: id})
	assert.NoError(t, err)
	return asynq.NewTask(queue.TaskDeliverNotification, payload)
}

func TestWorker_HandleDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("PreferenceGating", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		emailAdapter := new(mocks.ChannelAdapter)
		pushAdapter := new(mocks.ChannelAdapter)
		dispatcher := delivery.NewDispatcher(repo, emailAdapter, pushAdapter, nil, nil)
		w := newTestWorker(repo, dir, dispatcher)

		notif := &domain.Notification{
			ID:          uuid.New(),
			RecipientID: uuid.New(),
			Type:        domain.NotifItineraryShared,
			Title:       "Itinerary Shared",
			Channels:    domain.Channels{InApp: true, Email: true, Push: true},
		}
		contact := &domain.ContactInfo{
			UserID:    notif.RecipientID,
			FullName:  "Bob Traveler",
			Email:     "bob@example.com",
			PushToken: "token-1",
			Preferences: domain.NotificationPreferences{
				EmailNotifications: false,
				PushNotifications:  true,
			},
		}

		repo.On("GetByID", mock.Anything, notif.ID).Return(notif, nil).Once()
		dir.On("GetContactInfo", mock.Anything, notif.RecipientID).Return(contact, nil).Once()
		repo.On("MarkChannelDelivered", mock.Anything, notif.ID, domain.ChannelInApp).Return(nil).Once()
		repo.On("SetChannelDelivery", mock.Anything, notif.ID, mock.AnythingOfType("domain.Channel"), mock.AnythingOfType("domain.ChannelDelivery")).Return(nil)
		pushAdapter.On("Send", mock.Anything, notif, contact).Return(nil).Once()

		err := w.HandleDeliver(ctx, deliverTask(t, notif.ID))

		assert.NoError(t, err)
		emailAdapter.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		pushAdapter.AssertExpectations(t)
	})

	t.Run("NotificationGoneIsNotAnError", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		w := newTestWorker(repo, dir, delivery.NewDispatcher(repo, nil, nil, nil, nil))

		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound).Once()

		assert.NoError(t, w.HandleDeliver(ctx, deliverTask(t, id)))
		dir.AssertNotCalled(t, "GetContactInfo", mock.Anything, mock.Anything)
	})

	t.Run("ExpiredNotificationSkipped", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		w := newTestWorker(repo, dir, delivery.NewDispatcher(repo, nil, nil, nil, nil))

		past := time.Now().Add(-time.Hour)
		notif := &domain.Notification{
			ID:          uuid.New(),
			RecipientID: uuid.New(),
			ExpiresAt:   &past,
			Channels:    domain.Channels{InApp: true},
		}
		repo.On("GetByID", mock.Anything, notif.ID).Return(notif, nil).Once()

		assert.NoError(t, w.HandleDeliver(ctx, deliverTask(t, notif.ID)))
		dir.AssertNotCalled(t, "GetContactInfo", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "SetChannelDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RecipientMissingSkipped", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		w := newTestWorker(repo, dir, delivery.NewDispatcher(repo, nil, nil, nil, nil))

		notif := &domain.Notification{
			ID:          uuid.New(),
			RecipientID: uuid.New(),
			Channels:    domain.Channels{InApp: true},
		}
		repo.On("GetByID", mock.Anything, notif.ID).Return(notif, nil).Once()
		dir.On("GetContactInfo", mock.Anything, notif.RecipientID).Return(nil, domain.ErrNotFound).Once()

		assert.NoError(t, w.HandleDeliver(ctx, deliverTask(t, notif.ID)))
		repo.AssertNotCalled(t, "SetChannelDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWorker_HandleReap(t *testing.T) {
	ctx := context.Background()

	t.Run("BothTriggersRun", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		w := newTestWorker(repo, dir, delivery.NewDispatcher(repo, nil, nil, nil, nil))

		repo.On("DeleteExpired", mock.Anything).Return(int64(3), nil).Once()
		repo.On("DeleteStale", mock.Anything, 30*24*time.Hour).Return(int64(12), nil).Once()

		err := w.HandleReap(ctx, asynq.NewTask(queue.TaskReapNotifications, nil))

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("ExpiredFailureStopsRun", func(t *testing.T) {
		repo := new(mocks.NotificationRepository)
		dir := new(mocks.DirectoryService)
		w := newTestWorker(repo, dir, delivery.NewDispatcher(repo, nil, nil, nil, nil))

		repo.On("DeleteExpired", mock.Anything).Return(int64(0), assert.AnError).Once()

		err := w.HandleReap(ctx, asynq.NewTask(queue.TaskReapNotifications, nil))

		assert.Error(t, err)
		repo.AssertNotCalled(t, "DeleteStale", mock.Anything, mock.Anything)
	})
}
