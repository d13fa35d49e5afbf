package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Insert(ctx context.Context, notif *domain.Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

func (m *NotificationRepository) UpsertGrouped(ctx context.Context, notif *domain.Notification, groupTemplate string, window time.Duration) (*domain.Notification, bool, error) {
	args := m.Called(ctx, notif, groupTemplate, window)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Notification), args.Bool(1), args.Error(2)
}

func (m *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *NotificationRepository) List(ctx context.Context, recipientID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, recipientID, filter, params)
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *NotificationRepository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	args := m.Called(ctx, recipientID, id)
	return args.Error(0)
}

func (m *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) Archive(ctx context.Context, recipientID, id uuid.UUID) error {
	args := m.Called(ctx, recipientID, id)
	return args.Error(0)
}

func (m *NotificationRepository) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	args := m.Called(ctx, recipientID, id)
	return args.Error(0)
}

func (m *NotificationRepository) SetChannelDelivery(ctx context.Context, id uuid.UUID, channel domain.Channel, delivery domain.ChannelDelivery) error {
	args := m.Called(ctx, id, channel, delivery)
	return args.Error(0)
}

func (m *NotificationRepository) MarkChannelDelivered(ctx context.Context, id uuid.UUID, channel domain.Channel) error {
	args := m.Called(ctx, id, channel)
	return args.Error(0)
}

func (m *NotificationRepository) Stats(ctx context.Context, recipientID uuid.UUID) (*domain.NotificationStats, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationStats), args.Error(1)
}

func (m *NotificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepository) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}
