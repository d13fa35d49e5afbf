package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

type ChannelAdapter struct {
	mock.Mock
}

func (m *ChannelAdapter) Send(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo) error {
	args := m.Called(ctx, notif, contact)
	return args.Error(0)
}
