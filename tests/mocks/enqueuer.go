package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type Enqueuer struct {
	mock.Mock
}

func (m *Enqueuer) EnqueueDeliver(ctx context.Context, notificationID uuid.UUID, processAt *time.Time) error {
	args := m.Called(ctx, notificationID, processAt)
	return args.Error(0)
}

func (m *Enqueuer) Close() error {
	args := m.Called()
	return args.Error(0)
}
