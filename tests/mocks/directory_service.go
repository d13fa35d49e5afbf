package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

type DirectoryService struct {
	mock.Mock
}

func (m *DirectoryService) GetContactInfo(ctx context.Context, userID uuid.UUID) (*domain.ContactInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContactInfo), args.Error(1)
}
