package smsadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/pkg/sms"
)

// Service adapts the SMS gateway client to the dispatcher's Adapter contract.
type Service struct {
	client *sms.Client
}

func NewService(client *sms.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Send(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo) error {
	if s.client == nil {
		return errors.New("sms gateway not configured")
	}
	if contact == nil || contact.PhoneNumber == "" {
		return errors.New("recipient has no phone number")
	}

	text := fmt.Sprintf("%s: %s", notif.Title, notif.Message)
	return s.client.Send(ctx, contact.PhoneNumber, text)
}
