package push

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/messaging"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

// Service delivers push notifications through Firebase Cloud Messaging.
type Service struct {
	client *messaging.Client
}

func NewService(client *messaging.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Send(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo) error {
	if s.client == nil {
		return errors.New("push messaging not configured")
	}
	if contact == nil || contact.PushToken == "" {
		return errors.New("recipient has no push token")
	}

	data := map[string]string{
		"notification_id": notif.ID.String(),
		"type":            string(notif.Type),
		"priority":        string(notif.Priority),
	}
	if notif.Data.ActionURL != "" {
		data["action_url"] = notif.Data.ActionURL
	}
	if notif.Data.EntityID != nil {
		data["entity_type"] = string(notif.Data.EntityType)
		data["entity_id"] = notif.Data.EntityID.String()
	}

	msg := &messaging.Message{
		Token: contact.PushToken,
		Notification: &messaging.Notification{
			Title: notif.Title,
			Body:  notif.Message,
		},
		Data: data,
	}

	_, err := s.client.Send(ctx, msg)
	return err
}
