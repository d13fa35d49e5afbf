package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreateNotificationInput is what feature modules hand to the engine.
// Validation tags enforce the closed enumerations and display-text bounds.
type CreateNotificationInput struct {
	RecipientID  uuid.UUID            `json:"recipient_id" validate:"required"`
	SenderID     *uuid.UUID           `json:"sender_id,omitempty"`
	Type         NotificationType     `json:"type" validate:"required,oneof=follow unfollow like comment review itinerary_shared destination_recommendation friend_activity system_update welcome achievement reminder booking_confirmation travel_alert"`
	Title        string               `json:"title" validate:"required,max=100"`
	Message      string               `json:"message" validate:"required,max=500"`
	Data         NotificationData     `json:"data"`
	Priority     NotificationPriority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Channels     *Channels            `json:"channels,omitempty"`
	ScheduledFor *time.Time           `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	GroupKey     string               `json:"group_key,omitempty"`
}
