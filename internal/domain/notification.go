package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifFollow              NotificationType = "follow"
	NotifUnfollow            NotificationType = "unfollow"
	NotifLike                NotificationType = "like"
	NotifComment             NotificationType = "comment"
	NotifReview              NotificationType = "review"
	NotifItineraryShared     NotificationType = "itinerary_shared"
	NotifDestinationRecommendation NotificationType = "destination_recommendation"
	NotifFriendActivity      NotificationType = "friend_activity"
	NotifSystemUpdate        NotificationType = "system_update"
	NotifWelcome             NotificationType = "welcome"
	NotifAchievement         NotificationType = "achievement"
	NotifReminder            NotificationType = "reminder"
	NotifBookingConfirmation NotificationType = "booking_confirmation"
	NotifTravelAlert         NotificationType = "travel_alert"
)

type EntityType string

const (
	EntityUser        EntityType = "user"
	EntityDestination EntityType = "destination"
	EntityItinerary   EntityType = "itinerary"
	EntityReview      EntityType = "review"
	EntityComment     EntityType = "comment"
	EntitySystem      EntityType = "system"
)

type NotificationStatus string

const (
	StatusUnread   NotificationStatus = "unread"
	StatusRead     NotificationStatus = "read"
	StatusArchived NotificationStatus = "archived"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Channel names double as JSONB keys inside the delivery column.
type Channel string

const (
	ChannelInApp Channel = "inApp"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSms   Channel = "sms"
)

type Notification struct {
	ID           uuid.UUID            `json:"id" db:"id"`
	RecipientID  uuid.UUID            `json:"recipient_id" db:"recipient_id"`
	SenderID     *uuid.UUID           `json:"sender_id,omitempty" db:"sender_id"`
	Type         NotificationType     `json:"type" db:"type"`
	Title        string               `json:"title" db:"title"`
	Message      string               `json:"message" db:"message"`
	Data         NotificationData     `json:"data" db:"data"`
	Status       NotificationStatus   `json:"status" db:"status"`
	Priority     NotificationPriority `json:"priority" db:"priority"`
	Channels     Channels             `json:"channels" db:"channels"`
	Delivery     DeliveryState        `json:"delivery" db:"delivery"`
	ScheduledFor *time.Time           `json:"scheduled_for,omitempty" db:"scheduled_for"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty" db:"expires_at"`
	GroupKey     *string              `json:"group_key,omitempty" db:"group_key"`
	IsGrouped    bool                 `json:"is_grouped" db:"is_grouped"`
	GroupCount   int                  `json:"group_count" db:"group_count"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" db:"updated_at"`
}

func (n *Notification) IsExpired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}

type NotificationData struct {
	EntityType EntityType     `json:"entityType,omitempty" validate:"omitempty,oneof=user destination itinerary review comment system"`
	EntityID   *uuid.UUID     `json:"entityId,omitempty"`
	ActionURL  string         `json:"actionUrl,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (d NotificationData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *NotificationData) Scan(src any) error {
	return scanJSON(src, d)
}

type Channels struct {
	InApp bool `json:"inApp"`
	Email bool `json:"email"`
	Push  bool `json:"push"`
	Sms   bool `json:"sms"`
}

func (c Channels) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Channels) Scan(src any) error {
	return scanJSON(src, c)
}

// Enabled reports whether the given channel is requested.
func (c Channels) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return c.InApp
	case ChannelEmail:
		return c.Email
	case ChannelPush:
		return c.Push
	case ChannelSms:
		return c.Sms
	}
	return false
}

type ChannelDelivery struct {
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	OpenedAt    *time.Time `json:"openedAt,omitempty"`
	ClickedAt   *time.Time `json:"clickedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type DeliveryState struct {
	InApp ChannelDelivery `json:"inApp"`
	Email ChannelDelivery `json:"email"`
	Push  ChannelDelivery `json:"push"`
	Sms   ChannelDelivery `json:"sms"`
}

func (d DeliveryState) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DeliveryState) Scan(src any) error {
	return scanJSON(src, d)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return fmt.Errorf("unsupported scan type %T", src)
}

type NotificationFilter struct {
	Status   NotificationStatus   `query:"status"`
	Type     NotificationType     `query:"type"`
	Priority NotificationPriority `query:"priority"`
}

type StatusCounts struct {
	Unread   int64 `json:"unread"`
	Read     int64 `json:"read"`
	Archived int64 `json:"archived"`
	Total    int64 `json:"total"`
}

type NotificationStats struct {
	ByStatus  StatusCounts               `json:"by_status"`
	ByType    map[NotificationType]int64 `json:"by_type"`
	HasUnread bool                       `json:"has_unread"`
}
