package domain

import "github.com/google/uuid"

// NotificationPreferences are the recipient's global per-channel opt-ins.
type NotificationPreferences struct {
	EmailNotifications bool `json:"email_notifications" db:"email_notifications"`
	PushNotifications  bool `json:"push_notifications" db:"push_notifications"`
	SmsNotifications   bool `json:"sms_notifications" db:"sms_notifications"`
}

// ContactInfo is the read-only user directory record the engine needs to
// deliver outside the app: addresses, tokens and channel preferences.
type ContactInfo struct {
	UserID      uuid.UUID               `json:"user_id" db:"id"`
	FullName    string                  `json:"full_name" db:"full_name"`
	Email       string                  `json:"email" db:"email"`
	PhoneNumber string                  `json:"phone_number" db:"phone_number"`
	PushToken   string                  `json:"push_token" db:"push_token"`
	Preferences NotificationPreferences `json:"preferences" db:"-"`
}
