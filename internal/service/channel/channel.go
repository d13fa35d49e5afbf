// Package channel computes which delivery channels apply to a notification.
package channel

import (
	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

// Resolve intersects the channels a caller requested with the recipient's
// global preferences. In-app is always on: it is the minimal notification
// surface and carries no external dependency. Pure function, never fails.
func Resolve(requested domain.Channels, prefs domain.NotificationPreferences) domain.Channels {
	return domain.Channels{
		InApp: true,
		Email: requested.Email && prefs.EmailNotifications,
		Push:  requested.Push && prefs.PushNotifications,
		Sms:   requested.Sms && prefs.SmsNotifications,
	}
}
