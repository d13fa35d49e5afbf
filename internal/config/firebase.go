package config

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// NewFirebaseMessaging builds the FCM client used by the push adapter.
// Returns an error when no credentials are configured; push delivery is
// optional and the caller decides whether that is fatal.
func NewFirebaseMessaging(cfg *Config) (*messaging.Client, error) {
	if cfg.FirebaseCredentialsFile == "" {
		return nil, errors.New("FIREBASE_CREDENTIALS_FILE not set")
	}

	ctx := context.Background()
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, err
	}

	return app.Messaging(ctx)
}
