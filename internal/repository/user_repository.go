package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

// UserRepository is the engine's read-only window into the user directory.
type UserRepository interface {
	GetContactInfo(ctx context.Context, userID uuid.UUID) (*domain.ContactInfo, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

type contactRow struct {
	ID                 uuid.UUID `db:"id"`
	FullName           string    `db:"full_name"`
	Email              string    `db:"email"`
	PhoneNumber        string    `db:"phone_number"`
	PushToken          string    `db:"push_token"`
	EmailNotifications bool      `db:"email_notifications"`
	PushNotifications  bool      `db:"push_notifications"`
	SmsNotifications   bool      `db:"sms_notifications"`
}

func (r *userRepository) GetContactInfo(ctx context.Context, userID uuid.UUID) (*domain.ContactInfo, error) {
	var row contactRow
	query := `
		SELECT id, full_name, email, phone_number, push_token,
			email_notifications, push_notifications, sms_notifications
		FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &domain.ContactInfo{
		UserID:      row.ID,
		FullName:    row.FullName,
		Email:       row.Email,
		PhoneNumber: row.PhoneNumber,
		PushToken:   row.PushToken,
		Preferences: domain.NotificationPreferences{
			EmailNotifications: row.EmailNotifications,
			PushNotifications:  row.PushNotifications,
			SmsNotifications:   row.SmsNotifications,
		},
	}, nil
}
