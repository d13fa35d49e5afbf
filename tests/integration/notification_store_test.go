//go:build integration
// +build integration

package integration_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
)

// These tests run against a real Postgres with migrations/001_init.sql
// applied. Set DATABASE_URL and run with -tags integration.

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO users (id, full_name, email) VALUES ($1, $2, $3)`,
		id, "Test Traveler", id.String()+"@example.com")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func followNotification(recipientID uuid.UUID, message string) *domain.Notification {
	key := "follow_" + recipientID.String()
	return &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        domain.NotifFollow,
		Title:       "New Follower",
		Message:     message,
		Status:      domain.StatusUnread,
		Priority:    domain.PriorityNormal,
		Channels:    domain.Channels{InApp: true},
		GroupKey:    &key,
		GroupCount:  1,
	}
}

func TestUpsertGrouped_MergesWithinWindow(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	recipientID := createUser(t, db)

	template := domain.GroupMessageTemplate(domain.NotifFollow)
	window := 24 * time.Hour

	first, merged, err := repo.UpsertGrouped(ctx, followNotification(recipientID, "Alice started following you"), template, window)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, 1, first.GroupCount)
	assert.False(t, first.IsGrouped)

	second, merged, err := repo.UpsertGrouped(ctx, followNotification(recipientID, "Bob started following you"), template, window)
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.GroupCount)
	assert.True(t, second.IsGrouped)
	assert.Equal(t, "2 people followed you", second.Message)

	third, merged, err := repo.UpsertGrouped(ctx, followNotification(recipientID, "Carol started following you"), template, window)
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, 3, third.GroupCount)
	assert.Equal(t, "3 people followed you", third.Message)

	var count int
	require.NoError(t, db.Get(&count,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND group_key = $2 AND status = 'unread'`,
		recipientID, "follow_"+recipientID.String()))
	assert.Equal(t, 1, count)
}

func TestUpsertGrouped_ResetsAfterWindow(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	recipientID := createUser(t, db)

	template := domain.GroupMessageTemplate(domain.NotifFollow)
	window := 24 * time.Hour

	first, _, err := repo.UpsertGrouped(ctx, followNotification(recipientID, "Alice started following you"), template, window)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE notifications SET created_at = now() - interval '48 hours' WHERE id = $1`, first.ID)
	require.NoError(t, err)

	// The unread row is kept unique per group key, so a lapsed-window event
	// resets it in place instead of inserting a sibling.
	reset, merged, err := repo.UpsertGrouped(ctx, followNotification(recipientID, "Bob started following you"), template, window)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, first.ID, reset.ID)
	assert.Equal(t, 1, reset.GroupCount)
	assert.False(t, reset.IsGrouped)
	assert.Equal(t, "Bob started following you", reset.Message)
	assert.WithinDuration(t, time.Now(), reset.CreatedAt, time.Minute)

	var count int
	require.NoError(t, db.Get(&count,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND group_key = $2`,
		recipientID, "follow_"+recipientID.String()))
	assert.Equal(t, 1, count)
}

func TestExpiredRowsInvisibleBeforeReap(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	recipientID := createUser(t, db)

	past := time.Now().Add(-time.Hour)
	expired := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        domain.NotifTravelAlert,
		Title:       "Travel Alert",
		Message:     "Storm warning for your saved route",
		Priority:    domain.PriorityUrgent,
		Channels:    domain.Channels{InApp: true},
		ExpiresAt:   &past,
	}
	require.NoError(t, repo.Insert(ctx, expired))

	rows, total, err := repo.List(ctx, recipientID, domain.NotificationFilter{}, domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)

	stats, err := repo.Stats(ctx, recipientID)
	require.NoError(t, err)
	assert.Zero(t, stats.ByStatus.Total)
	assert.False(t, stats.HasUnread)

	assert.ErrorIs(t, repo.MarkRead(ctx, recipientID, expired.ID), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, recipientID, expired.ID), domain.ErrNotFound)

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}

func TestMarkRead_IdempotentPreservesReadAt(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	recipientID := createUser(t, db)

	notif := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        domain.NotifWelcome,
		Title:       "Welcome to TravelMate!",
		Message:     "Start exploring amazing destinations",
		Priority:    domain.PriorityNormal,
		Channels:    domain.Channels{InApp: true},
	}
	require.NoError(t, repo.Insert(ctx, notif))

	require.NoError(t, repo.MarkRead(ctx, recipientID, notif.ID))

	read, err := repo.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, read.Status)
	require.NotNil(t, read.Delivery.InApp.ReadAt)
	firstReadAt := *read.Delivery.InApp.ReadAt

	// Second mark-read is a no-op success and must not move readAt.
	require.NoError(t, repo.MarkRead(ctx, recipientID, notif.ID))

	again, err := repo.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, again.Status)
	require.NotNil(t, again.Delivery.InApp.ReadAt)
	assert.True(t, firstReadAt.Equal(*again.Delivery.InApp.ReadAt))
}

func TestMarkChannelDelivered_KeepsReadAt(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()
	recipientID := createUser(t, db)

	notif := &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        domain.NotifWelcome,
		Title:       "Welcome to TravelMate!",
		Message:     "Start exploring amazing destinations",
		Priority:    domain.PriorityNormal,
		Channels:    domain.Channels{InApp: true},
	}
	require.NoError(t, repo.Insert(ctx, notif))

	// Mark-read lands before the background delivery write.
	require.NoError(t, repo.MarkRead(ctx, recipientID, notif.ID))
	require.NoError(t, repo.MarkChannelDelivered(ctx, notif.ID, domain.ChannelInApp))

	got, err := repo.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivery.InApp.Delivered)
	assert.NotNil(t, got.Delivery.InApp.DeliveredAt)
	assert.NotNil(t, got.Delivery.InApp.ReadAt)
}
