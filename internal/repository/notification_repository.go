package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

// notificationColumns is the select list shared by every read query.
const notificationColumns = `id, recipient_id, sender_id, type, title, message, data, status, priority,
	channels, delivery, scheduled_for, expires_at, group_key, is_grouped, group_count,
	created_at, updated_at`

// visibleClause hides expired rows and rows scheduled for the future from
// every listing, count and lifecycle query, even before the reaper runs.
const visibleClause = `(expires_at IS NULL OR expires_at > now())
	AND (scheduled_for IS NULL OR scheduled_for <= now())`

type NotificationRepository interface {
	Insert(ctx context.Context, notif *domain.Notification) error
	UpsertGrouped(ctx context.Context, notif *domain.Notification, groupTemplate string, window time.Duration) (*domain.Notification, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	List(ctx context.Context, recipientID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Archive(ctx context.Context, recipientID, id uuid.UUID) error
	Delete(ctx context.Context, recipientID, id uuid.UUID) error
	SetChannelDelivery(ctx context.Context, id uuid.UUID, channel domain.Channel, delivery domain.ChannelDelivery) error
	MarkChannelDelivered(ctx context.Context, id uuid.UUID, channel domain.Channel) error
	Stats(ctx context.Context, recipientID uuid.UUID) (*domain.NotificationStats, error)
	DeleteExpired(ctx context.Context) (int64, error)
	DeleteStale(ctx context.Context, retention time.Duration) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Insert(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_id, sender_id, type, title, message, data,
			status, priority, channels, delivery,
			scheduled_for, expires_at, group_key, is_grouped, group_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'unread', $8, $9, $10, $11, $12, $13, false, 1)
		RETURNING status, is_grouped, group_count, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.RecipientID, notif.SenderID, notif.Type, notif.Title, notif.Message, notif.Data,
		notif.Priority, notif.Channels, notif.Delivery,
		notif.ScheduledFor, notif.ExpiresAt, notif.GroupKey,
	).Scan(&notif.Status, &notif.IsGrouped, &notif.GroupCount, &notif.CreatedAt, &notif.UpdatedAt)
}

type upsertRow struct {
	domain.Notification
	Inserted bool `db:"inserted"`
}

// UpsertGrouped is the engine's one atomicity-critical write: a single
// conditional insert keyed on the partial unique index over
// (recipient_id, group_key) WHERE status = 'unread'. When the conflict row
// was created inside the grouping window the event merges into it — count
// incremented and the message re-rendered from the per-type template, all
// inside the same statement. When the conflict row is older than the window
// it is reset in place to carry the new event, which keeps the
// at-most-one-unread-per-group invariant without a second row.
// The second return value reports merge (true) versus insert/reset (false).
func (r *notificationRepository) UpsertGrouped(ctx context.Context, notif *domain.Notification, groupTemplate string, window time.Duration) (*domain.Notification, bool, error) {
	query := `
		INSERT INTO notifications (
			id, recipient_id, sender_id, type, title, message, data,
			status, priority, channels, delivery,
			scheduled_for, expires_at, group_key, is_grouped, group_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'unread', $8, $9, $10, $11, $12, $13, false, 1)
		ON CONFLICT (recipient_id, group_key) WHERE status = 'unread' AND group_key IS NOT NULL
		DO UPDATE SET
			group_count = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.group_count + 1 ELSE 1 END,
			is_grouped = notifications.created_at >= now() - make_interval(secs => $15),
			message = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN replace($14, '{count}', (notifications.group_count + 1)::text)
				ELSE EXCLUDED.message END,
			title = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.title ELSE EXCLUDED.title END,
			sender_id = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.sender_id ELSE EXCLUDED.sender_id END,
			data = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.data ELSE EXCLUDED.data END,
			priority = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.priority ELSE EXCLUDED.priority END,
			channels = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.channels ELSE EXCLUDED.channels END,
			delivery = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.delivery ELSE EXCLUDED.delivery END,
			scheduled_for = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.scheduled_for ELSE EXCLUDED.scheduled_for END,
			expires_at = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.expires_at ELSE EXCLUDED.expires_at END,
			created_at = CASE WHEN notifications.created_at >= now() - make_interval(secs => $15)
				THEN notifications.created_at ELSE now() END,
			updated_at = now()
		RETURNING ` + notificationColumns + `, (xmax = 0) AS inserted`

	var row upsertRow
	err := r.db.GetContext(ctx, &row, query,
		notif.ID, notif.RecipientID, notif.SenderID, notif.Type, notif.Title, notif.Message, notif.Data,
		notif.Priority, notif.Channels, notif.Delivery,
		notif.ScheduledFor, notif.ExpiresAt, notif.GroupKey,
		groupTemplate, window.Seconds(),
	)
	if err != nil {
		return nil, false, err
	}

	merged := !row.Inserted && row.GroupCount > 1
	return &row.Notification, merged, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	err := r.db.GetContext(ctx, &notif, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) List(ctx context.Context, recipientID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	where := []string{"recipient_id = $1", visibleClause}
	args := []any{recipientID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + cond
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE `+cond+`
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	notifications := []domain.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, args...)
	return notifications, total, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET status = 'read',
			delivery = jsonb_set(delivery, '{inApp,readAt}', to_jsonb(now()), true),
			updated_at = now()
		WHERE id = $1 AND recipient_id = $2 AND status = 'unread' AND ` + visibleClause

	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Already read or archived is a no-op; missing, non-owned or expired is
	// NotFound.
	return r.ensureVisible(ctx, recipientID, id)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'read',
			delivery = jsonb_set(delivery, '{inApp,readAt}', to_jsonb(now()), true),
			updated_at = now()
		WHERE recipient_id = $1 AND status = 'unread' AND ` + visibleClause

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Archive(ctx context.Context, recipientID, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET status = 'archived', updated_at = now()
		WHERE id = $1 AND recipient_id = $2 AND status IN ('unread', 'read') AND ` + visibleClause

	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.ensureVisible(ctx, recipientID, id)
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2 AND ` + visibleClause

	res, err := r.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) SetChannelDelivery(ctx context.Context, id uuid.UUID, channel domain.Channel, delivery domain.ChannelDelivery) error {
	payload, err := json.Marshal(delivery)
	if err != nil {
		return err
	}

	query := `
		UPDATE notifications
		SET delivery = jsonb_set(delivery, ARRAY[$2::text], $3::jsonb, true),
			updated_at = now()
		WHERE id = $1`

	_, err = r.db.ExecContext(ctx, query, id, string(channel), payload)
	return err
}

// MarkChannelDelivered flips only the delivered/deliveredAt paths of one
// channel's delivery record. Used for channels whose record carries state
// written by other operations (the in-app readAt set by MarkRead), which a
// whole-object SetChannelDelivery would clobber.
func (r *notificationRepository) MarkChannelDelivered(ctx context.Context, id uuid.UUID, channel domain.Channel) error {
	query := `
		UPDATE notifications
		SET delivery = jsonb_set(
				jsonb_set(delivery, ARRAY[$2::text, 'delivered'], 'true'::jsonb, true),
				ARRAY[$2::text, 'deliveredAt'], to_jsonb(now()), true),
			updated_at = now()
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, string(channel))
	return err
}

func (r *notificationRepository) Stats(ctx context.Context, recipientID uuid.UUID) (*domain.NotificationStats, error) {
	stats := &domain.NotificationStats{
		ByType: map[domain.NotificationType]int64{},
	}

	statusRows := []struct {
		Status domain.NotificationStatus `db:"status"`
		Count  int64                     `db:"count"`
	}{}
	statusQuery := `
		SELECT status, COUNT(*) AS count FROM notifications
		WHERE recipient_id = $1 AND ` + visibleClause + `
		GROUP BY status`
	if err := r.db.SelectContext(ctx, &statusRows, statusQuery, recipientID); err != nil {
		return nil, err
	}

	for _, row := range statusRows {
		switch row.Status {
		case domain.StatusUnread:
			stats.ByStatus.Unread = row.Count
		case domain.StatusRead:
			stats.ByStatus.Read = row.Count
		case domain.StatusArchived:
			stats.ByStatus.Archived = row.Count
		}
		stats.ByStatus.Total += row.Count
	}
	stats.HasUnread = stats.ByStatus.Unread > 0

	typeRows := []struct {
		Type  domain.NotificationType `db:"type"`
		Count int64                   `db:"count"`
	}{}
	typeQuery := `
		SELECT type, COUNT(*) AS count FROM notifications
		WHERE recipient_id = $1 AND status = 'unread' AND ` + visibleClause + `
		GROUP BY type`
	if err := r.db.SelectContext(ctx, &typeRows, typeQuery, recipientID); err != nil {
		return nil, err
	}

	for _, row := range typeRows {
		stats.ByType[row.Type] = row.Count
	}

	return stats, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE status IN ('read', 'archived')
		AND created_at < now() - make_interval(secs => $1)`

	res, err := r.db.ExecContext(ctx, query, retention.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) ensureVisible(ctx context.Context, recipientID, id uuid.UUID) error {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM notifications WHERE id = $1 AND recipient_id = $2 AND ` + visibleClause + `
	)`
	if err := r.db.GetContext(ctx, &exists, query, id, recipientID); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// IsConflict reports whether err is a serialization failure, deadlock or
// unique violation, the error classes the grouping write retries once.
func IsConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}
