package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/invigilo/proctor-api/internal/models"
)

// NotificationRepository persists deficiency notifications raised by assignment runs.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch writes the notifications of one run inside the caller's transaction.
func (r *NotificationRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, notifications []models.Notification) error {
	const query = `INSERT INTO notifications (id, date, session, room_id, deficiency, resolved, created_at)
		VALUES (:id, :date, :session, :room_id, :deficiency, :resolved, :created_at)`
	now := time.Now().UTC()
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, notifications[i]); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

// ListByDateSession returns the notifications of one distribution.
func (r *NotificationRepository) ListByDateSession(ctx context.Context, date time.Time, session models.Session) ([]models.Notification, error) {
	const query = `SELECT id, date, session, room_id, deficiency, resolved, created_at
FROM notifications
WHERE date = $1 AND session = $2
ORDER BY room_id ASC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, date, session); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// DeleteByDateSession removes the notifications of one distribution as part of the
// purge transaction.
func (r *NotificationRepository) DeleteByDateSession(ctx context.Context, exec sqlx.ExtContext, date time.Time, session models.Session) error {
	const query = `DELETE FROM notifications WHERE date = $1 AND session = $2`
	if _, err := exec.ExecContext(ctx, query, date, session); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}
