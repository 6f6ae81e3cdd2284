package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"engrave-queue/internal/domain"
)

type NotificationRepositoryInterface interface {
	EnsureSchema(ctx context.Context) error
	// Insert reports false when the order already has a notification of that type.
	Insert(ctx context.Context, n domain.Notification) (bool, error)
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepositoryInterface {
	return &NotificationRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    order_id   TEXT NOT NULL,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    read       BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_id, type)
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS user_tokens (
    user_id    TEXT NOT NULL,
    token      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_used  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, token)
);`

func (nr *NotificationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := nr.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure notifications schema: %w", err)
	}
	return nil
}

func (nr *NotificationRepository) Insert(ctx context.Context, n domain.Notification) (bool, error) {
	tag, err := nr.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, order_id, type, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, type) DO NOTHING`,
		n.ID, n.UserID, n.OrderID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (nr *NotificationRepository) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := nr.db.Query(ctx, `
		SELECT id, user_id, order_id, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (nr *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := nr.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (nr *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := nr.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	return nil
}

func (nr *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := nr.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (nr *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := nr.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	return nil
}
