package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
)

const notificationColumns = `id, reference_id, title, message, scheduled_at, type, sent, sent_at, canceled`

// NotificationRepository persists scheduled reminders.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a NotificationRepository over db.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanNotification(s scanner) (domain.Notification, error) {
	var (
		n              domain.Notification
		scheduledAt    string
		sentAt         sql.NullString
		sent, canceled int
	)
	if err := s.Scan(&n.ID, &n.ReferenceID, &n.Title, &n.Message, &scheduledAt, &n.Type, &sent, &sentAt, &canceled); err != nil {
		return n, err
	}
	t, err := parseTimestamp(scheduledAt)
	if err != nil {
		return n, fmt.Errorf("scheduled_at: %w", err)
	}
	if n.SentAt, err = scanNullableTimestamp(sentAt); err != nil {
		return n, fmt.Errorf("sent_at: %w", err)
	}
	n.ScheduledAt = t
	n.Sent = sent != 0
	n.Canceled = canceled != 0
	return n, nil
}

// SaveNotification inserts n or replaces the row with the same ID.
func (r *NotificationRepository) SaveNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, reference_id, title, message, scheduled_at, type, sent, sent_at, canceled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   reference_id = excluded.reference_id,
		   title = excluded.title,
		   message = excluded.message,
		   scheduled_at = excluded.scheduled_at,
		   type = excluded.type,
		   sent = excluded.sent,
		   sent_at = excluded.sent_at,
		   canceled = excluded.canceled`,
		n.ID, n.ReferenceID, n.Title, n.Message, formatTimestamp(n.ScheduledAt), n.Type,
		boolToInt(n.Sent), nullableTimestamp(n.SentAt), boolToInt(n.Canceled))
	return mapError("SaveNotification", err)
}

// GetNotification returns the reminder with id.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return nil, mapError("GetNotification", err)
	}
	return &n, nil
}

// ListPendingNotifications returns unsent, uncanceled reminders, earliest
// first.
func (r *NotificationRepository) ListPendingNotifications(ctx context.Context) ([]domain.Notification, error) {
	return r.list(ctx, "ListPendingNotifications",
		`SELECT `+notificationColumns+` FROM notifications WHERE sent = 0 AND canceled = 0 ORDER BY scheduled_at, id`)
}

// ListDueNotifications returns pending reminders scheduled at or before now.
func (r *NotificationRepository) ListDueNotifications(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	return r.list(ctx, "ListDueNotifications",
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE sent = 0 AND canceled = 0 AND scheduled_at <= ? ORDER BY scheduled_at, id`,
		formatTimestamp(now))
}

// MarkNotificationSent flags the reminder as delivered at sentAt.
func (r *NotificationRepository) MarkNotificationSent(ctx context.Context, id string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET sent = 1, sent_at = ? WHERE id = ?`, formatTimestamp(sentAt), id)
	if err != nil {
		return mapError("MarkNotificationSent", err)
	}
	return checkAffected("MarkNotificationSent", res)
}

// CancelNotification flags the reminder as canceled.
func (r *NotificationRepository) CancelNotification(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET canceled = 1 WHERE id = ?`, id)
	if err != nil {
		return mapError("CancelNotification", err)
	}
	return checkAffected("CancelNotification", res)
}

// CancelNotificationsFor cancels every pending reminder of type typ about
// referenceID.
func (r *NotificationRepository) CancelNotificationsFor(ctx context.Context, typ domain.NotificationType, referenceID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET canceled = 1 WHERE type = ? AND reference_id = ? AND sent = 0`, typ, referenceID)
	return mapError("CancelNotificationsFor", err)
}

func (r *NotificationRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}
