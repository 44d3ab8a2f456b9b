// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/notification"

	"github.com/google/uuid"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Append(ctx context.Context, rec *notification.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("error encoding notification metadata: %w", err)
	}
	if rec.Metadata == nil {
		metadata = []byte("{}")
	}
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	query := `INSERT INTO notifications_log (user_id, channel, kind, recipient, message, status, error, message_id, metadata, sent_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              RETURNING id, sent_at`
	err = r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.Channel, rec.Kind, rec.Recipient, rec.Message, rec.Status, rec.Error, rec.MessageID, string(metadata), sentAt,
	).Scan(&rec.ID, &rec.SentAt)
	if err != nil {
		return fmt.Errorf("error appending notification record: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, status notification.Status, limit int) ([]*notification.Record, error) {
	query := `SELECT id, user_id, channel, kind, recipient, message, status, error, message_id, metadata, sent_at
              FROM notifications_log
              WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
              ORDER BY sent_at DESC, id
              LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications for user %s: %w", userID, err)
	}
	return scanRecords(rows)
}

func (r *PostgresNotificationRepository) ListRecent(ctx context.Context, status notification.Status, channel string, limit int) ([]*notification.Record, error) {
	query := `SELECT id, user_id, channel, kind, recipient, message, status, error, message_id, metadata, sent_at
              FROM notifications_log
              WHERE ($1::text = '' OR status = $1::text) AND ($2::text = '' OR channel = $2::text)
              ORDER BY sent_at DESC, id
              LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, string(status), channel, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent notifications: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*notification.Record, error) {
	defer rows.Close()

	var records []*notification.Record
	for rows.Next() {
		rec := &notification.Record{}
		var metadata []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Channel, &rec.Kind, &rec.Recipient, &rec.Message,
			&rec.Status, &rec.Error, &rec.MessageID, &metadata, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("error decoding metadata of notification %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return records, nil
}

func (r *PostgresNotificationRepository) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]notification.StatusCount, error) {
	query := `SELECT status, channel, COUNT(*)
              FROM notifications_log
              WHERE user_id = $1 AND sent_at >= $2
              GROUP BY status, channel
              ORDER BY status, channel`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error counting notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	var counts []notification.StatusCount
	for rows.Next() {
		var c notification.StatusCount
		if err := rows.Scan(&c.Status, &c.Channel, &c.Count); err != nil {
			return nil, fmt.Errorf("error scanning notification count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification counts: %w", err)
	}
	return counts, nil
}
