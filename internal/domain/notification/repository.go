// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines operations on the notification history.
type Repository interface {
	// Append stores one record and fills in its ID.
	Append(ctx context.Context, rec *Record) error
	// ListByUser returns a user's records newest first. An empty status means any status.
	ListByUser(ctx context.Context, userID uuid.UUID, status Status, limit int) ([]*Record, error)
	// CountByUserSince groups a user's records sent at or after since by status and channel.
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]StatusCount, error)
	// ListRecent returns records of all users newest first. Empty status or channel match anything.
	ListRecent(ctx context.Context, status Status, channel string, limit int) ([]*Record, error)
}
