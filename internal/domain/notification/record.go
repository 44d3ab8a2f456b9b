// internal/domain/notification/record.go
package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Record is one dispatch attempt. Records are append-only.
// Corresponds to the 'notifications_log' table.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Channel   string // Gateway name, e.g. "whatsapp"
	Kind      Kind
	Recipient string
	Message   string
	Status    Status
	Error     sql.NullString
	MessageID sql.NullString
	Metadata  Metadata
	SentAt    time.Time
}

// Metadata is free-form context stored alongside a record as JSON.
type Metadata map[string]any

// StatusCount is one bucket of the per-user statistics query.
type StatusCount struct {
	Status  Status
	Channel string
	Count   int
}
