package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a reminder recipient.
type User struct {
	ID        uuid.UUID
	Name      string
	Address   string // Messaging address, e.g. an E.164 WhatsApp number or a Telegram chat id
	CreatedAt time.Time
	UpdatedAt time.Time
}
