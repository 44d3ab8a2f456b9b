package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var ErrUserNotFound = fmt.Errorf("user not found")

// Repository defines the read operations the reminder engine needs on users.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListAll(ctx context.Context) ([]*User, error) // For operator commands
}
