package messaging

import (
	"context"
	"fmt"
)

// ErrNotConfigured is returned by a Gateway that has no credentials.
// Sends failing with it are recorded as pending, not failed.
var ErrNotConfigured = fmt.Errorf("messaging gateway not configured")

// SendResult carries the provider's opaque message identifier, if any.
type SendResult struct {
	MessageID string
}

// Gateway defines an interface for delivering reminders to a messaging address.
type Gateway interface {
	Name() string
	SendText(ctx context.Context, address, text string) (SendResult, error)
	SendImage(ctx context.Context, address, imageURL, caption string) (SendResult, error)
}
