// internal/domain/notification/shared_types.go
package notification

// Status is the terminal outcome of one dispatch attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending" // Gateway not configured; nothing left the process
)

// Kind is the gateway operation used for an attempt.
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)
