package app

import (
	"context"
	"time"
)

// Pacer is waited on between two consecutive sends to the same recipient.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay pauses for a constant duration.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay never waits. Useful in tests and for single-message gateways.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
