package app

import (
	"context"

	"medication_reminder_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// OutcomePublisher receives every recorded attempt after it has been stored.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, rec *notification.Record) error
}

// OutcomeLogger appends dispatch attempts to the notification history.
// It is best-effort: failures are logged and never returned to the dispatch loop.
type OutcomeLogger struct {
	notifRepo  notification.Repository
	publishers []OutcomePublisher
	logger     *logrus.Entry
}

func NewOutcomeLogger(nr notification.Repository, logger *logrus.Entry, publishers ...OutcomePublisher) *OutcomeLogger {
	return &OutcomeLogger{
		notifRepo:  nr,
		publishers: publishers,
		logger:     logger,
	}
}

// Record stores rec. Publishers are notified even when the store write fails,
// so operators still see the attempt somewhere.
func (l *OutcomeLogger) Record(ctx context.Context, rec *notification.Record) {
	logCtx := l.logger.WithFields(logrus.Fields{
		"user_id": rec.UserID,
		"status":  rec.Status,
		"kind":    rec.Kind,
	})

	if err := l.notifRepo.Append(ctx, rec); err != nil {
		logCtx.WithError(err).Error("Failed to append notification record")
	}

	for _, p := range l.publishers {
		if err := p.PublishOutcome(ctx, rec); err != nil {
			logCtx.WithError(err).Warn("Failed to publish notification outcome")
		}
	}
}
