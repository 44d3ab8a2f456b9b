package app

import (
	"context"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/notification"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	DefaultRecentLimit  = 100
	DefaultStatsDays    = 7
	MaxHistoryLimit     = 500
)

var ErrInvalidHistoryRequest = fmt.Errorf("invalid history request")

type historyRequest struct {
	Status notification.Status `validate:"omitempty,oneof=sent failed pending"`
	Limit  int                 `validate:"gte=0,lte=500"`
}

type recentRequest struct {
	Status  notification.Status `validate:"omitempty,oneof=sent failed pending"`
	Channel string              `validate:"omitempty,alphanum,max=32"`
	Limit   int                 `validate:"gte=0,lte=500"`
}

// Stats summarises a user's notification history over the last Days days.
type Stats struct {
	Days      int
	Since     time.Time
	Total     int
	Sent      int
	Failed    int
	Pending   int
	ByChannel map[string]int
}

// HistoryService reads the notification log.
type HistoryService struct {
	notifRepo notification.Repository
	clock     func() time.Time
	validate  *validator.Validate
}

func NewHistoryService(nr notification.Repository, clock func() time.Time) *HistoryService {
	if clock == nil {
		clock = time.Now
	}
	return &HistoryService{notifRepo: nr, clock: clock, validate: validator.New()}
}

// History returns userID's records newest first. An empty status means all statuses;
// a zero limit means DefaultHistoryLimit.
func (s *HistoryService) History(ctx context.Context, userID uuid.UUID, status notification.Status, limit int) ([]*notification.Record, error) {
	if err := s.validate.Struct(historyRequest{Status: status, Limit: limit}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistoryRequest, err)
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	records, err := s.notifRepo.ListByUser(ctx, userID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %s: %w", userID, err)
	}
	return records, nil
}

// Recent returns records of all users newest first, optionally filtered by status and channel.
// A zero limit means DefaultRecentLimit.
func (s *HistoryService) Recent(ctx context.Context, status notification.Status, channel string, limit int) ([]*notification.Record, error) {
	if err := s.validate.Struct(recentRequest{Status: status, Channel: channel, Limit: limit}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistoryRequest, err)
	}
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	records, err := s.notifRepo.ListRecent(ctx, status, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent notifications: %w", err)
	}
	return records, nil
}

// Stats counts userID's records of the last days days (DefaultStatsDays when days <= 0).
func (s *HistoryService) Stats(ctx context.Context, userID uuid.UUID, days int) (*Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	stats := &Stats{
		Days:      days,
		Since:     s.clock().AddDate(0, 0, -days),
		ByChannel: make(map[string]int),
	}

	counts, err := s.notifRepo.CountByUserSince(ctx, userID, stats.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications for user %s: %w", userID, err)
	}
	for _, c := range counts {
		stats.Total += c.Count
		stats.ByChannel[c.Channel] += c.Count
		switch c.Status {
		case notification.StatusSent:
			stats.Sent += c.Count
		case notification.StatusFailed:
			stats.Failed += c.Count
		case notification.StatusPending:
			stats.Pending += c.Count
		}
	}
	return stats, nil
}
