package app

import (
	"context"
	"fmt"

	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrAdminDisabled = fmt.Errorf("admin commands are disabled")

// AdminService backs the operator commands. Every call is checked against the configured admin.
type AdminService struct {
	userRepo        user.Repository
	reminders       *ReminderService
	previews        *PreviewService
	instructions    *InstructionsService
	history         *HistoryService
	adminTelegramID int64
}

func NewAdminService(ur user.Repository, rs *ReminderService, ps *PreviewService, is *InstructionsService, hs *HistoryService, adminID int64) *AdminService {
	return &AdminService{
		userRepo:        ur,
		reminders:       rs,
		previews:        ps,
		instructions:    is,
		history:         hs,
		adminTelegramID: adminID,
	}
}

func (s *AdminService) authorize(performingAdminID int64) error {
	if s.adminTelegramID == 0 {
		return ErrAdminDisabled
	}
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// IsAdmin reports whether telegramID may run operator commands.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.authorize(telegramID) == nil
}

func (s *AdminService) ListUsers(ctx context.Context, performingAdminID int64) ([]*user.User, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) Preview(ctx context.Context, performingAdminID int64, userID, timeOfDay string) (*Preview, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.previews.Preview(ctx, userID, timeOfDay)
}

func (s *AdminService) Instructions(ctx context.Context, performingAdminID int64, userID uuid.UUID) (*Instructions, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.instructions.Instructions(ctx, userID)
}

func (s *AdminService) History(ctx context.Context, performingAdminID int64, userID uuid.UUID, status notification.Status, limit int) ([]*notification.Record, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.history.History(ctx, userID, status, limit)
}

func (s *AdminService) Recent(ctx context.Context, performingAdminID int64, status notification.Status, channel string, limit int) ([]*notification.Record, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.history.Recent(ctx, status, channel, limit)
}

func (s *AdminService) Stats(ctx context.Context, performingAdminID int64, userID uuid.UUID, days int) (*Stats, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.history.Stats(ctx, userID, days)
}

// RunTick triggers one guarded tick now. Overlap with a scheduled tick yields ErrTickInProgress.
func (s *AdminService) RunTick(ctx context.Context, performingAdminID int64) (*TickReport, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.reminders.RunTick(ctx)
}
