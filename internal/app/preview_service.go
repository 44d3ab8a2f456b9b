package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/user"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var ErrInvalidPreviewRequest = fmt.Errorf("invalid preview request")

type previewRequest struct {
	UserID string `validate:"required,uuid"`
	Time   string `validate:"required,len=5,datetime=15:04"`
}

// Preview is what one user would receive at Time today. Nothing is sent or recorded.
type Preview struct {
	User      *user.User
	Date      string
	Time      string
	Reminders []DueReminder
	Captions  []string
	Warnings  []error
}

// PreviewService renders upcoming reminders with the same assembler the tick uses.
type PreviewService struct {
	reminders *ReminderService
	medRepo   medication.Repository
	userRepo  user.Repository
	validate  *validator.Validate
}

func NewPreviewService(rs *ReminderService, mr medication.Repository, ur user.Repository) *PreviewService {
	return &PreviewService{
		reminders: rs,
		medRepo:   mr,
		userRepo:  ur,
		validate:  validator.New(),
	}
}

// Preview assembles userID's reminders for timeOfDay on today's date in the engine time zone.
// timeOfDay is a zero-padded 24h "HH:MM".
func (s *PreviewService) Preview(ctx context.Context, userID, timeOfDay string) (*Preview, error) {
	req := previewRequest{UserID: userID, Time: timeOfDay}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreviewRequest, err)
	}
	at, err := time.Parse(TimeOfDayLayout, req.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreviewRequest, err)
	}
	id := uuid.MustParse(req.UserID)

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user %s for preview: %w", id, err)
	}

	loc := s.reminders.Location()
	today := s.reminders.clock().In(loc)
	now := time.Date(today.Year(), today.Month(), today.Day(), at.Hour(), at.Minute(), 0, 0, loc)

	preview := &Preview{
		User:      u,
		Date:      now.Format(time.DateOnly),
		Time:      now.Format(TimeOfDayLayout),
		Reminders: make([]DueReminder, 0),
		Captions:  make([]string, 0),
	}

	matches, err := s.medRepo.ListDueSchedulesForUser(ctx, id, preview.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules for preview: %w", err)
	}
	if len(matches) == 0 {
		return preview, nil
	}

	assembly := s.reminders.Assemble(ctx, matches, now)
	preview.Warnings = assembly.Warnings
	for _, g := range assembly.Groups {
		for _, r := range g.Reminders {
			preview.Reminders = append(preview.Reminders, r)
			preview.Captions = append(preview.Captions, s.reminders.Caption(r))
		}
	}
	return preview, nil
}
