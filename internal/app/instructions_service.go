package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
)

// Instructions is a user's full active regimen with cycle phases as of Date.
type Instructions struct {
	User        *user.User
	Date        string
	Timezone    string
	Medications []MedicationInstructions
	Warnings    []error
}

// MedicationInstructions is one active medication with its schedules and enabled cycle.
type MedicationInstructions struct {
	Medication medication.Medication
	Schedules  []medication.ScheduleEntry
	Cycle      *medication.Cycle      // nil without an enabled cycle
	Phase      *medication.CyclePhase // nil without a cycle or when the cycle is invalid
}

// InstructionsService reads a user's regimen. Phases use the tick's time zone and clock.
type InstructionsService struct {
	reminders *ReminderService
	medRepo   medication.Repository
	userRepo  user.Repository
}

func NewInstructionsService(rs *ReminderService, mr medication.Repository, ur user.Repository) *InstructionsService {
	return &InstructionsService{reminders: rs, medRepo: mr, userRepo: ur}
}

// Instructions lists userID's active medications by name, schedules by time of day.
func (s *InstructionsService) Instructions(ctx context.Context, userID uuid.UUID) (*Instructions, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user %s for instructions: %w", userID, err)
	}

	loc := s.reminders.Location()
	today := s.reminders.clock().In(loc)
	result := &Instructions{
		User:        u,
		Date:        today.Format(time.DateOnly),
		Timezone:    loc.String(),
		Medications: make([]MedicationInstructions, 0),
	}

	meds, err := s.medRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications of user %s: %w", userID, err)
	}
	if len(meds) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, len(meds))
	for i, m := range meds {
		ids[i] = m.ID
	}
	schedules, err := s.medRepo.ListSchedules(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules of user %s: %w", userID, err)
	}
	cycles, err := s.medRepo.ListEnabledCycles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles of user %s: %w", userID, err)
	}

	schedulesByMedication := make(map[uuid.UUID][]medication.ScheduleEntry, len(meds))
	for _, sch := range schedules {
		schedulesByMedication[sch.MedicationID] = append(schedulesByMedication[sch.MedicationID], *sch)
	}
	cycleByMedication := make(map[uuid.UUID]*medication.Cycle, len(cycles))
	for _, c := range cycles {
		if _, ok := cycleByMedication[c.MedicationID]; ok {
			result.Warnings = append(result.Warnings, fmt.Errorf("medication %s has several enabled cycles, using the oldest", c.MedicationID))
			continue
		}
		cycleByMedication[c.MedicationID] = c
	}

	for _, m := range meds {
		item := MedicationInstructions{
			Medication: *m,
			Schedules:  schedulesByMedication[m.ID],
			Cycle:      cycleByMedication[m.ID],
		}
		if item.Cycle != nil {
			phase, err := medication.EvaluateCycle(*item.Cycle, today)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("medication %s: %w", m.ID, err))
			} else {
				item.Phase = &phase
			}
		}
		result.Medications = append(result.Medications, item)
	}
	return result, nil
}
