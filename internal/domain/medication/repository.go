package medication

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the read side of medications, schedules and cycles.
type Repository interface {
	// ListDueSchedules returns every schedule entry at timeOfDay whose medication is active.
	ListDueSchedules(ctx context.Context, timeOfDay string) ([]*ScheduledMedication, error)
	// ListDueSchedulesForUser is ListDueSchedules restricted to one user's medications.
	ListDueSchedulesForUser(ctx context.Context, userID uuid.UUID, timeOfDay string) ([]*ScheduledMedication, error)
	// ListEnabledCycles returns enabled cycles for the given medications, oldest first.
	ListEnabledCycles(ctx context.Context, medicationIDs []uuid.UUID) ([]*Cycle, error)
	// ListActiveByUser returns a user's active medications ordered by name.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*Medication, error)
	// ListSchedules returns the schedule entries of the given medications ordered by time of day.
	ListSchedules(ctx context.Context, medicationIDs []uuid.UUID) ([]*ScheduleEntry, error)
}
