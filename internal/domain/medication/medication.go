package medication

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Medication belongs to a user. Only active medications are ever reminded.
type Medication struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Dose      string
	ImageURL  sql.NullString
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleEntry is a daily time-of-day at which a medication is due.
type ScheduleEntry struct {
	ID           uuid.UUID
	MedicationID uuid.UUID
	TimeOfDay    string         // "HH:MM", 24h, zero-padded
	Quantity     sql.NullString // Overrides Medication.Dose when set
	CreatedAt    time.Time
}

// ScheduledMedication is one schedule entry joined with its medication.
type ScheduledMedication struct {
	Schedule   ScheduleEntry
	Medication Medication
}

// Dosage returns the schedule-specific quantity if present, the medication dose otherwise.
func (sm *ScheduledMedication) Dosage() string {
	if sm.Schedule.Quantity.Valid && sm.Schedule.Quantity.String != "" {
		return sm.Schedule.Quantity.String
	}
	return sm.Medication.Dose
}
