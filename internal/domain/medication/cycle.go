package medication

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCycle = fmt.Errorf("invalid cycle: take_days + rest_days must be positive")

// Cycle is a recurring take/rest pattern attached to a medication.
// Corresponds to the 'cycles' table.
type Cycle struct {
	ID           uuid.UUID
	MedicationID uuid.UUID
	TakeDays     int
	RestDays     int
	CycleStart   time.Time // DATE; only year, month and day are significant
	Enabled      bool
	CreatedAt    time.Time
}

// PhaseKind is the state of a cycle on a given day.
type PhaseKind string

const (
	PhaseNotStarted PhaseKind = "not_started"
	PhaseTaking     PhaseKind = "taking"
	PhaseResting    PhaseKind = "resting"
)

// CyclePhase is derived from a Cycle and a date. It is never persisted.
type CyclePhase struct {
	Kind           PhaseKind
	Day            int // 1-based day within the current sub-phase; 0 when not started
	Remaining      int // Days left in the current sub-phase, today included
	DaysUntilStart int // Only set for PhaseNotStarted
	TakeDays       int
	RestDays       int
}

// IsTakeDay reports whether the medication should be taken on the evaluated day.
func (p CyclePhase) IsTakeDay() bool {
	return p.Kind == PhaseTaking
}

// EvaluateCycle computes the phase of c on the calendar day of today.
// today's date is read in today's own location, so callers convert it to the
// configured time zone first. A zero-length cycle yields ErrInvalidCycle.
func EvaluateCycle(c Cycle, today time.Time) (CyclePhase, error) {
	cycleLength := c.TakeDays + c.RestDays
	if cycleLength <= 0 || c.TakeDays < 0 || c.RestDays < 0 {
		return CyclePhase{}, fmt.Errorf("cycle %s (take=%d, rest=%d): %w", c.ID, c.TakeDays, c.RestDays, ErrInvalidCycle)
	}

	phase := CyclePhase{TakeDays: c.TakeDays, RestDays: c.RestDays}

	daysSinceStart := DaysBetween(c.CycleStart, today)
	if daysSinceStart < 0 {
		phase.Kind = PhaseNotStarted
		phase.DaysUntilStart = -daysSinceStart
		return phase, nil
	}

	dayInCycle := daysSinceStart % cycleLength
	if dayInCycle < c.TakeDays {
		phase.Kind = PhaseTaking
		phase.Day = dayInCycle + 1
		phase.Remaining = c.TakeDays - dayInCycle
		return phase, nil
	}

	phase.Kind = PhaseResting
	phase.Day = dayInCycle - c.TakeDays + 1
	phase.Remaining = cycleLength - dayInCycle
	return phase, nil
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween counts whole calendar days from start's date to end's date.
// Each date is taken in its own location; the count is DST-safe.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int((e.Unix() - s.Unix()) / secondsPerDay)
}
