package medication

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cycleStartingDaysAgo(today time.Time, days, take, rest int) Cycle {
	return Cycle{
		ID:           uuid.New(),
		MedicationID: uuid.New(),
		TakeDays:     take,
		RestDays:     rest,
		CycleStart:   time.Date(today.Year(), today.Month(), today.Day()-days, 0, 0, 0, 0, time.UTC),
		Enabled:      true,
	}
}

func TestEvaluateCycle(t *testing.T) {
	today := time.Date(2025, time.March, 20, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		daysAgo   int
		take      int
		rest      int
		expected  CyclePhase
		takeToday bool
	}{
		{
			name:      "first day of cycle",
			daysAgo:   0,
			take:      5,
			rest:      2,
			expected:  CyclePhase{Kind: PhaseTaking, Day: 1, Remaining: 5, TakeDays: 5, RestDays: 2},
			takeToday: true,
		},
		{
			name:      "taking phase in second cycle",
			daysAgo:   10,
			take:      5,
			rest:      2,
			expected:  CyclePhase{Kind: PhaseTaking, Day: 4, Remaining: 2, TakeDays: 5, RestDays: 2},
			takeToday: true,
		},
		{
			name:     "first rest day",
			daysAgo:  12,
			take:     5,
			rest:     2,
			expected: CyclePhase{Kind: PhaseResting, Day: 1, Remaining: 2, TakeDays: 5, RestDays: 2},
		},
		{
			name:     "last rest day",
			daysAgo:  6,
			take:     5,
			rest:     2,
			expected: CyclePhase{Kind: PhaseResting, Day: 2, Remaining: 1, TakeDays: 5, RestDays: 2},
		},
		{
			name:     "not started yet",
			daysAgo:  -3,
			take:     5,
			rest:     2,
			expected: CyclePhase{Kind: PhaseNotStarted, DaysUntilStart: 3, TakeDays: 5, RestDays: 2},
		},
		{
			name:      "no rest days means always taking",
			daysAgo:   100,
			take:      3,
			rest:      0,
			expected:  CyclePhase{Kind: PhaseTaking, Day: 2, Remaining: 2, TakeDays: 3, RestDays: 0},
			takeToday: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, err := EvaluateCycle(cycleStartingDaysAgo(today, tt.daysAgo, tt.take, tt.rest), today)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, phase)
			assert.Equal(t, tt.takeToday, phase.IsTakeDay())
		})
	}
}

func TestEvaluateCycle_ZeroLengthIsRejected(t *testing.T) {
	today := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	for _, daysAgo := range []int{10, -3} {
		_, err := EvaluateCycle(cycleStartingDaysAgo(today, daysAgo, 0, 0), today)
		assert.ErrorIs(t, err, ErrInvalidCycle)
	}
}

func TestEvaluateCycle_UsesCalendarDateOfToday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bishkek") // UTC+6, no DST
	require.NoError(t, err)

	c := Cycle{TakeDays: 1, RestDays: 1, CycleStart: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), Enabled: true}

	// 2025-03-01 20:00 UTC is already 2025-03-02 in Bishkek.
	utcEvening := time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)

	phaseUTC, err := EvaluateCycle(c, utcEvening)
	require.NoError(t, err)
	assert.Equal(t, PhaseTaking, phaseUTC.Kind)

	phaseLocal, err := EvaluateCycle(c, utcEvening.In(loc))
	require.NoError(t, err)
	assert.Equal(t, PhaseResting, phaseLocal.Kind)
}

func TestDaysBetween_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start := time.Date(2025, time.March, 29, 0, 0, 0, 0, loc)
	end := time.Date(2025, time.March, 31, 0, 30, 0, 0, loc)

	assert.Equal(t, 2, DaysBetween(start, end))
	assert.Equal(t, -2, DaysBetween(end, start))
}

func TestDaysBetween_SpansBeyondDurationRange(t *testing.T) {
	start := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 20, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 739329, DaysBetween(start, end))
	assert.Equal(t, -739329, DaysBetween(end, start))

	phase, err := EvaluateCycle(Cycle{TakeDays: 1, RestDays: 1, CycleStart: start, Enabled: true}, end)
	require.NoError(t, err)
	assert.Equal(t, PhaseResting, phase.Kind)
}
