package database

import (
	"context"
	"database/sql"
	"fmt"

	"medication_reminder_bot/internal/domain/medication"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresMedicationRepository struct {
	db *sql.DB
}

func NewPostgresMedicationRepository(db *sql.DB) *PostgresMedicationRepository {
	return &PostgresMedicationRepository{db: db}
}

const dueSchedulesQuery = `SELECT s.id, s.medication_id, s.time_of_day, s.quantity, s.created_at,
               m.id, m.user_id, m.name, m.dose, m.image_url, m.active, m.created_at, m.updated_at
               FROM schedules s
               JOIN medications m ON m.id = s.medication_id
               WHERE s.time_of_day = $1 AND m.active = TRUE`

// ListDueSchedules keeps a stable order: by user, then medication creation, then schedule.
func (r *PostgresMedicationRepository) ListDueSchedules(ctx context.Context, timeOfDay string) ([]*medication.ScheduledMedication, error) {
	query := dueSchedulesQuery + ` ORDER BY m.user_id, m.created_at, s.created_at, s.id`
	rows, err := r.db.QueryContext(ctx, query, timeOfDay)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules due at %s: %w", timeOfDay, err)
	}
	return scanScheduledMedications(rows)
}

func (r *PostgresMedicationRepository) ListDueSchedulesForUser(ctx context.Context, userID uuid.UUID, timeOfDay string) ([]*medication.ScheduledMedication, error) {
	query := dueSchedulesQuery + ` AND m.user_id = $2 ORDER BY m.created_at, s.created_at, s.id`
	rows, err := r.db.QueryContext(ctx, query, timeOfDay, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules due at %s for user %s: %w", timeOfDay, userID, err)
	}
	return scanScheduledMedications(rows)
}

func scanScheduledMedications(rows *sql.Rows) ([]*medication.ScheduledMedication, error) {
	defer rows.Close()
	var result []*medication.ScheduledMedication
	for rows.Next() {
		sm := &medication.ScheduledMedication{}
		s, m := &sm.Schedule, &sm.Medication
		if err := rows.Scan(
			&s.ID, &s.MedicationID, &s.TimeOfDay, &s.Quantity, &s.CreatedAt,
			&m.ID, &m.UserID, &m.Name, &m.Dose, &m.ImageURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning schedule row: %w", err)
		}
		result = append(result, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}
	return result, nil
}

func (r *PostgresMedicationRepository) ListEnabledCycles(ctx context.Context, medicationIDs []uuid.UUID) ([]*medication.Cycle, error) {
	if len(medicationIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, medication_id, take_days, rest_days, cycle_start, enabled, created_at
               FROM cycles
               WHERE medication_id = ANY($1::uuid[]) AND enabled = TRUE
               ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, uuidArray(medicationIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing enabled cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*medication.Cycle
	for rows.Next() {
		c := &medication.Cycle{}
		if err := rows.Scan(&c.ID, &c.MedicationID, &c.TakeDays, &c.RestDays, &c.CycleStart, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning cycle row: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle rows: %w", err)
	}
	return cycles, nil
}

func (r *PostgresMedicationRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	query := `SELECT id, user_id, name, dose, image_url, active, created_at, updated_at
               FROM medications
               WHERE user_id = $1 AND active = TRUE
               ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing medications of user %s: %w", userID, err)
	}
	defer rows.Close()

	var meds []*medication.Medication
	for rows.Next() {
		m := &medication.Medication{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Dose, &m.ImageURL, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning medication row: %w", err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medication rows: %w", err)
	}
	return meds, nil
}

func (r *PostgresMedicationRepository) ListSchedules(ctx context.Context, medicationIDs []uuid.UUID) ([]*medication.ScheduleEntry, error) {
	if len(medicationIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, medication_id, time_of_day, quantity, created_at
               FROM schedules
               WHERE medication_id = ANY($1::uuid[])
               ORDER BY time_of_day, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, uuidArray(medicationIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*medication.ScheduleEntry
	for rows.Next() {
		s := &medication.ScheduleEntry{}
		if err := rows.Scan(&s.ID, &s.MedicationID, &s.TimeOfDay, &s.Quantity, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning schedule row: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}
	return schedules, nil
}

// uuidArray binds ids as a Postgres text array for ANY($n::uuid[]).
func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}
