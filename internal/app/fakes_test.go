package app

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"time"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/messaging"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeMedicationRepo struct {
	schedules  []*medication.ScheduledMedication
	cycles     []*medication.Cycle
	matchErr   error
	cyclesErr  error
	cycleCalls [][]uuid.UUID
}

func (r *fakeMedicationRepo) ListDueSchedules(_ context.Context, timeOfDay string) ([]*medication.ScheduledMedication, error) {
	if r.matchErr != nil {
		return nil, r.matchErr
	}
	out := make([]*medication.ScheduledMedication, 0)
	for _, sm := range r.schedules {
		if sm.Schedule.TimeOfDay == timeOfDay && sm.Medication.IsActive {
			out = append(out, sm)
		}
	}
	return out, nil
}

func (r *fakeMedicationRepo) ListDueSchedulesForUser(ctx context.Context, userID uuid.UUID, timeOfDay string) ([]*medication.ScheduledMedication, error) {
	all, err := r.ListDueSchedules(ctx, timeOfDay)
	if err != nil {
		return nil, err
	}
	out := make([]*medication.ScheduledMedication, 0)
	for _, sm := range all {
		if sm.Medication.UserID == userID {
			out = append(out, sm)
		}
	}
	return out, nil
}

func (r *fakeMedicationRepo) ListEnabledCycles(_ context.Context, medicationIDs []uuid.UUID) ([]*medication.Cycle, error) {
	r.cycleCalls = append(r.cycleCalls, medicationIDs)
	if r.cyclesErr != nil {
		return nil, r.cyclesErr
	}
	wanted := make(map[uuid.UUID]bool, len(medicationIDs))
	for _, id := range medicationIDs {
		wanted[id] = true
	}
	out := make([]*medication.Cycle, 0)
	for _, c := range r.cycles {
		if wanted[c.MedicationID] && c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListActiveByUser derives medications from the schedules fixture.
func (r *fakeMedicationRepo) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	seen := make(map[uuid.UUID]bool)
	out := make([]*medication.Medication, 0)
	for _, sm := range r.schedules {
		m := sm.Medication
		if m.UserID != userID || !m.IsActive || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeMedicationRepo) ListSchedules(_ context.Context, medicationIDs []uuid.UUID) ([]*medication.ScheduleEntry, error) {
	wanted := make(map[uuid.UUID]bool, len(medicationIDs))
	for _, id := range medicationIDs {
		wanted[id] = true
	}
	out := make([]*medication.ScheduleEntry, 0)
	for _, sm := range r.schedules {
		if wanted[sm.Medication.ID] {
			entry := sm.Schedule
			out = append(out, &entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeOfDay < out[j].TimeOfDay })
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
	err   error
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	records   []*notification.Record
	appendErr error
	counts    []notification.StatusCount
	since     time.Time
}

func (r *fakeNotificationRepo) Append(_ context.Context, rec *notification.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	rec.ID = uuid.New()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, status notification.Status, limit int) ([]*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.Record, 0)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if rec.UserID == userID && (status == "" || rec.Status == status) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ListRecent(_ context.Context, status notification.Status, channel string, limit int) ([]*notification.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.Record, 0)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if (status == "" || rec.Status == status) && (channel == "" || rec.Channel == channel) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountByUserSince(_ context.Context, _ uuid.UUID, since time.Time) ([]notification.StatusCount, error) {
	r.since = since
	return r.counts, nil
}

func (r *fakeNotificationRepo) snapshot() []*notification.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*notification.Record(nil), r.records...)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return "whatsapp" }

func (m *mockGateway) SendText(ctx context.Context, address, text string) (messaging.SendResult, error) {
	args := m.Called(ctx, address, text)
	return args.Get(0).(messaging.SendResult), args.Error(1)
}

func (m *mockGateway) SendImage(ctx context.Context, address, imageURL, caption string) (messaging.SendResult, error) {
	args := m.Called(ctx, address, imageURL, caption)
	return args.Get(0).(messaging.SendResult), args.Error(1)
}

// funcGateway lets a test control a send, e.g. to block it.
type funcGateway struct {
	send func(ctx context.Context, address string) (messaging.SendResult, error)
}

func (g *funcGateway) Name() string { return "test" }

func (g *funcGateway) SendText(ctx context.Context, address, _ string) (messaging.SendResult, error) {
	return g.send(ctx, address)
}

func (g *funcGateway) SendImage(ctx context.Context, address, _, _ string) (messaging.SendResult, error) {
	return g.send(ctx, address)
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

type fakeTickLock struct {
	acquired bool
	err      error
	keys     []string
}

func (l *fakeTickLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.acquired, l.err
}

type recordingPublisher struct {
	published []*notification.Record
}

func (p *recordingPublisher) PublishOutcome(_ context.Context, rec *notification.Record) error {
	p.published = append(p.published, rec)
	return nil
}

func newUser(name, address string) *user.User {
	return &user.User{ID: uuid.New(), Name: name, Address: address}
}

func scheduled(owner *user.User, name, dose, imageURL, timeOfDay string) *medication.ScheduledMedication {
	med := medication.Medication{ID: uuid.New(), UserID: owner.ID, Name: name, Dose: dose, IsActive: true}
	if imageURL != "" {
		med.ImageURL = sql.NullString{String: imageURL, Valid: true}
	}
	return &medication.ScheduledMedication{
		Schedule:   medication.ScheduleEntry{ID: uuid.New(), MedicationID: med.ID, TimeOfDay: timeOfDay},
		Medication: med,
	}
}

func cycleFor(sm *medication.ScheduledMedication, start time.Time, take, rest int) *medication.Cycle {
	return &medication.Cycle{
		ID:           uuid.New(),
		MedicationID: sm.Medication.ID,
		TakeDays:     take,
		RestDays:     rest,
		CycleStart:   start,
		Enabled:      true,
	}
}

func usersOf(us ...*user.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*user.User, len(us))}
	for _, u := range us {
		repo.users[u.ID] = u
	}
	return repo
}

// markupGateway is a gateway with its own message markup.
type markupGateway struct {
	mockGateway
	markup messaging.Markup
}

func (g *markupGateway) Markup() messaging.Markup { return g.markup }
