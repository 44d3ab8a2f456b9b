// internal/app/reminder_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"medication_reminder_bot/internal/domain/medication"
	"medication_reminder_bot/internal/domain/messaging"
	"medication_reminder_bot/internal/domain/notification"
	"medication_reminder_bot/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TimeOfDayLayout is the format of schedule times, e.g. "08:05".
const TimeOfDayLayout = "15:04"

const (
	defaultSendTimeout   = 15 * time.Second
	defaultLookupTimeout = 55 * time.Second
	defaultRecordTimeout = 10 * time.Second
	tickLeaseTTL         = 2 * time.Minute
	tickLeaseKeyLayout   = "2006-01-02T15:04"
)

var ErrTickInProgress = fmt.Errorf("reminder tick already in progress")
var ErrTickAlreadyClaimed = fmt.Errorf("reminder tick already claimed by another instance")

// Warning reasons reported to Metrics.ObserveWarning.
const (
	WarningUserNotFound       = "user_not_found"
	WarningUserLookupFailed   = "user_lookup_failed"
	WarningCycleLookupFailed  = "cycle_lookup_failed"
	WarningInvalidCycle       = "invalid_cycle"
	WarningDuplicateCycles    = "duplicate_cycles"
	WarningDuplicateScheduled = "duplicate_schedule"
)

// TickLock is a lease on one tick minute shared between instances.
type TickLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ReminderConfig is the explicit configuration of a ReminderService.
// Zero values fall back to UTC, no pacing, a 15s send timeout, a 55s lookup timeout,
// time.Now and no metrics. LookupTimeout bounds the storage reads of a tick;
// dispatch is bounded per send only.
type ReminderConfig struct {
	Location      *time.Location
	Pacer         Pacer
	SendTimeout   time.Duration
	LookupTimeout time.Duration
	Clock         func() time.Time
	TickLock      TickLock // Optional
	Metrics       Metrics  // Optional
}

// DueReminder is a medication that needs a notification in the current tick.
type DueReminder struct {
	ScheduleID   uuid.UUID
	MedicationID uuid.UUID
	Name         string
	Dosage       string
	ImageURL     string
	Time         string
	Phase        *medication.CyclePhase // nil when the medication has no enabled cycle
}

// UserReminders is the ordered list of due reminders for one recipient.
type UserReminders struct {
	User      *user.User
	Reminders []DueReminder
}

// Assembly is the result of grouping and cycle-filtering one tick's matches.
// Groups keep the order in which their users first appeared in the matches.
type Assembly struct {
	Groups   []*UserReminders
	Warnings []error
}

// DispatchSummary counts dispatch outcomes.
type DispatchSummary struct {
	Sent    int
	Failed  int
	Pending int
	Skipped int // not attempted because dispatch was interrupted
}

func (d *DispatchSummary) add(status notification.Status) {
	switch status {
	case notification.StatusSent:
		d.Sent++
	case notification.StatusFailed:
		d.Failed++
	case notification.StatusPending:
		d.Pending++
	}
}

// TickReport summarises one tick.
type TickReport struct {
	TickID   string
	Time     string
	Matched  int
	Due      int
	Warnings int
	DispatchSummary
}

// ReminderService evaluates due medication schedules and dispatches reminders.
type ReminderService struct {
	medRepo       medication.Repository
	userRepo      user.Repository
	outcomes      *OutcomeLogger
	gateway       messaging.Gateway
	markup        messaging.Markup
	loc           *time.Location
	pacer         Pacer
	sendTimeout   time.Duration
	lookupTimeout time.Duration
	clock         func() time.Time
	tickLock      TickLock
	metrics       Metrics
	logger        *logrus.Entry

	tickMu sync.Mutex
}

func NewReminderService(
	mr medication.Repository,
	ur user.Repository,
	outcomes *OutcomeLogger,
	gw messaging.Gateway,
	cfg ReminderConfig,
	logger *logrus.Entry,
) *ReminderService {
	s := &ReminderService{
		medRepo:       mr,
		userRepo:      ur,
		outcomes:      outcomes,
		gateway:       gw,
		markup:        messaging.MarkupFor(gw),
		loc:           cfg.Location,
		pacer:         cfg.Pacer,
		sendTimeout:   cfg.SendTimeout,
		lookupTimeout: cfg.LookupTimeout,
		clock:         cfg.Clock,
		tickLock:      cfg.TickLock,
		metrics:       cfg.Metrics,
		logger:        logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.pacer == nil {
		s.pacer = NoDelay{}
	}
	if s.sendTimeout <= 0 {
		s.sendTimeout = defaultSendTimeout
	}
	if s.lookupTimeout <= 0 {
		s.lookupTimeout = defaultLookupTimeout
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

// Caption renders r in the markup of the configured gateway.
func (s *ReminderService) Caption(r DueReminder) string {
	return FormatCaptionWith(r, s.markup)
}

// Location returns the time zone used for time-of-day matching and cycle arithmetic.
func (s *ReminderService) Location() *time.Location {
	return s.loc
}

// RunTick runs one evaluation-and-dispatch cycle for the current minute.
// At most one tick runs at a time; an overlapping call returns ErrTickInProgress
// without touching storage or the gateway.
func (s *ReminderService) RunTick(ctx context.Context) (*TickReport, error) {
	if !s.tickMu.TryLock() {
		s.logger.Warn("Previous reminder tick is still running. Skipping this one.")
		s.metrics.ObserveTick(TickResultSkipped, 0)
		return nil, ErrTickInProgress
	}
	defer s.tickMu.Unlock()

	started := s.clock()
	now := started.In(s.loc)
	report := &TickReport{TickID: uuid.NewString(), Time: now.Format(TimeOfDayLayout)}
	logCtx := s.logger.WithFields(logrus.Fields{"tick_id": report.TickID, "time": report.Time})

	if s.tickLock != nil {
		acquired, err := s.tickLock.Acquire(ctx, now.Format(tickLeaseKeyLayout), tickLeaseTTL)
		if err != nil {
			logCtx.WithError(err).Warn("Tick lock unavailable. Proceeding with the in-process guard only.")
		} else if !acquired {
			logCtx.Info("Tick already claimed by another instance. Skipping.")
			s.metrics.ObserveTick(TickResultSkipped, 0)
			return nil, ErrTickAlreadyClaimed
		}
	}

	logCtx.Debug("Checking medication reminders")

	lookupCtx, cancelLookup := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancelLookup()

	matches, err := s.MatchDue(lookupCtx, report.Time)
	if err != nil {
		logCtx.WithError(err).Error("Failed to fetch due schedules. Aborting tick.")
		s.metrics.ObserveTick(TickResultFailed, s.clock().Sub(started))
		return report, fmt.Errorf("failed to fetch due schedules for %s: %w", report.Time, err)
	}
	report.Matched = len(matches)
	if len(matches) == 0 {
		logCtx.Debug("No reminders for this time")
		s.metrics.ObserveTick(TickResultCompleted, s.clock().Sub(started))
		return report, nil
	}
	logCtx.Infof("Found %d scheduled medication(s)", len(matches))

	assembly := s.assemble(lookupCtx, logCtx, matches, now)
	cancelLookup()
	report.Warnings = len(assembly.Warnings)
	for _, g := range assembly.Groups {
		report.Due += len(g.Reminders)
	}

	report.DispatchSummary = s.dispatchAll(ctx, logCtx, assembly.Groups)

	logCtx.WithFields(logrus.Fields{
		"matched":  report.Matched,
		"due":      report.Due,
		"sent":     report.Sent,
		"failed":   report.Failed,
		"pending":  report.Pending,
		"skipped":  report.Skipped,
		"warnings": report.Warnings,
	}).Info("Reminder check completed")
	s.metrics.ObserveTick(TickResultCompleted, s.clock().Sub(started))
	return report, nil
}

// MatchDue returns all active schedule entries at timeOfDay ("HH:MM").
// No match is not an error.
func (s *ReminderService) MatchDue(ctx context.Context, timeOfDay string) ([]*medication.ScheduledMedication, error) {
	matches, err := s.medRepo.ListDueSchedules(ctx, timeOfDay)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Assemble groups matches by user and keeps only medications due on now's date.
// Per-user and per-medication problems become warnings; they never fail the call.
func (s *ReminderService) Assemble(ctx context.Context, matches []*medication.ScheduledMedication, now time.Time) *Assembly {
	return s.assemble(ctx, s.logger, matches, now)
}

// DispatchAll sends every reminder, one user after another, in list order.
func (s *ReminderService) DispatchAll(ctx context.Context, groups []*UserReminders) DispatchSummary {
	return s.dispatchAll(ctx, s.logger, groups)
}

type userMatches struct {
	userID  uuid.UUID
	matches []*medication.ScheduledMedication
}

func (g *userMatches) medicationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.matches))
	seen := make(map[uuid.UUID]bool, len(g.matches))
	for _, m := range g.matches {
		if !seen[m.Medication.ID] {
			seen[m.Medication.ID] = true
			ids = append(ids, m.Medication.ID)
		}
	}
	return ids
}

// groupByUser keeps users in first-seen order and matches in their original order.
func groupByUser(matches []*medication.ScheduledMedication) []*userMatches {
	groups := make([]*userMatches, 0)
	index := make(map[uuid.UUID]*userMatches)
	for _, m := range matches {
		g, ok := index[m.Medication.UserID]
		if !ok {
			g = &userMatches{userID: m.Medication.UserID}
			index[m.Medication.UserID] = g
			groups = append(groups, g)
		}
		g.matches = append(g.matches, m)
	}
	return groups
}

type dueKey struct {
	medicationID uuid.UUID
	timeOfDay    string
}

func (s *ReminderService) assemble(ctx context.Context, logCtx *logrus.Entry, matches []*medication.ScheduledMedication, now time.Time) *Assembly {
	today := now.In(s.loc)
	assembly := &Assembly{}

	warn := func(reason string, err error) {
		assembly.Warnings = append(assembly.Warnings, err)
		s.metrics.ObserveWarning(reason)
	}

	for _, group := range groupByUser(matches) {
		groupLog := logCtx.WithField("user_id", group.userID)

		u, err := s.userRepo.GetByID(ctx, group.userID)
		if err != nil {
			reason := WarningUserLookupFailed
			if errors.Is(err, user.ErrUserNotFound) {
				reason = WarningUserNotFound
			}
			warn(reason, fmt.Errorf("user %s: %w", group.userID, err))
			groupLog.WithError(err).Warn("Skipping reminders: could not load user")
			continue
		}

		cycles, err := s.medRepo.ListEnabledCycles(ctx, group.medicationIDs())
		if err != nil {
			warn(WarningCycleLookupFailed, fmt.Errorf("cycles for user %s: %w", group.userID, err))
			groupLog.WithError(err).Warn("Skipping reminders: could not load cycles")
			continue
		}
		cycleByMedication := make(map[uuid.UUID]*medication.Cycle, len(cycles))
		for _, c := range cycles {
			if !c.Enabled {
				continue
			}
			if first, ok := cycleByMedication[c.MedicationID]; ok {
				warn(WarningDuplicateCycles, fmt.Errorf("medication %s has several enabled cycles, using %s", c.MedicationID, first.ID))
				groupLog.WithField("medication_id", c.MedicationID).Warn("Several enabled cycles for one medication; using the oldest")
				continue
			}
			cycleByMedication[c.MedicationID] = c
		}

		due := &UserReminders{User: u, Reminders: make([]DueReminder, 0, len(group.matches))}
		seen := make(map[dueKey]bool, len(group.matches))
		for _, m := range group.matches {
			medLog := groupLog.WithField("medication_id", m.Medication.ID)

			key := dueKey{medicationID: m.Medication.ID, timeOfDay: m.Schedule.TimeOfDay}
			if seen[key] {
				s.metrics.ObserveWarning(WarningDuplicateScheduled)
				medLog.Debug("Duplicate schedule entry for the same medication and time. Ignoring.")
				continue
			}
			seen[key] = true

			r := DueReminder{
				ScheduleID:   m.Schedule.ID,
				MedicationID: m.Medication.ID,
				Name:         m.Medication.Name,
				Dosage:       m.Dosage(),
				Time:         m.Schedule.TimeOfDay,
			}
			if m.Medication.ImageURL.Valid {
				r.ImageURL = m.Medication.ImageURL.String
			}

			if c, ok := cycleByMedication[m.Medication.ID]; ok {
				phase, err := medication.EvaluateCycle(*c, today)
				if err != nil {
					warn(WarningInvalidCycle, fmt.Errorf("medication %s: %w", m.Medication.ID, err))
					medLog.WithError(err).Warn("Skipping medication with an invalid cycle")
					continue
				}
				if !phase.IsTakeDay() {
					medLog.WithField("phase", phase.Kind).Debug("Medication not due today")
					continue
				}
				r.Phase = &phase
			}
			due.Reminders = append(due.Reminders, r)
		}

		if len(due.Reminders) == 0 {
			groupLog.Info("No medications to remind (all resting or not started)")
		}
		assembly.Groups = append(assembly.Groups, due)
	}
	return assembly
}

func (s *ReminderService) dispatchAll(ctx context.Context, logCtx *logrus.Entry, groups []*UserReminders) DispatchSummary {
	var summary DispatchSummary
	for gi, g := range groups {
		if len(g.Reminders) == 0 {
			continue
		}
		userLog := logCtx.WithFields(logrus.Fields{"user_id": g.User.ID, "user_name": g.User.Name})
		userLog.Infof("Processing %d reminder(s)", len(g.Reminders))

		for i, r := range g.Reminders {
			if i > 0 {
				if err := s.pacer.Wait(ctx); err != nil {
					return s.skipRest(userLog, err, summary, len(g.Reminders)-i, groups[gi+1:])
				}
			}
			// No gateway call is made with a finished context.
			if err := ctx.Err(); err != nil {
				return s.skipRest(userLog, err, summary, len(g.Reminders)-i, groups[gi+1:])
			}
			summary.add(s.dispatchOne(ctx, userLog, g.User, r))
		}
	}
	return summary
}

// skipRest counts the reminders left unsent when dispatch is interrupted.
func (s *ReminderService) skipRest(logCtx *logrus.Entry, cause error, summary DispatchSummary, left int, rest []*UserReminders) DispatchSummary {
	for _, g := range rest {
		left += len(g.Reminders)
	}
	summary.Skipped += left
	logCtx.WithError(cause).WithField("skipped", left).Warn("Dispatch interrupted. Remaining reminders of this tick are not sent.")
	return summary
}

// dispatchOne sends one reminder and records the attempt before returning.
func (s *ReminderService) dispatchOne(ctx context.Context, logCtx *logrus.Entry, u *user.User, r DueReminder) notification.Status {
	caption := s.Caption(r)
	kind := notification.KindText
	if r.ImageURL != "" {
		kind = notification.KindImage
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	var (
		result messaging.SendResult
		err    error
	)
	if kind == notification.KindImage {
		result, err = s.gateway.SendImage(sendCtx, u.Address, r.ImageURL, caption)
	} else {
		result, err = s.gateway.SendText(sendCtx, u.Address, caption)
	}
	cancel()

	rec := &notification.Record{
		UserID:    u.ID,
		Channel:   s.gateway.Name(),
		Kind:      kind,
		Recipient: u.Address,
		Message:   caption,
		Metadata: notification.Metadata{
			"medication_id": r.MedicationID.String(),
			"schedule_id":   r.ScheduleID.String(),
			"time":          r.Time,
			"image":         kind == notification.KindImage,
			"user_name":     u.Name,
		},
		SentAt: s.clock(),
	}
	if r.Phase != nil {
		rec.Metadata["cycle_phase"] = string(r.Phase.Kind)
		rec.Metadata["cycle_day"] = r.Phase.Day
	}

	switch {
	case err == nil:
		rec.Status = notification.StatusSent
		if result.MessageID != "" {
			rec.MessageID = sql.NullString{String: result.MessageID, Valid: true}
		}
	case errors.Is(err, messaging.ErrNotConfigured):
		rec.Status = notification.StatusPending
		rec.Error = sql.NullString{String: err.Error(), Valid: true}
	default:
		rec.Status = notification.StatusFailed
		rec.Error = sql.NullString{String: err.Error(), Valid: true}
	}

	// The attempt is recorded even if the tick context is already done.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), defaultRecordTimeout)
	s.outcomes.Record(recordCtx, rec)
	cancelRecord()
	s.metrics.ObserveDispatch(rec.Status, kind)

	sendLog := logCtx.WithFields(logrus.Fields{
		"medication_id": r.MedicationID,
		"kind":          kind,
		"status":        rec.Status,
	})
	switch rec.Status {
	case notification.StatusSent:
		sendLog.WithField("message_id", result.MessageID).Info("Reminder sent")
	case notification.StatusPending:
		sendLog.Warn("Messaging gateway not configured. Reminder logged as pending.")
	default:
		sendLog.WithError(err).Error("Failed to send reminder")
	}
	return rec.Status
}
