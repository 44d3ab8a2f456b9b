package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"medication_reminder_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TickRunner is the part of app.ReminderService the scheduler drives.
type TickRunner interface {
	RunTick(ctx context.Context) (*app.TickReport, error)
}

type ReminderScheduler struct {
	cronEngine   *cron.Cron
	runner       TickRunner
	logger       *logrus.Entry
	cronSpec     string
	runOnStart   bool
	baseCtx      context.Context
	cancelBase   context.CancelFunc
	startupCheck sync.WaitGroup
}

func NewReminderScheduler(
	runner TickRunner,
	logger *logrus.Entry,
	loc *time.Location, // Time zone of the cron spec, same as the engine's
	cronSpec string, // e.g., "* * * * *" (every minute)
	runOnStart bool,
) *ReminderScheduler {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &ReminderScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
		runOnStart: runOnStart,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Start registers the reminder job and starts the cron engine.
// With runOnStart one tick also runs immediately in the background.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.executeTick); err != nil {
		return err
	}
	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Reminder scheduler started")

	if s.runOnStart {
		s.startupCheck.Add(1)
		go func() {
			defer s.startupCheck.Done()
			s.logger.Info("Running initial reminder check")
			s.executeTick()
		}()
	}
	return nil
}

// executeTick runs one tick and logs its outcome.
// The tick context is cancelled only by Stop; sends and lookups carry their own timeouts.
func (s *ReminderScheduler) executeTick() {
	report, err := s.runner.RunTick(s.baseCtx)
	switch {
	case errors.Is(err, app.ErrTickInProgress), errors.Is(err, app.ErrTickAlreadyClaimed):
		s.logger.WithError(err).Debug("Reminder tick skipped")
	case err != nil:
		s.logger.WithError(err).Error("Reminder tick failed")
	case report != nil && report.Due > 0:
		s.logger.WithFields(logrus.Fields{
			"tick_id": report.TickID,
			"sent":    report.Sent,
			"failed":  report.Failed,
			"pending": report.Pending,
			"skipped": report.Skipped,
		}).Debug("Reminder tick finished")
	}
}

// Stop stops scheduling new ticks, cancels the running one and waits for it.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	stopCtx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs
	s.cancelBase()
	<-stopCtx.Done()
	s.startupCheck.Wait()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
