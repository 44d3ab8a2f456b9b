package app

import (
	"time"

	"medication_reminder_bot/internal/domain/notification"
)

// Metrics receives engine counters. infra/metrics provides the Prometheus implementation.
type Metrics interface {
	ObserveDispatch(status notification.Status, kind notification.Kind)
	ObserveTick(result string, duration time.Duration)
	ObserveWarning(reason string)
}

// Tick results reported to Metrics.ObserveTick.
const (
	TickResultCompleted = "completed"
	TickResultFailed    = "failed"
	TickResultSkipped   = "skipped"
)

type nopMetrics struct{}

func (nopMetrics) ObserveDispatch(notification.Status, notification.Kind) {}
func (nopMetrics) ObserveTick(string, time.Duration)                      {}
func (nopMetrics) ObserveWarning(string)                                  {}
