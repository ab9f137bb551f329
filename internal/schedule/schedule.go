// Package schedule wires reminder and report jobs onto a cron runner.
package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
)

// Reminder kinds a user can configure.
const (
	ReminderWater      = "water"
	ReminderMotivation = "motivation"
	ReminderSleep      = "sleep"
	ReminderWorkout    = "workout"
)

// Default report times.
const (
	specDailyReport  = "0 0 23 * * *"
	specWeeklyReport = "0 0 20 * * 0"
)

// Reminders maps a reminder kind to its HH:MM fire time.
type Reminders map[string]string

// ParseReminders decodes the stored reminders document. An empty document
// yields an empty map.
func ParseReminders(raw string) (Reminders, error) {
	if raw == "" {
		return Reminders{}, nil
	}
	var reminders Reminders
	if err := json.Unmarshal([]byte(raw), &reminders); err != nil {
		return nil, fmt.Errorf("unmarshal reminders: %w", err)
	}
	return reminders, nil
}

// Encode serialises the reminders for storage.
func (r Reminders) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal reminders: %w", err)
	}
	return string(data), nil
}

// Scheduler runs jobs on cron schedules. Rebuilding after a settings change
// means stopping the old scheduler and starting a freshly populated one.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddDaily schedules job every day at the given HH:MM time.
func (s *Scheduler) AddDaily(hhmm string, job func()) error {
	spec, err := dailySpec(hhmm)
	if err != nil {
		return err
	}
	if err = s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add daily job: %w", err)
	}
	return nil
}

// AddDailyReport schedules job at the end-of-day report time.
func (s *Scheduler) AddDailyReport(job func()) error {
	if err := s.cron.AddFunc(specDailyReport, job); err != nil {
		return fmt.Errorf("add daily report job: %w", err)
	}
	return nil
}

// AddWeeklyReport schedules job at the Sunday evening report time.
func (s *Scheduler) AddWeeklyReport(job func()) error {
	if err := s.cron.AddFunc(specWeeklyReport, job); err != nil {
		return fmt.Errorf("add weekly report job: %w", err)
	}
	return nil
}

// AddReminders schedules fire(kind) for every configured reminder. Entries
// with an invalid time are skipped with a warning rather than failing the
// whole rebuild.
func (s *Scheduler) AddReminders(reminders Reminders, fire func(kind string)) {
	for kind, at := range reminders {
		k := kind
		if err := s.AddDaily(at, func() { fire(k) }); err != nil {
			s.logger.Warn("skipping reminder with invalid time",
				"kind", kind, "time", at, "error", err)
		}
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// dailySpec converts an HH:MM wall time into a cron spec with seconds field.
func dailySpec(hhmm string) (string, error) {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("parse reminder time %q: %w", hhmm, err)
	}
	return fmt.Sprintf("0 %d %d * * *", at.Minute(), at.Hour()), nil
}
