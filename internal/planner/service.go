package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/sqlite"
)

// planRepository serves the current workout plan.
type planRepository interface {
	Plan() (plan.WorkoutPlan, error)
}

// Service handles the business logic for day planning.
type Service struct {
	repo   *repository
	plans  planRepository
	logger *slog.Logger
}

// NewService creates a new planner service.
func NewService(db *sqlite.Database, plans planRepository, logger *slog.Logger) *Service {
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:   factory.newRepository(),
		plans:  plans,
		logger: logger,
	}
}

// Resolve returns the calendar day for (user, today), computing and persisting
// it on first call. Repeated calls for the same date return the stored day
// without mutating state or advancing the cycle.
func (s *Service) Resolve(ctx context.Context, userID int64, today time.Time) (Day, error) {
	today = truncateToDate(today)

	// Reconcile the backlog first so stale planned days never leak into the
	// latest-day lookup below.
	skipped, err := s.repo.days.MarkSkippedBefore(ctx, userID, today)
	if err != nil {
		return Day{}, fmt.Errorf("reconcile backlog: %w", err)
	}
	if skipped > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "skipped stale planned days",
			slog.Int64("user_id", userID),
			slog.Int64("count", skipped))
	}

	day, err := s.repo.days.Get(ctx, userID, today)
	if err == nil {
		return day, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Day{}, fmt.Errorf("get day: %w", err)
	}

	settings, err := s.repo.settings.Get(ctx, userID)
	if err != nil {
		return Day{}, fmt.Errorf("get settings: %w", err)
	}

	// The plan is only needed when a new day has to be computed. Load validates
	// it, so an empty cycle fails here before anything is persisted.
	workoutPlan, err := s.plans.Plan()
	if err != nil {
		return Day{}, fmt.Errorf("load plan: %w", err)
	}

	day, err = s.computeDay(ctx, userID, today, settings, workoutPlan)
	if err != nil {
		return Day{}, err
	}

	persisted, err := s.repo.days.Upsert(ctx, userID, day)
	if err != nil {
		return Day{}, fmt.Errorf("persist day: %w", err)
	}
	return persisted, nil
}

// computeDay decides the assignment for a date with no existing record.
func (s *Service) computeDay(
	ctx context.Context,
	userID int64,
	today time.Time,
	settings Settings,
	workoutPlan plan.WorkoutPlan,
) (Day, error) {
	// A future start date means the program has not begun: rest, cycle untouched.
	if settings.StartDate != nil && today.Before(truncateToDate(*settings.StartDate)) {
		return restDay(today, workoutPlan), nil
	}

	latest, err := s.repo.days.Latest(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		// Day one of the program.
		return trainDay(today, workoutPlan, settings.CycleIndex), nil
	}
	if err != nil {
		return Day{}, fmt.Errorf("get latest day: %w", err)
	}

	switch {
	case latest.Type == DayTypeTrain && latest.Status != StatusDone:
		// An unfinished training day rolls forward with the same workout until
		// the user completes it.
		day := trainDay(today, workoutPlan, settings.CycleIndex)
		day.WorkoutKey = latest.WorkoutKey
		return day, nil
	case latest.Type == DayTypeTrain:
		return restDay(today, workoutPlan), nil
	default:
		return trainDay(today, workoutPlan, settings.CycleIndex), nil
	}
}

// Complete marks today's day as done. For training days it also advances the
// cycle position by one, regardless of which workout key was actually served.
func (s *Service) Complete(ctx context.Context, userID int64, today time.Time, wasTrainingDay bool) error {
	today = truncateToDate(today)

	if err := s.repo.days.SetStatus(ctx, userID, today, StatusDone); err != nil {
		return fmt.Errorf("mark day done: %w", err)
	}
	if !wasTrainingDay {
		return nil
	}

	settings, err := s.repo.settings.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if err := s.repo.settings.SetCycleIndex(ctx, userID, settings.CycleIndex+1); err != nil {
		return fmt.Errorf("advance cycle: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "advanced cycle",
		slog.Int64("user_id", userID),
		slog.Int("cycle_index", settings.CycleIndex+1))
	return nil
}

// Skip marks today's day as skipped without touching the cycle position.
func (s *Service) Skip(ctx context.Context, userID int64, today time.Time) error {
	if err := s.repo.days.SetStatus(ctx, userID, truncateToDate(today), StatusSkipped); err != nil {
		return fmt.Errorf("mark day skipped: %w", err)
	}
	return nil
}

// History returns the calendar days in [from, to], oldest first. Reports and
// advice context read from it.
func (s *Service) History(ctx context.Context, userID int64, from, to time.Time) ([]Day, error) {
	days, err := s.repo.days.ListRange(ctx, userID, truncateToDate(from), truncateToDate(to))
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// Settings returns the planning settings for a user.
func (s *Service) Settings(ctx context.Context, userID int64) (Settings, error) {
	settings, err := s.repo.settings.Get(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SetStartDate schedules the program to begin on date. Days before it resolve
// to rest days.
func (s *Service) SetStartDate(ctx context.Context, userID int64, date time.Time) error {
	if err := s.repo.settings.SetStartDate(ctx, userID, truncateToDate(date)); err != nil {
		return fmt.Errorf("set start date: %w", err)
	}
	return nil
}

// ClearStartDate removes a scheduled program start.
func (s *Service) ClearStartDate(ctx context.Context, userID int64) error {
	if err := s.repo.settings.ClearStartDate(ctx, userID); err != nil {
		return fmt.Errorf("clear start date: %w", err)
	}
	return nil
}

// Plan returns the current workout plan for callers that render its contents.
func (s *Service) Plan() (plan.WorkoutPlan, error) {
	workoutPlan, err := s.plans.Plan()
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("load plan: %w", err)
	}
	return workoutPlan, nil
}

// trainDay assigns the workout at the current cycle position. The index wraps
// modulo the cycle length, so any accumulated value stays valid.
func trainDay(date time.Time, workoutPlan plan.WorkoutPlan, cycleIndex int) Day {
	key := workoutPlan.CycleOrder[cycleIndex%len(workoutPlan.CycleOrder)]
	return Day{
		Date:       date,
		Type:       DayTypeTrain,
		Status:     StatusPlanned,
		WorkoutKey: &key,
		Macros:     workoutPlan.Macros.Train,
	}
}

func restDay(date time.Time, workoutPlan plan.WorkoutPlan) Day {
	return Day{
		Date:   date,
		Type:   DayTypeRest,
		Status: StatusPlanned,
		Macros: workoutPlan.Macros.Rest,
	}
}
