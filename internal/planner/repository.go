package planner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cyclecoach/internal/sqlite"
)

// ErrNotFound is returned when a requested entity is not found.
var ErrNotFound = errors.New("not found")

const dateFormat = time.DateOnly

// repository contains the repositories for the planner domain aggregates.
type repository struct {
	days     dayRepository
	settings settingsRepository
}

// dayRepository handles calendar day persistence.
type dayRepository interface {
	Get(ctx context.Context, userID int64, date time.Time) (Day, error)
	Latest(ctx context.Context, userID int64) (Day, error)
	Upsert(ctx context.Context, userID int64, day Day) (Day, error)
	ListRange(ctx context.Context, userID int64, from, to time.Time) ([]Day, error)
	MarkSkippedBefore(ctx context.Context, userID int64, date time.Time) (int64, error)
	SetStatus(ctx context.Context, userID int64, date time.Time, status Status) error
}

// settingsRepository handles per-user planning settings persistence.
type settingsRepository interface {
	Get(ctx context.Context, userID int64) (Settings, error)
	SetCycleIndex(ctx context.Context, userID int64, value int) error
	SetStartDate(ctx context.Context, userID int64, date time.Time) error
	ClearStartDate(ctx context.Context, userID int64) error
}

// repositoryFactory creates repository instances.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newRepositoryFactory creates a new repository factory.
func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{
		db:     db,
		logger: logger,
	}
}

// newRepository creates a new repository aggregate.
func (f *repositoryFactory) newRepository() *repository {
	return &repository{
		days:     newSQLiteDayRepository(f.db, f.logger),
		settings: newSQLiteSettingsRepository(f.db, f.logger),
	}
}

// truncateToDate drops the time-of-day so that all date arithmetic and
// persistence work on UTC midnights.
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
