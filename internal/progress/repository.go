package progress

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

// repository contains the repositories for the progress domain aggregates.
type repository struct {
	measurements measurementRepository
	meds         medRepository
}

// measurementRepository handles body measurement persistence.
type measurementRepository interface {
	Create(ctx context.Context, userID int64, m Measurement) (Measurement, error)
	Latest(ctx context.Context, userID int64) (Measurement, error)
	ListSince(ctx context.Context, userID int64, since time.Time) ([]Measurement, error)
}

// medRepository handles medication log persistence.
type medRepository interface {
	Create(ctx context.Context, userID int64, e MedEntry) (MedEntry, error)
	ListSince(ctx context.Context, userID int64, since time.Time) ([]MedEntry, error)
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
		measurements: newSQLiteMeasurementRepository(f.db, f.logger),
		meds:         newSQLiteMedRepository(f.db, f.logger),
	}
}
