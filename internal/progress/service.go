package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cyclecoach/internal/sqlite"
)

// Service handles the business logic for progress tracking.
type Service struct {
	repo   *repository
	logger *slog.Logger
}

// NewService creates a new progress service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:   factory.newRepository(),
		logger: logger,
	}
}

// AddMeasurement stores a measurement entry for a user.
func (s *Service) AddMeasurement(ctx context.Context, userID int64, m Measurement) (Measurement, error) {
	created, err := s.repo.measurements.Create(ctx, userID, m)
	if err != nil {
		return Measurement{}, fmt.Errorf("add measurement: %w", err)
	}
	return created, nil
}

// LatestMeasurement returns the most recent measurement entry.
func (s *Service) LatestMeasurement(ctx context.Context, userID int64) (Measurement, error) {
	m, err := s.repo.measurements.Latest(ctx, userID)
	if err != nil {
		return Measurement{}, fmt.Errorf("latest measurement: %w", err)
	}
	return m, nil
}

// MeasurementsSince returns measurements on or after since, oldest first.
func (s *Service) MeasurementsSince(ctx context.Context, userID int64, since time.Time) ([]Measurement, error) {
	measurements, err := s.repo.measurements.ListSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return measurements, nil
}

// AddMed stores a medication entry for a user.
func (s *Service) AddMed(ctx context.Context, userID int64, e MedEntry) (MedEntry, error) {
	if e.Name == "" {
		return MedEntry{}, errors.New("med entry name is required")
	}
	created, err := s.repo.meds.Create(ctx, userID, e)
	if err != nil {
		return MedEntry{}, fmt.Errorf("add med entry: %w", err)
	}
	return created, nil
}

// MedsSince returns medication entries on or after since, oldest first.
func (s *Service) MedsSince(ctx context.Context, userID int64, since time.Time) ([]MedEntry, error) {
	entries, err := s.repo.meds.ListSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list med entries: %w", err)
	}
	return entries, nil
}

// WeightChange reports the weight delta between the first and last measurement
// with a weight figure in the period starting at since. The second return is
// false when fewer than two weights were logged.
func (s *Service) WeightChange(ctx context.Context, userID int64, since time.Time) (float64, bool, error) {
	measurements, err := s.repo.measurements.ListSince(ctx, userID, since)
	if err != nil {
		return 0, false, fmt.Errorf("list measurements: %w", err)
	}

	var first, last *float64
	for _, m := range measurements {
		if m.Weight == nil {
			continue
		}
		if first == nil {
			first = m.Weight
		}
		last = m.Weight
	}
	if first == nil || first == last {
		return 0, false, nil
	}
	return *last - *first, true, nil
}
