package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cyclecoach/internal/sqlite"
)

// sqliteMeasurementRepository implements measurementRepository.
type sqliteMeasurementRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newSQLiteMeasurementRepository creates a new SQLite measurement repository.
func newSQLiteMeasurementRepository(db *sqlite.Database, logger *slog.Logger) *sqliteMeasurementRepository {
	return &sqliteMeasurementRepository{db: db, logger: logger}
}

// Create stores a new measurement entry.
func (r *sqliteMeasurementRepository) Create(ctx context.Context, userID int64, m Measurement) (Measurement, error) {
	var result Measurement
	var dateStr string
	err := r.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO progress_logs (user_id, date, weight, waist, belly, biceps, chest, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, date, weight, waist, belly, biceps, chest, note`,
		userID, m.Date.Format(dateFormat), m.Weight, m.Waist, m.Belly, m.Biceps, m.Chest, m.Note).Scan(
		&result.ID,
		&dateStr,
		&result.Weight,
		&result.Waist,
		&result.Belly,
		&result.Biceps,
		&result.Chest,
		&result.Note,
	)
	if err != nil {
		return Measurement{}, fmt.Errorf("create measurement: %w", err)
	}

	if result.Date, err = time.Parse(dateFormat, dateStr); err != nil {
		return Measurement{}, fmt.Errorf("parse measurement date: %w", err)
	}
	return result, nil
}

// Latest retrieves the most recent measurement entry.
func (r *sqliteMeasurementRepository) Latest(ctx context.Context, userID int64) (Measurement, error) {
	var m Measurement
	var dateStr string
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, date, weight, waist, belly, biceps, chest, note
		FROM progress_logs
		WHERE user_id = ?
		ORDER BY date DESC, id DESC
		LIMIT 1`, userID).Scan(
		&m.ID, &dateStr, &m.Weight, &m.Waist, &m.Belly, &m.Biceps, &m.Chest, &m.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return Measurement{}, ErrNotFound
	}
	if err != nil {
		return Measurement{}, fmt.Errorf("query latest measurement: %w", err)
	}

	if m.Date, err = time.Parse(dateFormat, dateStr); err != nil {
		return Measurement{}, fmt.Errorf("parse measurement date: %w", err)
	}
	return m, nil
}

// ListSince retrieves measurements on or after since, oldest first.
func (r *sqliteMeasurementRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]Measurement, error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, date, weight, waist, belly, biceps, chest, note
		FROM progress_logs
		WHERE user_id = ? AND date >= ?
		ORDER BY date, id`, userID, since.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		var dateStr string
		if err = rows.Scan(&m.ID, &dateStr, &m.Weight, &m.Waist, &m.Belly, &m.Biceps, &m.Chest, &m.Note); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		if m.Date, err = time.Parse(dateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("parse measurement date: %w", err)
		}
		measurements = append(measurements, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return measurements, nil
}
