package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cyclecoach/internal/sqlite"
)

// sqliteSettingsRepository implements settingsRepository.
type sqliteSettingsRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newSQLiteSettingsRepository creates a new SQLite-backed settings repository.
func newSQLiteSettingsRepository(db *sqlite.Database, logger *slog.Logger) *sqliteSettingsRepository {
	return &sqliteSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the planning settings for a user. A missing row yields the
// defaults. An unparseable start date degrades to no start date constraint so
// that a cosmetic settings error does not block daily planning.
func (r *sqliteSettingsRepository) Get(ctx context.Context, userID int64) (Settings, error) {
	var (
		settings     Settings
		startDateStr sql.NullString
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT cycle_index, start_date
		FROM settings
		WHERE user_id = ?`, userID).Scan(&settings.CycleIndex, &startDateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}

	if startDateStr.Valid {
		startDate, parseErr := time.Parse(dateFormat, startDateStr.String)
		if parseErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring unparseable start date",
				slog.Int64("user_id", userID),
				slog.String("start_date", startDateStr.String))
		} else {
			settings.StartDate = &startDate
		}
	}

	return settings, nil
}

// SetCycleIndex stores the cycle position for a user.
func (r *sqliteSettingsRepository) SetCycleIndex(ctx context.Context, userID int64, value int) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id, cycle_index)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			cycle_index = excluded.cycle_index,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, value)
	if err != nil {
		return fmt.Errorf("set cycle index: %w", err)
	}
	return nil
}

// SetStartDate stores the program start date for a user.
func (r *sqliteSettingsRepository) SetStartDate(ctx context.Context, userID int64, date time.Time) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id, start_date)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			start_date = excluded.start_date,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, date.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("set start date: %w", err)
	}
	return nil
}

// ClearStartDate removes the program start date for a user.
func (r *sqliteSettingsRepository) ClearStartDate(ctx context.Context, userID int64) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id, start_date)
		VALUES (?, NULL)
		ON CONFLICT (user_id) DO UPDATE SET
			start_date = NULL,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID)
	if err != nil {
		return fmt.Errorf("clear start date: %w", err)
	}
	return nil
}
