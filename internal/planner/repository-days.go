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

// sqliteDayRepository implements dayRepository.
type sqliteDayRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newSQLiteDayRepository creates a new SQLite-backed calendar day repository.
func newSQLiteDayRepository(db *sqlite.Database, logger *slog.Logger) *sqliteDayRepository {
	return &sqliteDayRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the calendar day for a specific date.
func (r *sqliteDayRepository) Get(ctx context.Context, userID int64, date time.Time) (Day, error) {
	day, err := r.scanDay(r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT date, day_type, status, workout_key, kcal, protein, fat, carbs
		FROM calendar_days
		WHERE user_id = ? AND date = ?`, userID, date.Format(dateFormat)))
	if errors.Is(err, sql.ErrNoRows) {
		return Day{}, ErrNotFound
	}
	if err != nil {
		return Day{}, fmt.Errorf("query calendar day: %w", err)
	}
	return day, nil
}

// Latest retrieves the most recent calendar day regardless of gaps. The max
// date is the only history the resolver consults.
func (r *sqliteDayRepository) Latest(ctx context.Context, userID int64) (Day, error) {
	day, err := r.scanDay(r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT date, day_type, status, workout_key, kcal, protein, fat, carbs
		FROM calendar_days
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Day{}, ErrNotFound
	}
	if err != nil {
		return Day{}, fmt.Errorf("query latest calendar day: %w", err)
	}
	return day, nil
}

// Upsert inserts the day unless a row for the date already exists and returns
// the persisted row. The insert-or-ignore-then-read shape makes concurrent
// first-of-the-day resolutions converge on whichever write landed first.
func (r *sqliteDayRepository) Upsert(ctx context.Context, userID int64, day Day) (Day, error) {
	var workoutKey sql.NullString
	if day.WorkoutKey != nil {
		workoutKey = sql.NullString{String: *day.WorkoutKey, Valid: true}
	}

	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO calendar_days (user_id, date, day_type, status, workout_key, kcal, protein, fat, carbs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO NOTHING`,
		userID, day.Date.Format(dateFormat), string(day.Type), string(day.Status), workoutKey,
		day.Macros.Kcal, day.Macros.Protein, day.Macros.Fat, day.Macros.Carbs)
	if err != nil {
		return Day{}, fmt.Errorf("insert calendar day: %w", err)
	}

	persisted, err := r.Get(ctx, userID, day.Date)
	if err != nil {
		return Day{}, fmt.Errorf("read back calendar day: %w", err)
	}
	return persisted, nil
}

// ListRange retrieves the calendar days in [from, to], oldest first.
func (r *sqliteDayRepository) ListRange(ctx context.Context, userID int64, from, to time.Time) ([]Day, error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT date, day_type, status, workout_key, kcal, protein, fat, carbs
		FROM calendar_days
		WHERE user_id = ? AND date BETWEEN ? AND ?
		ORDER BY date`,
		userID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query calendar days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var (
			day        Day
			dateStr    string
			dayType    string
			status     string
			workoutKey sql.NullString
		)
		if err = rows.Scan(&dateStr, &dayType, &status, &workoutKey,
			&day.Macros.Kcal, &day.Macros.Protein, &day.Macros.Fat, &day.Macros.Carbs); err != nil {
			return nil, fmt.Errorf("scan calendar day: %w", err)
		}
		if day.Date, err = time.Parse(dateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("parse calendar day date: %w", err)
		}
		day.Type = DayType(dayType)
		day.Status = Status(status)
		if workoutKey.Valid {
			day.WorkoutKey = &workoutKey.String
		}
		days = append(days, day)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar days: %w", err)
	}
	return days, nil
}

// MarkSkippedBefore flips every planned day older than date to skipped and
// returns how many rows changed. Running it twice is a no-op the second time.
func (r *sqliteDayRepository) MarkSkippedBefore(ctx context.Context, userID int64, date time.Time) (int64, error) {
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		UPDATE calendar_days
		SET status = 'skipped', updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')
		WHERE user_id = ? AND date < ? AND status = 'planned'`,
		userID, date.Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("mark skipped before %s: %w", date.Format(dateFormat), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// SetStatus updates the status of an existing calendar day.
func (r *sqliteDayRepository) SetStatus(ctx context.Context, userID int64, date time.Time, status Status) error {
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		UPDATE calendar_days
		SET status = ?, updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')
		WHERE user_id = ? AND date = ?`,
		string(status), userID, date.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("set calendar day status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDay reads one calendar day row.
func (r *sqliteDayRepository) scanDay(row *sql.Row) (Day, error) {
	var (
		day        Day
		dateStr    string
		dayType    string
		status     string
		workoutKey sql.NullString
	)
	err := row.Scan(
		&dateStr,
		&dayType,
		&status,
		&workoutKey,
		&day.Macros.Kcal,
		&day.Macros.Protein,
		&day.Macros.Fat,
		&day.Macros.Carbs,
	)
	if err != nil {
		return Day{}, err
	}

	date, err := time.Parse(dateFormat, dateStr)
	if err != nil {
		return Day{}, fmt.Errorf("parse calendar day date: %w", err)
	}
	day.Date = date
	day.Type = DayType(dayType)
	day.Status = Status(status)
	if workoutKey.Valid {
		day.WorkoutKey = &workoutKey.String
	}
	return day, nil
}
