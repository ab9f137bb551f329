package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cyclecoach/internal/sqlite"
)

// sqliteMedRepository implements medRepository.
type sqliteMedRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newSQLiteMedRepository creates a new SQLite medication log repository.
func newSQLiteMedRepository(db *sqlite.Database, logger *slog.Logger) *sqliteMedRepository {
	return &sqliteMedRepository{db: db, logger: logger}
}

// Create stores a new medication entry.
func (r *sqliteMedRepository) Create(ctx context.Context, userID int64, e MedEntry) (MedEntry, error) {
	var result MedEntry
	var dateStr string
	err := r.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO med_logs (user_id, date, name, amount_mg, amount_ml, note)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, date, name, amount_mg, amount_ml, note`,
		userID, e.Date.Format(dateFormat), e.Name, e.AmountMg, e.AmountMl, e.Note).Scan(
		&result.ID, &dateStr, &result.Name, &result.AmountMg, &result.AmountMl, &result.Note)
	if err != nil {
		return MedEntry{}, fmt.Errorf("create med entry: %w", err)
	}

	if result.Date, err = time.Parse(dateFormat, dateStr); err != nil {
		return MedEntry{}, fmt.Errorf("parse med entry date: %w", err)
	}
	return result, nil
}

// ListSince retrieves medication entries on or after since, oldest first.
func (r *sqliteMedRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]MedEntry, error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, date, name, amount_mg, amount_ml, note
		FROM med_logs
		WHERE user_id = ? AND date >= ?
		ORDER BY date, id`, userID, since.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query med entries: %w", err)
	}
	defer rows.Close()

	var entries []MedEntry
	for rows.Next() {
		var e MedEntry
		var dateStr string
		if err = rows.Scan(&e.ID, &dateStr, &e.Name, &e.AmountMg, &e.AmountMl, &e.Note); err != nil {
			return nil, fmt.Errorf("scan med entry: %w", err)
		}
		if e.Date, err = time.Parse(dateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("parse med entry date: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate med entries: %w", err)
	}
	return entries, nil
}
