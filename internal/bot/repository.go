// Package bot is the Telegram surface: command and callback handling, reply
// texts and the reminder wiring. Planning decisions live in internal/planner.
package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cyclecoach/internal/sqlite"
)

// ErrNotFound is returned when a requested entity is not found.
var ErrNotFound = errors.New("not found")

// User is a registered chat user. The id is the Telegram user id.
type User struct {
	ID       int64
	Name     string
	ChatID   int64
	Timezone string
}

// repository contains the repositories for the bot domain aggregates.
type repository struct {
	users userRepository
	prefs prefRepository
}

// userRepository handles user persistence.
type userRepository interface {
	Upsert(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
}

// prefRepository handles the bot-facing settings columns.
type prefRepository interface {
	Ensure(ctx context.Context, userID int64) error
	AIEnabled(ctx context.Context, userID int64) (bool, error)
	SetAIEnabled(ctx context.Context, userID int64, enabled bool) error
	Reminders(ctx context.Context, userID int64) (string, error)
	SetReminders(ctx context.Context, userID int64, raw string) error
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
		users: newSQLiteUserRepository(f.db, f.logger),
		prefs: newSQLitePrefRepository(f.db, f.logger),
	}
}

// sqliteUserRepository implements userRepository.
type sqliteUserRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newSQLiteUserRepository(db *sqlite.Database, logger *slog.Logger) *sqliteUserRepository {
	return &sqliteUserRepository{db: db, logger: logger}
}

// Upsert creates the user on first contact and refreshes the name and chat id
// afterwards. The timezone keeps its stored value once set.
func (r *sqliteUserRepository) Upsert(ctx context.Context, u User) (User, error) {
	var result User
	err := r.db.ReadWrite.QueryRowContext(ctx, `
		INSERT INTO users (id, name, chat_id)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			chat_id = excluded.chat_id
		RETURNING id, name, chat_id, timezone`,
		u.ID, u.Name, u.ChatID).Scan(&result.ID, &result.Name, &result.ChatID, &result.Timezone)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return result, nil
}

// Get retrieves a user by id.
func (r *sqliteUserRepository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, name, chat_id, timezone
		FROM users
		WHERE id = ?`, id).Scan(&u.ID, &u.Name, &u.ChatID, &u.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// List retrieves all registered users, used when rebuilding schedules.
func (r *sqliteUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, name, chat_id, timezone
		FROM users
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.ID, &u.Name, &u.ChatID, &u.Timezone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// sqlitePrefRepository implements prefRepository.
type sqlitePrefRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newSQLitePrefRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePrefRepository {
	return &sqlitePrefRepository{db: db, logger: logger}
}

// Ensure creates the default settings row if the user has none yet.
func (r *sqlitePrefRepository) Ensure(ctx context.Context, userID int64) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id)
		VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensure settings row: %w", err)
	}
	return nil
}

// AIEnabled reports whether AI advice is enabled for the user. Missing
// settings default to enabled.
func (r *sqlitePrefRepository) AIEnabled(ctx context.Context, userID int64) (bool, error) {
	var enabled int
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT ai_enabled FROM settings WHERE user_id = ?`, userID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ai_enabled: %w", err)
	}
	return enabled == 1, nil
}

// SetAIEnabled toggles AI advice for the user.
func (r *sqlitePrefRepository) SetAIEnabled(ctx context.Context, userID int64, enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id, ai_enabled)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			ai_enabled = excluded.ai_enabled,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, value)
	if err != nil {
		return fmt.Errorf("set ai_enabled: %w", err)
	}
	return nil
}

// Reminders returns the stored reminders document for the user.
func (r *sqlitePrefRepository) Reminders(ctx context.Context, userID int64) (string, error) {
	var raw string
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT reminders_json FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("query reminders: %w", err)
	}
	return raw, nil
}

// SetReminders stores the reminders document for the user.
func (r *sqlitePrefRepository) SetReminders(ctx context.Context, userID int64, raw string) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO settings (user_id, reminders_json)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			reminders_json = excluded.reminders_json,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("set reminders: %w", err)
	}
	return nil
}
