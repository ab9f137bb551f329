package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cyclecoach/internal/advice"
	"cyclecoach/internal/errors"
	"cyclecoach/internal/flightrecorder"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
	"cyclecoach/internal/report"
	"cyclecoach/internal/schedule"
	"cyclecoach/internal/sheets"
	"cyclecoach/internal/sqlite"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	updateTimeoutSeconds = 60

	// slowUpdateThreshold is how long an update may take before a trace is
	// captured for diagnosis.
	slowUpdateThreshold = 15 * time.Second
)

// Options carries the collaborators of the bot. Advice, Sheets and Recorder
// may be nil when the deployment does not configure them.
type Options struct {
	Planner  *planner.Service
	Progress *progress.Service
	Advice   *advice.Service
	Sheets   *sheets.Service
	Reports  *report.Service
	Recorder *flightrecorder.Service
	Logger   *slog.Logger
}

// Bot runs the Telegram update loop and the reminder scheduler.
type Bot struct {
	api      *tgbotapi.BotAPI
	db       *sqlite.Database
	repo     *repository
	planner  *planner.Service
	progress *progress.Service
	advice   *advice.Service
	sheets   *sheets.Service
	reports  *report.Service
	recorder *flightrecorder.Service
	logger   *slog.Logger

	mu        sync.Mutex
	scheduler *schedule.Scheduler
}

// New connects to the Telegram API and assembles the bot.
func New(token string, db *sqlite.Database, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "connect to telegram")
	}

	factory := newRepositoryFactory(db, opts.Logger)
	return &Bot{
		api:      api,
		db:       db,
		repo:     factory.newRepository(),
		planner:  opts.Planner,
		progress: opts.Progress,
		advice:   opts.Advice,
		sheets:   opts.Sheets,
		reports:  opts.Reports,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}, nil
}

// Run processes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.rebuildSchedules(ctx); err != nil {
		// Reminders are best effort at startup, commands still work.
		b.logger.LogAttrs(ctx, slog.LevelWarn, "rebuild schedules", errors.SlogError(err))
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.LogAttrs(ctx, slog.LevelInfo, "bot started",
		slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.stopScheduler()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.stopScheduler()
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update. A panicking handler must not take the
// whole loop down.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "handler panic",
				errors.SlogError(errors.DecoratePanic(recovered)))
		}
		if b.recorder != nil && time.Since(started) > slowUpdateThreshold {
			b.recorder.CaptureTimeoutTrace(ctx)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

// resolveUser upserts the sender and returns it along with their local date.
func (b *Bot) resolveUser(ctx context.Context, from *tgbotapi.User, chatID int64) (User, time.Time, error) {
	user, err := b.repo.users.Upsert(ctx, User{
		ID:     from.ID,
		Name:   strings.TrimSpace(from.FirstName + " " + from.LastName),
		ChatID: chatID,
	})
	if err != nil {
		return User{}, time.Time{}, errors.Wrap(err, "upsert user")
	}

	location, err := time.LoadLocation(user.Timezone)
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "invalid user timezone, falling back to UTC",
			slog.Int64("user_id", user.ID),
			slog.String("timezone", user.Timezone))
		location = time.UTC
	}
	return user, time.Now().In(location), nil
}

// reply sends a plain text message.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "send message", errors.SlogError(err))
	}
}

// replyError logs err and sends a generic failure message.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	b.logger.LogAttrs(ctx, slog.LevelError, "handler failed", errors.SlogError(err))
	b.reply(ctx, chatID, "Something went wrong, try again.")
}

func (b *Bot) stopScheduler() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scheduler != nil {
		b.scheduler.Stop()
		b.scheduler = nil
	}
}

// rebuildSchedules replaces the scheduler with one reflecting the current
// reminder settings of every user, plus the report defaults.
func (b *Bot) rebuildSchedules(ctx context.Context) error {
	users, err := b.repo.users.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list users")
	}

	scheduler := schedule.NewScheduler(b.logger)
	for _, user := range users {
		raw, remindersErr := b.repo.prefs.Reminders(ctx, user.ID)
		if remindersErr != nil {
			return errors.Wrap(remindersErr, "load reminders", slog.Int64("user_id", user.ID))
		}
		reminders, parseErr := schedule.ParseReminders(raw)
		if parseErr != nil {
			b.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring malformed reminders",
				slog.Int64("user_id", user.ID), errors.SlogError(parseErr))
			reminders = schedule.Reminders{}
		}

		u := user
		scheduler.AddReminders(reminders, func(kind string) {
			b.sendReminder(u, kind)
		})
		if err = scheduler.AddDailyReport(func() { b.sendDailyReport(u) }); err != nil {
			return errors.Wrap(err, "schedule daily report", slog.Int64("user_id", user.ID))
		}
		if err = scheduler.AddWeeklyReport(func() { b.sendWeeklyReport(u) }); err != nil {
			return errors.Wrap(err, "schedule weekly report", slog.Int64("user_id", user.ID))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	b.scheduler = scheduler
	scheduler.Start()

	b.logger.LogAttrs(ctx, slog.LevelInfo, "schedules rebuilt", slog.Int("users", len(users)))
	return nil
}
