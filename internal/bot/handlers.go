package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cyclecoach/internal/advice"
	"cyclecoach/internal/errors"
	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
	"cyclecoach/internal/report"
	"cyclecoach/internal/schedule"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	adviceHistoryDays     = 14
	adviceMeasurementDays = 30
	weeklyReportDays      = 7
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, today, err := b.resolveUser(ctx, message.From, chatID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(ctx, user)
	case "today":
		b.handleToday(ctx, user, today)
	case "progress":
		b.handleProgress(ctx, user, today, message.CommandArguments())
	case "medlog":
		b.handleMedlog(ctx, user, today, message.CommandArguments())
	case "reminder":
		b.handleReminder(ctx, user, message.CommandArguments())
	case "startdate":
		b.handleStartDate(ctx, user, today, message.CommandArguments())
	case "syncplan":
		b.handleSyncPlan(ctx, user)
	case "advice":
		b.handleAdvice(ctx, user, today)
	case "report":
		b.handleReport(ctx, user, today)
	case "ai":
		b.handleAIToggle(ctx, user, message.CommandArguments())
	case "export":
		b.handleExport(ctx, user)
	default:
		b.reply(ctx, chatID, "Unknown command. Try /today.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "answer callback", errors.SlogError(err))
	}

	chatID := callback.Message.Chat.ID
	user, today, err := b.resolveUser(ctx, callback.From, chatID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	data := callback.Data
	switch {
	case data == callbackDoneTrain:
		if err = b.planner.Complete(ctx, user.ID, today, true); err != nil {
			b.replyError(ctx, chatID, errors.Wrap(err, "complete training day"))
			return
		}
		b.reply(ctx, chatID, "Workout logged. The cycle moves on.")
	case data == callbackDoneRest:
		if err = b.planner.Complete(ctx, user.ID, today, false); err != nil {
			b.replyError(ctx, chatID, errors.Wrap(err, "complete rest day"))
			return
		}
		b.reply(ctx, chatID, "Rest day logged.")
	case data == callbackSkipToday:
		if err = b.planner.Skip(ctx, user.ID, today); err != nil {
			b.replyError(ctx, chatID, errors.Wrap(err, "skip day"))
			return
		}
		b.reply(ctx, chatID, "Day skipped. The workout waits for you.")
	case strings.HasPrefix(data, callbackLevelPrefix):
		b.handleLevel(ctx, user, today, plan.Level(strings.TrimPrefix(data, callbackLevelPrefix)))
	default:
		b.logger.LogAttrs(ctx, slog.LevelWarn, "unknown callback",
			slog.String("data", data))
	}
}

func (b *Bot) handleStart(ctx context.Context, user User) {
	if err := b.repo.prefs.Ensure(ctx, user.ID); err != nil {
		b.replyError(ctx, user.ChatID, err)
		return
	}
	b.reply(ctx, user.ChatID,
		"Hi! I plan your training days and keep track of your progress.\n"+
			"/today shows the current day, /progress and /medlog record your logs.")
}

func (b *Bot) handleToday(ctx context.Context, user User, today time.Time) {
	day, err := b.planner.Resolve(ctx, user.ID, today)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "resolve day"))
		return
	}
	workoutPlan, err := b.planner.Plan()
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "load plan"))
		return
	}

	msg := tgbotapi.NewMessage(user.ChatID, dayMessage(workoutPlan, day))
	msg.ReplyMarkup = dayKeyboard(day)
	if _, err = b.api.Send(msg); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "send day message", errors.SlogError(err))
	}
}

func (b *Bot) handleLevel(ctx context.Context, user User, today time.Time, level plan.Level) {
	day, err := b.planner.Resolve(ctx, user.ID, today)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "resolve day"))
		return
	}
	if day.Type != planner.DayTypeTrain || day.WorkoutKey == nil {
		b.reply(ctx, user.ChatID, "Today is a rest day, no workout to show.")
		return
	}
	workoutPlan, err := b.planner.Plan()
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "load plan"))
		return
	}
	b.reply(ctx, user.ChatID, workoutText(workoutPlan, *day.WorkoutKey, level))
}

func (b *Bot) handleProgress(ctx context.Context, user User, today time.Time, args string) {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, user.ChatID,
			"Send five figures: weight, waist, belly, biceps, chest.\n"+
				"Example: /progress 92.5, 101, 99, 39, 110")
		return
	}

	measurement, err := parseMeasurementInput(args, today)
	if err != nil {
		b.reply(ctx, user.ChatID, err.Error())
		return
	}
	if _, err = b.progress.AddMeasurement(ctx, user.ID, measurement); err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "add measurement"))
		return
	}
	b.reply(ctx, user.ChatID, "Progress logged.")
}

func (b *Bot) handleMedlog(ctx context.Context, user User, today time.Time, args string) {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, user.ChatID,
			"Send: name, mg, ml, optional note.\n"+
				"Example: /medlog creatine, 5000, 0, after workout")
		return
	}

	entry, err := parseMedInput(args, today)
	if err != nil {
		b.reply(ctx, user.ChatID, err.Error())
		return
	}
	if _, err = b.progress.AddMed(ctx, user.ID, entry); err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "add med entry"))
		return
	}
	b.reply(ctx, user.ChatID, "Logged.")
}

func (b *Bot) handleReminder(ctx context.Context, user User, args string) {
	kind, at, err := parseReminderInput(args)
	if err != nil {
		b.reply(ctx, user.ChatID, err.Error())
		return
	}
	switch kind {
	case schedule.ReminderWater, schedule.ReminderMotivation, schedule.ReminderSleep, schedule.ReminderWorkout:
	default:
		b.reply(ctx, user.ChatID, "Unknown reminder. Kinds: water, motivation, sleep, workout.")
		return
	}

	raw, err := b.repo.prefs.Reminders(ctx, user.ID)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "load reminders"))
		return
	}
	reminders, err := schedule.ParseReminders(raw)
	if err != nil {
		reminders = schedule.Reminders{}
	}

	if at == "off" {
		delete(reminders, kind)
	} else {
		if _, err = time.Parse("15:04", at); err != nil {
			b.reply(ctx, user.ChatID, "Time must look like 18:30.")
			return
		}
		reminders[kind] = at
	}

	encoded, err := reminders.Encode()
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "encode reminders"))
		return
	}
	if err = b.repo.prefs.Ensure(ctx, user.ID); err != nil {
		b.replyError(ctx, user.ChatID, err)
		return
	}
	if err = b.repo.prefs.SetReminders(ctx, user.ID, encoded); err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "save reminders"))
		return
	}
	if err = b.rebuildSchedules(ctx); err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "rebuild schedules"))
		return
	}

	if at == "off" {
		b.reply(ctx, user.ChatID, fmt.Sprintf("Reminder %q is off.", kind))
	} else {
		b.reply(ctx, user.ChatID, fmt.Sprintf("Reminder %q set for %s.", kind, at))
	}
}

// handleStartDate schedules or clears the program start. Days before the start
// date resolve as rest days.
func (b *Bot) handleStartDate(ctx context.Context, user User, today time.Time, args string) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "" {
		b.reply(ctx, user.ChatID, "Usage: /startdate 2026-02-02, /startdate today or /startdate off.")
		return
	}

	if arg == "off" {
		if err := b.planner.ClearStartDate(ctx, user.ID); err != nil {
			b.replyError(ctx, user.ChatID, errors.Wrap(err, "clear start date"))
			return
		}
		b.reply(ctx, user.ChatID, "Start date cleared.")
		return
	}

	start := today
	if arg != "today" {
		parsed, err := time.Parse(time.DateOnly, arg)
		if err != nil {
			b.reply(ctx, user.ChatID, "Date must look like 2026-02-02.")
			return
		}
		start = parsed
	}

	if err := b.planner.SetStartDate(ctx, user.ID, start); err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "set start date"))
		return
	}
	b.reply(ctx, user.ChatID, "Start date set to "+start.Format(time.DateOnly)+".")
}

func (b *Bot) handleSyncPlan(ctx context.Context, user User) {
	if b.sheets == nil {
		b.reply(ctx, user.ChatID, "Sheet import is not configured.")
		return
	}

	imported, err := b.sheets.Sync(ctx)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "sync plan"))
		return
	}
	b.reply(ctx, user.ChatID, fmt.Sprintf(
		"Plan imported: %d workouts, cycle of %d.",
		len(imported.Workouts), len(imported.CycleOrder)))
}

func (b *Bot) handleAdvice(ctx context.Context, user User, today time.Time) {
	if b.advice == nil {
		b.reply(ctx, user.ChatID, "AI advice is not configured.")
		return
	}
	enabled, err := b.repo.prefs.AIEnabled(ctx, user.ID)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "check ai setting"))
		return
	}
	if !enabled {
		b.reply(ctx, user.ChatID, "AI advice is switched off. Enable it with /ai on.")
		return
	}

	snapshot, err := b.buildAdviceSnapshot(ctx, user, today)
	if err != nil {
		b.replyError(ctx, user.ChatID, err)
		return
	}
	reply, err := b.advice.Advise(ctx, snapshot)
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "generate advice"))
		return
	}
	b.reply(ctx, user.ChatID, strings.TrimSpace(reply))
}

func (b *Bot) buildAdviceSnapshot(ctx context.Context, user User, today time.Time) (advice.Snapshot, error) {
	day, err := b.planner.Resolve(ctx, user.ID, today)
	if err != nil {
		return advice.Snapshot{}, errors.Wrap(err, "resolve day")
	}
	history, err := b.planner.History(ctx, user.ID, today.AddDate(0, 0, -adviceHistoryDays), today)
	if err != nil {
		return advice.Snapshot{}, errors.Wrap(err, "load history")
	}
	since := today.AddDate(0, 0, -adviceMeasurementDays)
	measurements, err := b.progress.MeasurementsSince(ctx, user.ID, since)
	if err != nil {
		return advice.Snapshot{}, errors.Wrap(err, "load measurements")
	}
	meds, err := b.progress.MedsSince(ctx, user.ID, since)
	if err != nil {
		return advice.Snapshot{}, errors.Wrap(err, "load med entries")
	}

	snapshot := advice.Snapshot{
		Day:          day,
		History:      history,
		Measurements: measurements,
		Meds:         meds,
	}
	if day.WorkoutKey != nil {
		if workoutPlan, planErr := b.planner.Plan(); planErr == nil {
			snapshot.WorkoutTitle = workoutPlan.Title(*day.WorkoutKey)
		}
	}
	return snapshot, nil
}

func (b *Bot) handleReport(ctx context.Context, user User, today time.Time) {
	path, err := b.buildWeeklyReport(ctx, user, today)
	if err != nil {
		b.replyError(ctx, user.ChatID, err)
		return
	}

	document := tgbotapi.NewDocument(user.ChatID, tgbotapi.FilePath(path))
	if _, err = b.api.Send(document); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "send report document", errors.SlogError(err))
	}
}

func (b *Bot) handleAIToggle(ctx context.Context, user User, args string) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		if err := b.repo.prefs.SetAIEnabled(ctx, user.ID, true); err != nil {
			b.replyError(ctx, user.ChatID, errors.Wrap(err, "enable ai"))
			return
		}
		b.reply(ctx, user.ChatID, "AI advice is on.")
	case "off":
		if err := b.repo.prefs.SetAIEnabled(ctx, user.ID, false); err != nil {
			b.replyError(ctx, user.ChatID, errors.Wrap(err, "disable ai"))
			return
		}
		b.reply(ctx, user.ChatID, "AI advice is off.")
	default:
		b.reply(ctx, user.ChatID, "Usage: /ai on or /ai off.")
	}
}

// handleExport sends the user a SQLite file with all their stored data.
func (b *Bot) handleExport(ctx context.Context, user User) {
	path, err := b.db.ExportUserData(ctx, user.ID, os.TempDir())
	if err != nil {
		b.replyError(ctx, user.ChatID, errors.Wrap(err, "export user data"))
		return
	}
	document := tgbotapi.NewDocument(user.ChatID, tgbotapi.FilePath(path))
	if _, err = b.api.Send(document); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "send export document", errors.SlogError(err))
	}
}

// buildWeeklyReport renders the last week as an HTML document and returns its
// path.
func (b *Bot) buildWeeklyReport(ctx context.Context, user User, today time.Time) (string, error) {
	from := today.AddDate(0, 0, -(weeklyReportDays - 1))
	days, err := b.planner.History(ctx, user.ID, from, today)
	if err != nil {
		return "", errors.Wrap(err, "load week history")
	}
	measurements, err := b.progress.MeasurementsSince(ctx, user.ID, from)
	if err != nil {
		return "", errors.Wrap(err, "load week measurements")
	}

	data := report.WeeklyData{
		From:         from,
		To:           today,
		Days:         days,
		Measurements: measurements,
	}
	if delta, ok, deltaErr := b.progress.WeightChange(ctx, user.ID, from); deltaErr == nil && ok {
		data.WeightDelta = &delta
	}

	markdown := b.reports.Weekly(data)
	path, err := b.reports.WriteHTML("Week in review", markdown)
	if err != nil {
		return "", errors.Wrap(err, "write weekly report")
	}
	return path, nil
}

// sendReminder fires from the scheduler, outside any update context.
func (b *Bot) sendReminder(user User, kind string) {
	ctx := context.Background()
	b.reply(ctx, user.ChatID, reminderText(kind))
}

// sendDailyReport posts the end-of-day summary as a text message.
func (b *Bot) sendDailyReport(user User) {
	ctx := context.Background()
	today := b.userToday(ctx, user)

	day, err := b.planner.Resolve(ctx, user.ID, today)
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "daily report resolve", errors.SlogError(err))
		return
	}

	data := report.DailyData{Day: day}
	if day.WorkoutKey != nil {
		if workoutPlan, planErr := b.planner.Plan(); planErr == nil {
			data.WorkoutTitle = workoutPlan.Title(*day.WorkoutKey)
		}
	}
	if latest, latestErr := b.progress.LatestMeasurement(ctx, user.ID); latestErr == nil {
		data.Latest = &latest
	} else if !errors.Is(latestErr, progress.ErrNotFound) {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "daily report measurement", errors.SlogError(latestErr))
	}

	b.reply(ctx, user.ChatID, b.reports.Daily(data))
}

// sendWeeklyReport posts the week-in-review HTML document.
func (b *Bot) sendWeeklyReport(user User) {
	ctx := context.Background()
	today := b.userToday(ctx, user)

	path, err := b.buildWeeklyReport(ctx, user, today)
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "weekly report", errors.SlogError(err))
		return
	}
	document := tgbotapi.NewDocument(user.ChatID, tgbotapi.FilePath(path))
	if _, err = b.api.Send(document); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelError, "send weekly report", errors.SlogError(err))
	}
}

func (b *Bot) userToday(ctx context.Context, user User) time.Time {
	location, err := time.LoadLocation(user.Timezone)
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "invalid user timezone, falling back to UTC",
			slog.Int64("user_id", user.ID),
			slog.String("timezone", user.Timezone))
		location = time.UTC
	}
	return time.Now().In(location)
}

func reminderText(kind string) string {
	switch kind {
	case schedule.ReminderWater:
		return "Time to drink some water."
	case schedule.ReminderMotivation:
		return "Small steps every day. Keep going."
	case schedule.ReminderSleep:
		return "Wind down, sleep fuels recovery."
	case schedule.ReminderWorkout:
		return "Workout time. Check /today for the plan."
	}
	return "Reminder: " + kind
}
