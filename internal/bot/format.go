package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data routed by the update loop.
const (
	callbackDoneTrain   = "done:train"
	callbackDoneRest    = "done:rest"
	callbackSkipToday   = "skip:today"
	callbackLevelPrefix = "level:"
)

// dayMessage is the /today reply: the assignment and the macro targets.
func dayMessage(workoutPlan plan.WorkoutPlan, day planner.Day) string {
	macros := fmt.Sprintf("Macros: %d kcal, P %d, F %d, C %d",
		day.Macros.Kcal, day.Macros.Protein, day.Macros.Fat, day.Macros.Carbs)

	if day.Type == planner.DayTypeTrain {
		key := ""
		if day.WorkoutKey != nil {
			key = *day.WorkoutKey
		}
		return fmt.Sprintf("Training day: %s\n%s", workoutPlan.Title(key), macros)
	}
	return fmt.Sprintf("Rest day\n%s", macros)
}

// workoutText lists the exercises of a workout at one difficulty level.
func workoutText(workoutPlan plan.WorkoutPlan, workoutKey string, level plan.Level) string {
	title := workoutPlan.Title(workoutKey)
	exercises := workoutPlan.Exercises(workoutKey, level)
	if len(exercises) == 0 {
		return fmt.Sprintf("%s\nNo exercises for the %s level yet.", title, level)
	}

	lines := []string{fmt.Sprintf("%s (%s)", title, level)}
	for i, exercise := range exercises {
		line := fmt.Sprintf("%d. %s: %sx%s", i+1, exercise.Name, exercise.Sets, exercise.Reps)
		if exercise.Weight != "" {
			line += fmt.Sprintf(" (%s)", exercise.Weight)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// dayKeyboard is the inline keyboard attached to the /today message.
func dayKeyboard(day planner.Day) tgbotapi.InlineKeyboardMarkup {
	if day.Type == planner.DayTypeTrain {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Easy", callbackLevelPrefix+"easy"),
				tgbotapi.NewInlineKeyboardButtonData("Medium", callbackLevelPrefix+"medium"),
				tgbotapi.NewInlineKeyboardButtonData("Hard", callbackLevelPrefix+"hard"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Finished workout", callbackDoneTrain),
				tgbotapi.NewInlineKeyboardButtonData("Skip day", callbackSkipToday),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Rested", callbackDoneRest),
			tgbotapi.NewInlineKeyboardButtonData("Skip day", callbackSkipToday),
		),
	)
}

// parseMeasurementInput reads the /progress arguments: five comma-separated
// figures (weight, waist, belly, biceps, chest), optionally followed by a
// note. Semicolons work as separators too.
func parseMeasurementInput(text string, date time.Time) (progress.Measurement, error) {
	parts := splitFields(text)
	if len(parts) < 5 {
		return progress.Measurement{}, errors.New("need 5 figures: weight, waist, belly, biceps, chest")
	}

	figures := make([]float64, 5)
	for i := range figures {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return progress.Measurement{}, fmt.Errorf("figure %d is not a number: %q", i+1, parts[i])
		}
		figures[i] = v
	}

	m := progress.Measurement{
		Date:   date,
		Weight: &figures[0],
		Waist:  &figures[1],
		Belly:  &figures[2],
		Biceps: &figures[3],
		Chest:  &figures[4],
	}
	if len(parts) > 5 {
		m.Note = strings.Join(parts[5:], ", ")
	}
	return m, nil
}

// parseMedInput reads the /medlog arguments: name, mg, ml and an optional
// note. Non-numeric amounts are stored as absent rather than failing.
func parseMedInput(text string, date time.Time) (progress.MedEntry, error) {
	parts := splitFields(text)
	if len(parts) < 3 {
		return progress.MedEntry{}, errors.New("need at least 3 fields: name, mg, ml")
	}

	entry := progress.MedEntry{Date: date, Name: parts[0]}
	if mg, err := strconv.ParseFloat(parts[1], 64); err == nil {
		entry.AmountMg = &mg
	}
	if ml, err := strconv.ParseFloat(parts[2], 64); err == nil {
		entry.AmountMl = &ml
	}
	if len(parts) > 3 {
		entry.Note = strings.Join(parts[3:], ", ")
	}
	return entry, nil
}

// parseReminderInput reads the /reminder arguments: a kind and an HH:MM time,
// or "off" to drop the reminder.
func parseReminderInput(text string) (kind, at string, err error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return "", "", errors.New("usage: /reminder <water|motivation|sleep|workout> <HH:MM|off>")
	}
	return strings.ToLower(fields[0]), strings.ToLower(fields[1]), nil
}

// splitFields splits comma- or semicolon-separated input and trims the parts.
func splitFields(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, ";", ","), ",")
	var parts []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
