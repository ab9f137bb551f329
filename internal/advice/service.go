package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
)

const systemPrompt = `You are a personal fitness coach for a chat bot. The user follows a rotating workout cycle with explicit rest days and fixed daily macro targets. You receive a snapshot of their current day, recent body measurements and supplement log. Reply with a short, concrete note for today: what to focus on in the session or recovery, and one observation about their recent trend. Keep it under 120 words, no greetings, no bullet-point spam.`

// completer is the LLM call, abstracted so tests can stub it.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Snapshot is the user state the advice is based on.
type Snapshot struct {
	Day          planner.Day
	WorkoutTitle string
	History      []planner.Day
	Measurements []progress.Measurement
	Meds         []progress.MedEntry
}

// Service generates coaching advice.
type Service struct {
	llm    completer
	logger *slog.Logger
}

// NewService creates a new advice service.
func NewService(apiKey string, logger *slog.Logger) *Service {
	return &Service{
		llm:    newLLMClient(apiKey, logger),
		logger: logger,
	}
}

// Advise generates a coaching note for the given snapshot.
func (s *Service) Advise(ctx context.Context, snapshot Snapshot) (string, error) {
	prompt := buildPrompt(snapshot)

	s.logger.LogAttrs(ctx, slog.LevelDebug, "requesting advice",
		slog.String("date", snapshot.Day.Date.Format(time.DateOnly)),
		slog.Int("prompt_length", len(prompt)))

	reply, err := s.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}
	return reply, nil
}

// buildPrompt renders the snapshot as the user message for the model.
func buildPrompt(snapshot Snapshot) string {
	var b strings.Builder

	day := snapshot.Day
	fmt.Fprintf(&b, "Date: %s\n", day.Date.Format(time.DateOnly))
	if day.Type == planner.DayTypeTrain {
		title := snapshot.WorkoutTitle
		if title == "" && day.WorkoutKey != nil {
			title = *day.WorkoutKey
		}
		fmt.Fprintf(&b, "Today: training day, workout %q, status %s\n", title, day.Status)
	} else {
		fmt.Fprintf(&b, "Today: rest day, status %s\n", day.Status)
	}
	fmt.Fprintf(&b, "Macro targets: %d kcal, %dg protein, %dg fat, %dg carbs\n",
		day.Macros.Kcal, day.Macros.Protein, day.Macros.Fat, day.Macros.Carbs)

	if len(snapshot.History) > 0 {
		b.WriteString("Recent days:\n")
		for _, d := range snapshot.History {
			if d.Type == planner.DayTypeTrain && d.WorkoutKey != nil {
				fmt.Fprintf(&b, "- %s: train %s, %s\n", d.Date.Format(time.DateOnly), *d.WorkoutKey, d.Status)
			} else {
				fmt.Fprintf(&b, "- %s: %s, %s\n", d.Date.Format(time.DateOnly), d.Type, d.Status)
			}
		}
	}

	if len(snapshot.Measurements) > 0 {
		b.WriteString("Recent measurements:\n")
		for _, m := range snapshot.Measurements {
			fmt.Fprintf(&b, "- %s:%s\n", m.Date.Format(time.DateOnly), formatMeasurement(m))
		}
	}

	if len(snapshot.Meds) > 0 {
		b.WriteString("Recent supplements/medication:\n")
		for _, e := range snapshot.Meds {
			fmt.Fprintf(&b, "- %s: %s%s\n", e.Date.Format(time.DateOnly), e.Name, formatAmount(e))
		}
	}

	return b.String()
}

func formatMeasurement(m progress.Measurement) string {
	var parts []string
	appendPart := func(label string, v *float64, unit string) {
		if v != nil {
			parts = append(parts, fmt.Sprintf(" %s %.1f%s", label, *v, unit))
		}
	}
	appendPart("weight", m.Weight, "kg")
	appendPart("waist", m.Waist, "cm")
	appendPart("belly", m.Belly, "cm")
	appendPart("biceps", m.Biceps, "cm")
	appendPart("chest", m.Chest, "cm")
	if m.Note != "" {
		parts = append(parts, fmt.Sprintf(" (%s)", m.Note))
	}
	if len(parts) == 0 {
		return " no figures"
	}
	return strings.Join(parts, ",")
}

func formatAmount(e progress.MedEntry) string {
	switch {
	case e.AmountMg != nil:
		return fmt.Sprintf(" %.0fmg", *e.AmountMg)
	case e.AmountMl != nil:
		return fmt.Sprintf(" %.0fml", *e.AmountMl)
	}
	return ""
}
