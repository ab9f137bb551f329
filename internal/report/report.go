// Package report assembles daily and weekly summaries as markdown and renders
// them to standalone HTML documents.
package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DailyData is the input of a daily summary.
type DailyData struct {
	Day          planner.Day
	WorkoutTitle string
	Latest       *progress.Measurement
}

// WeeklyData is the input of a weekly summary.
type WeeklyData struct {
	From         time.Time
	To           time.Time
	Days         []planner.Day
	WeightDelta  *float64
	Measurements []progress.Measurement
}

// Service renders summaries.
type Service struct {
	md     goldmark.Markdown
	outDir string
	logger *slog.Logger
}

// NewService creates a report service writing HTML documents under outDir.
func NewService(outDir string, logger *slog.Logger) *Service {
	return &Service{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		outDir: outDir,
		logger: logger,
	}
}

// Daily renders the end-of-day summary as markdown.
func (s *Service) Daily(data DailyData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Day summary %s\n\n", data.Day.Date.Format(time.DateOnly))
	b.WriteString(dayLine(data.Day, data.WorkoutTitle))
	fmt.Fprintf(&b, "\n\nMacros: %d kcal, protein %dg, fat %dg, carbs %dg\n",
		data.Day.Macros.Kcal, data.Day.Macros.Protein, data.Day.Macros.Fat, data.Day.Macros.Carbs)

	if data.Latest != nil {
		fmt.Fprintf(&b, "\nLast measurement (%s):%s\n",
			data.Latest.Date.Format(time.DateOnly), measurementLine(*data.Latest))
	}
	return b.String()
}

// Weekly renders the week-in-review summary as markdown.
func (s *Service) Weekly(data WeeklyData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Week in review %s to %s\n\n",
		data.From.Format(time.DateOnly), data.To.Format(time.DateOnly))

	trained := 0
	b.WriteString("| Date | Day | Status |\n|---|---|---|\n")
	for _, day := range data.Days {
		label := string(day.Type)
		if day.Type == planner.DayTypeTrain {
			if day.WorkoutKey != nil {
				label = "train " + *day.WorkoutKey
			}
			if day.Status == planner.StatusDone {
				trained++
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", day.Date.Format(time.DateOnly), label, day.Status)
	}

	fmt.Fprintf(&b, "\nWorkouts completed: %d\n", trained)
	if data.WeightDelta != nil {
		fmt.Fprintf(&b, "\nWeight change over the week: %+.1f kg\n", *data.WeightDelta)
	}
	if len(data.Measurements) > 0 {
		b.WriteString("\n## Measurements\n\n")
		for _, m := range data.Measurements {
			fmt.Fprintf(&b, "- %s:%s\n", m.Date.Format(time.DateOnly), measurementLine(m))
		}
	}
	return b.String()
}

// WriteHTML renders markdown to a full HTML document under the output
// directory and returns the file path.
func (s *Service) WriteHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	if err := os.MkdirAll(s.outDir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	document := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`, title, body.String())

	path := filepath.Join(s.outDir, uuid.New().String()+".html")
	if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

func dayLine(day planner.Day, workoutTitle string) string {
	if day.Type == planner.DayTypeRest {
		return fmt.Sprintf("Rest day, status **%s**.", day.Status)
	}
	title := workoutTitle
	if title == "" && day.WorkoutKey != nil {
		title = *day.WorkoutKey
	}
	return fmt.Sprintf("Training day %s, status **%s**.", title, day.Status)
}

func measurementLine(m progress.Measurement) string {
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
	if len(parts) == 0 {
		return " no figures"
	}
	return strings.Join(parts, ",")
}
