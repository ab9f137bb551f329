// Package sheets imports the workout plan from a published Google Sheet. The
// sheet has three tabs exported as CSV: exercise rows, macro targets and the
// cycle order.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cyclecoach/internal/plan"
)

const defaultBaseURL = "https://docs.google.com"

// Config identifies the sheet and its tabs.
type Config struct {
	SheetID   string
	GIDPlan   string
	GIDMacros string
	GIDCycle  string
}

// Service fetches and converts the sheet into a workout plan.
type Service struct {
	config  Config
	client  *http.Client
	baseURL string
	plans   *plan.FileRepository
	logger  *slog.Logger
}

// NewService creates a new sheet import service writing to the given plan
// repository's file.
func NewService(config Config, plans *plan.FileRepository, logger *slog.Logger) *Service {
	return &Service{
		config:  config,
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: defaultBaseURL,
		plans:   plans,
		logger:  logger,
	}
}

// Sync fetches the sheet, validates the resulting plan and writes it to the
// plan file. The previous file is left untouched when anything fails.
func (s *Service) Sync(ctx context.Context) (plan.WorkoutPlan, error) {
	var planRows, macroRows, cycleRows []map[string]string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		if planRows, err = s.fetchRows(groupCtx, s.config.GIDPlan); err != nil {
			return fmt.Errorf("fetch plan tab: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if macroRows, err = s.fetchRows(groupCtx, s.config.GIDMacros); err != nil {
			return fmt.Errorf("fetch macros tab: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if cycleRows, err = s.fetchRows(groupCtx, s.config.GIDCycle); err != nil {
			return fmt.Errorf("fetch cycle tab: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return plan.WorkoutPlan{}, err
	}

	workoutPlan := assemblePlan(planRows, macroRows, cycleRows)
	if err := workoutPlan.Validate(); err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("imported plan invalid: %w", err)
	}

	if err := plan.Write(s.plans.Path(), workoutPlan); err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("write imported plan: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "imported plan from sheet",
		slog.Int("workouts", len(workoutPlan.Workouts)),
		slog.Int("cycle_length", len(workoutPlan.CycleOrder)))
	return workoutPlan, nil
}

// fetchRows downloads one CSV tab and returns its rows as header-keyed maps.
func (s *Service) fetchRows(ctx context.Context, gid string) ([]map[string]string, error) {
	url := fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv&gid=%s", s.baseURL, s.config.SheetID, gid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch csv: unexpected status %d", resp.StatusCode)
	}
	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// parseCSV reads a CSV document into one map per record, keyed by the header
// row. Short records are tolerated, missing cells read as empty strings.
func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	var rows []map[string]string
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, column := range header {
			var value string
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			row[strings.TrimSpace(column)] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// assemblePlan converts the three tabs into a workout plan. Rows missing a
// workout key, level or exercise name are dropped rather than failing the
// whole import.
func assemblePlan(planRows, macroRows, cycleRows []map[string]string) plan.WorkoutPlan {
	workouts := make(map[string]plan.Workout)
	for _, row := range planRows {
		key := row["workout_key"]
		level := strings.ToLower(row["level"])
		name := row["name"]
		if key == "" || level == "" || name == "" {
			continue
		}

		workout, ok := workouts[key]
		if !ok {
			workout = plan.Workout{Title: key}
		}
		if title := row["title"]; title != "" {
			workout.Title = title
		}

		exercise := plan.Exercise{
			Name:   name,
			Sets:   row["sets"],
			Reps:   row["reps"],
			Weight: row["weight"],
		}
		switch plan.Level(level) {
		case plan.LevelEasy:
			workout.Easy = append(workout.Easy, exercise)
		case plan.LevelMedium:
			workout.Medium = append(workout.Medium, exercise)
		case plan.LevelHard:
			workout.Hard = append(workout.Hard, exercise)
		default:
			continue
		}
		workouts[key] = workout
	}

	var macros plan.DayMacros
	for _, row := range macroRows {
		m := plan.Macros{
			Kcal:    parseInt(row["kcal"]),
			Protein: parseInt(row["protein"]),
			Fat:     parseInt(row["fat"]),
			Carbs:   parseInt(row["carbs"]),
		}
		switch strings.ToLower(row["day_type"]) {
		case "train":
			macros.Train = m
		case "rest":
			macros.Rest = m
		}
	}

	var cycleOrder []string
	for _, row := range cycleRows {
		if key := row["workout_key"]; key != "" {
			cycleOrder = append(cycleOrder, key)
		}
	}

	return plan.WorkoutPlan{
		CycleOrder: cycleOrder,
		Macros:     macros,
		Workouts:   workouts,
	}
}

// parseInt reads an integer cell, treating anything unparseable as zero.
func parseInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
