// Package plan loads the workout plan file: the rotation of workouts, the
// exercise lists per difficulty level, and the macro targets per day type.
package plan

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyCycle is returned when the plan has no cycle order. This is broken
// deployment data, callers must not retry.
var ErrEmptyCycle = errors.New("plan: cycle order is empty")

// Level is the difficulty tier of an exercise list.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Macros are the daily targets in kilocalories and grams.
type Macros struct {
	Kcal    int `yaml:"kcal"`
	Protein int `yaml:"protein"`
	Fat     int `yaml:"fat"`
	Carbs   int `yaml:"carbs"`
}

// DayMacros holds the macro targets for each day type.
type DayMacros struct {
	Train Macros `yaml:"train"`
	Rest  Macros `yaml:"rest"`
}

// Exercise is a single line of a workout. Sets, reps and weight are display
// strings, the bot does not compute with them.
type Exercise struct {
	Name   string `yaml:"name"`
	Sets   string `yaml:"sets"`
	Reps   string `yaml:"reps"`
	Weight string `yaml:"weight"`
}

// Workout is one entry of the rotation with its three difficulty tiers.
type Workout struct {
	Title  string     `yaml:"title"`
	Easy   []Exercise `yaml:"easy"`
	Medium []Exercise `yaml:"medium"`
	Hard   []Exercise `yaml:"hard"`
}

// WorkoutPlan is the immutable plan a resolution call works against.
type WorkoutPlan struct {
	CycleOrder []string           `yaml:"cycle_order"`
	Macros     DayMacros          `yaml:"macros"`
	Workouts   map[string]Workout `yaml:"workouts"`
}

// Title returns the display title for a workout key, falling back to the key
// itself when the workout has no title.
func (p WorkoutPlan) Title(workoutKey string) string {
	workout, ok := p.Workouts[workoutKey]
	if !ok || workout.Title == "" {
		return workoutKey
	}
	return workout.Title
}

// Exercises returns the exercise list for a workout key at a difficulty level.
func (p WorkoutPlan) Exercises(workoutKey string, level Level) []Exercise {
	workout, ok := p.Workouts[workoutKey]
	if !ok {
		return nil
	}
	switch level {
	case LevelEasy:
		return workout.Easy
	case LevelMedium:
		return workout.Medium
	case LevelHard:
		return workout.Hard
	}
	return nil
}

// Validate checks the plan shape at the boundary so that resolution logic can
// trust it: a non-empty cycle whose keys exist and non-negative macro figures.
func (p WorkoutPlan) Validate() error {
	if len(p.CycleOrder) == 0 {
		return ErrEmptyCycle
	}
	for _, key := range p.CycleOrder {
		if _, ok := p.Workouts[key]; !ok {
			return fmt.Errorf("plan: cycle order references unknown workout %q", key)
		}
	}
	for dayType, macros := range map[string]Macros{"train": p.Macros.Train, "rest": p.Macros.Rest} {
		if macros.Kcal < 0 || macros.Protein < 0 || macros.Fat < 0 || macros.Carbs < 0 {
			return fmt.Errorf("plan: negative macro target for %s days", dayType)
		}
	}
	return nil
}

// Parse decodes and validates a plan document.
func Parse(data []byte) (WorkoutPlan, error) {
	var p WorkoutPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return WorkoutPlan{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return WorkoutPlan{}, err
	}
	return p, nil
}

// Load reads and parses the plan file at path.
func Load(path string) (WorkoutPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return WorkoutPlan{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// Write serialises a plan back to the file, used by the sheet import.
func Write(path string, p WorkoutPlan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}
	return nil
}

// FileRepository serves the plan from a file on every call so that an updated
// file (e.g. after a sheet import) takes effect without a restart.
type FileRepository struct {
	path string
}

// NewFileRepository creates a plan repository backed by the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Plan loads and validates the current plan.
func (r *FileRepository) Plan() (WorkoutPlan, error) {
	return Load(r.path)
}

// Path returns the location of the plan file.
func (r *FileRepository) Path() string {
	return r.path
}
