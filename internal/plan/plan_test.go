package plan_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cyclecoach/internal/plan"

	"github.com/google/go-cmp/cmp"
)

const validPlanYAML = `
cycle_order: [upper_a, lower_a]
macros:
  train: {kcal: 2200, protein: 180, fat: 70, carbs: 200}
  rest: {kcal: 1900, protein: 170, fat: 65, carbs: 150}
workouts:
  upper_a:
    title: Upper body A
    easy:
      - {name: Bench press, sets: "3", reps: "8-10", weight: "40kg"}
    medium:
      - {name: Bench press, sets: "4", reps: "8-10", weight: "50kg"}
    hard:
      - {name: Bench press, sets: "5", reps: "6-8", weight: "60kg"}
  lower_a:
    title: Lower body A
    medium:
      - {name: Squat, sets: "4", reps: "8", weight: "60kg"}
`

func TestParse(t *testing.T) {
	t.Parallel()

	p, err := plan.Parse([]byte(validPlanYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantOrder := []string{"upper_a", "lower_a"}
	if diff := cmp.Diff(wantOrder, p.CycleOrder); diff != "" {
		t.Errorf("cycle order mismatch (-want +got):\n%s", diff)
	}

	wantTrain := plan.Macros{Kcal: 2200, Protein: 180, Fat: 70, Carbs: 200}
	if diff := cmp.Diff(wantTrain, p.Macros.Train); diff != "" {
		t.Errorf("train macros mismatch (-want +got):\n%s", diff)
	}

	if got := p.Title("upper_a"); got != "Upper body A" {
		t.Errorf("Title(upper_a) = %q, want %q", got, "Upper body A")
	}
	if got := p.Title("unknown"); got != "unknown" {
		t.Errorf("Title(unknown) = %q, want key fallback", got)
	}

	exercises := p.Exercises("upper_a", plan.LevelHard)
	if len(exercises) != 1 || exercises[0].Sets != "5" {
		t.Errorf("Exercises(upper_a, hard) = %+v, want one exercise with 5 sets", exercises)
	}
	if got := p.Exercises("lower_a", plan.LevelEasy); got != nil {
		t.Errorf("Exercises(lower_a, easy) = %+v, want nil for missing tier", got)
	}
}

func TestParse_invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "empty cycle",
			yaml:    "cycle_order: []\nworkouts: {}\n",
			wantErr: plan.ErrEmptyCycle,
		},
		{
			name:    "missing cycle",
			yaml:    "workouts: {}\n",
			wantErr: plan.ErrEmptyCycle,
		},
		{
			name: "unknown workout in cycle",
			yaml: "cycle_order: [ghost]\nworkouts: {}\n",
		},
		{
			name: "negative macros",
			yaml: "cycle_order: [a]\nworkouts: {a: {title: A}}\nmacros: {train: {kcal: -1}}\n",
		},
		{
			name: "not yaml",
			yaml: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := plan.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileRepository_roundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(validPlanYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	repo := plan.NewFileRepository(path)
	p, err := repo.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// A rewrite of the file is visible on the next call without reloading.
	p.CycleOrder = []string{"lower_a"}
	if err := plan.Write(path, p); err != nil {
		t.Fatalf("Write: %v", err)
	}
	updated, err := repo.Plan()
	if err != nil {
		t.Fatalf("Plan after write: %v", err)
	}
	if diff := cmp.Diff([]string{"lower_a"}, updated.CycleOrder); diff != "" {
		t.Errorf("cycle order after rewrite (-want +got):\n%s", diff)
	}
}

func TestLoad_missingFile(t *testing.T) {
	t.Parallel()

	_, err := plan.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load succeeded, want error for missing file")
	}
}
