package bot

import (
	"strings"
	"testing"
	"time"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/ptr"
)

func testWorkoutPlan() plan.WorkoutPlan {
	return plan.WorkoutPlan{
		CycleOrder: []string{"upper_a"},
		Macros: plan.DayMacros{
			Train: plan.Macros{Kcal: 2200, Protein: 180, Fat: 70, Carbs: 200},
			Rest:  plan.Macros{Kcal: 1900, Protein: 170, Fat: 65, Carbs: 150},
		},
		Workouts: map[string]plan.Workout{
			"upper_a": {
				Title: "Upper body A",
				Medium: []plan.Exercise{
					{Name: "Bench press", Sets: "4", Reps: "8-10", Weight: "50kg"},
					{Name: "Row", Sets: "4", Reps: "10"},
				},
			},
		},
	}
}

func TestDayMessage(t *testing.T) {
	t.Parallel()
	p := testWorkoutPlan()

	trainMsg := dayMessage(p, planner.Day{
		Type:       planner.DayTypeTrain,
		WorkoutKey: ptr.Ref("upper_a"),
		Macros:     p.Macros.Train,
	})
	for _, want := range []string{"Training day: Upper body A", "2200 kcal", "P 180"} {
		if !strings.Contains(trainMsg, want) {
			t.Errorf("train message missing %q:\n%s", want, trainMsg)
		}
	}

	restMsg := dayMessage(p, planner.Day{
		Type:   planner.DayTypeRest,
		Macros: p.Macros.Rest,
	})
	if !strings.Contains(restMsg, "Rest day") || !strings.Contains(restMsg, "1900 kcal") {
		t.Errorf("rest message = %q, want rest day with rest macros", restMsg)
	}
}

func TestWorkoutText(t *testing.T) {
	t.Parallel()
	p := testWorkoutPlan()

	text := workoutText(p, "upper_a", plan.LevelMedium)
	for _, want := range []string{
		"Upper body A (medium)",
		"1. Bench press: 4x8-10 (50kg)",
		"2. Row: 4x10",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("workout text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "2. Row: 4x10 (") {
		t.Errorf("weightless exercise rendered with weight:\n%s", text)
	}

	empty := workoutText(p, "upper_a", plan.LevelHard)
	if !strings.Contains(empty, "No exercises for the hard level yet.") {
		t.Errorf("empty tier text = %q", empty)
	}
}

func TestDayKeyboard(t *testing.T) {
	t.Parallel()

	train := dayKeyboard(planner.Day{Type: planner.DayTypeTrain, WorkoutKey: ptr.Ref("upper_a")})
	if len(train.InlineKeyboard) != 2 {
		t.Fatalf("train keyboard rows = %d, want 2", len(train.InlineKeyboard))
	}
	if got := *train.InlineKeyboard[0][0].CallbackData; got != "level:easy" {
		t.Errorf("first train button data = %q, want level:easy", got)
	}
	if got := *train.InlineKeyboard[1][0].CallbackData; got != callbackDoneTrain {
		t.Errorf("done button data = %q, want %q", got, callbackDoneTrain)
	}

	rest := dayKeyboard(planner.Day{Type: planner.DayTypeRest})
	if len(rest.InlineKeyboard) != 1 {
		t.Fatalf("rest keyboard rows = %d, want 1", len(rest.InlineKeyboard))
	}
	if got := *rest.InlineKeyboard[0][0].CallbackData; got != callbackDoneRest {
		t.Errorf("rest button data = %q, want %q", got, callbackDoneRest)
	}
	if got := *rest.InlineKeyboard[0][1].CallbackData; got != callbackSkipToday {
		t.Errorf("skip button data = %q, want %q", got, callbackSkipToday)
	}
}

func TestParseMeasurementInput(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	m, err := parseMeasurementInput("92.5, 101, 99; 39, 110, felt strong", date)
	if err != nil {
		t.Fatalf("parseMeasurementInput: %v", err)
	}
	if *m.Weight != 92.5 || *m.Waist != 101 || *m.Belly != 99 || *m.Biceps != 39 || *m.Chest != 110 {
		t.Errorf("figures = %v/%v/%v/%v/%v, want 92.5/101/99/39/110",
			*m.Weight, *m.Waist, *m.Belly, *m.Biceps, *m.Chest)
	}
	if m.Note != "felt strong" {
		t.Errorf("note = %q, want %q", m.Note, "felt strong")
	}
	if !m.Date.Equal(date) {
		t.Errorf("date = %v, want %v", m.Date, date)
	}

	if _, err = parseMeasurementInput("92.5, 101", date); err == nil {
		t.Error("short input parsed, want error")
	}
	if _, err = parseMeasurementInput("92.5, heavy, 99, 39, 110", date); err == nil {
		t.Error("non-numeric input parsed, want error")
	}
}

func TestParseMedInput(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	entry, err := parseMedInput("creatine, 5000, 0, after workout", date)
	if err != nil {
		t.Fatalf("parseMedInput: %v", err)
	}
	if entry.Name != "creatine" {
		t.Errorf("name = %q, want creatine", entry.Name)
	}
	if entry.AmountMg == nil || *entry.AmountMg != 5000 {
		t.Errorf("mg = %v, want 5000", entry.AmountMg)
	}
	if entry.Note != "after workout" {
		t.Errorf("note = %q, want %q", entry.Note, "after workout")
	}

	// Non-numeric amounts degrade to absent instead of failing.
	entry, err = parseMedInput("fish oil, one spoon, 5", date)
	if err != nil {
		t.Fatalf("parseMedInput with text amount: %v", err)
	}
	if entry.AmountMg != nil {
		t.Errorf("mg = %v, want nil for text amount", entry.AmountMg)
	}
	if entry.AmountMl == nil || *entry.AmountMl != 5 {
		t.Errorf("ml = %v, want 5", entry.AmountMl)
	}

	if _, err = parseMedInput("creatine", date); err == nil {
		t.Error("short input parsed, want error")
	}
}

func TestParseReminderInput(t *testing.T) {
	t.Parallel()

	kind, at, err := parseReminderInput(" Water  18:30 ")
	if err != nil {
		t.Fatalf("parseReminderInput: %v", err)
	}
	if kind != "water" || at != "18:30" {
		t.Errorf("parsed = %q %q, want water 18:30", kind, at)
	}

	if _, _, err = parseReminderInput("water"); err == nil {
		t.Error("missing time parsed, want error")
	}
	if _, _, err = parseReminderInput(""); err == nil {
		t.Error("empty input parsed, want error")
	}
}
