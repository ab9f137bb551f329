package advice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
	"cyclecoach/internal/testhelpers"
)

type stubCompleter struct {
	reply     string
	err       error
	gotSystem string
	gotUser   string
	callCount int
}

func (s *stubCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.callCount++
	s.gotSystem = systemPrompt
	s.gotUser = userPrompt
	return s.reply, s.err
}

func testSnapshot() Snapshot {
	key := "upper_a"
	weight := 91.2
	amount := 5000.0
	return Snapshot{
		Day: planner.Day{
			Date:       time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
			Type:       planner.DayTypeTrain,
			Status:     planner.StatusPlanned,
			WorkoutKey: &key,
			Macros:     plan.Macros{Kcal: 2200, Protein: 180, Fat: 70, Carbs: 200},
		},
		WorkoutTitle: "Upper body A",
		History: []planner.Day{
			{
				Date:       time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
				Type:       planner.DayTypeTrain,
				Status:     planner.StatusDone,
				WorkoutKey: &key,
			},
			{
				Date:   time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
				Type:   planner.DayTypeRest,
				Status: planner.StatusSkipped,
			},
		},
		Measurements: []progress.Measurement{
			{Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), Weight: &weight},
		},
		Meds: []progress.MedEntry{
			{Date: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), Name: "creatine", AmountMg: &amount},
		},
	}
}

func TestService_Advise(t *testing.T) {
	stub := &stubCompleter{reply: "Push hard on the bench today."}
	svc := &Service{llm: stub, logger: testhelpers.NewLogger(testhelpers.NewWriter(t))}

	reply, err := svc.Advise(t.Context(), testSnapshot())
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if reply != stub.reply {
		t.Errorf("reply = %q, want %q", reply, stub.reply)
	}
	if stub.callCount != 1 {
		t.Errorf("completion calls = %d, want 1", stub.callCount)
	}
	if stub.gotSystem != systemPrompt {
		t.Error("system prompt was not passed through")
	}

	for _, want := range []string{
		"2026-03-03",
		"Upper body A",
		"2200 kcal, 180g protein",
		"weight 91.2kg",
		"creatine 5000mg",
		"train upper_a, done",
		"rest, skipped",
	} {
		if !strings.Contains(stub.gotUser, want) {
			t.Errorf("user prompt missing %q:\n%s", want, stub.gotUser)
		}
	}
}

func TestService_Advise_error(t *testing.T) {
	wantErr := errors.New("rate limited")
	svc := &Service{
		llm:    &stubCompleter{err: wantErr},
		logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
	}

	_, err := svc.Advise(t.Context(), testSnapshot())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Advise error = %v, want %v", err, wantErr)
	}
}

func TestBuildPrompt_restDay(t *testing.T) {
	snapshot := Snapshot{
		Day: planner.Day{
			Date:   time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC),
			Type:   planner.DayTypeRest,
			Status: planner.StatusPlanned,
			Macros: plan.Macros{Kcal: 1900, Protein: 170, Fat: 65, Carbs: 150},
		},
	}

	prompt := buildPrompt(snapshot)
	if !strings.Contains(prompt, "rest day") {
		t.Errorf("prompt missing rest day marker:\n%s", prompt)
	}
	if strings.Contains(prompt, "workout") {
		t.Errorf("rest day prompt mentions a workout:\n%s", prompt)
	}
	if strings.Contains(prompt, "measurements") {
		t.Errorf("prompt lists measurements without data:\n%s", prompt)
	}
}
