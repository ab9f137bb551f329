package report_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/planner"
	"cyclecoach/internal/progress"
	"cyclecoach/internal/report"
	"cyclecoach/internal/testhelpers"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func TestService_Daily(t *testing.T) {
	t.Parallel()
	svc := report.NewService(t.TempDir(), testhelpers.NewLogger(testhelpers.NewWriter(t)))

	key := "upper_a"
	md := svc.Daily(report.DailyData{
		Day: planner.Day{
			Date:       day(3),
			Type:       planner.DayTypeTrain,
			Status:     planner.StatusDone,
			WorkoutKey: &key,
			Macros:     plan.Macros{Kcal: 2200, Protein: 180, Fat: 70, Carbs: 200},
		},
		WorkoutTitle: "Upper body A",
		Latest:       &progress.Measurement{Date: day(1), Weight: ptr(92.5), Waist: ptr(101)},
	})

	for _, want := range []string{
		"# Day summary 2026-03-03",
		"Upper body A",
		"**done**",
		"2200 kcal",
		"weight 92.5kg",
		"waist 101.0cm",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("daily markdown missing %q:\n%s", want, md)
		}
	}
}

func TestService_Daily_restWithoutMeasurement(t *testing.T) {
	t.Parallel()
	svc := report.NewService(t.TempDir(), testhelpers.NewLogger(testhelpers.NewWriter(t)))

	md := svc.Daily(report.DailyData{
		Day: planner.Day{
			Date:   day(4),
			Type:   planner.DayTypeRest,
			Status: planner.StatusPlanned,
			Macros: plan.Macros{Kcal: 1900, Protein: 170, Fat: 65, Carbs: 150},
		},
	})

	if !strings.Contains(md, "Rest day") {
		t.Errorf("rest markdown missing rest marker:\n%s", md)
	}
	if strings.Contains(md, "Last measurement") {
		t.Errorf("rest markdown mentions measurement without data:\n%s", md)
	}
}

func TestService_Weekly(t *testing.T) {
	t.Parallel()
	svc := report.NewService(t.TempDir(), testhelpers.NewLogger(testhelpers.NewWriter(t)))

	keyA, keyB := "A", "B"
	md := svc.Weekly(report.WeeklyData{
		From: day(1),
		To:   day(7),
		Days: []planner.Day{
			{Date: day(1), Type: planner.DayTypeTrain, Status: planner.StatusDone, WorkoutKey: &keyA},
			{Date: day(2), Type: planner.DayTypeRest, Status: planner.StatusSkipped},
			{Date: day(3), Type: planner.DayTypeTrain, Status: planner.StatusDone, WorkoutKey: &keyB},
			{Date: day(4), Type: planner.DayTypeTrain, Status: planner.StatusSkipped, WorkoutKey: &keyB},
		},
		WeightDelta: ptr(-1.3),
		Measurements: []progress.Measurement{
			{Date: day(1), Weight: ptr(92.5)},
			{Date: day(7), Weight: ptr(91.2)},
		},
	})

	for _, want := range []string{
		"# Week in review 2026-03-01",
		"| 2026-03-01 | train A | done |",
		"| 2026-03-02 | rest | skipped |",
		"Workouts completed: 2",
		"Weight change over the week: -1.3 kg",
		"- 2026-03-07: weight 91.2kg",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("weekly markdown missing %q:\n%s", want, md)
		}
	}
}

func TestService_WriteHTML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	svc := report.NewService(dir, testhelpers.NewLogger(testhelpers.NewWriter(t)))

	path, err := svc.WriteHTML("Week in review", "# Week in review\n\nSolid week.\n")
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".html") {
		t.Errorf("report path = %q, want .html file under %q", path, dir)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{
		"<title>Week in review</title>",
		"<h1>Week in review</h1>",
		"Solid week.",
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("report HTML missing %q:\n%s", want, content)
		}
	}

	// Each document gets its own file name.
	second, err := svc.WriteHTML("Week in review", "# again\n")
	if err != nil {
		t.Fatalf("second WriteHTML: %v", err)
	}
	if second == path {
		t.Error("second report reused the first file name")
	}
}
