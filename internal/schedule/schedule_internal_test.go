package schedule

import (
	"testing"

	"cyclecoach/internal/testhelpers"

	"github.com/google/go-cmp/cmp"
)

func TestParseReminders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Reminders
		wantErr bool
	}{
		{name: "empty string", raw: "", want: Reminders{}},
		{name: "empty document", raw: "{}", want: Reminders{}},
		{
			name: "configured reminders",
			raw:  `{"water":"10:30","workout":"18:00"}`,
			want: Reminders{ReminderWater: "10:30", ReminderWorkout: "18:00"},
		},
		{name: "not json", raw: "water at ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReminders(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseReminders succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReminders: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("reminders mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReminders_roundTrip(t *testing.T) {
	t.Parallel()

	reminders := Reminders{ReminderSleep: "22:45"}
	encoded, err := reminders.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := ParseReminders(encoded)
	if err != nil {
		t.Fatalf("ParseReminders: %v", err)
	}
	if diff := cmp.Diff(reminders, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDailySpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hhmm    string
		want    string
		wantErr bool
	}{
		{hhmm: "10:30", want: "0 30 10 * * *"},
		{hhmm: "00:00", want: "0 0 0 * * *"},
		{hhmm: "23:59", want: "0 59 23 * * *"},
		{hhmm: "25:00", wantErr: true},
		{hhmm: "noonish", wantErr: true},
		{hhmm: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := dailySpec(tt.hhmm)
		if tt.wantErr {
			if err == nil {
				t.Errorf("dailySpec(%q) succeeded, want error", tt.hhmm)
			}
			continue
		}
		if err != nil {
			t.Errorf("dailySpec(%q): %v", tt.hhmm, err)
			continue
		}
		if got != tt.want {
			t.Errorf("dailySpec(%q) = %q, want %q", tt.hhmm, got, tt.want)
		}
	}
}

func TestScheduler_AddDaily_invalidTime(t *testing.T) {
	t.Parallel()

	s := NewScheduler(testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err := s.AddDaily("26:00", func() {}); err == nil {
		t.Fatal("AddDaily with invalid time succeeded, want error")
	}
}

func TestScheduler_AddReminders_skipsInvalid(t *testing.T) {
	t.Parallel()

	s := NewScheduler(testhelpers.NewLogger(testhelpers.NewWriter(t)))
	fired := make(map[string]bool)
	s.AddReminders(Reminders{
		ReminderWater: "10:30",
		ReminderSleep: "bedtime",
	}, func(kind string) { fired[kind] = true })

	if len(s.cron.Entries()) != 1 {
		t.Errorf("scheduled entries = %d, want 1 (invalid time skipped)", len(s.cron.Entries()))
	}
}
