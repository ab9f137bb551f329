package sheets

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cyclecoach/internal/plan"
	"cyclecoach/internal/testhelpers"

	"github.com/google/go-cmp/cmp"
)

const (
	planCSV = `workout_key,title,level,name,sets,reps,weight
upper_a,Upper body A,easy,Bench press,3,8-10,40kg
upper_a,,medium,Bench press,4,8-10,50kg
upper_a,,medium,Row,4,10,45kg
lower_a,Lower body A,medium,Squat,4,8,60kg
,,medium,Orphan row,3,10,
upper_a,,unknown_level,Dip,3,10,
`
	macrosCSV = `day_type,kcal,protein,fat,carbs
train,2200,180,70,200
rest,1900,170,65,150
brunch,9000,1,1,1
`
	cycleCSV = `workout_key
upper_a
lower_a

upper_a
`
)

func newTestService(t *testing.T, handler http.Handler) (*Service, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	svc := NewService(
		Config{SheetID: "sheet-1", GIDPlan: "0", GIDMacros: "1", GIDCycle: "2"},
		plan.NewFileRepository(planPath),
		testhelpers.NewLogger(testhelpers.NewWriter(t)),
	)
	svc.baseURL = server.URL
	svc.client = server.Client()
	return svc, planPath
}

func sheetHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tabs := map[string]string{"0": planCSV, "1": macrosCSV, "2": cycleCSV}
		csv, ok := tabs[r.URL.Query().Get("gid")]
		if !ok {
			t.Errorf("unexpected gid in request: %s", r.URL.String())
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(csv))
	})
}

func TestService_Sync(t *testing.T) {
	svc, planPath := newTestService(t, sheetHandler(t))

	imported, err := svc.Sync(t.Context())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if diff := cmp.Diff([]string{"upper_a", "lower_a", "upper_a"}, imported.CycleOrder); diff != "" {
		t.Errorf("cycle order (-want +got):\n%s", diff)
	}

	wantMacros := plan.DayMacros{
		Train: plan.Macros{Kcal: 2200, Protein: 180, Fat: 70, Carbs: 200},
		Rest:  plan.Macros{Kcal: 1900, Protein: 170, Fat: 65, Carbs: 150},
	}
	if diff := cmp.Diff(wantMacros, imported.Macros); diff != "" {
		t.Errorf("macros (-want +got):\n%s", diff)
	}

	upperA, ok := imported.Workouts["upper_a"]
	if !ok {
		t.Fatal("imported plan missing upper_a")
	}
	if upperA.Title != "Upper body A" {
		t.Errorf("upper_a title = %q, want %q", upperA.Title, "Upper body A")
	}
	if len(upperA.Easy) != 1 || len(upperA.Medium) != 2 || len(upperA.Hard) != 0 {
		t.Errorf("upper_a tiers = %d/%d/%d, want 1/2/0", len(upperA.Easy), len(upperA.Medium), len(upperA.Hard))
	}
	if _, ok = imported.Workouts[""]; ok {
		t.Error("orphan row without workout key was imported")
	}

	// The written file round-trips through the plan loader.
	loaded, err := plan.Load(planPath)
	if err != nil {
		t.Fatalf("Load written plan: %v", err)
	}
	if diff := cmp.Diff(imported, loaded); diff != "" {
		t.Errorf("written plan differs from imported (-imported +loaded):\n%s", diff)
	}
}

func TestService_Sync_emptyCycleLeavesFileUntouched(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gid") == "2" {
			_, _ = w.Write([]byte("workout_key\n"))
			return
		}
		_, _ = w.Write([]byte(planCSV))
	})
	svc, planPath := newTestService(t, handler)

	if _, err := svc.Sync(t.Context()); err == nil {
		t.Fatal("Sync with empty cycle succeeded, want error")
	}
	if _, err := os.Stat(planPath); !os.IsNotExist(err) {
		t.Errorf("plan file was written despite invalid import: %v", err)
	}
}

func TestService_Sync_httpError(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))

	if _, err := svc.Sync(t.Context()); err == nil {
		t.Fatal("Sync against failing server succeeded, want error")
	}
}
