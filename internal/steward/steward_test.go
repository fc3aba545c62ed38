package steward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func observation(season string, hour, temp, humidity float64) *Observation {
	obs := &Observation{}
	obs.Status.Active = true
	obs.Status.Season = season
	obs.Status.TimeOfDay = hour
	obs.State.Temperature = temp
	obs.State.Humidity = humidity
	return obs
}

func TestInWindowWraps(t *testing.T) {
	cases := []struct {
		h, from, to float64
		want        bool
	}{
		{6, 5, 8, true},
		{8, 5, 8, false},
		{23, 22, 4, true},
		{2, 22, 4, true},
		{12, 22, 4, false},
	}
	for _, c := range cases {
		if got := inWindow(c.h, c.from, c.to); got != c.want {
			t.Errorf("inWindow(%g, %g, %g) = %v, want %v", c.h, c.from, c.to, got, c.want)
		}
	}
}

func TestDecideFirstMatchWins(t *testing.T) {
	s := DefaultSchedule()

	d := Decide(s, observation("Winter", 6, -2, 0.5), "")
	if d.Action != "preset" || d.Preset != "snow" || d.Rule != "winter-snow" {
		t.Fatalf("winter decision = %+v", d)
	}

	d = Decide(s, observation("winter", 6, 4, 0.5), "")
	if d.Preset != "fog" {
		t.Fatalf("mild winter dawn preset = %q, want fog", d.Preset)
	}

	d = Decide(s, observation("Summer", 16, 25, 0.9), "")
	if d.Preset != "storm" {
		t.Fatalf("humid summer afternoon preset = %q, want storm", d.Preset)
	}

	d = Decide(s, observation("Summer", 16, 25, 0.4), "")
	if d.Preset != "clear" || d.Rule != "default" {
		t.Fatalf("dry summer decision = %+v, want default clear", d)
	}
}

func TestDecideSkipsRepeatsAndInactiveHub(t *testing.T) {
	s := DefaultSchedule()
	if d := Decide(s, observation("Winter", 6, -2, 0.5), "snow"); d.Action != "none" {
		t.Fatalf("repeat decision = %+v, want none", d)
	}

	obs := observation("Winter", 6, -2, 0.5)
	obs.Status.Active = false
	if d := Decide(s, obs, ""); d.Action != "none" || d.Rationale != "hub inactive" {
		t.Fatalf("inactive decision = %+v", d)
	}

	if d := Decide(Schedule{}, obs, ""); d.Action != "none" {
		t.Fatalf("empty schedule decision = %+v", d)
	}
}

func TestLoadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `
default: clear
rules:
  - name: night
    preset: fog
    from: 22
    to: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSchedule(path)
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if len(s.Rules) != 1 || s.Default != "clear" || *s.Rules[0].From != 22 {
		t.Fatalf("schedule = %+v", s)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules:\n  - name: x\n    from: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSchedule(bad); err == nil {
		t.Fatal("expected validation error")
	}

	if s, err := LoadSchedule(""); err != nil || len(s.Rules) == 0 {
		t.Fatalf("empty path: %v, %d rules", err, len(s.Rules))
	}
}

func TestMemoryRing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	m := LoadMemory(path)
	for i := 0; i < maxRecords+3; i++ {
		m.Record(CycleRecord{Frame: uint64(i), Action: "preset", Preset: "fog"})
	}
	m.Record(CycleRecord{Action: "preset", Preset: "snow"})
	m.Save()

	loaded := LoadMemory(path)
	if len(loaded.Records) != maxRecords {
		t.Fatalf("records = %d, want %d", len(loaded.Records), maxRecords)
	}
	if got := loaded.LastApplied(); got != "snow" {
		t.Fatalf("LastApplied = %q, want snow", got)
	}
}

// fakeHub serves status, state and preset endpoints.
type fakeHub struct {
	mu      sync.Mutex
	applied []string
	auth    string
}

func (f *fakeHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"name": "worldhub", "frame": 7, "active": true,
			"season": "Winter", "time_of_day": 6.5,
		})
	})
	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"active": true, "temperature": -4.0, "humidity": 0.7})
	})
	mux.HandleFunc("/api/v1/preset", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = r.Header.Get("Authorization")
		var req struct {
			Apply string `json:"apply"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Apply == "missing" {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		f.applied = append(f.applied, req.Apply)
		json.NewEncoder(w).Encode(map[string]any{"name": req.Apply, "fields": map[string]float64{"snow_power": 1}})
	})
	return mux
}

func TestCycleAppliesOnce(t *testing.T) {
	fake := &fakeHub{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	s := &Steward{
		Observer: NewObserver(srv.URL),
		Actor:    NewActor(srv.URL, "secret"),
		Schedule: DefaultSchedule(),
		Memory:   LoadMemory(filepath.Join(t.TempDir(), "memory.json")),
	}
	ctx := context.Background()

	d, err := s.Cycle(ctx)
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if d.Action != "preset" || d.Preset != "snow" {
		t.Fatalf("decision = %+v", d)
	}
	d, err = s.Cycle(ctx)
	if err != nil {
		t.Fatalf("second Cycle: %v", err)
	}
	if d.Action != "none" {
		t.Fatalf("second decision = %+v, want none", d)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.applied) != 1 || fake.applied[0] != "snow" {
		t.Fatalf("applied = %v", fake.applied)
	}
	if fake.auth != "Bearer secret" {
		t.Fatalf("authorization = %q", fake.auth)
	}
	if s.Memory.Records[0].Frame != 7 {
		t.Fatalf("recorded frame = %d", s.Memory.Records[0].Frame)
	}
}

func TestApplyReportsStatus(t *testing.T) {
	srv := httptest.NewServer((&fakeHub{}).handler())
	defer srv.Close()

	p, err := NewActor(srv.URL, "k").Apply(context.Background(), "fog")
	if err != nil || p.Name != "fog" {
		t.Fatalf("Apply = %+v, %v", p, err)
	}
	if _, err := NewActor(srv.URL, "k").Apply(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing preset")
	}
}

func TestWaitReady(t *testing.T) {
	srv := httptest.NewServer((&fakeHub{}).handler())
	defer srv.Close()

	s := &Steward{Observer: NewObserver(srv.URL)}
	if err := s.WaitReady(context.Background()); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	down := &Steward{Observer: NewObserver("http://127.0.0.1:1")}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := down.WaitReady(ctx); err == nil {
		t.Fatal("expected timeout")
	}
}
