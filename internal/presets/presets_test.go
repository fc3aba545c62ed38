package presets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/quasilyte/gdata/v2"

	"github.com/talgya/world-api/internal/environment"
)

func newHub() *environment.Hub {
	return environment.New(environment.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func testManager(t *testing.T) *gdata.Manager {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	m, err := gdata.Open(gdata.Config{
		AppName: fmt.Sprintf("worldapi_presets_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Skipf("cannot create gdata manager: %v", err)
	}
	return m
}

func TestApplyPreset(t *testing.T) {
	h := newHub()
	h.SetGameTime(time.Date(2024, time.November, 2, 15, 0, 0, 0, time.UTC))
	h.LateTick()

	p, err := mustStore(t, nil).Load("fog")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Apply(h, p); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if h.FogHeightMax() != 60 || h.Humidity() != 0.95 || h.TimeDecimal() != 6.5 {
		t.Fatalf("fog=%v humidity=%v time=%v", h.FogHeightMax(), h.Humidity(), h.TimeDecimal())
	}
	want := environment.FogChanged | environment.WindChanged | environment.TempHumidityChanged | environment.GameTimeChanged
	if h.Dirty() != want {
		t.Fatalf("dirty = %s, want %s", h.Dirty(), want)
	}
}

func TestApplyRejectsUnknownField(t *testing.T) {
	h := newHub()
	err := Apply(h, Preset{Name: "odd", Fields: map[string]float64{"rain_power": 1, "gravity": 9.8}})
	if !errors.Is(err, environment.ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
	if h.RainPower() != 0 {
		t.Fatalf("preset partially applied")
	}
}

func TestCaptureFrom(t *testing.T) {
	h := newHub()
	h.SetCloudPower(0.6)
	h.SetDecimalTime(20.25)

	p := CaptureFrom(h, "dusk")
	if len(p.Fields) != len(environment.Fields()) || p.Fields["cloud_power"] != 0.6 {
		t.Fatalf("captured = %+v", p)
	}
	if p.Time == nil || *p.Time != 20.25 {
		t.Fatalf("time = %v", p.Time)
	}

	only := CaptureFrom(h, "clouds", environment.FieldCloudPower)
	if len(only.Fields) != 1 || only.Time != nil {
		t.Fatalf("partial capture = %+v", only)
	}
}

func mustStore(t *testing.T, m *gdata.Manager) *Store {
	t.Helper()
	s, err := NewStore(m)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestMemoryStore(t *testing.T) {
	s := mustStore(t, nil)
	if !slices.Equal(s.Names(), []string{"clear", "fog", "snow", "storm"}) {
		t.Fatalf("names = %v", s.Names())
	}
	if err := s.Save(Preset{Name: "Bad Name"}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
	if err := s.Save(Preset{Name: "odd", Fields: map[string]float64{"gravity": 1}}); !errors.Is(err, environment.ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
	if _, err := s.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("clear"); err == nil {
		t.Fatalf("deleted a built-in preset")
	}

	custom := Preset{Name: "storm", Fields: map[string]float64{"rain_power": 0.2}}
	if err := s.Save(custom); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p, _ := s.Load("storm"); p.Fields["rain_power"] != 0.2 {
		t.Fatalf("override not stored: %+v", p)
	}
	if err := s.Delete("storm"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p, _ := s.Load("storm"); p.Fields["rain_power"] != 1 {
		t.Fatalf("built-in not restored: %+v", p)
	}
}

func TestStorePersists(t *testing.T) {
	m := testManager(t)
	s := mustStore(t, m)
	night := Preset{Name: "night", Description: "clear night", Time: ptr(23), Fields: map[string]float64{"moon_phase": 1}}
	if err := s.Save(night); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := mustStore(t, m)
	got, err := reopened.Load("night")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Description != "clear night" || got.Fields["moon_phase"] != 1 || got.Time == nil || *got.Time != 23 {
		t.Fatalf("reloaded = %+v", got)
	}

	if err := reopened.Delete("night"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := mustStore(t, m).Load("night"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted preset came back: %v", err)
	}
}
