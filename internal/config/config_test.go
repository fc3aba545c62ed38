package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DBPath != "data/world.db" {
		t.Fatalf("expected derived db path, got %q", cfg.DBPath)
	}
	if cfg.Mode() != environment.NotifyDeferred {
		t.Fatalf("expected deferred mode, got %s", cfg.Mode())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldhub.yaml")
	body := "port: 9090\nnotify_mode: Immediate\nframe_interval: 250ms\nlatitude: -33.9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORLDAPI_PORT", "9191")
	t.Setenv("WORLDAPI_TIME_SCALE", "10")
	t.Setenv("WORLDAPI_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9191 {
		t.Fatalf("env should override file port, got %d", cfg.Port)
	}
	if cfg.FrameInterval != 250*time.Millisecond {
		t.Fatalf("frame interval = %s", cfg.FrameInterval)
	}
	if cfg.TimeScale != 10 {
		t.Fatalf("time scale = %g", cfg.TimeScale)
	}
	if cfg.Latitude != -33.9 {
		t.Fatalf("latitude = %g", cfg.Latitude)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.Mode() != environment.NotifyImmediate {
		t.Fatalf("expected immediate mode, got %s", cfg.Mode())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("notify_mode: sometimes\nlatitude: 120\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "latitude") || !strings.Contains(err.Error(), "sometimes") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNormalizeRepairsRanges(t *testing.T) {
	cfg := Config{Port: 1, FrameInterval: -1, TimeScale: -5, WeatherPoll: time.Second}
	cfg.Normalize()
	if cfg.FrameInterval != 100*time.Millisecond {
		t.Fatalf("frame interval = %s", cfg.FrameInterval)
	}
	if cfg.TimeScale != 0 {
		t.Fatalf("time scale = %g", cfg.TimeScale)
	}
	if cfg.WeatherPoll != time.Minute {
		t.Fatalf("weather poll = %s", cfg.WeatherPoll)
	}
	if cfg.SnapshotKeep != 1 || cfg.RateLimit != 5 {
		t.Fatalf("keep=%d rate=%d", cfg.SnapshotKeep, cfg.RateLimit)
	}
}

type envTestConfig struct {
	Port int `env:"WORLDAPI_TEST_PORT" envDefault:"123"`
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("WORLDAPI_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
