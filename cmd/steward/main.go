// Command steward runs the scheduled environment steward. It observes the
// hub, picks a preset from a rule table and applies it via the admin API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/world-api/internal/config"
	"github.com/talgya/world-api/internal/steward"
)

type stewardConfig struct {
	APIURL     string        `env:"WORLDAPI_STEWARD_API_URL" envDefault:"http://localhost:8080"`
	AdminKey   string        `env:"WORLDAPI_ADMIN_KEY"`
	Interval   time.Duration `env:"WORLDAPI_STEWARD_INTERVAL" envDefault:"10m"`
	RulesPath  string        `env:"WORLDAPI_STEWARD_RULES"`
	MemoryPath string        `env:"WORLDAPI_STEWARD_MEMORY" envDefault:"data/steward_memory.json"`
	Wait       time.Duration `env:"WORLDAPI_STEWARD_WAIT" envDefault:"5m"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var cfg stewardConfig
	if err := config.ParseEnv(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.AdminKey == "" {
		slog.Error("WORLDAPI_ADMIN_KEY is required")
		os.Exit(1)
	}
	if cfg.Interval < time.Minute {
		cfg.Interval = time.Minute
	}

	schedule, err := steward.LoadSchedule(cfg.RulesPath)
	if err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}

	slog.Info("steward starting",
		"api_url", cfg.APIURL,
		"interval", cfg.Interval,
		"rules", len(schedule.Rules),
	)

	s := &steward.Steward{
		Observer: steward.NewObserver(cfg.APIURL),
		Actor:    steward.NewActor(cfg.APIURL, cfg.AdminKey),
		Schedule: schedule,
		Memory:   steward.LoadMemory(cfg.MemoryPath),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Process start does not mean the HTTP listener is up.
	slog.Info("waiting for world API...")
	wctx, wcancel := context.WithTimeout(ctx, cfg.Wait)
	err = s.WaitReady(wctx)
	wcancel()
	if err != nil {
		slog.Error("world API did not become ready", "error", err)
		os.Exit(1)
	}

	// Run first cycle immediately.
	runCycle(ctx, s)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, s)
		case <-ctx.Done():
			slog.Info("received signal, shutting down")
			fmt.Println("Steward stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, s *steward.Steward) {
	slog.Info("steward cycle starting")
	cctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	d, err := s.Cycle(cctx)
	if err != nil {
		slog.Error("steward cycle failed", "error", err)
		return
	}
	if d.Action == "none" {
		slog.Info("steward cycle complete, no change", "reason", d.Rationale)
		return
	}
	slog.Info("preset applied", "preset", d.Preset, "rule", d.Rule)
}
