package steward

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Steward runs observe, decide and act cycles.
type Steward struct {
	Observer *Observer
	Actor    *Actor
	Schedule Schedule
	Memory   *Memory
}

// Cycle executes one observe → decide → act cycle.
func (s *Steward) Cycle(ctx context.Context) (Decision, error) {
	obs, err := s.Observer.Observe(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("observe: %w", err)
	}

	decision := Decide(s.Schedule, obs, s.Memory.LastApplied())
	slog.Info("decision made",
		"action", decision.Action,
		"preset", decision.Preset,
		"rule", decision.Rule,
		"rationale", decision.Rationale,
	)

	if decision.Action == "preset" {
		if _, err := s.Actor.Apply(ctx, decision.Preset); err != nil {
			return decision, fmt.Errorf("act: %w", err)
		}
		s.Memory.Record(CycleRecord{
			Frame:     obs.Status.Frame,
			At:        time.Now().UTC(),
			Action:    decision.Action,
			Preset:    decision.Preset,
			Rule:      decision.Rule,
			Rationale: decision.Rationale,
		})
		s.Memory.Save()
	}
	return decision, nil
}

// WaitReady polls the API with exponential backoff until it responds or
// ctx is done.
func (s *Steward) WaitReady(ctx context.Context) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	for {
		if s.Observer.Ready(ctx) {
			slog.Info("world API is ready")
			return nil
		}
		slog.Info("world API not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for API: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
