// Package engine provides the frame loop that drives an environment hub.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// DefaultInterval is the base frame interval.
const DefaultInterval = 100 * time.Millisecond

// pausePoll is how often a paused engine applies queued mutations.
const pausePoll = 100 * time.Millisecond

// Engine drives a hub forward one frame at a time. Only the goroutine
// running the engine touches the hub; other goroutines hand mutations to
// Enqueue.
type Engine struct {
	Interval time.Duration // Base frame interval (default 100ms)

	// Callbacks for each frame, populated during setup.
	OnFrame     func(frame uint64) // After extension updates, before LateTick
	OnLateFrame func(frame uint64) // After LateTick

	hub   *environment.Hub
	frame atomic.Uint64
	speed atomic.Uint64 // float64 bits; 1.0 = real-time, 0 = paused

	mu      sync.Mutex
	queue   []func(*environment.Hub)
	cancel  context.CancelFunc
	running bool

	hooks []hook
}

type hook struct {
	every uint64
	fn    func(frame uint64)
}

// NewEngine creates a frame engine for hub with default settings.
func NewEngine(hub *environment.Hub) *Engine {
	e := &Engine{
		Interval: DefaultInterval,
		hub:      hub,
	}
	e.SetSpeed(1)
	return e
}

// Hub returns the driven hub. It must only be used from the engine goroutine.
func (e *Engine) Hub() *environment.Hub { return e.hub }

// Frame returns the number of frames stepped so far.
func (e *Engine) Frame() uint64 { return e.frame.Load() }

// SetFrame resumes frame numbering, for example after loading a snapshot.
// Call before Run.
func (e *Engine) SetFrame(n uint64) { e.frame.Store(n) }

// Speed returns the frame rate multiplier.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the frame rate multiplier. Zero or negative pauses.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Every registers fn to run after every n-th frame. Hooks must be
// registered before Run.
func (e *Engine) Every(n uint64, fn func(frame uint64)) {
	if n == 0 || fn == nil {
		return
	}
	e.hooks = append(e.hooks, hook{every: n, fn: fn})
}

// Enqueue stages a hub mutation for the start of the next frame. It is safe
// to call from any goroutine.
func (e *Engine) Enqueue(fn func(*environment.Hub)) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
}

// Do enqueues fn and waits until it has run on the engine goroutine.
func (e *Engine) Do(ctx context.Context, fn func(*environment.Hub) error) error {
	done := make(chan error, 1)
	e.Enqueue(func(h *environment.Hub) { done <- fn(h) })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait for frame: %w", ctx.Err())
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the frame loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	slog.Info("frame engine started", "frame", e.Frame(), "speed", e.Speed(), "interval", e.Interval)

	for ctx.Err() == nil {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: no frames advance, but queued writes still land.
			e.idle()
			sleep(ctx, pausePoll)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the frame interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			sleep(ctx, target-elapsed)
		}
	}

	slog.Info("frame engine stopped", "frame", e.Frame())
}

// Stop halts the frame loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Step advances the hub by one frame: queued mutations, extension
// updates, OnFrame, LateTick, OnLateFrame and finally periodic hooks.
func (e *Engine) Step() {
	frame := e.frame.Add(1)

	e.apply()
	e.hub.Tick()
	if e.OnFrame != nil {
		e.OnFrame(frame)
	}
	e.hub.LateTick()
	if e.OnLateFrame != nil {
		e.OnLateFrame(frame)
	}

	for _, h := range e.hooks {
		if frame%h.every == 0 {
			h.fn(frame)
		}
	}
}

// idle applies queued mutations and delivers them without advancing a
// frame.
func (e *Engine) idle() {
	if e.apply() > 0 {
		e.hub.LateTick()
	}
}

func (e *Engine) apply() int {
	e.mu.Lock()
	queue := e.queue
	e.queue = nil
	e.mu.Unlock()

	for _, fn := range queue {
		fn(e.hub)
	}
	return len(queue)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// FormatGameTime returns a human-readable game time string.
func FormatGameTime(t time.Time, latitude float64) string {
	season := uint8(SeasonIndex(t, latitude))
	return fmt.Sprintf("%s, %s %d, %d:%02d Year %d",
		SeasonName(season), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Year())
}
