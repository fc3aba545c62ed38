package engine

import (
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// Clock is an extension that advances the hub's game time every frame.
type Clock struct {
	FrameInterval time.Duration `json:"frame_interval"` // real time per frame
	TimeScale     float64       `json:"time_scale"`     // game seconds per real second

	// OnNewDay is called with the new game time when the calendar day rolls
	// over.
	OnNewDay func(t time.Time) `json:"-"`

	hub *environment.Hub
}

// NewClock returns a clock for frames of the given interval.
func NewClock(interval time.Duration, scale float64) *Clock {
	return &Clock{FrameInterval: interval, TimeScale: scale}
}

// ExtensionKind implements environment.Kinded.
func (c *Clock) ExtensionKind() string { return "engine.clock" }

// Attach implements environment.Attacher.
func (c *Clock) Attach(h *environment.Hub) { c.hub = h }

// Step returns the game time added per frame.
func (c *Clock) Step() time.Duration {
	return time.Duration(float64(c.FrameInterval) * c.TimeScale)
}

// Update advances the game time by one step.
func (c *Clock) Update() {
	step := c.Step()
	if c.hub == nil || step == 0 {
		return
	}
	prev := c.hub.GameTime()
	next := prev.Add(step)
	c.hub.SetGameTime(next)

	py, pm, pd := prev.Date()
	ny, nm, nd := next.Date()
	if c.OnNewDay != nil && (py != ny || pm != nm || pd != nd) {
		c.OnNewDay(next)
	}
}

// LateUpdate implements environment.Extension.
func (c *Clock) LateUpdate() {}

func init() {
	environment.RegisterExtension("engine.clock", func() environment.Extension { return &Clock{} })
}
