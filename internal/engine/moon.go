package engine

import (
	"math"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// SynodicMonth is the mean time between two new moons.
const SynodicMonth = time.Duration(29.530588853 * 24 * float64(time.Hour))

// referenceNewMoon is a known new moon.
var referenceNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// MoonIllumination returns the lit fraction of the moon at t, 0 at new moon
// and 1 at full moon.
func MoonIllumination(t time.Time) float64 {
	month := SynodicMonth.Seconds()
	since := float64(t.Unix()-referenceNewMoon.Unix()) + float64(t.Nanosecond())/1e9
	age := math.Mod(since, month)
	if age < 0 {
		age += month
	}
	angle := 2 * math.Pi * age / month
	return (1 - math.Cos(angle)) / 2
}

// Moon is an extension that derives the moon phase from game time.
type Moon struct {
	hub *environment.Hub
}

// ExtensionKind implements environment.Kinded.
func (m *Moon) ExtensionKind() string { return "engine.moon" }

// Attach implements environment.Attacher.
func (m *Moon) Attach(h *environment.Hub) { m.hub = h }

// Update implements environment.Extension.
func (m *Moon) Update() {
	if m.hub != nil {
		m.hub.SetMoonPhase(MoonIllumination(m.hub.GameTime()))
	}
}

// LateUpdate implements environment.Extension.
func (m *Moon) LateUpdate() {}

func init() {
	environment.RegisterExtension("engine.moon", func() environment.Extension { return &Moon{} })
}
