package weather

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/world-api/internal/environment"
)

// Gusts is an extension that lets the wind wander around a base speed and
// direction using layered simplex noise. Clouds drift at the wind speed.
type Gusts struct {
	Seed           int64   `json:"seed"`
	BaseSpeed      float64 `json:"base_speed"`      // m/s
	SpeedRange     float64 `json:"speed_range"`     // +/- m/s
	BaseDirection  float64 `json:"base_direction"`  // degrees
	DirectionRange float64 `json:"direction_range"` // +/- degrees
	MaxTurbulence  float64 `json:"max_turbulence"`
	Frequency      float64 `json:"frequency"` // noise units per frame
	Octaves        int     `json:"octaves"`
	Step           uint64  `json:"step"`

	noise     opensimplex.Noise
	noiseSeed int64
	hub       *environment.Hub
}

// NewGusts returns gusts with moderate defaults.
func NewGusts(seed int64, baseSpeed, baseDirection float64) *Gusts {
	return &Gusts{
		Seed:           seed,
		BaseSpeed:      baseSpeed,
		SpeedRange:     math.Max(1, baseSpeed*0.5),
		BaseDirection:  baseDirection,
		DirectionRange: 20,
		MaxTurbulence:  0.6,
		Frequency:      0.01,
		Octaves:        3,
	}
}

// ExtensionKind implements environment.Kinded.
func (g *Gusts) ExtensionKind() string { return "weather.gusts" }

// Attach implements environment.Attacher.
func (g *Gusts) Attach(h *environment.Hub) { g.hub = h }

// Retarget moves the base wind the gusts wander around.
func (g *Gusts) Retarget(speed, direction float64) {
	g.BaseSpeed = speed
	g.BaseDirection = environment.NormalizeDegrees(direction)
}

// Sample returns the wind at noise step n.
func (g *Gusts) Sample(n uint64) environment.Vec4 {
	if g.noise == nil || g.noiseSeed != g.Seed {
		g.noise = opensimplex.NewNormalized(g.Seed)
		g.noiseSeed = g.Seed
	}
	octaves := max(g.Octaves, 1)
	x := float64(n) * g.Frequency

	speed := g.BaseSpeed + (2*octaveNoise(g.noise, x, 0, octaves)-1)*g.SpeedRange
	dir := g.BaseDirection + (2*octaveNoise(g.noise, x, 100, octaves)-1)*g.DirectionRange
	turb := octaveNoise(g.noise, x, 200, octaves) * g.MaxTurbulence

	return environment.Vec4{
		X: environment.NormalizeDegrees(dir),
		Y: math.Max(0, speed),
		Z: turb,
	}
}

// Update advances the gusts one frame.
func (g *Gusts) Update() {
	if g.hub == nil {
		return
	}
	g.Step++
	w := g.Sample(g.Step)
	w.W = g.hub.Wind().W
	g.hub.SetWind(w)
	g.hub.SetCloudSpeed(w.Y)
}

// LateUpdate implements environment.Extension.
func (g *Gusts) LateUpdate() {}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := 1.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}

	return total / maxVal
}

func init() {
	environment.RegisterExtension("weather.gusts", func() environment.Extension { return &Gusts{} })
}
