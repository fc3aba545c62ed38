package weather

import (
	"math"

	"github.com/talgya/world-api/internal/environment"
)

// Precipitation rates treated as full intensity, in mm per hour.
const (
	heavyRain = 7.6
	heavySnow = 4.0
)

// Apply maps real weather conditions onto the hub. Nil conditions leave the
// hub untouched.
func Apply(h *environment.Hub, c *Conditions) {
	if c == nil {
		return
	}

	h.SetTemperature(c.Temp)
	h.SetHumidity(clamp01(c.Humidity / 100))

	wind := h.Wind()
	wind.X = c.WindDeg
	wind.Y = c.WindSpeed
	wind.Z = 0
	if c.WindSpeed > 0 && c.WindGust > c.WindSpeed {
		wind.Z = clamp01(c.WindGust/c.WindSpeed - 1)
	}
	h.SetWind(wind)

	h.SetCloudPower(clamp01(c.Clouds / 100))
	h.SetRainPower(intensity(c.IsRain, c.Rain1h, heavyRain))
	h.SetSnowPower(intensity(c.IsSnow, c.Snow1h, heavySnow))

	thunder := 0.0
	if c.IsThunder {
		thunder = 1
	} else if c.IsStorm {
		thunder = 0.3
	}
	h.SetThunderPower(thunder)

	fog := 0.0
	if c.IsFog {
		fog = 0.8
	}
	h.SetFogDistancePower(fog)
}

// intensity returns a 0..1 precipitation power. Precipitation that was
// reported without an amount counts as moderate.
func intensity(falling bool, mmPerHour, heavy float64) float64 {
	if mmPerHour > 0 {
		return clamp01(mmPerHour / heavy)
	}
	if falling {
		return 0.5
	}
	return 0
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
