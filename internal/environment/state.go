package environment

import (
	"math"
	"time"
)

// Vec3 is a position or extent in world units.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vec4 packs four related parameters, mirroring how they are pushed to
// rendering backends.
type Vec4 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// State is the complete set of environment parameters owned by a Hub.
type State struct {
	Active   bool      `json:"active"`
	GameTime time.Time `json:"game_time"`

	PlayerPosition Vec3    `json:"player_position"`
	SeaLevel       float64 `json:"sea_level"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`

	SceneGroundCenter Vec3 `json:"scene_ground_center"`
	SceneCenter       Vec3 `json:"scene_center"`
	SceneSize         Vec3 `json:"scene_size"`

	Temperature float64 `json:"temperature"` // Celsius
	Humidity    float64 `json:"humidity"`

	Wind   Vec4 `json:"wind"`   // direction 0..360, speed m/s, turbulence
	Fog    Vec4 `json:"fog"`    // height power, height max, distance power, distance max
	Rain   Vec4 `json:"rain"`   // power, terrain power, min height, max height
	Hail   Vec4 `json:"hail"`   // power, terrain power, min height, max height
	Snow   Vec4 `json:"snow"`   // power, terrain power, min height, age
	Clouds Vec4 `json:"clouds"` // power, min height, max height, speed

	ThunderPower float64 `json:"thunder_power"`
	MoonPhase    float64 `json:"moon_phase"` // 0 new .. 1 full
	Season       float64 `json:"season"`     // 0 spring .. 4

	Volume Vec4 `json:"volume"` // environment, npc, animals, weather
}

// DefaultState returns an active environment with full sound volumes.
func DefaultState() State {
	return State{
		Active: true,
		Volume: Vec4{X: 1, Y: 1, Z: 1, W: 1},
	}
}

// Diff returns the categories whose fields differ between s and o.
// The activity flag is reported as ActiveChanged.
func (s State) Diff(o State) ChangeMask {
	var m ChangeMask
	if s.Active != o.Active {
		m |= ActiveChanged
	}
	if !s.GameTime.Equal(o.GameTime) {
		m |= GameTimeChanged
	}
	if !vec3Equal(s.PlayerPosition, o.PlayerPosition) {
		m |= PlayerChanged
	}
	if !floatEqual(s.SeaLevel, o.SeaLevel) {
		m |= SeaChanged
	}
	if !floatEqual(s.Latitude, o.Latitude) || !floatEqual(s.Longitude, o.Longitude) {
		m |= LatLngChanged
	}
	if !vec3Equal(s.SceneGroundCenter, o.SceneGroundCenter) ||
		!vec3Equal(s.SceneCenter, o.SceneCenter) ||
		!vec3Equal(s.SceneSize, o.SceneSize) {
		m |= SceneMetricsChanged
	}
	if !floatEqual(s.Temperature, o.Temperature) || !floatEqual(s.Humidity, o.Humidity) {
		m |= TempHumidityChanged
	}
	if !vec4Equal(s.Wind, o.Wind) {
		m |= WindChanged
	}
	if !vec4Equal(s.Fog, o.Fog) {
		m |= FogChanged
	}
	if !vec4Equal(s.Rain, o.Rain) {
		m |= RainChanged
	}
	if !vec4Equal(s.Hail, o.Hail) {
		m |= HailChanged
	}
	if !vec4Equal(s.Snow, o.Snow) {
		m |= SnowChanged
	}
	if !floatEqual(s.ThunderPower, o.ThunderPower) {
		m |= ThunderChanged
	}
	if !vec4Equal(s.Clouds, o.Clouds) {
		m |= CloudsChanged
	}
	if !floatEqual(s.MoonPhase, o.MoonPhase) {
		m |= MoonChanged
	}
	if !floatEqual(s.Season, o.Season) {
		m |= SeasonChanged
	}
	if !vec4Equal(s.Volume, o.Volume) {
		m |= VolumeChanged
	}
	return m
}

// NormalizeDegrees wraps an angle into [0, 360). Negative angles wrap
// around, so -10 becomes 350.
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return deg
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -1e-20 + 360 rounds to 360.
	if r >= 360 {
		r = 0
	}
	return r
}

// floatEqual is exact equality, except that NaN equals NaN so a stored NaN
// is not considered changed by writing NaN again.
func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func vec3Equal(a, b Vec3) bool {
	return floatEqual(a.X, b.X) && floatEqual(a.Y, b.Y) && floatEqual(a.Z, b.Z)
}

func vec4Equal(a, b Vec4) bool {
	return floatEqual(a.X, b.X) && floatEqual(a.Y, b.Y) &&
		floatEqual(a.Z, b.Z) && floatEqual(a.W, b.W)
}
