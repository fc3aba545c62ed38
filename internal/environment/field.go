package environment

import (
	"fmt"
	"strings"
)

// Field identifies one scalar environment parameter.
type Field uint8

// Scalar fields addressable by id or name.
const (
	FieldSeaLevel Field = iota + 1
	FieldLatitude
	FieldLongitude
	FieldTemperature
	FieldHumidity
	FieldWindDirection
	FieldWindSpeed
	FieldWindTurbulence
	FieldFogHeightPower
	FieldFogHeightMax
	FieldFogDistancePower
	FieldFogDistanceMax
	FieldRainPower
	FieldRainPowerTerrain
	FieldRainMinHeight
	FieldRainMaxHeight
	FieldHailPower
	FieldHailPowerTerrain
	FieldHailMinHeight
	FieldHailMaxHeight
	FieldSnowPower
	FieldSnowPowerTerrain
	FieldSnowMinHeight
	FieldSnowAge
	FieldThunderPower
	FieldCloudPower
	FieldCloudMinHeight
	FieldCloudMaxHeight
	FieldCloudSpeed
	FieldMoonPhase
	FieldSeason
	FieldVolumeEnvironment
	FieldVolumeNPC
	FieldVolumeAnimals
	FieldVolumeWeather

	fieldCount
)

type fieldDef struct {
	name      string
	category  ChangeMask
	ref       func(*State) *float64
	normalize func(float64) float64
}

var fieldDefs = [fieldCount]fieldDef{
	FieldSeaLevel:  {name: "sea_level", category: SeaChanged, ref: func(s *State) *float64 { return &s.SeaLevel }},
	FieldLatitude:  {name: "latitude", category: LatLngChanged, ref: func(s *State) *float64 { return &s.Latitude }},
	FieldLongitude: {name: "longitude", category: LatLngChanged, ref: func(s *State) *float64 { return &s.Longitude }},

	FieldTemperature: {name: "temperature", category: TempHumidityChanged, ref: func(s *State) *float64 { return &s.Temperature }},
	FieldHumidity:    {name: "humidity", category: TempHumidityChanged, ref: func(s *State) *float64 { return &s.Humidity }},

	FieldWindDirection:  {name: "wind_direction", category: WindChanged, ref: func(s *State) *float64 { return &s.Wind.X }, normalize: NormalizeDegrees},
	FieldWindSpeed:      {name: "wind_speed", category: WindChanged, ref: func(s *State) *float64 { return &s.Wind.Y }},
	FieldWindTurbulence: {name: "wind_turbulence", category: WindChanged, ref: func(s *State) *float64 { return &s.Wind.Z }},

	FieldFogHeightPower:   {name: "fog_height_power", category: FogChanged, ref: func(s *State) *float64 { return &s.Fog.X }},
	FieldFogHeightMax:     {name: "fog_height_max", category: FogChanged, ref: func(s *State) *float64 { return &s.Fog.Y }},
	FieldFogDistancePower: {name: "fog_distance_power", category: FogChanged, ref: func(s *State) *float64 { return &s.Fog.Z }},
	FieldFogDistanceMax:   {name: "fog_distance_max", category: FogChanged, ref: func(s *State) *float64 { return &s.Fog.W }},

	FieldRainPower:        {name: "rain_power", category: RainChanged, ref: func(s *State) *float64 { return &s.Rain.X }},
	FieldRainPowerTerrain: {name: "rain_power_terrain", category: RainChanged, ref: func(s *State) *float64 { return &s.Rain.Y }},
	FieldRainMinHeight:    {name: "rain_min_height", category: RainChanged, ref: func(s *State) *float64 { return &s.Rain.Z }},
	FieldRainMaxHeight:    {name: "rain_max_height", category: RainChanged, ref: func(s *State) *float64 { return &s.Rain.W }},

	FieldHailPower:        {name: "hail_power", category: HailChanged, ref: func(s *State) *float64 { return &s.Hail.X }},
	FieldHailPowerTerrain: {name: "hail_power_terrain", category: HailChanged, ref: func(s *State) *float64 { return &s.Hail.Y }},
	FieldHailMinHeight:    {name: "hail_min_height", category: HailChanged, ref: func(s *State) *float64 { return &s.Hail.Z }},
	FieldHailMaxHeight:    {name: "hail_max_height", category: HailChanged, ref: func(s *State) *float64 { return &s.Hail.W }},

	FieldSnowPower:        {name: "snow_power", category: SnowChanged, ref: func(s *State) *float64 { return &s.Snow.X }},
	FieldSnowPowerTerrain: {name: "snow_power_terrain", category: SnowChanged, ref: func(s *State) *float64 { return &s.Snow.Y }},
	FieldSnowMinHeight:    {name: "snow_min_height", category: SnowChanged, ref: func(s *State) *float64 { return &s.Snow.Z }},
	FieldSnowAge:          {name: "snow_age", category: SnowChanged, ref: func(s *State) *float64 { return &s.Snow.W }},

	FieldThunderPower: {name: "thunder_power", category: ThunderChanged, ref: func(s *State) *float64 { return &s.ThunderPower }},

	FieldCloudPower:     {name: "cloud_power", category: CloudsChanged, ref: func(s *State) *float64 { return &s.Clouds.X }},
	FieldCloudMinHeight: {name: "cloud_min_height", category: CloudsChanged, ref: func(s *State) *float64 { return &s.Clouds.Y }},
	FieldCloudMaxHeight: {name: "cloud_max_height", category: CloudsChanged, ref: func(s *State) *float64 { return &s.Clouds.Z }},
	FieldCloudSpeed:     {name: "cloud_speed", category: CloudsChanged, ref: func(s *State) *float64 { return &s.Clouds.W }},

	FieldMoonPhase: {name: "moon_phase", category: MoonChanged, ref: func(s *State) *float64 { return &s.MoonPhase }},
	FieldSeason:    {name: "season", category: SeasonChanged, ref: func(s *State) *float64 { return &s.Season }},

	FieldVolumeEnvironment: {name: "volume_environment", category: VolumeChanged, ref: func(s *State) *float64 { return &s.Volume.X }},
	FieldVolumeNPC:         {name: "volume_npc", category: VolumeChanged, ref: func(s *State) *float64 { return &s.Volume.Y }},
	FieldVolumeAnimals:     {name: "volume_animals", category: VolumeChanged, ref: func(s *State) *float64 { return &s.Volume.Z }},
	FieldVolumeWeather:     {name: "volume_weather", category: VolumeChanged, ref: func(s *State) *float64 { return &s.Volume.W }},
}

// Valid reports whether f names a known field.
func (f Field) Valid() bool {
	return f > 0 && f < fieldCount
}

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
	return fieldDefs[f].name
}

// Category returns the change category a write to f sets.
func (f Field) Category() ChangeMask {
	if !f.Valid() {
		return 0
	}
	return fieldDefs[f].category
}

// Fields returns every scalar field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := Field(1); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// ParseField resolves a field name such as "wind_direction". Case and
// surrounding whitespace are ignored; dashes are accepted for underscores.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for f := Field(1); f < fieldCount; f++ {
		if fieldDefs[f].name == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Get reads the field from a state value.
func (s *State) Get(f Field) (float64, error) {
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return *fieldDefs[f].ref(s), nil
}
