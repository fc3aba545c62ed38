package presets

func ptr(v float64) *float64 { return &v }

// Builtin returns the presets every store starts with.
func Builtin() []Preset {
	return []Preset{
		{
			Name:        "clear",
			Description: "calm sunny day",
			Fields: map[string]float64{
				"cloud_power": 0.1, "rain_power": 0, "snow_power": 0, "hail_power": 0,
				"thunder_power": 0, "fog_height_power": 0, "fog_distance_power": 0,
				"wind_speed": 2, "wind_turbulence": 0.1,
			},
		},
		{
			Name:        "storm",
			Description: "heavy rain with thunder",
			Fields: map[string]float64{
				"cloud_power": 1, "rain_power": 1, "rain_power_terrain": 1, "thunder_power": 1,
				"wind_speed": 18, "wind_turbulence": 0.8, "fog_distance_power": 0.4,
			},
		},
		{
			Name:        "fog",
			Description: "dense morning fog",
			Time:        ptr(6.5),
			Fields: map[string]float64{
				"fog_height_power": 0.9, "fog_height_max": 60, "fog_distance_power": 0.8,
				"fog_distance_max": 150, "wind_speed": 0.5, "humidity": 0.95,
			},
		},
		{
			Name:        "snow",
			Description: "steady snowfall",
			Fields: map[string]float64{
				"temperature": -5, "snow_power": 0.7, "snow_power_terrain": 1, "snow_age": 0,
				"cloud_power": 0.9, "rain_power": 0, "wind_speed": 4,
			},
		},
	}
}

func builtin(name string) (Preset, bool) {
	for _, p := range Builtin() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
