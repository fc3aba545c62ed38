package environment

import "fmt"

// SetFloat writes a scalar field. Writing the current value does nothing.
func (h *Hub) SetFloat(f Field, v float64) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	h.set(f, v)
	return nil
}

// Float reads a scalar field.
func (h *Hub) Float(f Field) (float64, error) {
	return h.state.Get(f)
}

func (h *Hub) set(f Field, v float64) {
	def := &fieldDefs[f]
	if def.normalize != nil {
		v = def.normalize(v)
	}
	p := def.ref(&h.state)
	if floatEqual(*p, v) {
		return
	}
	*p = v
	h.mark(def.category)
}

func (h *Hub) setVec3(p *Vec3, v Vec3, c ChangeMask) {
	if vec3Equal(*p, v) {
		return
	}
	*p = v
	h.mark(c)
}

func (h *Hub) setVec4(p *Vec4, v Vec4, c ChangeMask) {
	if vec4Equal(*p, v) {
		return
	}
	*p = v
	h.mark(c)
}

// PlayerPosition is the position of the object carrying the main camera.
func (h *Hub) PlayerPosition() Vec3 { return h.state.PlayerPosition }
func (h *Hub) SetPlayerPosition(v Vec3) {
	h.setVec3(&h.state.PlayerPosition, v, PlayerChanged)
}

// SceneGroundCenter is the ground level at the center of the scene.
func (h *Hub) SceneGroundCenter() Vec3 { return h.state.SceneGroundCenter }
func (h *Hub) SetSceneGroundCenter(v Vec3) {
	h.setVec3(&h.state.SceneGroundCenter, v, SceneMetricsChanged)
}

func (h *Hub) SceneCenter() Vec3 { return h.state.SceneCenter }
func (h *Hub) SetSceneCenter(v Vec3) {
	h.setVec3(&h.state.SceneCenter, v, SceneMetricsChanged)
}

func (h *Hub) SceneSize() Vec3 { return h.state.SceneSize }
func (h *Hub) SetSceneSize(v Vec3) {
	h.setVec3(&h.state.SceneSize, v, SceneMetricsChanged)
}

// Wind packs direction, speed and turbulence into X, Y and Z.
func (h *Hub) Wind() Vec4 { return h.state.Wind }

// SetWind replaces all wind parameters at once. The direction is normalized.
func (h *Hub) SetWind(v Vec4) {
	v.X = NormalizeDegrees(v.X)
	h.setVec4(&h.state.Wind, v, WindChanged)
}

func (h *Hub) Fog() Vec4        { return h.state.Fog }
func (h *Hub) SetFog(v Vec4)    { h.setVec4(&h.state.Fog, v, FogChanged) }
func (h *Hub) Rain() Vec4       { return h.state.Rain }
func (h *Hub) SetRain(v Vec4)   { h.setVec4(&h.state.Rain, v, RainChanged) }
func (h *Hub) Hail() Vec4       { return h.state.Hail }
func (h *Hub) SetHail(v Vec4)   { h.setVec4(&h.state.Hail, v, HailChanged) }
func (h *Hub) Snow() Vec4       { return h.state.Snow }
func (h *Hub) SetSnow(v Vec4)   { h.setVec4(&h.state.Snow, v, SnowChanged) }
func (h *Hub) Clouds() Vec4     { return h.state.Clouds }
func (h *Hub) SetClouds(v Vec4) { h.setVec4(&h.state.Clouds, v, CloudsChanged) }
func (h *Hub) Volume() Vec4     { return h.state.Volume }
func (h *Hub) SetVolume(v Vec4) { h.setVec4(&h.state.Volume, v, VolumeChanged) }

// SeaLevel is the sea level in world units.
func (h *Hub) SeaLevel() float64 { return h.state.SeaLevel }
func (h *Hub) SetSeaLevel(v float64) { h.set(FieldSeaLevel, v) }

func (h *Hub) Latitude() float64 { return h.state.Latitude }
func (h *Hub) SetLatitude(v float64) { h.set(FieldLatitude, v) }

func (h *Hub) Longitude() float64 { return h.state.Longitude }
func (h *Hub) SetLongitude(v float64) { h.set(FieldLongitude, v) }

// Temperature is in degrees Celsius.
func (h *Hub) Temperature() float64 { return h.state.Temperature }
func (h *Hub) SetTemperature(v float64) { h.set(FieldTemperature, v) }

func (h *Hub) Humidity() float64 { return h.state.Humidity }
func (h *Hub) SetHumidity(v float64) { h.set(FieldHumidity, v) }

// WindDirection is in degrees and always within [0, 360).
func (h *Hub) WindDirection() float64 { return h.state.Wind.X }
func (h *Hub) SetWindDirection(v float64) { h.set(FieldWindDirection, v) }

// WindSpeed is in m/s.
func (h *Hub) WindSpeed() float64 { return h.state.Wind.Y }
func (h *Hub) SetWindSpeed(v float64) { h.set(FieldWindSpeed, v) }

func (h *Hub) WindTurbulence() float64 { return h.state.Wind.Z }
func (h *Hub) SetWindTurbulence(v float64) { h.set(FieldWindTurbulence, v) }

// FogHeightPower is the strength of height based fog, 0..1.
func (h *Hub) FogHeightPower() float64 { return h.state.Fog.X }
func (h *Hub) SetFogHeightPower(v float64) { h.set(FieldFogHeightPower, v) }

// FogHeightMax is the top of height based fog in world units.
func (h *Hub) FogHeightMax() float64 { return h.state.Fog.Y }
func (h *Hub) SetFogHeightMax(v float64) { h.set(FieldFogHeightMax, v) }

func (h *Hub) FogDistancePower() float64 { return h.state.Fog.Z }
func (h *Hub) SetFogDistancePower(v float64) { h.set(FieldFogDistancePower, v) }

func (h *Hub) FogDistanceMax() float64 { return h.state.Fog.W }
func (h *Hub) SetFogDistanceMax(v float64) { h.set(FieldFogDistanceMax, v) }

func (h *Hub) RainPower() float64 { return h.state.Rain.X }
func (h *Hub) SetRainPower(v float64) { h.set(FieldRainPower, v) }

func (h *Hub) RainPowerTerrain() float64 { return h.state.Rain.Y }
func (h *Hub) SetRainPowerTerrain(v float64) { h.set(FieldRainPowerTerrain, v) }

func (h *Hub) RainMinHeight() float64 { return h.state.Rain.Z }
func (h *Hub) SetRainMinHeight(v float64) { h.set(FieldRainMinHeight, v) }

func (h *Hub) RainMaxHeight() float64 { return h.state.Rain.W }
func (h *Hub) SetRainMaxHeight(v float64) { h.set(FieldRainMaxHeight, v) }

func (h *Hub) HailPower() float64 { return h.state.Hail.X }
func (h *Hub) SetHailPower(v float64) { h.set(FieldHailPower, v) }

func (h *Hub) HailPowerTerrain() float64 { return h.state.Hail.Y }
func (h *Hub) SetHailPowerTerrain(v float64) { h.set(FieldHailPowerTerrain, v) }

func (h *Hub) HailMinHeight() float64 { return h.state.Hail.Z }
func (h *Hub) SetHailMinHeight(v float64) { h.set(FieldHailMinHeight, v) }

func (h *Hub) HailMaxHeight() float64 { return h.state.Hail.W }
func (h *Hub) SetHailMaxHeight(v float64) { h.set(FieldHailMaxHeight, v) }

func (h *Hub) SnowPower() float64 { return h.state.Snow.X }
func (h *Hub) SetSnowPower(v float64) { h.set(FieldSnowPower, v) }

func (h *Hub) SnowPowerTerrain() float64 { return h.state.Snow.Y }
func (h *Hub) SetSnowPowerTerrain(v float64) { h.set(FieldSnowPowerTerrain, v) }

func (h *Hub) SnowMinHeight() float64 { return h.state.Snow.Z }
func (h *Hub) SetSnowMinHeight(v float64) { h.set(FieldSnowMinHeight, v) }

// SnowAge runs from fresh (0) to old (1).
func (h *Hub) SnowAge() float64 { return h.state.Snow.W }
func (h *Hub) SetSnowAge(v float64) { h.set(FieldSnowAge, v) }

func (h *Hub) ThunderPower() float64 { return h.state.ThunderPower }
func (h *Hub) SetThunderPower(v float64) { h.set(FieldThunderPower, v) }

// CloudPower is the cloud cover, 0 none .. 1 full.
func (h *Hub) CloudPower() float64 { return h.state.Clouds.X }
func (h *Hub) SetCloudPower(v float64) { h.set(FieldCloudPower, v) }

func (h *Hub) CloudMinHeight() float64 { return h.state.Clouds.Y }
func (h *Hub) SetCloudMinHeight(v float64) { h.set(FieldCloudMinHeight, v) }

func (h *Hub) CloudMaxHeight() float64 { return h.state.Clouds.Z }
func (h *Hub) SetCloudMaxHeight(v float64) { h.set(FieldCloudMaxHeight, v) }

func (h *Hub) CloudSpeed() float64 { return h.state.Clouds.W }
func (h *Hub) SetCloudSpeed(v float64) { h.set(FieldCloudSpeed, v) }

// MoonPhase runs from 0 (new) to 1 (full).
func (h *Hub) MoonPhase() float64 { return h.state.MoonPhase }
func (h *Hub) SetMoonPhase(v float64) { h.set(FieldMoonPhase, v) }

// Season is a continuous index, 0 spring .. 4.
func (h *Hub) Season() float64 { return h.state.Season }
func (h *Hub) SetSeason(v float64) { h.set(FieldSeason, v) }

func (h *Hub) VolumeEnvironment() float64 { return h.state.Volume.X }
func (h *Hub) SetVolumeEnvironment(v float64) { h.set(FieldVolumeEnvironment, v) }

func (h *Hub) VolumeNPC() float64 { return h.state.Volume.Y }
func (h *Hub) SetVolumeNPC(v float64) { h.set(FieldVolumeNPC, v) }

func (h *Hub) VolumeAnimals() float64 { return h.state.Volume.Z }
func (h *Hub) SetVolumeAnimals(v float64) { h.set(FieldVolumeAnimals, v) }

func (h *Hub) VolumeWeather() float64 { return h.state.Volume.W }
func (h *Hub) SetVolumeWeather(v float64) { h.set(FieldVolumeWeather, v) }
