package environment

import "strings"

// ChangeMask is a set of change categories. Every category owns one bit;
// fields that belong together (all fog parameters, for example) share it.
type ChangeMask uint64

// Change categories.
const (
	ActiveChanged       ChangeMask = 1 << 1
	GameTimeChanged     ChangeMask = 1 << 2
	PlayerChanged       ChangeMask = 1 << 3
	SeaChanged          ChangeMask = 1 << 10
	LatLngChanged       ChangeMask = 1 << 11
	SceneMetricsChanged ChangeMask = 1 << 12
	TempHumidityChanged ChangeMask = 1 << 20
	WindChanged         ChangeMask = 1 << 21
	FogChanged          ChangeMask = 1 << 22
	RainChanged         ChangeMask = 1 << 23
	HailChanged         ChangeMask = 1 << 24
	SnowChanged         ChangeMask = 1 << 25
	ThunderChanged      ChangeMask = 1 << 26
	CloudsChanged       ChangeMask = 1 << 27
	MoonChanged         ChangeMask = 1 << 28
	SeasonChanged       ChangeMask = 1 << 29
	VolumeChanged       ChangeMask = 1 << 30
	ExtensionChanged    ChangeMask = 1 << 31
)

// AllChanges has every category bit set.
const AllChanges = ActiveChanged | GameTimeChanged | PlayerChanged |
	SeaChanged | LatLngChanged | SceneMetricsChanged |
	TempHumidityChanged | WindChanged | FogChanged | RainChanged |
	HailChanged | SnowChanged | ThunderChanged | CloudsChanged |
	MoonChanged | SeasonChanged | VolumeChanged | ExtensionChanged

var categories = []struct {
	mask ChangeMask
	name string
}{
	{ActiveChanged, "active"},
	{GameTimeChanged, "game_time"},
	{PlayerChanged, "player"},
	{SeaChanged, "sea"},
	{LatLngChanged, "lat_lng"},
	{SceneMetricsChanged, "scene_metrics"},
	{TempHumidityChanged, "temp_humidity"},
	{WindChanged, "wind"},
	{FogChanged, "fog"},
	{RainChanged, "rain"},
	{HailChanged, "hail"},
	{SnowChanged, "snow"},
	{ThunderChanged, "thunder"},
	{CloudsChanged, "clouds"},
	{MoonChanged, "moon"},
	{SeasonChanged, "season"},
	{VolumeChanged, "volume"},
	{ExtensionChanged, "extension"},
}

// Has reports whether any of the categories in c are set in m.
func (m ChangeMask) Has(c ChangeMask) bool {
	return m&c != 0
}

// Categories returns the names of the categories set in m, in bit order.
func (m ChangeMask) Categories() []string {
	var names []string
	for _, c := range categories {
		if m&c.mask != 0 {
			names = append(names, c.name)
		}
	}
	return names
}

func (m ChangeMask) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Categories(), "|")
}

// ParseCategory looks up a category by the name Categories reports.
func ParseCategory(name string) (ChangeMask, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range categories {
		if c.name == name {
			return c.mask, true
		}
	}
	return 0, false
}

// ChangeArgs is what a listener receives when the environment changes.
type ChangeArgs struct {
	Mask ChangeMask
	Hub  *Hub
}

// HasChanged reports whether any of the given categories changed.
func (a ChangeArgs) HasChanged(c ChangeMask) bool {
	return a.Mask.Has(c)
}
