// Package audio maps the environment's sound volume channels onto beep
// volume effects.
package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/talgya/world-api/internal/environment"
)

// Channel is one of the four environment sound groups.
type Channel int

const (
	ChannelEnvironment Channel = iota
	ChannelNPC
	ChannelAnimals
	ChannelWeather

	channelCount
)

func (c Channel) String() string {
	switch c {
	case ChannelEnvironment:
		return "environment"
	case ChannelNPC:
		return "npc"
	case ChannelAnimals:
		return "animals"
	case ChannelWeather:
		return "weather"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

type channel struct {
	mixer  *beep.Mixer
	volume *effects.Volume
	linear float64
}

// Mixer is an environment listener owning one beep mixer per channel. Its
// Streamer can be handed to a speaker; volumes follow the hub.
type Mixer struct {
	mu       sync.Mutex
	master   *beep.Mixer
	channels [channelCount]*channel
}

// NewMixer creates a mixer with every channel at full volume.
func NewMixer() *Mixer {
	m := &Mixer{master: &beep.Mixer{}}
	for i := range m.channels {
		ch := &channel{mixer: &beep.Mixer{}}
		ch.volume = &effects.Volume{Streamer: ch.mixer, Base: 2}
		setLinear(ch, 1)
		m.channels[i] = ch
		m.master.Add(ch.volume)
	}
	return m
}

// setLinear converts a linear volume to the logarithmic scale beep uses.
// math.Log2(0) is -Inf, so zero and below is silent.
func setLinear(ch *channel, vol float64) {
	ch.linear = vol
	if vol <= 0 || math.IsNaN(vol) {
		ch.volume.Volume = 0
		ch.volume.Silent = true
		return
	}
	ch.volume.Volume = math.Log2(vol)
	ch.volume.Silent = false
}

// Play adds s to a channel.
func (m *Mixer) Play(c Channel, s beep.Streamer) error {
	if c < 0 || c >= channelCount {
		return fmt.Errorf("play on %s: unknown channel", c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c].mixer.Add(s)
	return nil
}

// SetVolume sets a channel's linear volume.
func (m *Mixer) SetVolume(c Channel, vol float64) {
	if c < 0 || c >= channelCount {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	setLinear(m.channels[c], vol)
}

// Volume returns a channel's linear volume.
func (m *Mixer) Volume(c Channel) float64 {
	if c < 0 || c >= channelCount {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[c].linear
}

// SetVolumes applies all four channels from the hub's volume vector.
func (m *Mixer) SetVolumes(v environment.Vec4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setLinear(m.channels[ChannelEnvironment], v.X)
	setLinear(m.channels[ChannelNPC], v.Y)
	setLinear(m.channels[ChannelAnimals], v.Z)
	setLinear(m.channels[ChannelWeather], v.W)
}

// OnEnvironmentChanged implements environment.Listener.
func (m *Mixer) OnEnvironmentChanged(args environment.ChangeArgs) error {
	if args.HasChanged(environment.VolumeChanged | environment.ActiveChanged) {
		m.SetVolumes(args.Hub.Volume())
	}
	return nil
}

// Streamer returns the mixed output of every channel.
func (m *Mixer) Streamer() beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.master.Stream(samples)
	})
}
