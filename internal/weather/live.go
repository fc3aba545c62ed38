package weather

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// DefaultPollInterval is how often Live asks the client for new conditions.
const DefaultPollInterval = 10 * time.Minute

// Live is an extension that applies real weather to the hub. Conditions
// are fetched in the background by Start and applied on the frame thread
// by Update.
type Live struct {
	PollInterval time.Duration

	client *Client
	hub    *environment.Hub

	mu      sync.Mutex
	latest  *Conditions
	seq     uint64
	applied uint64
}

// NewLive creates a live weather extension polling c.
func NewLive(c *Client, interval time.Duration) *Live {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Live{PollInterval: interval, client: c}
}

// ExtensionKind implements environment.Kinded.
func (l *Live) ExtensionKind() string { return "weather.live" }

// Attach implements environment.Attacher.
func (l *Live) Attach(h *environment.Hub) { l.hub = h }

// Bind sets the client used by Start. A restored Live has no client until
// it is bound.
func (l *Live) Bind(c *Client) { l.client = c }

// Start polls in the background until ctx is done. It does nothing without
// a client.
func (l *Live) Start(ctx context.Context) {
	if l.client == nil {
		return
	}
	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	go func() {
		l.poll(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.poll(ctx)
			}
		}
	}()
}

func (l *Live) poll(ctx context.Context) {
	c, err := l.client.Fetch(ctx)
	if err != nil {
		slog.Warn("weather fetch failed", "location", l.client.Location(), "error", err)
		return
	}
	l.Store(c)
}

// Store hands new conditions to the next Update. Safe for concurrent use.
func (l *Live) Store(c *Conditions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c == l.latest {
		return
	}
	l.latest = c
	l.seq++
}

// Latest returns the most recently stored conditions.
func (l *Live) Latest() *Conditions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Update applies conditions stored since the previous Update.
func (l *Live) Update() {
	if l.hub == nil {
		return
	}
	l.mu.Lock()
	if l.seq == l.applied {
		l.mu.Unlock()
		return
	}
	c := l.latest
	l.applied = l.seq
	l.mu.Unlock()

	Apply(l.hub, c)
	if g, ok := environment.Find[*Gusts](l.hub); ok {
		g.Retarget(c.WindSpeed, c.WindDeg)
	}
	slog.Info("live weather applied", "desc", c.Description, "temp", c.Temp, "wind", c.WindSpeed)
}

// LateUpdate implements environment.Extension.
func (l *Live) LateUpdate() {}

type liveDoc struct {
	PollInterval time.Duration `json:"poll_interval"`
	Latest       *Conditions   `json:"latest,omitempty"`
}

func (l *Live) MarshalJSON() ([]byte, error) {
	return json.Marshal(liveDoc{PollInterval: l.PollInterval, Latest: l.Latest()})
}

func (l *Live) UnmarshalJSON(data []byte) error {
	var doc liveDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	l.PollInterval = doc.PollInterval
	l.mu.Lock()
	l.latest = doc.Latest
	l.mu.Unlock()
	return nil
}

func init() {
	environment.RegisterExtension("weather.live", func() environment.Extension { return &Live{} })
}
