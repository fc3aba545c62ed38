package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

func TestBroadcasterDropsForSlowSubscribers(t *testing.T) {
	hub := environment.New(environment.Config{Logger: quiet})
	b := NewBroadcaster(func() uint64 { return 7 })

	id, ch := b.Subscribe()
	for i := 0; i < subscriberBuffer+3; i++ {
		b.OnEnvironmentChanged(environment.ChangeArgs{Mask: environment.FogChanged, Hub: hub})
	}
	if got := b.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}

	e := <-ch
	if e.Seq != 1 || e.Frame != 7 || e.Categories[0] != "fog" {
		t.Fatalf("first event = %+v", e)
	}

	b.Unsubscribe(id)
	b.Unsubscribe(id)
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", b.Subscribers())
	}
	for range ch {
	}
}

func TestBroadcasterAsHubListener(t *testing.T) {
	hub := environment.New(environment.Config{Logger: quiet, Mode: environment.NotifyImmediate})
	b := NewBroadcaster(nil)
	hub.AddListener(b)
	_, ch := b.Subscribe()

	hub.SetRainPower(0.5)
	select {
	case e := <-ch:
		if e.Mask != environment.RainChanged || e.State.Rain.X != 0.5 {
			t.Fatalf("event = %+v", e)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestViewSync(t *testing.T) {
	v := NewView(environment.DefaultState())
	s := environment.DefaultState()
	s.Temperature = 5
	v.Sync(environment.TempHumidityChanged, s)
	if v.State().Temperature != 5 {
		t.Fatalf("temperature = %g", v.State().Temperature)
	}
	info := v.Info()
	if info.Syncs != 1 || info.LastMask != environment.TempHumidityChanged {
		t.Fatalf("info = %+v", info)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("retry after = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window should reset")
	}

	now = now.Add(5 * time.Minute)
	rl.Allow("c")
	rl.mu.Lock()
	_, stale := rl.buckets["b"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle bucket should be swept")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/field", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	if got := clientIP(r); got != "10.1.2.3" {
		t.Fatalf("remote ip = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("forwarded ip = %q", got)
	}
}
