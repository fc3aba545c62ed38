package api

import (
	"sync"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// View is a mutex-protected copy of the hub state for HTTP readers. It is
// installed as the hub's Syncer so it refreshes once per frame.
type View struct {
	mu       sync.RWMutex
	state    environment.State
	lastMask environment.ChangeMask
	syncedAt time.Time
	syncs    uint64
}

// NewView returns a view seeded with initial.
func NewView(initial environment.State) *View {
	return &View{state: initial, syncedAt: time.Now().UTC()}
}

// Sync stores the state delivered by LateTick.
func (v *View) Sync(mask environment.ChangeMask, state environment.State) {
	v.mu.Lock()
	v.state = state
	v.lastMask = mask
	v.syncedAt = time.Now().UTC()
	v.syncs++
	v.mu.Unlock()
}

// State returns the last synced state.
func (v *View) State() environment.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// ViewInfo describes the most recent sync.
type ViewInfo struct {
	LastMask environment.ChangeMask `json:"last_mask"`
	SyncedAt time.Time              `json:"synced_at"`
	Syncs    uint64                 `json:"syncs"`
}

// Info returns metadata about the most recent sync.
func (v *View) Info() ViewInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ViewInfo{LastMask: v.lastMask, SyncedAt: v.syncedAt, Syncs: v.syncs}
}
