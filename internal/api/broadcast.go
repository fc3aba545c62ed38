package api

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/world-api/internal/environment"
)

// subscriberBuffer is the per-subscriber channel capacity. Events beyond it
// are dropped for that subscriber.
const subscriberBuffer = 64

// Event is one change notification as streamed to clients.
type Event struct {
	Seq        uint64                 `json:"seq"`
	Frame      uint64                 `json:"frame"`
	At         time.Time              `json:"at"`
	Mask       environment.ChangeMask `json:"mask"`
	Categories []string               `json:"categories"`
	State      environment.State      `json:"state"`
}

// Broadcaster is a hub listener that fans every notification out to
// subscribers without blocking the frame.
type Broadcaster struct {
	frame func() uint64

	mu      sync.Mutex
	subs    map[string]chan Event
	seq     uint64
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster. frame may be nil.
func NewBroadcaster(frame func() uint64) *Broadcaster {
	return &Broadcaster{frame: frame, subs: make(map[string]chan Event)}
}

// OnEnvironmentChanged implements environment.Listener.
func (b *Broadcaster) OnEnvironmentChanged(args environment.ChangeArgs) error {
	var frame uint64
	if b.frame != nil {
		frame = b.frame()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	e := Event{
		Seq:        b.seq,
		Frame:      frame,
		At:         time.Now().UTC(),
		Mask:       args.Mask,
		Categories: args.Mask.Categories(),
		State:      args.Hub.State(),
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many events were discarded for slow subscribers.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }
