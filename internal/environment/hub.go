// Package environment provides the environment state hub: a single source of
// truth for time of day, weather, fog, wind, sound volumes and seasons.
//
// Writes are equality gated. An effective write sets the change category it
// belongs to, and while the hub is active that category reaches registered
// listeners and, once per frame, the deferred Syncer. The hub is driven by an
// external frame loop calling Tick and LateTick; it is not safe for
// concurrent use except for Instance.
package environment

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

var (
	// ErrUnknownField is returned when a field id or name does not exist.
	ErrUnknownField = errors.New("unknown environment field")

	// ErrUnknownExtension is returned when an extension cannot be
	// serialized or its kind is not registered.
	ErrUnknownExtension = errors.New("unknown extension kind")

	// ErrListenerPanic wraps a panic recovered from a listener.
	ErrListenerPanic = errors.New("listener panicked")
)

// NotifyMode selects when listeners hear about changes.
type NotifyMode uint8

const (
	// NotifyDeferred coalesces every change made during a frame into one
	// notification delivered from LateTick.
	NotifyDeferred NotifyMode = iota
	// NotifyImmediate notifies listeners synchronously from each effective
	// write, with that write's category.
	NotifyImmediate
)

func (m NotifyMode) String() string {
	switch m {
	case NotifyDeferred:
		return "deferred"
	case NotifyImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("NotifyMode(%d)", uint8(m))
	}
}

// ParseNotifyMode accepts "deferred" or "immediate"; empty means deferred.
func ParseNotifyMode(s string) (NotifyMode, error) {
	switch s {
	case "", "deferred":
		return NotifyDeferred, nil
	case "immediate":
		return NotifyImmediate, nil
	}
	return 0, fmt.Errorf("unknown notify mode %q", s)
}

// maxRaisePasses bounds follow-up notification passes caused by listeners
// writing fields while being notified in immediate mode.
const maxRaisePasses = 8

// Config holds hub construction parameters.
type Config struct {
	Mode   NotifyMode
	Logger *slog.Logger // nil = slog.Default()
	Syncer Syncer       // optional deferred consumer
	State  *State       // initial state; nil = DefaultState()
}

// DefaultConfig returns a deferred-notification hub configuration.
func DefaultConfig() Config {
	return Config{Mode: NotifyDeferred}
}

// Hub owns the environment state, its listeners and its extensions.
type Hub struct {
	state  State
	mode   NotifyMode
	logger *slog.Logger
	syncer Syncer

	pending ChangeMask // categories listeners have not heard about yet
	dirty   ChangeMask // categories the syncer has not consumed yet
	raising bool

	listeners  []*registration
	extensions []Extension
}

type registration struct {
	listener Listener
	removed  bool
}

// New creates a hub. Most callers should construct one hub explicitly and
// pass it around; Instance exists for code that needs a process-wide hub.
func New(cfg Config) *Hub {
	h := &Hub{
		state:  DefaultState(),
		mode:   cfg.Mode,
		logger: cfg.Logger,
		syncer: cfg.Syncer,
	}
	if cfg.State != nil {
		h.state = *cfg.State
		h.state.Wind.X = NormalizeDegrees(h.state.Wind.X)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

var (
	instanceMu  sync.Mutex
	instance    *Hub
	newInstance = func() *Hub { return New(DefaultConfig()) }
)

// Instance returns the process-wide hub, creating it on first use.
func Instance() *Hub {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = newInstance()
	}
	return instance
}

// Mode returns the notification mode.
func (h *Hub) Mode() NotifyMode { return h.mode }

// SetSyncer replaces the deferred consumer called from LateTick.
func (h *Hub) SetSyncer(s Syncer) { h.syncer = s }

// State returns a copy of the current state.
func (h *Hub) State() State { return h.state }

// Pending returns the categories listeners have not been notified of.
func (h *Hub) Pending() ChangeMask { return h.pending }

// Dirty returns the categories waiting for the next deferred sync.
func (h *Hub) Dirty() ChangeMask { return h.dirty }

// Active reports whether changes are broadcast.
func (h *Hub) Active() bool { return h.state.Active }

// SetActive toggles broadcasting. Deactivation drops anything not yet
// delivered and notifies nobody. Activation raises ActiveChanged and marks
// every category dirty so the next sync pushes the full state.
func (h *Hub) SetActive(active bool) {
	if h.state.Active == active {
		return
	}
	h.state.Active = active
	if !active {
		h.pending, h.dirty = 0, 0
		return
	}
	h.dirty |= AllChanges
	h.mark(ActiveChanged)
}

// mark records an effective change in category c.
func (h *Hub) mark(c ChangeMask) {
	if c == 0 || !h.state.Active {
		return
	}
	h.dirty |= c
	h.pending |= c
	if h.mode == NotifyImmediate {
		h.raise()
	}
}

// raise delivers pending categories to listeners. In immediate mode, writes
// made by listeners during delivery are sent in follow-up passes.
func (h *Hub) raise() {
	if h.raising {
		return
	}
	h.raising = true
	defer func() { h.raising = false }()

	for pass := 0; h.pending != 0 && h.state.Active; pass++ {
		if pass == maxRaisePasses {
			h.logger.Warn("listeners keep changing the environment, deferring",
				"pending", h.pending.String(), "passes", pass)
			return
		}
		mask := h.pending
		h.pending = 0
		h.dispatch(mask)
		if h.mode != NotifyImmediate {
			return
		}
	}
}

// dispatch notifies every listener newest first. It iterates over a copy so
// listeners may add or remove listeners; removed ones are skipped.
func (h *Hub) dispatch(mask ChangeMask) {
	regs := slices.Clone(h.listeners)
	args := ChangeArgs{Mask: mask, Hub: h}
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		if reg.removed {
			continue
		}
		if !listenerValid(reg.listener) {
			h.detach(reg)
			continue
		}
		if err := invoke(reg.listener, args); err != nil {
			h.logger.Error("environment listener failed, removing it",
				"listener", fmt.Sprintf("%T", reg.listener),
				"mask", mask.String(),
				"error", err,
			)
			h.detach(reg)
		}
	}
}

func invoke(l Listener, args ChangeArgs) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanic, r)
		}
	}()
	return l.OnEnvironmentChanged(args)
}

// Tick runs every extension's Update in registration order. It does
// nothing while the hub is inactive.
func (h *Hub) Tick() {
	if !h.state.Active {
		return
	}
	for _, e := range slices.Clone(h.extensions) {
		e.Update()
	}
}

// LateTick finishes a frame: deferred listeners are notified, the syncer
// receives the accumulated mask, the mask is cleared and then every
// extension's LateUpdate runs in registration order.
func (h *Hub) LateTick() {
	if !h.state.Active {
		return
	}
	if h.mode == NotifyDeferred {
		h.raise()
	}
	if h.dirty != 0 {
		mask := h.dirty
		h.dirty = 0
		if h.syncer != nil {
			h.syncer.Sync(mask, h.state)
		}
	}
	for _, e := range slices.Clone(h.extensions) {
		e.LateUpdate()
	}
}

// Syncer consumes accumulated changes once per frame, for example to push
// them to a rendering backend.
type Syncer interface {
	Sync(mask ChangeMask, state State)
}

// SyncFunc adapts a function to Syncer.
type SyncFunc func(mask ChangeMask, state State)

// Sync calls f.
func (f SyncFunc) Sync(mask ChangeMask, state State) { f(mask, state) }

// MultiSync fans a sync out to several syncers in order.
func MultiSync(syncers ...Syncer) Syncer {
	return SyncFunc(func(mask ChangeMask, state State) {
		for _, s := range syncers {
			if s != nil {
				s.Sync(mask, state)
			}
		}
	})
}

// Listener receives change notifications. Returning an error, or
// panicking, removes the listener from the hub.
type Listener interface {
	OnEnvironmentChanged(args ChangeArgs) error
}

// Validator is implemented by listeners that can become invalid, for
// example when the object they belong to is destroyed. Invalid listeners
// are dropped without being called.
type Validator interface {
	Valid() bool
}

type funcListener struct {
	fn func(ChangeArgs) error
}

func (l *funcListener) OnEnvironmentChanged(args ChangeArgs) error { return l.fn(args) }

// AddFunc registers fn as a listener and returns the handle to pass to
// RemoveListener.
func (h *Hub) AddFunc(fn func(ChangeArgs) error) Listener {
	l := &funcListener{fn: fn}
	h.AddListener(l)
	return l
}

// AddListener registers l. A listener that is already registered moves to
// the newest position instead of being added twice. Listeners are matched
// by identity, so their dynamic type must be comparable (usually a
// pointer); other listeners are ignored with a warning.
func (h *Hub) AddListener(l Listener) {
	if l == nil {
		return
	}
	if !reflect.TypeOf(l).Comparable() {
		h.logger.Warn("ignoring listener with non-comparable type", "type", fmt.Sprintf("%T", l))
		return
	}
	h.RemoveListener(l)
	h.listeners = append(h.listeners, &registration{listener: l})
}

// RemoveListener unregisters l. Removing an unknown listener does nothing.
func (h *Hub) RemoveListener(l Listener) {
	for _, reg := range h.listeners {
		if sameIdentity(reg.listener, l) {
			h.detach(reg)
			return
		}
	}
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int { return len(h.listeners) }

func (h *Hub) detach(reg *registration) {
	reg.removed = true
	h.listeners = slices.DeleteFunc(h.listeners, func(r *registration) bool { return r == reg })
}

// sameIdentity compares two interface values without panicking on
// dynamic types that are not comparable.
func sameIdentity(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func listenerValid(l Listener) bool {
	if l == nil {
		return false
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		if v.IsNil() {
			return false
		}
	}
	if val, ok := l.(Validator); ok {
		return val.Valid()
	}
	return true
}
