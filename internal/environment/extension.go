package environment

import (
	"slices"
	"sort"
	"sync"
)

// Extension is a pluggable per-frame behavior owned by the hub. Update runs
// from Tick, LateUpdate from LateTick, both in registration order.
type Extension interface {
	Update()
	LateUpdate()
}

// Attacher is implemented by extensions that need the hub they belong to.
// The hub calls Attach when the extension is added or restored.
type Attacher interface {
	Attach(h *Hub)
}

// Kinded is implemented by extensions that can be serialized. The kind must
// be registered with RegisterExtension for Deserialize to rebuild it.
type Kinded interface {
	ExtensionKind() string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Extension{}
)

// RegisterExtension makes an extension kind restorable. The factory must
// return a pointer that encoding/json can decode into.
func RegisterExtension(kind string, factory func() Extension) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// RegisteredExtensions lists the registered kinds in sorted order.
func RegisteredExtensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func extensionFactory(kind string) (func() Extension, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	return f, ok
}

// AddExtension appends e to the extension list.
func (h *Hub) AddExtension(e Extension) {
	if e == nil {
		return
	}
	if a, ok := e.(Attacher); ok {
		a.Attach(h)
	}
	h.extensions = append(h.extensions, e)
	h.mark(ExtensionChanged)
}

// RemoveExtension removes the first occurrence of e and reports whether it
// was present.
func (h *Hub) RemoveExtension(e Extension) bool {
	for i, cur := range h.extensions {
		if sameIdentity(cur, e) {
			h.extensions = slices.Delete(h.extensions, i, i+1)
			h.mark(ExtensionChanged)
			return true
		}
	}
	return false
}

// Extensions returns a copy of the extension list.
func (h *Hub) Extensions() []Extension {
	return slices.Clone(h.extensions)
}

func (h *Hub) replaceExtensions(exts []Extension) {
	for _, e := range exts {
		if a, ok := e.(Attacher); ok {
			a.Attach(h)
		}
	}
	h.extensions = exts
	h.mark(ExtensionChanged)
}

// Find returns the first extension of type T.
func Find[T Extension](h *Hub) (T, bool) {
	for _, e := range h.extensions {
		if t, ok := e.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
