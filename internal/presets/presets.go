// Package presets stores named sets of environment field values.
package presets

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/talgya/world-api/internal/environment"
)

var (
	// ErrNotFound is returned for an unknown preset name.
	ErrNotFound = errors.New("preset not found")

	// ErrInvalidName is returned for names that cannot be stored.
	ErrInvalidName = errors.New("invalid preset name")
)

// Storage layout.
const (
	presetsObject = "presets"
	indexProperty = "_index"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Preset is a named set of scalar field values, optionally with a time of
// day in decimal hours.
type Preset struct {
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Time        *float64           `yaml:"time,omitempty" json:"time,omitempty"`
	Fields      map[string]float64 `yaml:"fields" json:"fields"`
}

// resolve maps field names to ids, failing on the first unknown name.
func (p Preset) resolve() (map[environment.Field]float64, error) {
	out := make(map[environment.Field]float64, len(p.Fields))
	for name, v := range p.Fields {
		f, err := environment.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Name, err)
		}
		out[f] = v
	}
	return out, nil
}

// Apply writes the preset to the hub. Nothing is written if any field name
// is unknown.
func Apply(h *environment.Hub, p Preset) error {
	values, err := p.resolve()
	if err != nil {
		return err
	}
	for _, f := range slices.Sorted(maps.Keys(values)) {
		if err := h.SetFloat(f, values[f]); err != nil {
			return err
		}
	}
	if p.Time != nil {
		h.SetDecimalTime(*p.Time)
	}
	return nil
}

// CaptureFrom builds a preset from the hub's current values. With no fields
// every scalar field is captured, along with the time of day.
func CaptureFrom(h *environment.Hub, name string, fields ...environment.Field) Preset {
	p := Preset{Name: name, Fields: map[string]float64{}}
	if len(fields) == 0 {
		fields = environment.Fields()
		t := h.TimeDecimal()
		p.Time = &t
	}
	for _, f := range fields {
		if v, err := h.Float(f); err == nil {
			p.Fields[f.String()] = v
		}
	}
	return p
}

// Store keeps presets in memory and, when it has a gdata manager, on disk.
// A nil manager gives a memory-only store.
type Store struct {
	mu      sync.Mutex
	manager *gdata.Manager
	presets map[string]Preset
	stored  map[string]bool // saved by callers rather than built in
}

// NewStore creates a store seeded with the built-in presets and loads any
// saved ones. Presets that fail to load are logged and skipped.
func NewStore(manager *gdata.Manager) (*Store, error) {
	s := &Store{manager: manager, presets: map[string]Preset{}, stored: map[string]bool{}}
	for _, p := range Builtin() {
		s.presets[p.Name] = p
	}
	if manager == nil {
		return s, nil
	}

	names, err := s.loadIndex()
	if err != nil {
		return s, err
	}
	for _, name := range names {
		p, err := s.loadPreset(name)
		if err != nil {
			slog.Warn("failed to load preset", "name", name, "error", err)
			continue
		}
		s.presets[name] = p
		s.stored[name] = true
	}
	return s, nil
}

func (s *Store) loadIndex() ([]string, error) {
	if !s.manager.ObjectPropExists(presetsObject, indexProperty) {
		return nil, nil
	}
	data, err := s.manager.LoadObjectProp(presetsObject, indexProperty)
	if err != nil {
		return nil, fmt.Errorf("load preset index: %w", err)
	}
	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("unmarshal preset index: %w", err)
	}
	return names, nil
}

func (s *Store) loadPreset(name string) (Preset, error) {
	if !s.manager.ObjectPropExists(presetsObject, name) {
		return Preset{}, ErrNotFound
	}
	data, err := s.manager.LoadObjectProp(presetsObject, name)
	if err != nil {
		return Preset{}, err
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("unmarshal preset: %w", err)
	}
	p.Name = name
	return p, nil
}

// saveIndex writes the names of the stored presets.
func (s *Store) saveIndex() error {
	names := slices.Sorted(maps.Keys(s.stored))
	data, err := yaml.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal preset index: %w", err)
	}
	return s.manager.SaveObjectProp(presetsObject, indexProperty, data)
}

// Save stores p under p.Name, replacing any preset of that name.
func (s *Store) Save(p Preset) error {
	if !validName.MatchString(p.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, p.Name)
	}
	if _, err := p.resolve(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.presets[p.Name] = p
	s.stored[p.Name] = true
	if s.manager == nil {
		return nil
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	if err := s.manager.SaveObjectProp(presetsObject, p.Name, data); err != nil {
		return fmt.Errorf("save preset %s: %w", p.Name, err)
	}
	if err := s.saveIndex(); err != nil {
		return fmt.Errorf("save preset index: %w", err)
	}
	slog.Info("preset saved", "name", p.Name, "fields", len(p.Fields))
	return nil
}

// Load returns the preset with the given name.
func (s *Store) Load(name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Delete forgets a stored preset. Deleting a stored preset that replaced a
// built-in one brings the built-in back. The preset's data stays on disk
// but is no longer indexed.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stored[name] {
		if _, ok := s.presets[name]; ok {
			return fmt.Errorf("preset %q is built in", name)
		}
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.stored, name)
	delete(s.presets, name)
	if b, ok := builtin(name); ok {
		s.presets[name] = b
	}
	if s.manager == nil {
		return nil
	}
	return s.saveIndex()
}

// Names lists every preset name in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.presets))
}
