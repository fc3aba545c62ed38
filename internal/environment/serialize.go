package environment

import (
	"encoding/json"
	"fmt"
	"time"
)

// document is the serialized form of a hub: every state field at the top
// level plus the extension list. game_time carries only an offset, so a
// named zone travels separately in time_zone.
type document struct {
	State
	TimeZone   string          `json:"time_zone,omitempty"`
	Extensions *[]extensionDoc `json:"extensions,omitempty"`
}

// zoneName returns the IANA name of loc, or "" for UTC, Local and fixed
// zones that cannot be loaded back by name.
func zoneName(loc *time.Location) string {
	name := loc.String()
	if name == "UTC" || name == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}

type extensionDoc struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Serialize encodes the whole hub as JSON. Every extension must implement
// Kinded. Non-finite float fields cannot be encoded and fail the call.
func (h *Hub) Serialize() ([]byte, error) {
	exts := make([]extensionDoc, 0, len(h.extensions))
	for _, e := range h.extensions {
		k, ok := e.(Kinded)
		if !ok {
			return nil, fmt.Errorf("serialize %T: %w", e, ErrUnknownExtension)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("serialize extension %s: %w", k.ExtensionKind(), err)
		}
		exts = append(exts, extensionDoc{Kind: k.ExtensionKind(), Data: data})
	}
	doc := document{State: h.state, TimeZone: zoneName(h.state.GameTime.Location()), Extensions: &exts}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize environment: %w", err)
	}
	return b, nil
}

// Deserialize overwrites the hub from JSON produced by Serialize. Keys that
// are absent keep their current values; an absent extension list keeps the
// current extensions. Every category that differs afterwards is marked, and
// the activity flag is applied last through SetActive.
func (h *Hub) Deserialize(data []byte) error {
	doc := document{State: h.state}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("deserialize environment: %w", err)
	}
	if doc.TimeZone != "" {
		loc, err := time.LoadLocation(doc.TimeZone)
		if err != nil {
			return fmt.Errorf("deserialize time zone: %w", err)
		}
		doc.State.GameTime = doc.State.GameTime.In(loc)
	}

	var exts []Extension
	if doc.Extensions != nil {
		exts = make([]Extension, 0, len(*doc.Extensions))
		for _, d := range *doc.Extensions {
			factory, ok := extensionFactory(d.Kind)
			if !ok {
				return fmt.Errorf("deserialize extension %q: %w", d.Kind, ErrUnknownExtension)
			}
			e := factory()
			if len(d.Data) > 0 {
				if err := json.Unmarshal(d.Data, e); err != nil {
					return fmt.Errorf("deserialize extension %q: %w", d.Kind, err)
				}
			}
			exts = append(exts, e)
		}
	}

	h.restore(doc.State)
	if doc.Extensions != nil {
		h.replaceExtensions(exts)
	}
	h.SetActive(doc.State.Active)
	return nil
}

func (h *Hub) restore(next State) {
	next.Wind.X = NormalizeDegrees(next.Wind.X)
	next.Active = h.state.Active
	changed := h.state.Diff(next)
	h.state = next
	h.mark(changed)
}
