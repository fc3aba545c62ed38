package steward

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule selects a preset when every condition it sets holds. Unset
// conditions always match.
type Rule struct {
	Name    string   `yaml:"name"`
	Preset  string   `yaml:"preset"`
	Seasons []string `yaml:"seasons,omitempty"`

	// Time of day window in decimal hours. From > To wraps past midnight.
	From *float64 `yaml:"from,omitempty"`
	To   *float64 `yaml:"to,omitempty"`

	MinTemperature *float64 `yaml:"min_temperature,omitempty"`
	MaxTemperature *float64 `yaml:"max_temperature,omitempty"`
	MinHumidity    *float64 `yaml:"min_humidity,omitempty"`
}

// Schedule is an ordered rule table. The first matching rule wins; Default
// applies when none match.
type Schedule struct {
	Rules   []Rule `yaml:"rules"`
	Default string `yaml:"default,omitempty"`
}

func hours(v float64) *float64 { return &v }

// DefaultSchedule returns a schedule built on the built-in presets.
func DefaultSchedule() Schedule {
	return Schedule{
		Rules: []Rule{
			{Name: "winter-snow", Preset: "snow", Seasons: []string{"Winter"}, MaxTemperature: hours(1)},
			{Name: "autumn-dawn-fog", Preset: "fog", Seasons: []string{"Autumn", "Winter"}, From: hours(5), To: hours(8)},
			{Name: "summer-storm", Preset: "storm", Seasons: []string{"Summer"}, From: hours(15), To: hours(18), MinHumidity: hours(0.8)},
		},
		Default: "clear",
	}
}

// LoadSchedule reads a yaml schedule. An empty path returns DefaultSchedule.
func LoadSchedule(path string) (Schedule, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSchedule(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read schedule: %w", err)
	}
	var s Schedule
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Schedule{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that every rule names a preset and uses sane hours.
func (s Schedule) Validate() error {
	var errs []error
	for i, r := range s.Rules {
		if r.Preset == "" {
			errs = append(errs, fmt.Errorf("rule %d (%s): preset required", i, r.Name))
		}
		for _, h := range []*float64{r.From, r.To} {
			if h != nil && (*h < 0 || *h > 24) {
				errs = append(errs, fmt.Errorf("rule %d (%s): hour %g out of range", i, r.Name, *h))
			}
		}
		if (r.From == nil) != (r.To == nil) {
			errs = append(errs, fmt.Errorf("rule %d (%s): from and to must be set together", i, r.Name))
		}
	}
	return errors.Join(errs...)
}

// Matches reports whether the rule applies to obs.
func (r Rule) Matches(obs *Observation) bool {
	if len(r.Seasons) > 0 {
		found := false
		for _, s := range r.Seasons {
			if strings.EqualFold(s, obs.Status.Season) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.From != nil && r.To != nil && !inWindow(obs.Status.TimeOfDay, *r.From, *r.To) {
		return false
	}
	if r.MinTemperature != nil && obs.State.Temperature < *r.MinTemperature {
		return false
	}
	if r.MaxTemperature != nil && obs.State.Temperature > *r.MaxTemperature {
		return false
	}
	if r.MinHumidity != nil && obs.State.Humidity < *r.MinHumidity {
		return false
	}
	return true
}

func inWindow(h, from, to float64) bool {
	if from <= to {
		return h >= from && h < to
	}
	return h >= from || h < to
}

// Decision is the steward's chosen action for one cycle.
type Decision struct {
	Action    string `json:"action"` // "none" or "preset"
	Preset    string `json:"preset,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Rationale string `json:"rationale"`
}

// Decide picks the preset for obs. last is the preset applied by the
// previous cycle; choosing it again is a no-op.
func Decide(s Schedule, obs *Observation, last string) Decision {
	if !obs.Status.Active {
		return Decision{Action: "none", Rationale: "hub inactive"}
	}

	preset, rule := s.Default, "default"
	for _, r := range s.Rules {
		if r.Matches(obs) {
			preset, rule = r.Preset, r.Name
			break
		}
	}
	if preset == "" {
		return Decision{Action: "none", Rationale: "no rule matched"}
	}
	if preset == last {
		return Decision{Action: "none", Preset: preset, Rule: rule, Rationale: "preset already applied"}
	}
	return Decision{
		Action:    "preset",
		Preset:    preset,
		Rule:      rule,
		Rationale: fmt.Sprintf("%s at %.2fh, %.1fC", obs.Status.Season, obs.Status.TimeOfDay, obs.State.Temperature),
	}
}
