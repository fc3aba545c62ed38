package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/talgya/world-api/internal/environment"
)

// Season constants.
const (
	SeasonSpring = 0
	SeasonSummer = 1
	SeasonAutumn = 2
	SeasonWinter = 3
)

// springEquinoxDay is the zero-based day of year on which northern spring
// begins (March 20 in a common year).
const springEquinoxDay = 79

// SeasonName returns a human-readable season name.
func SeasonName(season uint8) string {
	switch season {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonAutumn:
		return "Autumn"
	case SeasonWinter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// SeasonIndex returns the continuous season index in [0, 4) for t: whole
// numbers are the season constants, the fraction is progress through the
// season. Southern latitudes are shifted by two seasons.
func SeasonIndex(t time.Time, latitude float64) float64 {
	daysInYear := 365.0
	if y := t.Year(); y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		daysInYear = 366
	}
	day := float64(t.YearDay()-1) + environment.DecimalHours(t)/24

	idx := (day - springEquinoxDay) / daysInYear * 4
	if latitude < 0 {
		idx += 2
	}
	idx = math.Mod(idx, 4)
	if idx < 0 {
		idx += 4
	}
	if idx >= 4 {
		idx = 0
	}
	return idx
}

// Seasons is an extension that keeps the hub's season in step with its game
// time and latitude.
type Seasons struct {
	hub     *environment.Hub
	current uint8
	started bool
}

// ExtensionKind implements environment.Kinded.
func (s *Seasons) ExtensionKind() string { return "engine.seasons" }

// Attach implements environment.Attacher.
func (s *Seasons) Attach(h *environment.Hub) {
	s.hub = h
	s.started = false
}

// Update recomputes the season index.
func (s *Seasons) Update() {
	if s.hub == nil {
		return
	}
	t := s.hub.GameTime()
	idx := SeasonIndex(t, s.hub.Latitude())
	s.hub.SetSeason(idx)

	season := uint8(idx)
	if s.started && season != s.current {
		slog.Info("season change",
			"time", FormatGameTime(t, s.hub.Latitude()),
			"season", SeasonName(season),
		)
	}
	s.current, s.started = season, true
}

// LateUpdate implements environment.Extension.
func (s *Seasons) LateUpdate() {}

func init() {
	environment.RegisterExtension("engine.seasons", func() environment.Extension { return &Seasons{} })
}
