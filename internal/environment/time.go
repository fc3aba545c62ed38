package environment

import (
	"math"
	"time"
)

const msPerDay = 24 * 60 * 60 * 1000

// GameTime returns the in-game calendar time.
func (h *Hub) GameTime() time.Time { return h.state.GameTime }

// SetGameTime sets the in-game calendar time. Instants that compare equal
// with time.Time.Equal are not a change.
func (h *Hub) SetGameTime(t time.Time) {
	if h.state.GameTime.Equal(t) {
		return
	}
	h.state.GameTime = t
	h.mark(GameTimeChanged)
}

// TimeDecimal returns the time of day as decimal hours, for example 13.5 at
// half past one in the afternoon.
func (h *Hub) TimeDecimal() float64 {
	return DecimalHours(h.state.GameTime)
}

// SetDecimalTime moves the game time to the given time of day, keeping the
// calendar date and location.
func (h *Hub) SetDecimalTime(hours float64) {
	h.SetGameTime(WithDecimalHours(h.state.GameTime, hours))
}

// DecimalHours converts the clock part of t to decimal hours with
// millisecond precision.
func DecimalHours(t time.Time) float64 {
	ms := t.Nanosecond() / int(time.Millisecond)
	return float64(t.Hour()) +
		float64(t.Minute())/60 +
		float64(t.Second())/3600 +
		float64(ms)/3.6e6
}

// WithDecimalHours returns t on the same date with its clock set to hours.
// Hours are rounded to the millisecond and wrapped into [0, 24). NaN and
// infinite values return t unchanged.
func WithDecimalHours(t time.Time, hours float64) time.Time {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return t
	}
	ms := int64(math.Mod(math.Round(hours*3.6e6), msPerDay))
	if ms < 0 {
		ms += msPerDay
	}
	hh := ms / 3_600_000
	mm := ms / 60_000 % 60
	ss := ms / 1000 % 60
	y, mo, d := t.Date()
	return time.Date(y, mo, d, int(hh), int(mm), int(ss), int(ms%1000)*int(time.Millisecond), t.Location())
}
