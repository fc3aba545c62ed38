package environment

import (
	"testing"
	"time"
)

func TestDecimalTimeRoundTrip(t *testing.T) {
	h := quietHub(NotifyDeferred)
	h.SetGameTime(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	h.LateTick()

	h.SetDecimalTime(13.5)

	if got := h.TimeDecimal(); got != 13.5 {
		t.Fatalf("TimeDecimal = %v, want 13.5", got)
	}
	gt := h.GameTime()
	if y, m, d := gt.Date(); y != 2024 || m != time.March || d != 15 {
		t.Fatalf("date changed to %v", gt)
	}
	if gt.Hour() != 13 || gt.Minute() != 30 {
		t.Fatalf("clock = %v", gt)
	}
	if h.Dirty() != GameTimeChanged {
		t.Fatalf("dirty = %s", h.Dirty())
	}

	h.LateTick()
	h.SetDecimalTime(13.5)
	if h.Dirty() != 0 {
		t.Fatalf("same decimal time marked %s", h.Dirty())
	}
}

func TestDecimalTimeWraps(t *testing.T) {
	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct{ in, want float64 }{
		{25.25, 1.25},
		{-1, 23},
		{24, 0},
		{6.75, 6.75},
	}
	for _, tc := range cases {
		got := WithDecimalHours(base, tc.in)
		if d := DecimalHours(got); d != tc.want {
			t.Fatalf("WithDecimalHours(%v) = %v (%v), want %v", tc.in, got, d, tc.want)
		}
		if got.Day() != 1 {
			t.Fatalf("WithDecimalHours(%v) moved the date to %v", tc.in, got)
		}
	}
}

func TestDecimalHoursTruncatesToMillisecond(t *testing.T) {
	tm := time.Date(2024, time.June, 1, 12, 0, 0, 999_999, time.UTC)
	if got := DecimalHours(tm); got != 12 {
		t.Fatalf("DecimalHours = %v, want 12", got)
	}
}

func TestSetGameTimeEqualInstant(t *testing.T) {
	h := quietHub(NotifyDeferred)
	utc := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	h.SetGameTime(utc)
	h.LateTick()
	h.SetGameTime(utc.In(time.FixedZone("X", 3600)))
	if h.Dirty() != 0 {
		t.Fatalf("equal instant marked %s", h.Dirty())
	}
}
