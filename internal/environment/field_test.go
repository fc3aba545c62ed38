package environment

import (
	"errors"
	"math"
	"testing"
)

func TestEveryFieldSetsItsCategory(t *testing.T) {
	for _, f := range Fields() {
		h := quietHub(NotifyDeferred)
		if err := h.SetFloat(f, 0.25); err != nil {
			t.Fatalf("SetFloat(%s): %v", f, err)
		}
		if h.Dirty() != f.Category() {
			t.Fatalf("%s: dirty = %s, want %s", f, h.Dirty(), f.Category())
		}
		got, err := h.Float(f)
		if err != nil || got != 0.25 {
			t.Fatalf("%s: Float = %v, %v", f, got, err)
		}
		back, err := ParseField(f.String())
		if err != nil || back != f {
			t.Fatalf("ParseField(%q) = %v, %v", f.String(), back, err)
		}
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("  Wind-Direction ")
	if err != nil || f != FieldWindDirection {
		t.Fatalf("ParseField = %v, %v", f, err)
	}
	if _, err := ParseField("gravity"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
}

func TestUnknownFieldAccess(t *testing.T) {
	h := quietHub(NotifyDeferred)
	if err := h.SetFloat(Field(0), 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("SetFloat err = %v", err)
	}
	if _, err := h.Float(fieldCount); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Float err = %v", err)
	}
	if h.Dirty() != 0 {
		t.Fatalf("failed write marked %s", h.Dirty())
	}
}

func TestWindDirectionNormalized(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{370, 10},
		{-10, 350},
		{360, 0},
		{720, 0},
		{-360, 0},
		{45, 45},
	}
	for _, tc := range cases {
		h := quietHub(NotifyDeferred)
		h.SetWindDirection(tc.in)
		if got := h.WindDirection(); got != tc.want {
			t.Fatalf("SetWindDirection(%v) stored %v, want %v", tc.in, got, tc.want)
		}
	}

	h := quietHub(NotifyDeferred)
	h.SetWind(Vec4{X: -90, Y: 4})
	if h.Wind().X != 270 || h.WindSpeed() != 4 {
		t.Fatalf("SetWind stored %+v", h.Wind())
	}
}

func TestWrappedWindDirectionIsNoop(t *testing.T) {
	h := quietHub(NotifyDeferred)
	h.SetWindDirection(10)
	h.LateTick()
	h.SetWindDirection(370)
	if h.Dirty() != 0 {
		t.Fatalf("equivalent direction marked %s", h.Dirty())
	}
}

func TestNaNWriteSettles(t *testing.T) {
	h := quietHub(NotifyDeferred)
	h.SetTemperature(math.NaN())
	h.LateTick()
	h.SetTemperature(math.NaN())
	if h.Dirty() != 0 {
		t.Fatalf("second NaN write marked %s", h.Dirty())
	}
}

func TestVectorSetters(t *testing.T) {
	h := quietHub(NotifyDeferred)
	h.SetPlayerPosition(Vec3{X: 1, Y: 2, Z: 3})
	h.SetSceneSize(Vec3{X: 100, Y: 50, Z: 100})
	h.SetVolume(Vec4{X: 1, Y: 0.5, Z: 1, W: 1})

	want := PlayerChanged | SceneMetricsChanged | VolumeChanged
	if h.Dirty() != want {
		t.Fatalf("dirty = %s, want %s", h.Dirty(), want)
	}
	if h.VolumeNPC() != 0.5 {
		t.Fatalf("VolumeNPC = %v", h.VolumeNPC())
	}
}

func TestStateDiff(t *testing.T) {
	a := DefaultState()
	b := a
	if m := a.Diff(b); m != 0 {
		t.Fatalf("identical states differ: %s", m)
	}
	b.Snow.W = 0.7
	b.Latitude = -33
	b.Active = false
	want := SnowChanged | LatLngChanged | ActiveChanged
	if m := a.Diff(b); m != want {
		t.Fatalf("diff = %s, want %s", m, want)
	}
}

func TestChangeMaskNames(t *testing.T) {
	m := FogChanged | WindChanged
	if got := m.String(); got != "wind|fog" {
		t.Fatalf("String = %q", got)
	}
	if got := ChangeMask(0).String(); got != "none" {
		t.Fatalf("String = %q", got)
	}
	for _, name := range AllChanges.Categories() {
		c, ok := ParseCategory(name)
		if !ok || !AllChanges.Has(c) {
			t.Fatalf("ParseCategory(%q) = %v, %v", name, c, ok)
		}
	}
	if _, ok := ParseCategory("gravity"); ok {
		t.Fatalf("unknown category parsed")
	}
}
