package scene

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

type flatTerrain struct{ height float64 }

func (f flatTerrain) Available() bool { return true }

func (f flatTerrain) SampleHeight(_ domain.GeodeticPosition) (float64, bool) {
	return f.height, true
}

func newTestHeadless(terrain output.TerrainSampler) *Headless {
	return New(Camera{
		Center:         domain.NewGeodeticPosition(8, 50),
		Width:          1000,
		Height:         500,
		MetersPerPixel: 5,
	}, geodesy.WGS84, terrain, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHeadlessProjectionRoundTrip(t *testing.T) {
	h := newTestHeadless(nil)

	tests := []struct {
		name   string
		screen domain.ScreenPosition
	}{
		{name: "center", screen: domain.ScreenPosition{X: 500, Y: 250}},
		{name: "top left", screen: domain.ScreenPosition{X: 10, Y: 10}},
		{name: "bottom right", screen: domain.ScreenPosition{X: 990, Y: 480}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world, ok := h.PickEllipsoid(tt.screen)
			if !ok {
				t.Fatal("PickEllipsoid() should hit the globe")
			}
			got, ok := h.WorldToScreen(world)
			if !ok {
				t.Fatal("WorldToScreen() should be visible")
			}
			if got.DistanceTo(tt.screen) > 1e-3 {
				t.Errorf("WorldToScreen() = %+v, want %+v", got, tt.screen)
			}
		})
	}
}

func TestHeadlessPixelScale(t *testing.T) {
	h := newTestHeadless(nil)
	a, _ := h.PickEllipsoid(domain.ScreenPosition{X: 500, Y: 250})
	b, _ := h.PickEllipsoid(domain.ScreenPosition{X: 600, Y: 250})

	d := geodesy.WGS84.Distance(geodesy.WGS84.ToGeodetic(a), geodesy.WGS84.ToGeodetic(b))
	if math.Abs(d-500)/500 > 0.01 {
		t.Errorf("100px = %v m, want about 500 m", d)
	}
}

func TestHeadlessOffscreen(t *testing.T) {
	h := newTestHeadless(nil)
	_, ok := h.GeodeticToScreen(domain.NewGeodeticPosition(100, 0))
	if ok {
		t.Error("distant position should not be visible")
	}
	if _, ok := h.WorldToScreen(domain.WorldPosition{X: math.NaN()}); ok {
		t.Error("non-finite position should not be visible")
	}
}

func TestHeadlessPickTerrain(t *testing.T) {
	tests := []struct {
		name    string
		terrain output.TerrainSampler
		wantOK  bool
		height  float64
	}{
		{name: "no terrain", terrain: nil, wantOK: false},
		{name: "flat terrain", terrain: flatTerrain{height: 320}, wantOK: true, height: 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHeadless(tt.terrain)
			w, ok := h.PickTerrain(domain.ScreenPosition{X: 500, Y: 250})
			if ok != tt.wantOK {
				t.Fatalf("PickTerrain() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got := geodesy.WGS84.ToGeodetic(w).Height; math.Abs(got-tt.height) > 1e-3 {
				t.Errorf("height = %v, want %v", got, tt.height)
			}
		})
	}
}

func TestHeadlessEntities(t *testing.T) {
	h := newTestHeadless(nil)

	a := h.Add(output.Primitive{Kind: output.PrimitivePoint, Role: output.RoleBody, Show: true})
	b := h.Add(output.Primitive{Kind: output.PrimitiveLabel, Role: output.RoleLabel, Show: true})
	if a == b {
		t.Fatal("entity IDs should be unique")
	}
	if h.Len() != 2 || h.CountRole(output.RoleLabel) != 1 {
		t.Errorf("Len() = %d, labels = %d", h.Len(), h.CountRole(output.RoleLabel))
	}

	if !h.SetVisible(a, false) {
		t.Error("SetVisible() on a live entity should succeed")
	}
	if h.Entities()[0].Show {
		t.Error("entity should be hidden")
	}

	if !h.Remove(a) {
		t.Error("Remove() should succeed once")
	}
	if h.Remove(a) {
		t.Error("Remove() of a removed entity should return false")
	}
	if h.SetVisible(a, true) {
		t.Error("SetVisible() of a removed entity should return false")
	}
	if got := h.Entities(); len(got) != 1 || got[0].ID != b {
		t.Errorf("Entities() = %v", got)
	}
}

func TestHeadlessCursor(t *testing.T) {
	h := newTestHeadless(nil)
	if h.Cursor() != "default" {
		t.Errorf("Cursor() = %q, want default", h.Cursor())
	}
	h.SetCursor("crosshair")
	h.SetCursor("default")
	if got := h.CursorHistory(); len(got) != 2 || got[0] != "crosshair" {
		t.Errorf("CursorHistory() = %v", got)
	}
}
