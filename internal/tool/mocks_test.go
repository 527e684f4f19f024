package tool

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// degreesPerPixel maps screen pixels onto lon/lat around null island.
const degreesPerPixel = 0.001

// fakeViewport is an in-memory output.Viewport. Screen (x, y) picks the
// ellipsoid at lon = x*degreesPerPixel, lat = y*degreesPerPixel.
type fakeViewport struct {
	entities      map[output.EntityID]output.Primitive
	next          int
	removed       int
	cursor        string
	terrain       bool
	terrainHeight float64
	misses        map[domain.ScreenPosition]bool
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{
		entities: make(map[output.EntityID]output.Primitive),
		misses:   make(map[domain.ScreenPosition]bool),
	}
}

func (v *fakeViewport) Add(p output.Primitive) output.EntityID {
	v.next++
	id := output.EntityID(fmt.Sprintf("e%d", v.next))
	v.entities[id] = p
	return id
}

func (v *fakeViewport) Remove(id output.EntityID) bool {
	if _, ok := v.entities[id]; !ok {
		return false
	}
	delete(v.entities, id)
	v.removed++
	return true
}

func (v *fakeViewport) SetVisible(id output.EntityID, visible bool) bool {
	p, ok := v.entities[id]
	if !ok {
		return false
	}
	p.Show = visible
	v.entities[id] = p
	return true
}

func (v *fakeViewport) PickTerrain(s domain.ScreenPosition) (domain.WorldPosition, bool) {
	if !v.terrain || v.misses[s] {
		return domain.WorldPosition{}, false
	}
	return geodesy.WGS84.ToWorld(domain.GeodeticPosition{
		Longitude: s.X * degreesPerPixel,
		Latitude:  s.Y * degreesPerPixel,
		Height:    v.terrainHeight,
	}), true
}

func (v *fakeViewport) PickEllipsoid(s domain.ScreenPosition) (domain.WorldPosition, bool) {
	if v.misses[s] {
		return domain.WorldPosition{}, false
	}
	return screenWorld(s.X, s.Y), true
}

func (v *fakeViewport) WorldToScreen(w domain.WorldPosition) (domain.ScreenPosition, bool) {
	g := geodesy.WGS84.ToGeodetic(w)
	return domain.ScreenPosition{X: g.Longitude / degreesPerPixel, Y: g.Latitude / degreesPerPixel}, true
}

func (v *fakeViewport) SetCursor(style string) { v.cursor = style }

func (v *fakeViewport) count(role string) int {
	n := 0
	for _, p := range v.entities {
		if p.Role == role {
			n++
		}
	}
	return n
}

func (v *fakeViewport) labels() []string {
	var out []string
	for _, p := range v.entities {
		if p.Kind == output.PrimitiveLabel {
			out = append(out, p.Text)
		}
	}
	return out
}

// manualClock is advanced explicitly by tests.
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func screenWorld(x, y float64) domain.WorldPosition {
	return geodesy.WGS84.ToWorld(domain.NewGeodeticPosition(x*degreesPerPixel, y*degreesPerPixel))
}

func sp(x, y float64) domain.ScreenPosition {
	return domain.ScreenPosition{X: x, Y: y}
}

func testOptions(clk *manualClock) Options {
	return Options{Logger: testLogger(), Clock: clk.Now}
}

// countingMetrics records tool outcomes.
type countingMetrics struct {
	output.NoOpMetrics
	outcomes map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{outcomes: make(map[string]int)}
}

func (m *countingMetrics) IncToolOutcome(tool, outcome string) {
	m.outcomes[tool+"/"+outcome]++
}

func closeTo(a, b domain.GeodeticPosition) bool {
	return math.Abs(a.Longitude-b.Longitude) < 1e-7 && math.Abs(a.Latitude-b.Latitude) < 1e-7
}
