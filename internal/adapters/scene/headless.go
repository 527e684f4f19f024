// Package scene provides a headless in-memory viewport. It records every
// primitive and cursor change and projects with an equirectangular camera,
// which is enough to drive the tools from scripts and tests.
package scene

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// Default camera settings.
const (
	DefaultWidth          = 1280
	DefaultHeight         = 720
	DefaultMetersPerPixel = 10.0
)

// Camera describes the equirectangular view.
type Camera struct {
	Center         domain.GeodeticPosition
	Width          float64 `mapstructure:"width"`
	Height         float64 `mapstructure:"height"`
	MetersPerPixel float64 `mapstructure:"meters_per_pixel"`
}

func (c Camera) withDefaults() Camera {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.MetersPerPixel <= 0 {
		c.MetersPerPixel = DefaultMetersPerPixel
	}
	return c
}

// Entity is a recorded primitive.
type Entity struct {
	ID output.EntityID
	output.Primitive
}

// Headless implements output.Viewport without rendering anything.
type Headless struct {
	mu        sync.RWMutex
	camera    Camera
	ellipsoid *geodesy.Ellipsoid
	terrain   output.TerrainSampler
	logger    *slog.Logger

	next     int
	entities map[output.EntityID]output.Primitive
	order    map[output.EntityID]int
	cursor   string
	cursors  []string
}

var _ output.Viewport = (*Headless)(nil)

// New creates a headless viewport. terrain may be nil.
func New(camera Camera, ellipsoid *geodesy.Ellipsoid, terrain output.TerrainSampler, logger *slog.Logger) *Headless {
	if ellipsoid == nil {
		ellipsoid = geodesy.WGS84
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Headless{
		camera:    camera.withDefaults(),
		ellipsoid: ellipsoid,
		terrain:   terrain,
		logger:    logger,
		entities:  make(map[output.EntityID]output.Primitive),
		order:     make(map[output.EntityID]int),
		cursor:    "default",
	}
}

// Add implements output.Scene.
func (h *Headless) Add(p output.Primitive) output.EntityID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := output.EntityID(fmt.Sprintf("entity-%d", h.next))
	p.Positions = append([]domain.WorldPosition(nil), p.Positions...)
	h.entities[id] = p
	h.order[id] = h.next
	h.logger.Debug("entity added", "id", id, "kind", p.Kind.String(), "role", p.Role, "owner", p.Owner)
	return id
}

// Remove implements output.Scene.
func (h *Headless) Remove(id output.EntityID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.entities[id]; !ok {
		return false
	}
	delete(h.entities, id)
	delete(h.order, id)
	return true
}

// SetVisible implements output.Scene.
func (h *Headless) SetVisible(id output.EntityID, visible bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.entities[id]
	if !ok {
		return false
	}
	p.Show = visible
	h.entities[id] = p
	return true
}

// SetCursor implements output.Cursor.
func (h *Headless) SetCursor(style string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = style
	h.cursors = append(h.cursors, style)
}

// Cursor returns the current cursor style.
func (h *Headless) Cursor() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cursor
}

// CursorHistory returns every cursor change in order.
func (h *Headless) CursorHistory() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.cursors...)
}

// Entities returns the live entities in creation order.
func (h *Headless) Entities() []Entity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entity, 0, len(h.entities))
	for id, p := range h.entities {
		out = append(out, Entity{ID: id, Primitive: p})
	}
	sort.Slice(out, func(i, j int) bool { return h.order[out[i].ID] < h.order[out[j].ID] })
	return out
}

// Len returns the number of live entities.
func (h *Headless) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entities)
}

// CountRole returns the number of live entities with the given role.
func (h *Headless) CountRole(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, p := range h.entities {
		if p.Role == role {
			n++
		}
	}
	return n
}

// Camera returns the current camera.
func (h *Headless) Camera() Camera {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.camera
}

// SetCamera moves the view.
func (h *Headless) SetCamera(c Camera) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.camera = c.withDefaults()
}

// PickTerrain implements output.PositionPicker with the configured sampler.
func (h *Headless) PickTerrain(screen domain.ScreenPosition) (domain.WorldPosition, bool) {
	if h.terrain == nil || !h.terrain.Available() {
		return domain.WorldPosition{}, false
	}
	geo, ok := h.ScreenToGeodetic(screen)
	if !ok {
		return domain.WorldPosition{}, false
	}
	height, ok := h.terrain.SampleHeight(geo)
	if !ok || math.IsNaN(height) {
		return domain.WorldPosition{}, false
	}
	geo.Height = height
	return h.ellipsoid.ToWorld(geo), true
}

// PickEllipsoid implements output.PositionPicker at height zero.
func (h *Headless) PickEllipsoid(screen domain.ScreenPosition) (domain.WorldPosition, bool) {
	geo, ok := h.ScreenToGeodetic(screen)
	if !ok {
		return domain.WorldPosition{}, false
	}
	return h.ellipsoid.ToWorld(geo), true
}

// WorldToScreen implements output.Projector. Positions outside the window
// are not visible.
func (h *Headless) WorldToScreen(world domain.WorldPosition) (domain.ScreenPosition, bool) {
	if !world.IsFinite() {
		return domain.ScreenPosition{}, false
	}
	return h.GeodeticToScreen(h.ellipsoid.ToGeodetic(world))
}

// ScreenToGeodetic maps a window coordinate to a position on the ellipsoid.
// Points beyond a pole miss the globe.
func (h *Headless) ScreenToGeodetic(screen domain.ScreenPosition) (domain.GeodeticPosition, bool) {
	c := h.Camera()
	mLat, mLon := h.metersPerDegree(c.Center.Latitude)

	lat := c.Center.Latitude - (screen.Y-c.Height/2)*c.MetersPerPixel/mLat
	if lat < -90 || lat > 90 {
		return domain.GeodeticPosition{}, false
	}
	lon := normalizeLongitude(c.Center.Longitude + (screen.X-c.Width/2)*c.MetersPerPixel/mLon)
	return domain.NewGeodeticPosition(lon, lat), true
}

// GeodeticToScreen maps a position to window coordinates.
func (h *Headless) GeodeticToScreen(p domain.GeodeticPosition) (domain.ScreenPosition, bool) {
	c := h.Camera()
	mLat, mLon := h.metersPerDegree(c.Center.Latitude)

	dLon := normalizeLongitude(p.Longitude - c.Center.Longitude)
	s := domain.ScreenPosition{
		X: c.Width/2 + dLon*mLon/c.MetersPerPixel,
		Y: c.Height/2 - (p.Latitude-c.Center.Latitude)*mLat/c.MetersPerPixel,
	}
	visible := s.X >= 0 && s.X <= c.Width && s.Y >= 0 && s.Y <= c.Height
	return s, visible
}

func (h *Headless) metersPerDegree(lat float64) (float64, float64) {
	mLat := h.ellipsoid.MaximumRadius() * math.Pi / 180
	mLon := mLat * math.Cos(lat*math.Pi/180)
	if mLon < 1 {
		mLon = 1
	}
	return mLat, mLon
}

func normalizeLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
