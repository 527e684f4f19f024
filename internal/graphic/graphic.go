// Package graphic implements the drawable shapes: point, line, polygon,
// circle and rectangle. A Graphic owns the scene entities that render it and
// keeps its derived measurements in sync with its vertices.
package graphic

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// Options configures a new graphic. Zero values pick the defaults.
type Options struct {
	ID         string
	Name       string
	Style      domain.StylePatch
	ReadOnly   bool
	Hidden     bool
	HideLabels bool
	Properties map[string]interface{}
	CreatedAt  time.Time

	Label     string    // point label text
	LineStyle LineStyle // line dash pattern

	Ellipsoid *geodesy.Ellipsoid
	Logger    *slog.Logger
}

type entity struct {
	id   output.EntityID
	role string
}

// Graphic is a single shape and the entities that draw it. The kind decides
// which variant fields are used; behaviour per kind comes from the ops table.
// A Graphic is owned by one goroutine.
type Graphic struct {
	id         string
	kind       domain.Kind
	name       string
	style      domain.Style
	editable   bool
	visible    bool
	properties map[string]interface{}
	createdAt  time.Time

	scene     output.Scene
	ellipsoid *geodesy.Ellipsoid
	logger    *slog.Logger

	positions []domain.WorldPosition
	geodetic  []domain.GeodeticPosition

	length    float64
	area      float64
	perimeter float64
	radius    float64
	width     float64
	height    float64
	bounds    domain.Extent
	centroid  domain.GeodeticPosition

	label          string
	lineStyle      LineStyle
	showLength     bool
	showArea       bool
	showRadius     bool
	showDimensions bool

	entities  []entity
	handles   []output.EntityID
	created   bool
	editing   bool
	destroyed bool
}

// New prepares a graphic of the given kind. Nothing is drawn until Create.
func New(kind domain.Kind, scene output.Scene, opts Options) (*Graphic, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnsupportedGeometry, int(kind))
	}

	g := &Graphic{
		id:         opts.ID,
		kind:       kind,
		name:       opts.Name,
		editable:   !opts.ReadOnly,
		visible:    !opts.Hidden,
		properties: make(map[string]interface{}, len(opts.Properties)),
		createdAt:  opts.CreatedAt,
		scene:      scene,
		ellipsoid:  opts.Ellipsoid,
		logger:     opts.Logger,
		label:      opts.Label,
		lineStyle:  opts.LineStyle,
	}
	if g.id == "" {
		g.id = uuid.NewString()
	}
	if g.name == "" {
		g.name = defaultName(kind, g.id)
	}
	if g.createdAt.IsZero() {
		g.createdAt = time.Now().UTC()
	}
	if g.ellipsoid == nil {
		g.ellipsoid = geodesy.WGS84
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.lineStyle == "" {
		g.lineStyle = LineSolid
	}
	for k, v := range opts.Properties {
		g.properties[k] = v
	}

	labels := !opts.HideLabels
	g.showLength, g.showArea, g.showRadius, g.showDimensions = labels, labels, labels, labels
	g.style = domain.DefaultStyle().Merge(opts.Style)

	return g, nil
}

func defaultName(kind domain.Kind, id string) string {
	k := kind.String()
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return strings.ToUpper(k[:1]) + k[1:] + "_" + suffix
}

// Create validates the vertices, computes the derived metrics and draws the
// shape. Calling it again replaces the geometry.
func (g *Graphic) Create(positions []domain.WorldPosition) error {
	if g.destroyed {
		return domain.ErrGraphicDestroyed
	}
	op := ops[g.kind]

	if len(positions) < g.kind.MinVertices() {
		return fmt.Errorf("%s requires at least %d positions, got %d: %w",
			g.kind, g.kind.MinVertices(), len(positions), domain.ErrInsufficientVertices)
	}
	if op.maxVertices > 0 && len(positions) > op.maxVertices {
		positions = positions[:op.maxVertices]
	}
	for i, p := range positions {
		if !p.IsFinite() {
			return fmt.Errorf("position %d: %w", i, domain.ErrInvalidPosition)
		}
	}

	geodetic := g.ellipsoid.ToGeodeticAll(positions)
	if op.validate != nil {
		if err := op.validate(g, geodetic); err != nil {
			return err
		}
	}

	g.positions = append([]domain.WorldPosition(nil), positions...)
	g.geodetic = geodetic
	g.resetMetrics()
	op.derive(g)

	g.removeEntities()
	g.created = true
	g.draw()
	return nil
}

func (g *Graphic) resetMetrics() {
	g.length, g.area, g.perimeter = 0, 0, 0
	g.radius, g.width, g.height = 0, 0, 0
	g.bounds = domain.ExtentOf(g.geodetic)
	g.centroid = g.bounds.Center()
}

// draw adds the body primitives and, while editing, the handles.
func (g *Graphic) draw() {
	for _, p := range ops[g.kind].build(g) {
		g.entities = append(g.entities, entity{id: g.add(p), role: p.Role})
	}
	if g.editing {
		g.addHandles()
	}
}

// redraw rebuilds the entities from the current state.
func (g *Graphic) redraw() {
	if !g.created || g.destroyed {
		return
	}
	g.removeEntities()
	g.draw()
}

func (g *Graphic) add(p output.Primitive) output.EntityID {
	p.Owner = g.id
	p.Show = g.visible
	return g.scene.Add(p)
}

func (g *Graphic) addHandles() {
	for _, pos := range ops[g.kind].editHandles(g) {
		g.handles = append(g.handles, g.add(output.Primitive{
			Kind:      output.PrimitivePoint,
			Role:      output.RoleHandle,
			Positions: []domain.WorldPosition{pos},
			PointSize: handleSize,
			Fill:      handleFill,
			Stroke:    domain.White,
			Width:     2,
		}))
	}
}

func (g *Graphic) removeHandles() {
	for _, id := range g.handles {
		g.scene.Remove(id)
	}
	g.handles = nil
}

func (g *Graphic) removeEntities() {
	for _, e := range g.entities {
		g.scene.Remove(e.id)
	}
	g.entities = nil
	g.removeHandles()
}

// Show makes every owned entity visible.
func (g *Graphic) Show() {
	g.setVisible(true)
}

// Hide hides every owned entity without removing it.
func (g *Graphic) Hide() {
	g.setVisible(false)
}

func (g *Graphic) setVisible(v bool) {
	if g.destroyed {
		return
	}
	g.visible = v
	for _, e := range g.entities {
		g.scene.SetVisible(e.id, v)
	}
	for _, id := range g.handles {
		g.scene.SetVisible(id, v)
	}
}

// UpdateStyle merges a partial style and redraws.
func (g *Graphic) UpdateStyle(p domain.StylePatch) {
	g.style = g.style.Merge(p)
	g.redraw()
}

// SetStyle replaces the style and redraws.
func (g *Graphic) SetStyle(s domain.Style) {
	g.style = s
	g.redraw()
}

// StartEdit shows the vertex handles. It is a no-op while already editing.
func (g *Graphic) StartEdit() error {
	if g.destroyed {
		return domain.ErrGraphicDestroyed
	}
	if !g.editable {
		return fmt.Errorf("%s %s: %w", g.kind, g.id, domain.ErrNotEditable)
	}
	if g.editing {
		return nil
	}
	g.editing = true
	if g.created {
		g.addHandles()
	}
	return nil
}

// StopEdit removes the vertex handles.
func (g *Graphic) StopEdit() {
	if !g.editing {
		return
	}
	g.editing = false
	g.removeHandles()
}

// Remove releases every entity from the scene. The graphic can be created
// again afterwards.
func (g *Graphic) Remove() {
	g.removeEntities()
	g.editing = false
	g.created = false
}

// Destroy stops editing, removes all entities and marks the graphic
// unusable. Repeated calls are no-ops.
func (g *Graphic) Destroy() {
	if g.destroyed {
		return
	}
	g.StopEdit()
	g.Remove()
	g.destroyed = true
}

// require returns an error unless the graphic is one of kinds and alive.
func (g *Graphic) require(op string, kinds ...domain.Kind) error {
	if g.destroyed {
		return domain.ErrGraphicDestroyed
	}
	for _, k := range kinds {
		if g.kind == k {
			return nil
		}
	}
	return fmt.Errorf("%s on %s: %w", op, g.kind, domain.ErrUnsupported)
}

// ID returns the graphic identifier.
func (g *Graphic) ID() string { return g.id }

// Kind returns the shape kind.
func (g *Graphic) Kind() domain.Kind { return g.kind }

// Name returns the display name.
func (g *Graphic) Name() string { return g.name }

// SetName renames the graphic.
func (g *Graphic) SetName(name string) { g.name = name }

// Style returns the current style.
func (g *Graphic) Style() domain.Style { return g.style }

// Editable reports whether StartEdit is allowed.
func (g *Graphic) Editable() bool { return g.editable }

// CreatedAt returns the creation time.
func (g *Graphic) CreatedAt() time.Time { return g.createdAt }

// Visible reports the visibility flag.
func (g *Graphic) Visible() bool { return g.visible }

// Editing reports whether handles are shown.
func (g *Graphic) Editing() bool { return g.editing }

// Created reports whether the graphic currently has geometry in the scene.
func (g *Graphic) Created() bool { return g.created }

// Destroyed reports whether Destroy was called.
func (g *Graphic) Destroyed() bool { return g.destroyed }

// EntityCount returns the number of scene entities owned, handles included.
func (g *Graphic) EntityCount() int { return len(g.entities) + len(g.handles) }

// Positions returns a copy of the accepted vertices.
func (g *Graphic) Positions() []domain.WorldPosition {
	return append([]domain.WorldPosition(nil), g.positions...)
}

// Outline returns the drawn vertices and edges in world coordinates, with
// closed shapes repeating their first vertex. It is empty before Create.
func (g *Graphic) Outline() []domain.WorldPosition {
	if !g.created || g.destroyed {
		return nil
	}
	return ops[g.kind].outline(g)
}

// GeodeticPositions returns a copy of the vertices in lon/lat/height.
func (g *Graphic) GeodeticPositions() []domain.GeodeticPosition {
	return append([]domain.GeodeticPosition(nil), g.geodetic...)
}

// Length is the line length in metres.
func (g *Graphic) Length() float64 { return g.length }

// Area is the enclosed area in square metres.
func (g *Graphic) Area() float64 { return g.area }

// Perimeter is the boundary length in metres.
func (g *Graphic) Perimeter() float64 { return g.perimeter }

// Radius is the circle radius in metres.
func (g *Graphic) Radius() float64 { return g.radius }

// Width is the rectangle's northern edge length in metres.
func (g *Graphic) Width() float64 { return g.width }

// Height is the rectangle's western edge length in metres.
func (g *Graphic) Height() float64 { return g.height }

// Centroid is the label anchor of the shape.
func (g *Graphic) Centroid() domain.GeodeticPosition { return g.centroid }

// Bounds is the lon/lat envelope.
func (g *Graphic) Bounds() domain.Extent { return g.bounds }

// Properties returns a copy of the custom properties.
func (g *Graphic) Properties() map[string]interface{} {
	out := make(map[string]interface{}, len(g.properties))
	for k, v := range g.properties {
		out[k] = v
	}
	return out
}

// SetProperty sets one custom property.
func (g *Graphic) SetProperty(key string, value interface{}) {
	g.properties[key] = value
}
