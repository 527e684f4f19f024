package output

import "github.com/jobrunner/geodraw/internal/domain"

// EntityID identifies a primitive owned by the scene.
type EntityID string

// PrimitiveKind selects how the scene renders a primitive.
type PrimitiveKind int

// Primitive kinds understood by a scene.
const (
	PrimitivePoint PrimitiveKind = iota
	PrimitivePolyline
	PrimitivePolygon
	PrimitiveEllipse
	PrimitiveRectangle
	PrimitiveLabel
)

var primitiveKindNames = map[PrimitiveKind]string{
	PrimitivePoint:     "point",
	PrimitivePolyline:  "polyline",
	PrimitivePolygon:   "polygon",
	PrimitiveEllipse:   "ellipse",
	PrimitiveRectangle: "rectangle",
	PrimitiveLabel:     "label",
}

// String returns the primitive kind name.
func (k PrimitiveKind) String() string {
	if s, ok := primitiveKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Primitive roles.
const (
	RoleBody    = "body"
	RoleOutline = "outline"
	RoleLabel   = "label"
	RoleHandle  = "handle"
	RoleMarker  = "marker"
	RolePreview = "preview"
)

// Dash describes a dashed stroke. A zero Length draws a solid line.
type Dash struct {
	Length   float64
	GapColor domain.Color
}

// Primitive is one visual element added to the scene. Which geometry fields
// are read depends on Kind: Positions for point/polyline/polygon/label (the
// first entry anchors points, labels and ellipses), Radius for ellipses and
// Extent for rectangles.
type Primitive struct {
	Kind      PrimitiveKind
	Owner     string // ID of the graphic or tool that owns the entity
	Role      string // body, outline, label, handle, marker, preview
	Positions []domain.WorldPosition
	Radius    float64
	Extent    domain.Extent
	Text      string
	Fill      domain.Color
	Stroke    domain.Color
	Width     float64
	PointSize float64
	Dash      Dash
	Show      bool
}

// Scene is the driven port for adding and removing visual primitives.
type Scene interface {
	// Add adds a primitive and returns its handle.
	Add(p Primitive) EntityID

	// Remove removes an entity. It returns false if the entity was unknown.
	Remove(id EntityID) bool

	// SetVisible toggles an entity without destroying it.
	SetVisible(id EntityID, visible bool) bool
}

// PositionPicker resolves screen coordinates to world positions.
type PositionPicker interface {
	// PickTerrain intersects the pick ray with loaded terrain.
	PickTerrain(screen domain.ScreenPosition) (domain.WorldPosition, bool)

	// PickEllipsoid intersects the pick ray with the bare ellipsoid.
	PickEllipsoid(screen domain.ScreenPosition) (domain.WorldPosition, bool)
}

// Projector maps world positions to window coordinates.
type Projector interface {
	// WorldToScreen returns false when the position is not visible.
	WorldToScreen(world domain.WorldPosition) (domain.ScreenPosition, bool)
}

// Cursor controls the pointer affordance of the viewport.
type Cursor interface {
	SetCursor(style string)
}

// Viewport bundles the scene capabilities the interaction tools consume.
type Viewport interface {
	Scene
	PositionPicker
	Projector
	Cursor
}

// TerrainSampler answers terrain height queries.
type TerrainSampler interface {
	// Available reports whether any terrain is loaded.
	Available() bool

	// SampleHeight returns the terrain height at a position, or false when
	// no sample exists there.
	SampleHeight(pos domain.GeodeticPosition) (float64, bool)
}
