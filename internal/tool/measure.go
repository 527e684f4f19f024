package tool

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

const measureDash = 16

var (
	measureCyan   = domain.Color{R: 0, G: 1, B: 1, A: 1}
	measureYellow = domain.Color{R: 1, G: 1, B: 0, A: 1}
)

// MeasureOptions configures a MeasureTool.
type MeasureOptions struct {
	Options
	Type       domain.MeasureType
	OnComplete func(domain.Measurement)
	OnCancel   func()
}

// MeasureTool measures distances and areas without creating shapes. The
// result of each measurement stays on the scene until ClearResults.
type MeasureTool struct {
	Base

	measureType domain.MeasureType
	points      []domain.WorldPosition
	cursor      *domain.WorldPosition
	results     []output.EntityID
	onComplete  func(domain.Measurement)
	onCancel    func()
}

// NewMeasureTool creates a measure tool in the ready mode.
func NewMeasureTool(viewport output.Viewport, opts MeasureOptions) (*MeasureTool, error) {
	if opts.Type == "" {
		opts.Type = domain.MeasureDistance
	}
	if opts.Type != domain.MeasureDistance && opts.Type != domain.MeasureArea {
		return nil, &domain.ValidationError{
			Field:      "type",
			Value:      opts.Type,
			Constraint: "distance|area",
			Message:    "unknown measure type",
		}
	}
	t := &MeasureTool{
		Base:        newBase("measure", viewport, opts.Options),
		measureType: opts.Type,
		onComplete:  opts.OnComplete,
		onCancel:    opts.OnCancel,
	}
	t.reset = t.resetPoints
	return t, nil
}

// Type returns the measure mode.
func (t *MeasureTool) Type() domain.MeasureType { return t.measureType }

// SetType switches the mode and drops any measurement in progress.
func (t *MeasureTool) SetType(mt domain.MeasureType) error {
	if mt != domain.MeasureDistance && mt != domain.MeasureArea {
		return fmt.Errorf("%w: measure type %q", domain.ErrInvalidInput, mt)
	}
	t.clearPreview()
	t.clearMarkers()
	t.resetPoints()
	t.measureType = mt
	return nil
}

// Points returns the accepted points.
func (t *MeasureTool) Points() []domain.WorldPosition {
	return append([]domain.WorldPosition(nil), t.points...)
}

// ResultCount returns the number of result entities left on the scene.
func (t *MeasureTool) ResultCount() int { return len(t.results) }

// HandleClick adds a measurement point.
func (t *MeasureTool) HandleClick(screen domain.ScreenPosition) {
	if !t.Active() {
		return
	}
	pos, ok := t.resolve(screen)
	if !ok {
		return
	}
	t.append(pos)
	if t.measureType == domain.MeasureDistance && len(t.points) == 2 {
		t.completeDistance()
		return
	}
	t.updatePreview()
}

// HandleDoubleClick finishes an area measurement. The picked position is
// appended before completing.
func (t *MeasureTool) HandleDoubleClick(screen domain.ScreenPosition) {
	if !t.Active() || t.measureType != domain.MeasureArea || len(t.points) < 2 {
		return
	}
	if pos, ok := t.resolve(screen); ok {
		t.append(pos)
	}
	t.completeArea()
}

// HandleMove updates the preview, subject to the throttle.
func (t *MeasureTool) HandleMove(screen domain.ScreenPosition) {
	if !t.Active() {
		return
	}
	if admitted, ok := t.admitMove(screen); ok {
		t.move(admitted)
	}
}

// Tick releases a move parked by the throttle.
func (t *MeasureTool) Tick() {
	if !t.Active() {
		return
	}
	if admitted, ok := t.flushMove(); ok {
		t.move(admitted)
	}
}

// HandleCancel drops the measurement in progress.
func (t *MeasureTool) HandleCancel() {
	if !t.Active() {
		return
	}
	t.clearPreview()
	t.clearMarkers()
	t.resetPoints()
	t.metrics.IncToolOutcome(t.name, "cancel")
	if t.onCancel != nil {
		t.onCancel()
	}
}

// ClearResults removes the result entities of earlier measurements.
func (t *MeasureTool) ClearResults() {
	for _, id := range t.results {
		t.viewport.Remove(id)
	}
	t.results = nil
}

func (t *MeasureTool) append(pos domain.WorldPosition) {
	t.points = append(t.points, pos)
	t.addMarker(pos, measureCyan)
}

func (t *MeasureTool) move(screen domain.ScreenPosition) {
	pos, ok := t.resolve(screen)
	if !ok {
		return
	}
	t.cursor = &pos
	t.updatePreview()
}

func (t *MeasureTool) resetPoints() {
	t.points = nil
	t.cursor = nil
}

func (t *MeasureTool) completeDistance() {
	geodetic := t.ellipsoid.ToGeodeticAll(t.points)
	distance := t.ellipsoid.Distance(geodetic[0], geodetic[1])
	t.finish(t.distancePrimitives(t.points, distance, 1), domain.Measurement{
		Type:     domain.MeasureDistance,
		Distance: distance,
		Points:   geodetic,
	})
}

func (t *MeasureTool) completeArea() {
	if len(t.points) < 3 {
		return
	}
	geodetic := t.ellipsoid.ToGeodeticAll(t.points)
	area := t.ellipsoid.SurfaceArea(geodetic)
	t.finish(t.areaPrimitives(t.points, geodetic, area, 1), domain.Measurement{
		Type:   domain.MeasureArea,
		Area:   area,
		Points: geodetic,
	})
}

// finish replaces the markers and preview with result entities that stay
// on the scene.
func (t *MeasureTool) finish(prims []output.Primitive, m domain.Measurement) {
	m.ID = uuid.NewString()
	m.CreatedAt = t.clock().UTC()

	t.clearPreview()
	t.clearMarkers()
	for _, pos := range t.points {
		prims = append(prims, output.Primitive{
			Kind:      output.PrimitivePoint,
			Positions: []domain.WorldPosition{pos},
			Fill:      measureCyan,
			Stroke:    domain.White,
			Width:     2,
			PointSize: 8,
		})
	}
	for _, p := range prims {
		p.Owner = m.ID
		if p.Role == "" {
			p.Role = output.RoleBody
		}
		p.Show = true
		t.results = append(t.results, t.viewport.Add(p))
	}
	t.resetPoints()

	t.metrics.IncToolOutcome(t.name, "complete")
	t.logger.Debug("measurement completed",
		"id", m.ID,
		"type", string(m.Type),
		"distance", m.Distance,
		"area", m.Area,
	)
	if t.onComplete != nil {
		t.onComplete(m)
	}
}

func (t *MeasureTool) updatePreview() {
	if len(t.points) == 0 {
		t.clearPreview()
		return
	}
	ws := append([]domain.WorldPosition(nil), t.points...)
	if t.cursor != nil {
		ws = append(ws, *t.cursor)
	}
	if len(ws) < 2 {
		t.clearPreview()
		return
	}
	geodetic := t.ellipsoid.ToGeodeticAll(ws)

	if t.measureType == domain.MeasureDistance {
		t.setPreview(t.distancePrimitives(ws, t.ellipsoid.Distance(geodetic[0], geodetic[1]), 0.7))
		return
	}
	var area float64
	if len(ws) >= 3 {
		area = t.ellipsoid.SurfaceArea(geodetic)
	}
	t.setPreview(t.areaPrimitives(ws, geodetic, area, 0.7))
}

func (t *MeasureTool) distancePrimitives(ws []domain.WorldPosition, distance, alpha float64) []output.Primitive {
	return []output.Primitive{
		{
			Kind:      output.PrimitivePolyline,
			Positions: ws[:2],
			Stroke:    measureCyan.WithAlpha(alpha),
			Width:     3,
			Dash:      output.Dash{Length: measureDash},
		},
		label(geodesy.Midpoint(ws[0], ws[1]), geodesy.FormatLength(distance)),
	}
}

func (t *MeasureTool) areaPrimitives(ws []domain.WorldPosition, geodetic []domain.GeodeticPosition, area, alpha float64) []output.Primitive {
	closed := append(append([]domain.WorldPosition(nil), ws...), ws[0])
	prims := []output.Primitive{{
		Kind:      output.PrimitivePolyline,
		Positions: closed,
		Stroke:    measureYellow.WithAlpha(alpha),
		Width:     3,
		Dash:      output.Dash{Length: measureDash},
	}}
	if len(ws) < 3 {
		return prims
	}
	centroid := geodesy.PolygonCentroid(geodetic)
	centroid.Height = 0
	return append(prims,
		output.Primitive{
			Kind:      output.PrimitivePolygon,
			Positions: ws,
			Fill:      measureYellow.WithAlpha(0.3),
		},
		label(t.ellipsoid.ToWorld(centroid), geodesy.FormatAreaUnits(area)),
	)
}
