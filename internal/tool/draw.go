package tool

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// DefaultDrawStyle is the style of shapes drawn interactively.
func DefaultDrawStyle() domain.Style {
	return domain.Style{
		FillColor:   "#3B82F6",
		FillOpacity: 0.3,
		StrokeColor: "#22D3EE",
		StrokeWidth: 3,
		PointSize:   10,
		PointColor:  "#22D3EE",
		Opacity:     1,
	}
}

// DrawOptions configures a DrawTool.
type DrawOptions struct {
	Options
	Kind       domain.Kind
	Style      domain.StylePatch
	OnComplete func(domain.Feature)
	OnCancel   func()
}

// DrawTool turns pointer events into finished shapes.
type DrawTool struct {
	Base

	session    Session
	style      domain.Style
	onComplete func(domain.Feature)
	onCancel   func()
}

// NewDrawTool creates a draw tool in the ready mode.
func NewDrawTool(viewport output.Viewport, opts DrawOptions) (*DrawTool, error) {
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnsupportedGeometry, int(opts.Kind))
	}
	style := DefaultDrawStyle().Merge(opts.Style)
	if err := style.Validate(); err != nil {
		return nil, err
	}
	t := &DrawTool{
		Base:       newBase("draw", viewport, opts.Options),
		session:    NewSession(opts.Kind),
		style:      style,
		onComplete: opts.OnComplete,
		onCancel:   opts.OnCancel,
	}
	t.reset = func() { t.session = t.session.Reset() }
	return t, nil
}

// Kind returns the shape kind being drawn.
func (t *DrawTool) Kind() domain.Kind { return t.session.Kind }

// Session returns a copy of the in-progress construction.
func (t *DrawTool) Session() Session {
	s := t.session
	s.Vertices = append([]domain.WorldPosition(nil), s.Vertices...)
	return s
}

// Style returns the style applied to new shapes.
func (t *DrawTool) Style() domain.Style { return t.style }

// SetKind switches the shape kind, discarding any construction in progress.
func (t *DrawTool) SetKind(kind domain.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrUnsupportedGeometry, int(kind))
	}
	t.clearPreview()
	t.clearMarkers()
	t.session = NewSession(kind)
	return nil
}

// SetStyle merges a patch into the drawing style.
func (t *DrawTool) SetStyle(p domain.StylePatch) error {
	style := t.style.Merge(p)
	if err := style.Validate(); err != nil {
		return err
	}
	t.style = style
	return nil
}

// HandleClick accepts a vertex at the picked position.
func (t *DrawTool) HandleClick(screen domain.ScreenPosition) {
	if !t.Active() {
		return
	}
	pos, ok := t.resolve(screen)
	if !ok {
		// the second corner falls back to the last cursor position
		if !t.session.AwaitingSecond() || t.session.Cursor == nil {
			return
		}
		pos = *t.session.Cursor
	}

	next, outcome := t.session.Click(pos)
	switch outcome {
	case OutcomeAppended:
		t.session = next
		t.addMarker(pos, t.color(t.style.PointColor, 1))
		t.updatePreview()
	case OutcomeCompleted:
		t.complete(next)
	}
}

// HandleDoubleClick finishes a line or polygon.
func (t *DrawTool) HandleDoubleClick(screen domain.ScreenPosition) {
	if !t.Active() {
		return
	}
	pos, ok := t.resolve(screen)
	if !ok {
		t.Finish()
		return
	}
	if next, outcome := t.session.DoubleClick(pos); outcome == OutcomeCompleted {
		t.complete(next)
	}
}

// HandleMove updates the cursor and the preview, subject to the throttle.
func (t *DrawTool) HandleMove(screen domain.ScreenPosition) {
	if !t.Active() {
		return
	}
	if admitted, ok := t.admitMove(screen); ok {
		t.move(admitted)
	}
}

// Tick releases a move parked by the throttle.
func (t *DrawTool) Tick() {
	if !t.Active() {
		return
	}
	if admitted, ok := t.flushMove(); ok {
		t.move(admitted)
	}
}

// HandleCancel abandons the construction in progress. The tool stays
// active.
func (t *DrawTool) HandleCancel() {
	if !t.Active() {
		return
	}
	t.clearPreview()
	t.clearMarkers()
	t.session = t.session.Cancel()
	t.metrics.IncToolOutcome(t.name, "cancel")
	if t.onCancel != nil {
		t.onCancel()
	}
}

// Finish completes a line or polygon. Too few vertices is a no-op.
func (t *DrawTool) Finish() {
	if !t.Active() {
		return
	}
	if next, outcome := t.session.Finish(); outcome == OutcomeCompleted {
		t.complete(next)
	}
}

func (t *DrawTool) move(screen domain.ScreenPosition) {
	pos, ok := t.resolve(screen)
	if !ok {
		return
	}
	t.session = t.session.Move(pos)
	t.updatePreview()
}

func (t *DrawTool) complete(s Session) {
	if !s.CanComplete() {
		return
	}
	feature := t.feature(s)
	if r, ok := feature.GetFloatProperty("radius"); ok && r <= 0 {
		// zero radius: keep the anchor and wait for another click
		return
	}
	t.clearPreview()
	t.clearMarkers()
	t.session = s.Reset()
	t.metrics.IncToolOutcome(t.name, "complete")
	t.logger.Debug("shape completed",
		"id", feature.ID,
		"kind", feature.Kind.String(),
		"vertices", len(feature.Positions),
	)
	if t.onComplete != nil {
		t.onComplete(feature)
	}
}

// feature builds the emitted description of a completed session.
func (t *DrawTool) feature(s Session) domain.Feature {
	geodetic := t.ellipsoid.ToGeodeticAll(s.Vertices)
	props := make(map[string]interface{})
	switch s.Kind {
	case domain.KindLine:
		props["length"] = t.ellipsoid.LineLength(geodetic)
	case domain.KindPolygon:
		props["area"] = geodesy.PlanarPolygonArea(geodetic)
	case domain.KindCircle:
		r := t.ellipsoid.Distance(geodetic[0], geodetic[1])
		props["radius"] = r
		props["area"] = math.Pi * r * r
	case domain.KindRectangle:
		e := domain.ExtentOf(geodetic)
		props["west"] = e.West
		props["south"] = e.South
		props["east"] = e.East
		props["north"] = e.North
	}
	now := t.clock().UTC()
	return domain.Feature{
		ID:         uuid.NewString(),
		Kind:       s.Kind,
		Positions:  geodetic,
		Style:      t.style,
		Properties: props,
		Visible:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (t *DrawTool) updatePreview() {
	if t.session.Cursor == nil || len(t.session.Vertices) == 0 {
		t.clearPreview()
		return
	}
	t.setPreview(t.previewPrimitives(t.session.Vertices, *t.session.Cursor))
}

func (t *DrawTool) previewPrimitives(vs []domain.WorldPosition, cursor domain.WorldPosition) []output.Primitive {
	stroke := func(alpha float64) domain.Color { return t.color(t.style.StrokeColor, alpha) }
	last := vs[len(vs)-1]

	switch t.session.Kind {
	case domain.KindLine:
		prims := []output.Primitive{{
			Kind:      output.PrimitivePolyline,
			Positions: []domain.WorldPosition{last, cursor},
			Stroke:    stroke(0.5),
			Width:     t.style.StrokeWidth,
		}}
		if len(vs) >= 2 {
			prims = append(prims, output.Primitive{
				Kind:      output.PrimitivePolyline,
				Positions: append(append([]domain.WorldPosition(nil), vs...), cursor),
				Stroke:    stroke(0.3),
				Width:     t.style.StrokeWidth,
			})
		}
		return prims

	case domain.KindPolygon:
		if len(vs) < 2 {
			return []output.Primitive{{
				Kind:      output.PrimitivePolyline,
				Positions: []domain.WorldPosition{last, cursor},
				Stroke:    stroke(0.5),
				Width:     t.style.StrokeWidth,
			}}
		}
		ring := append(append([]domain.WorldPosition(nil), vs...), cursor)
		closed := append(append([]domain.WorldPosition(nil), ring...), ring[0])
		return []output.Primitive{
			{
				Kind:      output.PrimitivePolygon,
				Positions: ring,
				Fill:      t.color(t.style.FillColor, t.style.FillOpacity*0.5),
			},
			{
				Kind:      output.PrimitivePolyline,
				Positions: closed,
				Stroke:    stroke(0.7),
				Width:     t.style.StrokeWidth,
			},
		}

	case domain.KindCircle:
		radius := geodesy.ChordDistance(vs[0], cursor)
		return []output.Primitive{
			{
				Kind:      output.PrimitiveEllipse,
				Positions: []domain.WorldPosition{vs[0]},
				Radius:    radius,
				Fill:      t.color(t.style.FillColor, t.style.FillOpacity*0.5),
				Stroke:    stroke(0.7),
				Width:     t.style.StrokeWidth,
			},
			label(cursor, fmt.Sprintf("r=%.2fkm", radius/1000)),
		}

	case domain.KindRectangle:
		a := t.ellipsoid.ToGeodetic(vs[0])
		b := t.ellipsoid.ToGeodetic(cursor)
		e := domain.ExtentOf([]domain.GeodeticPosition{a, b})
		c := e.Center()
		width := geodesy.ChordDistance(
			t.ellipsoid.ToWorld(domain.GeodeticPosition{Longitude: e.West, Latitude: c.Latitude}),
			t.ellipsoid.ToWorld(domain.GeodeticPosition{Longitude: e.East, Latitude: c.Latitude}),
		)
		height := geodesy.ChordDistance(
			t.ellipsoid.ToWorld(domain.GeodeticPosition{Longitude: c.Longitude, Latitude: e.South}),
			t.ellipsoid.ToWorld(domain.GeodeticPosition{Longitude: c.Longitude, Latitude: e.North}),
		)
		return []output.Primitive{
			{
				Kind:   output.PrimitiveRectangle,
				Extent: e,
				Fill:   t.color(t.style.FillColor, t.style.FillOpacity*0.5),
				Stroke: stroke(0.7),
				Width:  t.style.StrokeWidth,
			},
			label(t.ellipsoid.ToWorld(c), fmt.Sprintf("%.2fkm × %.2fkm", width/1000, height/1000)),
		}
	}
	return nil
}

func (t *DrawTool) color(css string, alpha float64) domain.Color {
	return parseColor(t.logger, css, alpha*t.style.Opacity)
}
