package tool

import (
	"log/slog"
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
	"github.com/jobrunner/geodraw/internal/snap"
)

// Cursor styles set on the viewport.
const (
	CursorActive  = "crosshair"
	CursorDefault = "default"
)

// Mode is the lifecycle state of a tool.
type Mode int

// Tool modes. A tool may be re-activated from ModeEnd.
const (
	ModeReady Mode = iota
	ModeActive
	ModeEnd
)

var modeNames = map[Mode]string{
	ModeReady:  "ready",
	ModeActive: "active",
	ModeEnd:    "end",
}

// String returns the mode name.
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// Options are the collaborators shared by all tools.
type Options struct {
	Ellipsoid    *geodesy.Ellipsoid
	Snap         *snap.Service // optional
	Logger       *slog.Logger
	Metrics      output.MetricsCollector
	MoveInterval time.Duration
	Clock        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Ellipsoid == nil {
		o.Ellipsoid = geodesy.WGS84
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = &output.NoOpMetrics{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Base holds the lifecycle, picking and transient-entity bookkeeping shared
// by the tools. Tools are driven from a single event loop and are not safe
// for concurrent use.
type Base struct {
	name      string
	viewport  output.Viewport
	ellipsoid *geodesy.Ellipsoid
	snap      *snap.Service
	logger    *slog.Logger
	metrics   output.MetricsCollector
	clock     func() time.Time
	throttle  *Throttle

	mode    Mode
	markers []output.EntityID
	preview []output.EntityID

	// reset is called on deactivation to drop the tool's session state.
	reset func()
}

func newBase(name string, viewport output.Viewport, opts Options) Base {
	opts = opts.withDefaults()
	return Base{
		name:      name,
		viewport:  viewport,
		ellipsoid: opts.Ellipsoid,
		snap:      opts.Snap,
		logger:    opts.Logger.With("tool", name),
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		throttle:  NewThrottle(opts.MoveInterval),
		mode:      ModeReady,
	}
}

// Name returns the tool name.
func (b *Base) Name() string { return b.name }

// Mode returns the lifecycle state.
func (b *Base) Mode() Mode { return b.mode }

// Active reports whether the tool is handling events.
func (b *Base) Active() bool { return b.mode == ModeActive }

// Activate starts handling events.
func (b *Base) Activate() {
	if b.mode == ModeActive {
		b.logger.Warn("tool already active")
		return
	}
	b.mode = ModeActive
	b.throttle.Reset()
	b.viewport.SetCursor(CursorActive)
	b.logger.Debug("tool activated")
}

// Deactivate stops handling events and removes all transient entities.
func (b *Base) Deactivate() {
	if b.mode != ModeActive {
		return
	}
	b.clearPreview()
	b.clearMarkers()
	if b.reset != nil {
		b.reset()
	}
	b.throttle.Reset()
	b.viewport.SetCursor(CursorDefault)
	b.mode = ModeEnd
	b.logger.Debug("tool deactivated")
}

// PickPosition resolves a screen position against terrain first and the
// bare ellipsoid second.
func (b *Base) PickPosition(screen domain.ScreenPosition) (domain.WorldPosition, bool) {
	if pos, ok := b.viewport.PickTerrain(screen); ok && pos.IsFinite() {
		return pos, true
	}
	if pos, ok := b.viewport.PickEllipsoid(screen); ok && pos.IsFinite() {
		return pos, true
	}
	return domain.WorldPosition{}, false
}

// resolve picks a position, preferring a snap target when one is in range.
func (b *Base) resolve(screen domain.ScreenPosition) (domain.WorldPosition, bool) {
	if b.snap != nil {
		if target, ok := b.snap.FindSnapTarget(screen); ok {
			return target.Position, true
		}
	}
	return b.PickPosition(screen)
}

// admitMove applies the move throttle.
func (b *Base) admitMove(screen domain.ScreenPosition) (domain.ScreenPosition, bool) {
	return b.throttle.Offer(b.clock(), screen)
}

// flushMove releases a parked move once its window has elapsed.
func (b *Base) flushMove() (domain.ScreenPosition, bool) {
	return b.throttle.Flush(b.clock())
}

func (b *Base) addMarker(pos domain.WorldPosition, fill domain.Color) {
	id := b.viewport.Add(output.Primitive{
		Kind:      output.PrimitivePoint,
		Owner:     b.name,
		Role:      output.RoleMarker,
		Positions: []domain.WorldPosition{pos},
		Fill:      fill,
		Stroke:    domain.White,
		Width:     2,
		PointSize: 8,
		Show:      true,
	})
	b.markers = append(b.markers, id)
}

func (b *Base) clearMarkers() {
	for _, id := range b.markers {
		b.viewport.Remove(id)
	}
	b.markers = nil
}

// setPreview replaces the preview entities.
func (b *Base) setPreview(prims []output.Primitive) {
	b.clearPreview()
	for _, p := range prims {
		p.Owner = b.name
		p.Role = output.RolePreview
		p.Show = true
		b.preview = append(b.preview, b.viewport.Add(p))
	}
}

func (b *Base) clearPreview() {
	for _, id := range b.preview {
		b.viewport.Remove(id)
	}
	b.preview = nil
}

// MarkerCount returns the number of vertex markers on the scene.
func (b *Base) MarkerCount() int { return len(b.markers) }

// PreviewCount returns the number of preview entities on the scene.
func (b *Base) PreviewCount() int { return len(b.preview) }

func parseColor(logger *slog.Logger, css string, alpha float64) domain.Color {
	c, ok := domain.ParseColorOr(css, domain.White)
	if !ok {
		logger.Warn("invalid CSS color, using white", "color", css)
	}
	return c.WithAlpha(alpha)
}

func label(pos domain.WorldPosition, text string) output.Primitive {
	return output.Primitive{
		Kind:      output.PrimitiveLabel,
		Role:      output.RoleLabel,
		Positions: []domain.WorldPosition{pos},
		Text:      text,
		Fill:      domain.White,
		Stroke:    domain.Color{A: 1},
		Width:     2,
	}
}
