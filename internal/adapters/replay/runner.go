package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/adapters/scene"
	"github.com/jobrunner/geodraw/internal/application"
	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
	"github.com/jobrunner/geodraw/internal/snap"
	"github.com/jobrunner/geodraw/internal/tool"
)

// Options configures a replay run.
type Options struct {
	Ellipsoid    *geodesy.Ellipsoid
	Terrain      output.TerrainSampler // optional
	Snap         snap.Options
	Style        domain.StylePatch // initial draw style
	MoveInterval time.Duration
	Metrics      output.MetricsCollector
	Logger       *slog.Logger
}

// Result is what a replayed script produced.
type Result struct {
	Features     []domain.Feature
	Measurements []domain.Measurement
	Cancelled    int
	Collection   *geojson.FeatureCollection
	Scene        *scene.Headless
}

// handler is the event surface shared by the tools.
type handler interface {
	Active() bool
	Activate()
	Deactivate()
	HandleClick(domain.ScreenPosition)
	HandleDoubleClick(domain.ScreenPosition)
	HandleMove(domain.ScreenPosition)
	HandleCancel()
	Tick()
}

type runner struct {
	opts    Options
	logger  *slog.Logger
	now     time.Time
	view    *scene.Headless
	store   *application.FeatureStore
	snap    *snap.Service
	draw    *tool.DrawTool
	measure *tool.MeasureTool
	active  handler
	result  *Result
}

// Run feeds the script's events to the tools on a fresh headless scene.
// Completed shapes go into a feature store so later clicks can snap to
// them.
func Run(ctx context.Context, s *Script, opts Options) (*Result, error) {
	if opts.Ellipsoid == nil {
		opts.Ellipsoid = geodesy.WGS84
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = &output.NoOpMetrics{}
	}

	r := &runner{
		opts:   opts,
		logger: opts.Logger.With("script", s.Name),
		now:    time.Unix(0, 0).UTC(),
		result: &Result{},
	}
	start := r.now
	r.view = scene.New(s.Camera.Camera(), opts.Ellipsoid, opts.Terrain, opts.Logger)
	r.snap = snap.NewService(r.view, opts.Metrics, opts.Snap)
	r.store = application.NewFeatureStore(application.StoreOptions{
		Scene:     r.view,
		Snap:      r.snap,
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		Ellipsoid: opts.Ellipsoid,
		Clock:     r.clock,
	})
	if err := r.buildTools(ctx); err != nil {
		return nil, err
	}

	for i, e := range s.Events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.now = start.Add(e.At)
		if r.active != nil {
			r.active.Tick()
		}
		if err := r.dispatch(e); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, e.Type, err)
		}
	}
	if r.active != nil {
		r.active.Deactivate()
	}

	fc, err := r.store.Export(false)
	if err != nil {
		return nil, err
	}
	r.result.Features = r.store.List(ctx)
	r.result.Collection = fc
	r.result.Scene = r.view
	r.logger.Info("script replayed",
		"events", len(s.Events),
		"features", len(r.result.Features),
		"measurements", len(r.result.Measurements),
	)
	return r.result, nil
}

func (r *runner) clock() time.Time { return r.now }

func (r *runner) buildTools(ctx context.Context) error {
	base := tool.Options{
		Ellipsoid:    r.opts.Ellipsoid,
		Snap:         r.snap,
		Logger:       r.opts.Logger,
		Metrics:      r.opts.Metrics,
		MoveInterval: r.opts.MoveInterval,
		Clock:        r.clock,
	}

	var err error
	r.draw, err = tool.NewDrawTool(r.view, tool.DrawOptions{
		Options: base,
		Kind:    domain.KindPolygon,
		Style:   r.opts.Style,
		OnComplete: func(f domain.Feature) {
			if _, err := r.store.Add(ctx, f); err != nil {
				r.logger.Warn("dropping completed shape", "id", f.ID, "error", err)
			}
		},
		OnCancel: func() { r.result.Cancelled++ },
	})
	if err != nil {
		return err
	}

	r.measure, err = tool.NewMeasureTool(r.view, tool.MeasureOptions{
		Options:    base,
		OnComplete: func(m domain.Measurement) { r.result.Measurements = append(r.result.Measurements, m) },
		OnCancel:   func() { r.result.Cancelled++ },
	})
	return err
}

func (r *runner) dispatch(e Event) error {
	if e.Type == EventTool {
		return r.selectTool(e)
	}
	if r.active == nil {
		return fmt.Errorf("no active tool: %w", domain.ErrInvalidInput)
	}

	switch e.Type {
	case EventClick:
		r.active.HandleClick(e.Screen())
	case EventDoubleClick:
		r.active.HandleDoubleClick(e.Screen())
	case EventMove:
		r.active.HandleMove(e.Screen())
	case EventCancel:
		r.active.HandleCancel()
	case EventFinish:
		if r.active == handler(r.draw) {
			r.draw.Finish()
		}
	case EventStyle:
		return r.draw.SetStyle(e.Style)
	case EventClear:
		r.measure.ClearResults()
	}
	return nil
}

// selectTool switches tools. Switching deactivates the previous tool,
// which drops its construction in progress.
func (r *runner) selectTool(e Event) error {
	var next handler
	switch e.Tool {
	case "draw":
		if e.Kind != "" {
			kind, err := domain.ParseKind(e.Kind)
			if err != nil {
				return err
			}
			if err := r.draw.SetKind(kind); err != nil {
				return err
			}
		}
		next = r.draw
	case "measure":
		if e.Kind != "" {
			if err := r.measure.SetType(domain.MeasureType(e.Kind)); err != nil {
				return err
			}
		}
		next = r.measure
	default:
		return fmt.Errorf("unknown tool %q: %w", e.Tool, domain.ErrInvalidInput)
	}

	if r.active != nil && r.active != next {
		r.active.Deactivate()
	}
	if !next.Active() {
		next.Activate()
	}
	r.active = next
	return nil
}
