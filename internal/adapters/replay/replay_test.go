package replay

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
	"github.com/jobrunner/geodraw/internal/snap"
)

const drawScript = `
name: survey
camera:
  center: [8.0, 50.0]
  meters_per_pixel: 10
events:
  - {type: tool, tool: draw, kind: polygon}
  - {type: style, style: {strokeColor: "#FF0000"}}
  - {type: click, x: 100, y: 100, at: 0ms}
  - {type: move, x: 150, y: 100, at: 5ms}
  - {type: click, x: 200, y: 100, at: 20ms}
  - {type: click, x: 200, y: 200, at: 40ms}
  - {type: dblclick, x: 100, y: 200, at: 60ms}
  - {type: tool, tool: draw, kind: line, at: 80ms}
  - {type: click, x: 300, y: 300, at: 100ms}
  - {type: cancel, at: 120ms}
  - {type: tool, tool: measure, kind: distance, at: 140ms}
  - {type: click, x: 500, y: 360, at: 160ms}
  - {type: click, x: 600, y: 360, at: 180ms}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(drawScript))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Name != "survey" || len(s.Events) != 13 {
		t.Fatalf("script = %q with %d events", s.Name, len(s.Events))
	}
	if s.Events[3].At != 5*time.Millisecond {
		t.Errorf("Events[3].At = %v, want 5ms", s.Events[3].At)
	}
	if s.Events[1].Style.StrokeColor == nil || *s.Events[1].Style.StrokeColor != "#FF0000" {
		t.Errorf("style patch not decoded: %+v", s.Events[1].Style)
	}
	cam := s.Camera.Camera()
	if cam.Center.Longitude != 8 || cam.Center.Latitude != 50 || cam.MetersPerPixel != 10 {
		t.Errorf("Camera() = %+v", cam)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"not yaml", "events: [:"},
		{"unknown type", "events: [{type: wiggle}]"},
		{"unknown tool", "events: [{type: tool, tool: lasso}]"},
		{"time goes backwards", "events: [{type: click, at: 20ms}, {type: click, at: 10ms}]"},
		{"bad center", "camera: {center: [200, 0]}"},
		{"short center", "camera: {center: [1]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.script))
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Parse() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	s, err := Parse([]byte(drawScript))
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), s, Options{Snap: snap.DefaultOptions(), Logger: testLogger()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(res.Features))
	}
	f := res.Features[0]
	if f.Kind != domain.KindPolygon || len(f.Positions) != 3 {
		t.Errorf("feature = %s with %d vertices, want polygon with 3", f.Kind, len(f.Positions))
	}
	if f.Style.StrokeColor != "#FF0000" {
		t.Errorf("StrokeColor = %q, want #FF0000", f.Style.StrokeColor)
	}
	if res.Cancelled != 1 {
		t.Errorf("Cancelled = %d, want 1", res.Cancelled)
	}

	if len(res.Measurements) != 1 {
		t.Fatalf("measurements = %d, want 1", len(res.Measurements))
	}
	if d := res.Measurements[0].Distance; math.Abs(d-1000) > 10 {
		t.Errorf("Distance = %v, want about 1000 m", d)
	}

	if len(res.Collection.Features) != 1 {
		t.Errorf("collection features = %d, want 1", len(res.Collection.Features))
	}
	if n := res.Scene.CountRole(output.RolePreview); n != 0 {
		t.Errorf("preview entities left = %d, want 0", n)
	}
}

func TestRunSnapsToEarlierShapes(t *testing.T) {
	script := `
events:
  - {type: tool, tool: draw, kind: point}
  - {type: click, x: 400, y: 300}
  - {type: tool, tool: draw, kind: point}
  - {type: click, x: 404, y: 303, at: 10ms}
`
	s, err := Parse([]byte(script))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Run(context.Background(), s, Options{Snap: snap.DefaultOptions(), Logger: testLogger()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(res.Features))
	}
	a, b := res.Features[0].Positions[0], res.Features[1].Positions[0]
	if math.Abs(a.Longitude-b.Longitude) > 1e-7 || math.Abs(a.Latitude-b.Latitude) > 1e-7 {
		t.Errorf("second point %+v did not snap onto %+v", b, a)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"click without tool", "events: [{type: click, x: 1, y: 1}]"},
		{"bad kind", "events: [{type: tool, tool: draw, kind: hexagon}]"},
		{"bad measure type", "events: [{type: tool, tool: measure, kind: volume}]"},
		{"bad style", "events: [{type: tool, tool: draw}, {type: style, style: {opacity: 4}}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.script))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if _, err := Run(context.Background(), s, Options{Logger: testLogger()}); err == nil {
				t.Error("Run() error = nil, want error")
			}
		})
	}
}

func TestRunCanceledContext(t *testing.T) {
	s, err := Parse([]byte(drawScript))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, s, Options{Logger: testLogger()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, []byte(drawScript), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
}
