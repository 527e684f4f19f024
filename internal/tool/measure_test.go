package tool

import (
	"math"
	"testing"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

func newMeasureTool(t *testing.T, mt domain.MeasureType) (*MeasureTool, *fakeViewport, *[]domain.Measurement) {
	t.Helper()
	vp := newFakeViewport()
	var results []domain.Measurement
	tool, err := NewMeasureTool(vp, MeasureOptions{
		Options:    testOptions(newManualClock()),
		Type:       mt,
		OnComplete: func(m domain.Measurement) { results = append(results, m) },
	})
	if err != nil {
		t.Fatalf("NewMeasureTool() error = %v", err)
	}
	tool.Activate()
	return tool, vp, &results
}

func TestMeasureDistance(t *testing.T) {
	tool, vp, results := newMeasureTool(t, domain.MeasureDistance)

	tool.HandleClick(sp(0, 0))
	if len(*results) != 0 {
		t.Fatal("completed after one click")
	}
	tool.HandleClick(sp(10, 0))

	if len(*results) != 1 {
		t.Fatalf("results = %d, want 1", len(*results))
	}
	m := (*results)[0]
	if m.Type != domain.MeasureDistance || len(m.Points) != 2 {
		t.Fatalf("measurement = %+v", m)
	}
	if math.Abs(m.Distance-1113.19) > 1 {
		t.Errorf("Distance = %v, want about 1113 m", m.Distance)
	}
	if len(tool.Points()) != 0 {
		t.Error("points not reset after completion")
	}
	if vp.count(output.RolePreview) != 0 {
		t.Error("preview left after completion")
	}
	if tool.ResultCount() == 0 || vp.count(output.RoleLabel) != 1 {
		t.Errorf("results = %d labels = %d, want result entities with one label",
			tool.ResultCount(), vp.count(output.RoleLabel))
	}

	tool.ClearResults()
	if len(vp.entities) != 0 {
		t.Errorf("entities left after ClearResults: %d", len(vp.entities))
	}
}

func TestMeasureArea(t *testing.T) {
	tool, _, results := newMeasureTool(t, domain.MeasureArea)

	tool.HandleClick(sp(0, 0))
	tool.HandleDoubleClick(sp(10, 0))
	if len(*results) != 0 {
		t.Fatal("double click with one point must be ignored")
	}

	tool.HandleClick(sp(10, 0))
	tool.HandleClick(sp(10, 10))
	tool.HandleDoubleClick(sp(0, 10))

	if len(*results) != 1 {
		t.Fatalf("results = %d, want 1", len(*results))
	}
	m := (*results)[0]
	if len(m.Points) != 4 {
		t.Errorf("points = %d, want 4 including the double-click position", len(m.Points))
	}
	want := geodesy.PlanarPolygonArea(m.Points)
	if math.Abs(m.Area-want)/want > 0.02 {
		t.Errorf("Area = %v, want about %v", m.Area, want)
	}
}

func TestMeasureAreaNeedsThreePoints(t *testing.T) {
	tool, vp, results := newMeasureTool(t, domain.MeasureArea)
	vp.misses[sp(5, 5)] = true

	tool.HandleClick(sp(0, 0))
	tool.HandleClick(sp(10, 0))
	tool.HandleDoubleClick(sp(5, 5))

	if len(*results) != 0 {
		t.Error("completed with two points")
	}
	if len(tool.Points()) != 2 {
		t.Errorf("points = %d, want 2", len(tool.Points()))
	}
}

func TestMeasurePreview(t *testing.T) {
	tool, vp, _ := newMeasureTool(t, domain.MeasureArea)

	tool.HandleClick(sp(0, 0))
	tool.HandleClick(sp(10, 0))
	tool.HandleMove(sp(10, 10))

	// dashed ring, fill and area label
	if got := vp.count(output.RolePreview); got != 3 {
		t.Errorf("preview entities = %d, want 3", got)
	}
	for _, p := range vp.entities {
		if p.Role == output.RolePreview && p.Kind == output.PrimitivePolyline && p.Dash.Length != measureDash {
			t.Errorf("preview line dash = %v, want %v", p.Dash.Length, measureDash)
		}
	}
}

func TestMeasureCancelClearsState(t *testing.T) {
	vp := newFakeViewport()
	cancelled := 0
	tool, err := NewMeasureTool(vp, MeasureOptions{
		Options:  testOptions(newManualClock()),
		Type:     domain.MeasureArea,
		OnCancel: func() { cancelled++ },
	})
	if err != nil {
		t.Fatal(err)
	}
	tool.Activate()

	tool.HandleClick(sp(0, 0))
	tool.HandleClick(sp(10, 0))
	tool.HandleCancel()

	if cancelled != 1 || len(tool.Points()) != 0 || len(vp.entities) != 0 {
		t.Errorf("cancel: calls=%d points=%d entities=%d", cancelled, len(tool.Points()), len(vp.entities))
	}
}

func TestMeasureDeactivateKeepsResults(t *testing.T) {
	tool, vp, _ := newMeasureTool(t, domain.MeasureDistance)

	tool.HandleClick(sp(0, 0))
	tool.HandleClick(sp(10, 0))
	tool.HandleClick(sp(20, 0))
	tool.Deactivate()

	if vp.count(output.RoleMarker) != 0 || vp.count(output.RolePreview) != 0 {
		t.Error("deactivate left transient entities")
	}
	if len(vp.entities) != tool.ResultCount() || tool.ResultCount() == 0 {
		t.Errorf("entities = %d, results = %d", len(vp.entities), tool.ResultCount())
	}
	if vp.cursor != CursorDefault {
		t.Errorf("cursor = %q, want default", vp.cursor)
	}
}

func TestNewMeasureToolRejectsUnknownType(t *testing.T) {
	if _, err := NewMeasureTool(newFakeViewport(), MeasureOptions{Type: "volume"}); !domain.IsInvalidInput(err) {
		t.Errorf("NewMeasureTool() error = %v, want invalid input", err)
	}
}
