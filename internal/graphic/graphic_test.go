package graphic

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

func square() []domain.WorldPosition {
	return []domain.WorldPosition{world(0, 0), world(0.01, 0), world(0.01, 0.01), world(0, 0.01)}
}

func TestNewDefaults(t *testing.T) {
	g := newTestGraphic(domain.KindPolygon, newMockScene())

	if g.ID() == "" {
		t.Fatal("ID() is empty")
	}
	if want := "Polygon_" + g.ID()[len(g.ID())-6:]; g.Name() != want {
		t.Errorf("Name() = %q, want %q", g.Name(), want)
	}
	if g.Style() != domain.DefaultStyle() {
		t.Errorf("Style() = %+v, want defaults", g.Style())
	}
	if !g.Editable() || !g.Visible() || g.Created() {
		t.Errorf("flags editable=%v visible=%v created=%v", g.Editable(), g.Visible(), g.Created())
	}
	if _, err := New(domain.Kind(99), newMockScene(), Options{}); !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("New(99) error = %v, want ErrUnsupportedGeometry", err)
	}
}

func TestOpsTableComplete(t *testing.T) {
	for _, k := range domain.Kinds() {
		op := ops[k]
		if op.derive == nil || op.build == nil || op.geometry == nil || op.properties == nil || op.editHandles == nil || op.outline == nil {
			t.Errorf("ops[%s] is incomplete", k)
		}
	}
}

func TestCreateMinimumVertices(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		n    int
	}{
		{domain.KindPoint, 0},
		{domain.KindLine, 1},
		{domain.KindPolygon, 2},
		{domain.KindCircle, 1},
		{domain.KindRectangle, 1},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			scene := newMockScene()
			g := newTestGraphic(tt.kind, scene)
			err := g.Create(square()[:tt.n])
			if !errors.Is(err, domain.ErrInsufficientVertices) {
				t.Errorf("Create(%d) error = %v, want ErrInsufficientVertices", tt.n, err)
			}
			if len(scene.entities) != 0 {
				t.Errorf("failed Create left %d entities", len(scene.entities))
			}
		})
	}
}

func TestCreateRejectsNonFinite(t *testing.T) {
	g := newTestGraphic(domain.KindPoint, newMockScene())
	err := g.Create([]domain.WorldPosition{{X: math.NaN()}})
	if !errors.Is(err, domain.ErrInvalidPosition) {
		t.Errorf("Create(NaN) error = %v, want ErrInvalidPosition", err)
	}
}

func TestCircle(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindCircle, scene)

	if err := g.Create([]domain.WorldPosition{world(10, 45), world(10, 45)}); !errors.Is(err, domain.ErrInvalidGeometry) {
		t.Fatalf("Create(zero radius) error = %v, want ErrInvalidGeometry", err)
	}

	if err := g.Create([]domain.WorldPosition{world(10, 45), world(10.01, 45)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	wantR := geodesy.Distance(g.GeodeticPositions()[0], g.GeodeticPositions()[1])
	if g.Radius() != wantR {
		t.Errorf("Radius() = %v, want %v", g.Radius(), wantR)
	}
	if g.Area() != math.Pi*g.Radius()*g.Radius() {
		t.Errorf("Area() = %v, want pi*r^2", g.Area())
	}
	if scene.count(output.RoleBody) != 1 || scene.count(output.RoleLabel) != 2 {
		t.Errorf("entities body=%d label=%d, want 1/2", scene.count(output.RoleBody), scene.count(output.RoleLabel))
	}

	f, err := g.ToGeoJSON()
	if err != nil {
		t.Fatalf("ToGeoJSON() error = %v", err)
	}
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry = %T, want orb.Polygon", f.Geometry)
	}
	if len(poly[0]) != 37 || poly[0][0] != poly[0][36] {
		t.Errorf("ring has %d points, closed=%v", len(poly[0]), poly[0][0] == poly[0][len(poly[0])-1])
	}
	if f.Properties["shapeType"] != "circle" || f.Properties["radius"] != g.Radius() {
		t.Errorf("properties = %v", f.Properties)
	}

	before := g.Radius()
	if err := g.UpdateRadius(world(10.02, 45)); err != nil {
		t.Fatalf("UpdateRadius() error = %v", err)
	}
	if g.Radius() <= before {
		t.Errorf("UpdateRadius() radius = %v, want > %v", g.Radius(), before)
	}

	if err := g.ToggleRadiusLabel(false); err != nil {
		t.Fatalf("ToggleRadiusLabel() error = %v", err)
	}
	if n := scene.count(output.RoleLabel); n != 1 {
		t.Errorf("labels after toggle = %d, want 1", n)
	}
}

func TestRectangle(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindRectangle, scene)
	if err := g.Create([]domain.WorldPosition{world(0.02, 0), world(0, 0.01)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	b := g.Bounds()
	if math.Abs(b.West) > 1e-7 || math.Abs(b.East-0.02) > 1e-7 || math.Abs(b.North-0.01) > 1e-7 {
		t.Errorf("Bounds() = %+v", b)
	}
	nw := domain.GeodeticPosition{Longitude: b.West, Latitude: b.North}
	ne := domain.GeodeticPosition{Longitude: b.East, Latitude: b.North}
	sw := domain.GeodeticPosition{Longitude: b.West, Latitude: b.South}
	if g.Width() != geodesy.Distance(nw, ne) || g.Height() != geodesy.Distance(nw, sw) {
		t.Errorf("Width/Height = %v/%v", g.Width(), g.Height())
	}
	if g.Area() != g.Width()*g.Height() {
		t.Errorf("Area() = %v, want width*height", g.Area())
	}

	f, err := g.ToGeoJSON()
	if err != nil {
		t.Fatalf("ToGeoJSON() error = %v", err)
	}
	ring := f.Geometry.(orb.Polygon)[0]
	want := orb.Ring{{b.West, b.North}, {b.East, b.North}, {b.East, b.South}, {b.West, b.South}, {b.West, b.North}}
	if !ring.Equal(want) {
		t.Errorf("ring = %v, want %v", ring, want)
	}
	for _, key := range []string{"west", "south", "east", "north", "dimensionsFormatted"} {
		if _, ok := f.Properties[key]; !ok {
			t.Errorf("property %q missing", key)
		}
	}

	if err := g.StartEdit(); err != nil {
		t.Fatalf("StartEdit() error = %v", err)
	}
	if n := scene.count(output.RoleHandle); n != 4 {
		t.Errorf("handles = %d, want 4", n)
	}
}

func TestPolygonVertexEdits(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		edit    func(*Graphic) error
		wantErr error
		wantN   int
	}{
		{"remove at minimum", 3, func(g *Graphic) error { return g.RemoveVertex(0) }, domain.ErrMinimumVertexViolation, 3},
		{"minimum checked before index", 3, func(g *Graphic) error { return g.RemoveVertex(99) }, domain.ErrMinimumVertexViolation, 3},
		{"remove from four", 4, func(g *Graphic) error { return g.RemoveVertex(1) }, nil, 3},
		{"remove bad index", 4, func(g *Graphic) error { return g.RemoveVertex(4) }, domain.ErrInvalidIndex, 4},
		{"update bad index", 4, func(g *Graphic) error { return g.UpdateVertex(-1, world(1, 1)) }, domain.ErrInvalidIndex, 4},
		{"insert past end", 4, func(g *Graphic) error { return g.InsertVertex(4, world(1, 1)) }, domain.ErrInvalidIndex, 4},
		{"insert", 4, func(g *Graphic) error { return g.InsertVertex(0, world(0.005, -0.005)) }, nil, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraphic(domain.KindPolygon, newMockScene())
			if err := g.Create(square()[:tt.start]); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			err := tt.edit(g)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("edit error = %v", err)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("edit error = %v, want %v", err, tt.wantErr)
				}
				var ve *domain.VertexError
				if !errors.As(err, &ve) {
					t.Errorf("edit error type = %T, want *VertexError", err)
				}
			}
			if g.VertexCount() != tt.wantN {
				t.Errorf("VertexCount() = %d, want %d", g.VertexCount(), tt.wantN)
			}
		})
	}
}

func TestPolygonInsertPosition(t *testing.T) {
	g := newTestGraphic(domain.KindPolygon, newMockScene())
	if err := g.Create(square()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	p := world(0.005, -0.005)
	if err := g.InsertVertex(0, p); err != nil {
		t.Fatalf("InsertVertex() error = %v", err)
	}
	if g.Positions()[1] != p {
		t.Errorf("inserted vertex is not at index 1")
	}
	before := g.Area()
	if err := g.UpdateVertex(1, world(0.005, 0)); err != nil {
		t.Fatalf("UpdateVertex() error = %v", err)
	}
	if g.Area() >= before {
		t.Errorf("Area() = %v after flattening, want < %v", g.Area(), before)
	}
}

func TestPolygonMetrics(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindPolygon, scene)
	if err := g.Create(square()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	want := geodesy.PlanarPolygonArea(g.GeodeticPositions())
	if g.Area() != want {
		t.Errorf("Area() = %v, want %v", g.Area(), want)
	}
	if g.Perimeter() <= 0 {
		t.Errorf("Perimeter() = %v", g.Perimeter())
	}
	c := g.Centroid()
	if math.Abs(c.Longitude-0.005) > 1e-7 || math.Abs(c.Latitude-0.005) > 1e-7 {
		t.Errorf("Centroid() = %+v", c)
	}
	if len(scene.entities) != 3 {
		t.Errorf("entities = %d, want body, outline and label", len(scene.entities))
	}

	f, err := g.ToGeoJSON()
	if err != nil {
		t.Fatalf("ToGeoJSON() error = %v", err)
	}
	ring := f.Geometry.(orb.Polygon)[0]
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Errorf("ring = %v, want closed 5-point ring", ring)
	}
	if f.Properties["vertexCount"] != 4 {
		t.Errorf("vertexCount = %v", f.Properties["vertexCount"])
	}
}

func TestShowHideDestroy(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindPolygon, scene)
	if err := g.Create(square()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	total := len(scene.entities)

	g.Hide()
	g.Hide()
	if g.Visible() || scene.visible() != 0 {
		t.Errorf("after Hide: visible=%v shown=%d", g.Visible(), scene.visible())
	}
	if len(scene.entities) != total {
		t.Errorf("Hide() removed entities")
	}

	g.Show()
	if scene.visible() != total {
		t.Errorf("after Show: shown=%d, want %d", scene.visible(), total)
	}

	g.Hide()
	g.Destroy()
	g.Destroy()
	if !g.Destroyed() || len(scene.entities) != 0 {
		t.Errorf("after Destroy: destroyed=%v entities=%d", g.Destroyed(), len(scene.entities))
	}
	if scene.removed != total {
		t.Errorf("removed %d entities, want %d", scene.removed, total)
	}
	if err := g.Create(square()); !errors.Is(err, domain.ErrGraphicDestroyed) {
		t.Errorf("Create() after Destroy error = %v", err)
	}
	if _, err := g.ToGeoJSON(); !errors.Is(err, domain.ErrGraphicDestroyed) {
		t.Errorf("ToGeoJSON() after Destroy error = %v", err)
	}
}

func TestEditHandles(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindPolygon, scene)
	if err := g.Create(square()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := g.StartEdit(); err != nil {
			t.Fatalf("StartEdit() error = %v", err)
		}
	}
	if n := scene.count(output.RoleHandle); n != 4 {
		t.Errorf("handles = %d, want 4", n)
	}
	if err := g.InsertVertex(1, world(0.015, 0.005)); err != nil {
		t.Fatalf("InsertVertex() error = %v", err)
	}
	if n := scene.count(output.RoleHandle); n != 5 {
		t.Errorf("handles after insert = %d, want 5", n)
	}

	g.StopEdit()
	g.StopEdit()
	if n := scene.count(output.RoleHandle); n != 0 || g.Editing() {
		t.Errorf("handles after StopEdit = %d editing=%v", n, g.Editing())
	}

	ro, _ := New(domain.KindPolygon, scene, Options{ReadOnly: true, Logger: testLogger()})
	if err := ro.StartEdit(); !errors.Is(err, domain.ErrNotEditable) {
		t.Errorf("StartEdit() on read-only error = %v", err)
	}
}

func TestLine(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindLine, scene)
	pts := []domain.WorldPosition{world(0, 0), world(0.01, 0), world(0.01, 0.01)}
	if err := g.Create(pts); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if want := geodesy.WGS84.LineLength(g.GeodeticPositions()); g.Length() != want {
		t.Errorf("Length() = %v, want %v", g.Length(), want)
	}

	labels := scene.labels()
	if len(labels) != 1 || labels[0] != geodesy.FormatLength(g.Length()) {
		t.Errorf("labels = %v", labels)
	}

	if err := g.SetLineStyle(LineDashed); err != nil {
		t.Fatalf("SetLineStyle() error = %v", err)
	}
	for _, p := range scene.entities {
		if p.Role == output.RoleBody && p.Dash.Length != 16 {
			t.Errorf("dash length = %v, want 16", p.Dash.Length)
		}
	}
	removed := scene.removed
	if err := g.SetLineStyle(LineDashed); err != nil || scene.removed != removed {
		t.Errorf("unchanged SetLineStyle redrew the line")
	}
	if err := g.SetLineStyle("wavy"); !errors.Is(err, domain.ErrInvalidStyle) {
		t.Errorf("SetLineStyle(wavy) error = %v", err)
	}

	if err := g.ToggleLengthLabel(false); err != nil {
		t.Fatalf("ToggleLengthLabel() error = %v", err)
	}
	if len(scene.labels()) != 0 {
		t.Error("length label still shown")
	}

	f, err := g.ToGeoJSON()
	if err != nil {
		t.Fatalf("ToGeoJSON() error = %v", err)
	}
	if _, ok := f.Geometry.(orb.LineString); !ok {
		t.Errorf("geometry = %T, want LineString", f.Geometry)
	}
	if f.Properties["lineStyle"] != "dashed" {
		t.Errorf("lineStyle = %v", f.Properties["lineStyle"])
	}
}

func TestPoint(t *testing.T) {
	scene := newMockScene()
	g, _ := New(domain.KindPoint, scene, Options{Label: "well", Logger: testLogger()})
	if err := g.Create([]domain.WorldPosition{world(8, 50), world(9, 50)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(g.Positions()) != 1 {
		t.Errorf("Positions() len = %d, want 1", len(g.Positions()))
	}
	if err := g.UpdatePosition(world(8.5, 50)); err != nil {
		t.Fatalf("UpdatePosition() error = %v", err)
	}
	if math.Abs(g.GeodeticPositions()[0].Longitude-8.5) > 1e-7 {
		t.Errorf("UpdatePosition() lon = %v", g.GeodeticPositions()[0].Longitude)
	}

	f, err := g.ToGeoJSON()
	if err != nil {
		t.Fatalf("ToGeoJSON() error = %v", err)
	}
	for _, key := range []string{"id", "name", "type", "style", "createdAt"} {
		if _, ok := f.Properties[key]; !ok {
			t.Errorf("property %q missing", key)
		}
	}
	if f.Properties["type"] != "point" || f.Properties["label"] != "well" {
		t.Errorf("properties = %v", f.Properties)
	}
	if err := g.UpdateVertex(0, world(1, 1)); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("UpdateVertex() on a point error = %v", err)
	}
}

func TestInvalidColorFallsBackToWhite(t *testing.T) {
	scene := newMockScene()
	bad := "not-a-colour"
	g, _ := New(domain.KindPoint, scene, Options{
		Style:  domain.StylePatch{PointColor: &bad},
		Logger: testLogger(),
	})
	if err := g.Create([]domain.WorldPosition{world(0, 0)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, p := range scene.entities {
		if p.Role == output.RoleBody && (p.Fill.R != 1 || p.Fill.G != 1 || p.Fill.B != 1) {
			t.Errorf("fill = %+v, want white", p.Fill)
		}
	}
}

func TestUpdateStyleRedraws(t *testing.T) {
	scene := newMockScene()
	g := newTestGraphic(domain.KindLine, scene)
	if err := g.Create(square()[:2]); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	width := 7.0
	g.UpdateStyle(domain.StylePatch{StrokeWidth: &width})
	for _, p := range scene.entities {
		if p.Role == output.RoleBody && p.Width != 7 {
			t.Errorf("width = %v, want 7", p.Width)
		}
	}
	g.SetStyle(domain.DefaultStyle())
	if g.Style() != domain.DefaultStyle() {
		t.Error("SetStyle() did not replace the style")
	}
}

func TestFromFeature(t *testing.T) {
	f := domain.Feature{
		ID:   "c1",
		Kind: domain.KindCircle,
		Name: "pond",
		Positions: []domain.GeodeticPosition{
			domain.NewGeodeticPosition(10, 45),
			domain.NewGeodeticPosition(10.01, 45),
		},
		Properties: map[string]interface{}{"owner": "x"},
	}
	scene := newMockScene()
	g, err := FromFeature(f, scene, Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("FromFeature() error = %v", err)
	}
	if g.ID() != "c1" || g.Name() != "pond" || g.Visible() {
		t.Errorf("FromFeature() id=%s name=%s visible=%v", g.ID(), g.Name(), g.Visible())
	}
	if scene.visible() != 0 {
		t.Error("a hidden feature produced visible entities")
	}
	want := geodesy.Distance(f.Positions[0], f.Positions[1])
	if math.Abs(g.Radius()-want) > 1e-3 {
		t.Errorf("Radius() = %v, want %v", g.Radius(), want)
	}

	back := g.ToFeature()
	if back.Kind != domain.KindCircle || back.GetStringProperty("owner") != "x" {
		t.Errorf("ToFeature() = %+v", back)
	}

	bad := f
	bad.Positions = bad.Positions[:1]
	if _, err := FromFeature(bad, scene, Options{}); !errors.Is(err, domain.ErrInsufficientVertices) {
		t.Errorf("FromFeature(short) error = %v", err)
	}
}

func TestDecodeStyle(t *testing.T) {
	s, err := DecodeStyle(map[string]interface{}{
		"strokeColor": "#000000",
		"strokeWidth": 4,
	})
	if err != nil {
		t.Fatalf("DecodeStyle() error = %v", err)
	}
	if s.StrokeColor != "#000000" || s.StrokeWidth != 4 || s.PointSize != domain.DefaultStyle().PointSize {
		t.Errorf("DecodeStyle() = %+v", s)
	}
	if _, err := DecodeStyle(map[string]interface{}{"strokeWidth": map[string]interface{}{"px": 1}}); !errors.Is(err, domain.ErrInvalidStyle) {
		t.Errorf("DecodeStyle(bad) error = %v", err)
	}
	if !strings.HasPrefix(defaultName(domain.KindLine, "abc"), "Line_") {
		t.Error("defaultName() prefix")
	}
}

func TestOutline(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.Kind
		positions []domain.WorldPosition
		want      int
		closed    bool
	}{
		{"point", domain.KindPoint, square()[:1], 1, false},
		{"line", domain.KindLine, square()[:3], 3, false},
		{"polygon", domain.KindPolygon, square(), 5, true},
		{"rectangle corners", domain.KindRectangle, []domain.WorldPosition{world(0, 0), world(0.01, 0.01)}, 5, true},
		{"circle boundary", domain.KindCircle, []domain.WorldPosition{world(0, 0), world(0.01, 0)}, 37, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraphic(tt.kind, newMockScene())
			if g.Outline() != nil {
				t.Error("Outline() before Create should be empty")
			}
			if err := g.Create(tt.positions); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			out := g.Outline()
			if len(out) != tt.want {
				t.Fatalf("Outline() len = %d, want %d", len(out), tt.want)
			}
			if tt.closed && out[0] != out[len(out)-1] {
				t.Error("Outline() is not closed")
			}
		})
	}

	// the rectangle outline follows meridians and parallels only
	rect := newTestGraphic(domain.KindRectangle, newMockScene())
	_ = rect.Create([]domain.WorldPosition{world(0, 0), world(0.01, 0.01)})
	out := rect.Outline()
	for i := 0; i+1 < len(out); i++ {
		a := geodesy.WGS84.ToGeodetic(out[i])
		b := geodesy.WGS84.ToGeodetic(out[i+1])
		if math.Abs(a.Longitude-b.Longitude) > 1e-9 && math.Abs(a.Latitude-b.Latitude) > 1e-9 {
			t.Errorf("edge %d runs diagonally: %+v -> %+v", i, a, b)
		}
	}
}
