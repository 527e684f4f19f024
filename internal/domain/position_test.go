package domain

import (
	"errors"
	"math"
	"testing"
)

func TestGeodeticPositionValidate(t *testing.T) {
	tests := []struct {
		name    string
		pos     GeodeticPosition
		wantErr bool
	}{
		{"valid", GeodeticPosition{Longitude: 13.4, Latitude: 52.5}, false},
		{"min bounds", GeodeticPosition{Longitude: -180, Latitude: -90}, false},
		{"max bounds", GeodeticPosition{Longitude: 180, Latitude: 90}, false},
		{"lon too small", GeodeticPosition{Longitude: -180.1}, true},
		{"lon too large", GeodeticPosition{Longitude: 180.1}, true},
		{"lat too small", GeodeticPosition{Latitude: -90.1}, true},
		{"lat too large", GeodeticPosition{Latitude: 90.1}, true},
		{"nan", GeodeticPosition{Longitude: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pos.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestWorldPositionIsFinite(t *testing.T) {
	tests := []struct {
		name string
		pos  WorldPosition
		want bool
	}{
		{"finite", WorldPosition{1, 2, 3}, true},
		{"nan", WorldPosition{math.NaN(), 0, 0}, false},
		{"inf", WorldPosition{0, math.Inf(1), 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.IsFinite(); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScreenPositionDistanceTo(t *testing.T) {
	got := ScreenPosition{X: 0, Y: 0}.DistanceTo(ScreenPosition{X: 3, Y: 4})
	if got != 5 {
		t.Errorf("DistanceTo() = %v, want 5", got)
	}
}

func TestExtentOf(t *testing.T) {
	e := ExtentOf([]GeodeticPosition{
		NewGeodeticPosition(10, 50),
		NewGeodeticPosition(12, 48),
		NewGeodeticPosition(11, 51),
	})
	want := Extent{West: 10, South: 48, East: 12, North: 51}
	if e != want {
		t.Errorf("ExtentOf() = %+v, want %+v", e, want)
	}
	if !e.IsValid() {
		t.Error("IsValid() = false, want true")
	}
	if !e.Contains(NewGeodeticPosition(11, 49)) {
		t.Error("Contains() = false for an inner point")
	}
	if e.Contains(NewGeodeticPosition(13, 49)) {
		t.Error("Contains() = true for an outer point")
	}
	if c := e.Center(); c.Longitude != 11 || c.Latitude != 49.5 {
		t.Errorf("Center() = %v, want (11, 49.5)", c)
	}
	if (ExtentOf(nil) != Extent{}) {
		t.Error("ExtentOf(nil) should be the zero extent")
	}
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		kind    Kind
		name    string
		min     int
		geoJSON string
	}{
		{KindPoint, "point", 1, "Point"},
		{KindLine, "line", 2, "LineString"},
		{KindPolygon, "polygon", 3, "Polygon"},
		{KindCircle, "circle", 2, "Polygon"},
		{KindRectangle, "rectangle", 2, "Polygon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.kind.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.kind.String(), tt.name)
			}
			if tt.kind.MinVertices() != tt.min {
				t.Errorf("MinVertices() = %d, want %d", tt.kind.MinVertices(), tt.min)
			}
			if tt.kind.GeoJSONType() != tt.geoJSON {
				t.Errorf("GeoJSONType() = %q, want %q", tt.kind.GeoJSONType(), tt.geoJSON)
			}
			parsed, err := ParseKind(tt.name)
			if err != nil || parsed != tt.kind {
				t.Errorf("ParseKind(%q) = %v, %v", tt.name, parsed, err)
			}
		})
	}

	if _, err := ParseKind("hexagon"); !errors.Is(err, ErrUnsupportedGeometry) {
		t.Errorf("ParseKind(hexagon) error = %v, want ErrUnsupportedGeometry", err)
	}
	if k, _ := ParseKind("area"); k != KindPolygon {
		t.Errorf("ParseKind(area) = %v, want polygon", k)
	}
	if len(Kinds()) != int(KindCount) {
		t.Errorf("Kinds() len = %d, want %d", len(Kinds()), KindCount)
	}
}
