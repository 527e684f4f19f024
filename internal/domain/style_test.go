package domain

import (
	"errors"
	"math"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Color
		wantErr bool
	}{
		{"hex6", "#FF0000", Color{1, 0, 0, 1}, false},
		{"hex3", "#fff", White, false},
		{"hex8", "#00000080", Color{0, 0, 0, 128.0 / 255}, false},
		{"rgb", "rgb(0, 255, 0)", Color{0, 1, 0, 1}, false},
		{"rgba", "rgba(255, 255, 255, 0.3)", Color{1, 1, 1, 0.3}, false},
		{"named", "White", White, false},
		{"percent", "rgb(100%, 0%, 0%)", Color{1, 0, 0, 1}, false},
		{"garbage", "not-a-colour", Color{}, true},
		{"short hex", "#12", Color{}, true},
		{"rgb arity", "rgb(1,2)", Color{}, true},
		{"out of range", "rgb(300, 0, 0)", Color{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStyle) {
					t.Errorf("ParseColor(%q) error = %v, want ErrInvalidStyle", tt.in, err)
				}
				return
			}
			if !colorsClose(got, tt.want) {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseColorOrFallsBack(t *testing.T) {
	got, ok := ParseColorOr("bogus", White)
	if ok {
		t.Error("ParseColorOr() ok = true for malformed input")
	}
	if got != White {
		t.Errorf("ParseColorOr() = %+v, want white", got)
	}
}

func TestStyleMerge(t *testing.T) {
	stroke := "#000000"
	opacity := 0.5
	base := DefaultStyle()

	got := base.Merge(StylePatch{StrokeColor: &stroke, Opacity: &opacity})

	if got.StrokeColor != stroke || got.Opacity != opacity {
		t.Errorf("Merge() = %+v, patch not applied", got)
	}
	if got.FillColor != base.FillColor || got.PointSize != base.PointSize {
		t.Errorf("Merge() = %+v, untouched fields changed", got)
	}
	if !(StylePatch{}).IsEmpty() {
		t.Error("zero StylePatch should be empty")
	}
	if base.Merge(base.Patch()) != base {
		t.Error("merging a full patch of itself must be the identity")
	}
}

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Style)
		wantErr bool
	}{
		{"defaults", func(*Style) {}, false},
		{"opacity high", func(s *Style) { s.Opacity = 1.5 }, true},
		{"negative width", func(s *Style) { s.StrokeWidth = -1 }, true},
		{"bad colour", func(s *Style) { s.StrokeColor = "nope" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func colorsClose(a, b Color) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps &&
		math.Abs(a.B-b.B) < eps && math.Abs(a.A-b.A) < eps
}
