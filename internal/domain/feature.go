package domain

import (
	"fmt"
	"time"
)

// Feature is the abstract description of a finished shape. Tools emit it on
// completion; the feature store persists it and rebuilds graphics from it.
//
// Positions hold the accepted construction vertices: one for a point, the
// vertex list for lines and polygons, center + edge for a circle and two
// opposite corners for a rectangle.
type Feature struct {
	ID         string
	Kind       Kind
	Name       string
	Positions  []GeodeticPosition
	Style      Style
	Properties map[string]interface{}
	Visible    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the vertex count and the position ranges.
func (f *Feature) Validate() error {
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedGeometry, int(f.Kind))
	}
	if len(f.Positions) < f.Kind.MinVertices() {
		return fmt.Errorf("%s needs %d vertices, got %d: %w",
			f.Kind, f.Kind.MinVertices(), len(f.Positions), ErrInsufficientVertices)
	}
	for _, p := range f.Positions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share position slices or
// property maps.
func (f Feature) Clone() Feature {
	out := f
	out.Positions = append([]GeodeticPosition(nil), f.Positions...)
	if f.Properties != nil {
		out.Properties = make(map[string]interface{}, len(f.Properties))
		for k, v := range f.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// GetProperty returns a property value by key.
func (f *Feature) GetProperty(key string) (interface{}, bool) {
	if f.Properties == nil {
		return nil, false
	}
	v, ok := f.Properties[key]
	return v, ok
}

// GetStringProperty returns a property as string.
func (f *Feature) GetStringProperty(key string) string {
	if v, ok := f.GetProperty(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetFloatProperty returns a property as float64.
func (f *Feature) GetFloatProperty(key string) (float64, bool) {
	v, ok := f.GetProperty(key)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// ToFloat converts the numeric types JSON decoding and callers produce.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// FeatureUpdate is a partial update applied by the feature store.
type FeatureUpdate struct {
	Name       *string
	Style      *StylePatch
	Visible    *bool
	Properties map[string]interface{}
}

// Apply returns f with the update applied.
func (u FeatureUpdate) Apply(f Feature) Feature {
	out := f.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Style != nil {
		out.Style = out.Style.Merge(*u.Style)
	}
	if u.Visible != nil {
		out.Visible = *u.Visible
	}
	if len(u.Properties) > 0 {
		if out.Properties == nil {
			out.Properties = make(map[string]interface{}, len(u.Properties))
		}
		for k, v := range u.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// ImportResult summarizes a GeoJSON import.
type ImportResult struct {
	Success int            `json:"success"`
	Failed  int            `json:"failed"`
	IDs     []string       `json:"ids"`
	Errors  []*ImportError `json:"-"`
}
