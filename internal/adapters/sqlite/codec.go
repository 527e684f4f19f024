package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/graphic"
)

// Snapshot property keys. The geometry is a MultiPoint of the construction
// vertices so every kind survives a round trip; heights ride along
// separately because orb geometries are 2D.
const (
	propKind       = "kind"
	propName       = "name"
	propStyle      = "style"
	propVisible    = "visible"
	propHeights    = "heights"
	propProperties = "properties"
)

// Encode writes f as a GeoJSON Feature.
func Encode(f domain.Feature) ([]byte, error) {
	points := make(orb.MultiPoint, len(f.Positions))
	heights := make([]float64, len(f.Positions))
	for i, p := range f.Positions {
		points[i] = orb.Point{p.Longitude, p.Latitude}
		heights[i] = p.Height
	}

	gf := geojson.NewFeature(points)
	gf.ID = f.ID
	gf.Properties[propKind] = f.Kind.String()
	gf.Properties[propName] = f.Name
	gf.Properties[propStyle] = f.Style
	gf.Properties[propVisible] = f.Visible
	gf.Properties[propHeights] = heights
	if len(f.Properties) > 0 {
		gf.Properties[propProperties] = f.Properties
	}

	data, err := json.Marshal(gf)
	if err != nil {
		return nil, fmt.Errorf("encoding feature %s: %w", f.ID, err)
	}
	return data, nil
}

// Decode reads a snapshot written by Encode.
func Decode(data []byte) (domain.Feature, error) {
	gf, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("%w: snapshot: %v", domain.ErrInvalidInput, err)
	}
	points, ok := gf.Geometry.(orb.MultiPoint)
	if !ok {
		return domain.Feature{}, fmt.Errorf("snapshot geometry %T: %w", gf.Geometry, domain.ErrInvalidGeometry)
	}

	kind, err := domain.ParseKind(gf.Properties.MustString(propKind, ""))
	if err != nil {
		return domain.Feature{}, err
	}

	style := domain.DefaultStyle()
	if v, ok := gf.Properties[propStyle]; ok {
		if style, err = graphic.DecodeStyle(v); err != nil {
			return domain.Feature{}, err
		}
	}

	heights, _ := gf.Properties[propHeights].([]interface{})
	positions := make([]domain.GeodeticPosition, len(points))
	for i, p := range points {
		positions[i] = domain.NewGeodeticPosition(p[0], p[1])
		if i < len(heights) {
			positions[i].Height, _ = domain.ToFloat(heights[i])
		}
	}

	f := domain.Feature{
		Kind:      kind,
		Name:      gf.Properties.MustString(propName, ""),
		Positions: positions,
		Style:     style,
		Visible:   gf.Properties.MustBool(propVisible, true),
	}
	if id, ok := gf.ID.(string); ok {
		f.ID = id
	}
	if props, ok := gf.Properties[propProperties].(map[string]interface{}); ok {
		f.Properties = props
	}
	return f, nil
}
