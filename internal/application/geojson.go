package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/graphic"
)

// reservedProperties are written by the exporter and never imported as
// custom properties.
var reservedProperties = map[string]struct{}{
	"id":        {},
	"name":      {},
	"type":      {},
	"style":     {},
	"createdAt": {},
}

// Export returns the features as a FeatureCollection tagged with the
// EPSG:4326 CRS.
func (s *FeatureStore) Export(selectedOnly bool) (*geojson.FeatureCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, e := range s.sortedEntries() {
		if selectedOnly {
			if _, ok := s.selected[e.feature.ID]; !ok {
				continue
			}
		}
		f, err := e.graphic.ToGeoJSON()
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", e.feature.ID, err)
		}
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"crs": map[string]interface{}{
			"type":       "name",
			"properties": map[string]interface{}{"name": "EPSG:4326"},
		},
	}
	return fc, nil
}

// Import adds the features of a GeoJSON FeatureCollection (or a single
// Feature). Every imported feature gets a fresh ID. Imports are not
// recorded in the undo history.
func (s *FeatureStore) Import(ctx context.Context, data []byte) (domain.ImportResult, error) {
	features, err := decodeFeatures(data)
	if err != nil {
		return domain.ImportResult{}, err
	}

	var result domain.ImportResult
	var added []domain.Feature
	now := s.clock().UTC()

	s.mu.Lock()
	for i, gf := range features {
		f, err := s.featureFromGeoJSON(gf)
		if err == nil {
			f.ID = uuid.NewString()
			f.CreatedAt = now
			f.UpdatedAt = now
			f, err = s.insert(f)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, importError(i, gf, err))
			continue
		}
		result.Success++
		result.IDs = append(result.IDs, f.ID)
		added = append(added, f)
	}
	s.mu.Unlock()

	s.metrics.IncImported(true, result.Success)
	s.metrics.IncImported(false, result.Failed)
	s.afterMutation(ctx, added, nil)
	s.logger.Info("geojson imported", "success", result.Success, "failed", result.Failed)
	return result, nil
}

func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		return fc.Features, nil
	}
	f, ferr := geojson.UnmarshalFeature(data)
	if ferr == nil && f.Type == "Feature" {
		return []*geojson.Feature{f}, nil
	}
	if err == nil {
		err = ferr
	}
	return nil, fmt.Errorf("%w: not a GeoJSON feature collection: %v", domain.ErrInvalidInput, err)
}

func importError(i int, gf *geojson.Feature, err error) *domain.ImportError {
	reason := ""
	if gf.Geometry != nil {
		reason = gf.Geometry.GeoJSONType()
	}
	return &domain.ImportError{Index: i, Reason: reason, Err: err}
}

// featureFromGeoJSON maps a GeoJSON feature onto a shape kind.
func (s *FeatureStore) featureFromGeoJSON(gf *geojson.Feature) (domain.Feature, error) {
	props := gf.Properties
	style := domain.DefaultStyle()
	if v, ok := props["style"]; ok && v != nil {
		decoded, err := graphic.DecodeStyle(v)
		if err != nil {
			return domain.Feature{}, err
		}
		style = decoded
	}

	custom := make(map[string]interface{}, len(props))
	for k, v := range props {
		if _, skip := reservedProperties[k]; !skip {
			custom[k] = v
		}
	}

	f := domain.Feature{
		Name:       props.MustString("name", ""),
		Style:      style,
		Properties: custom,
		Visible:    true,
	}

	switch geom := gf.Geometry.(type) {
	case orb.Point:
		center := fromOrbPoint(geom)
		if r, ok := domain.ToFloat(props["radius"]); ok && r > 0 {
			f.Kind = domain.KindCircle
			f.Positions = []domain.GeodeticPosition{center, s.circleEdge(center, r)}
			return f, nil
		}
		f.Kind = domain.KindPoint
		f.Positions = []domain.GeodeticPosition{center}

	case orb.LineString:
		f.Kind = domain.KindLine
		f.Positions = fromOrbPoints(geom)

	case orb.Polygon:
		if len(geom) == 0 {
			return domain.Feature{}, fmt.Errorf("empty polygon: %w", domain.ErrInvalidGeometry)
		}
		ring := fromOrbPoints(geom[0])
		if n := len(ring); n > 1 && ring[0] == ring[n-1] {
			ring = ring[:n-1]
		}
		shape := props.MustString("shapeType", "")
		if shape == "" {
			shape = props.MustString("featureType", "")
		}
		switch shape {
		case "rectangle":
			e := domain.ExtentOf(ring)
			f.Kind = domain.KindRectangle
			f.Positions = []domain.GeodeticPosition{
				domain.NewGeodeticPosition(e.West, e.South),
				domain.NewGeodeticPosition(e.East, e.North),
			}
			return f, nil
		case "circle":
			center, okCenter := toPosition(props["center"])
			r, okRadius := domain.ToFloat(props["radius"])
			if okCenter && okRadius && r > 0 {
				f.Kind = domain.KindCircle
				f.Positions = []domain.GeodeticPosition{center, s.circleEdge(center, r)}
				return f, nil
			}
		}
		f.Kind = domain.KindPolygon
		f.Positions = ring

	case nil:
		return domain.Feature{}, fmt.Errorf("missing geometry: %w", domain.ErrInvalidGeometry)

	default:
		return domain.Feature{}, fmt.Errorf("%s: %w", geom.GeoJSONType(), domain.ErrUnsupportedGeometry)
	}
	return f, nil
}

// circleEdge returns a point on the meridian through center whose geodesic
// distance from center is radius metres.
func (s *FeatureStore) circleEdge(center domain.GeodeticPosition, radius float64) domain.GeodeticPosition {
	return s.ellipsoid.MeridianOffset(center, radius)
}

func fromOrbPoint(p orb.Point) domain.GeodeticPosition {
	return domain.NewGeodeticPosition(p[0], p[1])
}

func fromOrbPoints(ps []orb.Point) []domain.GeodeticPosition {
	out := make([]domain.GeodeticPosition, len(ps))
	for i, p := range ps {
		out[i] = fromOrbPoint(p)
	}
	return out
}

// toPosition reads a [lon, lat] pair decoded from JSON.
func toPosition(v interface{}) (domain.GeodeticPosition, bool) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) < 2 {
		return domain.GeodeticPosition{}, false
	}
	lon, okLon := domain.ToFloat(pair[0])
	lat, okLat := domain.ToFloat(pair[1])
	if !okLon || !okLat {
		return domain.GeodeticPosition{}, false
	}
	return domain.NewGeodeticPosition(lon, lat), true
}
