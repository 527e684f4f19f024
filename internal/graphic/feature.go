package graphic

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// ToGeoJSON exports the shape. Circles and rectangles become closed polygon
// rings; heights are not carried by the 2D geometry.
func (g *Graphic) ToGeoJSON() (*geojson.Feature, error) {
	if g.destroyed {
		return nil, domain.ErrGraphicDestroyed
	}
	if !g.created {
		return nil, fmt.Errorf("%s %s has no geometry: %w", g.kind, g.id, domain.ErrInvalidGeometry)
	}
	op := ops[g.kind]

	f := geojson.NewFeature(op.geometry(g))
	f.ID = g.id
	for k, v := range g.properties {
		f.Properties[k] = v
	}
	for k, v := range op.properties(g) {
		f.Properties[k] = v
	}
	f.Properties["id"] = g.id
	f.Properties["name"] = g.name
	f.Properties["type"] = g.kind.String()
	f.Properties["style"] = g.style
	f.Properties["createdAt"] = g.createdAt.Format(time.RFC3339)
	return f, nil
}

// ToFeature describes the graphic as a domain feature.
func (g *Graphic) ToFeature() domain.Feature {
	return domain.Feature{
		ID:         g.id,
		Kind:       g.kind,
		Name:       g.name,
		Positions:  g.GeodeticPositions(),
		Style:      g.style,
		Properties: g.Properties(),
		Visible:    g.visible,
		CreatedAt:  g.createdAt,
	}
}

// FromFeature builds and creates the graphic described by f. Fields left
// unset in opts are taken from the feature.
func FromFeature(f domain.Feature, scene output.Scene, opts Options) (*Graphic, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	opts.ID = f.ID
	opts.Name = f.Name
	opts.Hidden = !f.Visible
	opts.CreatedAt = f.CreatedAt
	opts.Properties = f.Properties
	if f.Style != (domain.Style{}) {
		opts.Style = f.Style.Patch()
	}
	if f.Kind == domain.KindPoint && opts.Label == "" {
		opts.Label = f.GetStringProperty("label")
	}
	if f.Kind == domain.KindLine && opts.LineStyle == "" {
		ls, err := ParseLineStyle(f.GetStringProperty("lineStyle"))
		if err == nil {
			opts.LineStyle = ls
		}
	}

	g, err := New(f.Kind, scene, opts)
	if err != nil {
		return nil, err
	}
	if err := g.Create(g.ellipsoid.ToWorldAll(f.Positions)); err != nil {
		return nil, err
	}
	return g, nil
}

// DecodeStyle reads a style from a decoded GeoJSON "style" property.
// Missing fields keep their defaults.
func DecodeStyle(v interface{}) (domain.Style, error) {
	style := domain.DefaultStyle()
	if s, ok := v.(domain.Style); ok {
		return s, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &style,
	})
	if err != nil {
		return style, err
	}
	if err := dec.Decode(v); err != nil {
		return domain.DefaultStyle(), fmt.Errorf("%w: %v", domain.ErrInvalidStyle, err)
	}
	return style, nil
}
