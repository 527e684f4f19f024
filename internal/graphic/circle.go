package graphic

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var circleOps = kindOps{
	maxVertices: 2,
	validate: func(g *Graphic, geodetic []domain.GeodeticPosition) error {
		if g.ellipsoid.Distance(geodetic[0], geodetic[1]) == 0 {
			return fmt.Errorf("circle radius is zero: %w", domain.ErrInvalidGeometry)
		}
		return nil
	},
	derive: func(g *Graphic) {
		g.radius = g.ellipsoid.Distance(g.geodetic[0], g.geodetic[1])
		g.area = math.Pi * g.radius * g.radius
		g.perimeter = 2 * math.Pi * g.radius
		g.centroid = g.geodetic[0]
		g.bounds = domain.ExtentOf(g.ring())
	},
	build: func(g *Graphic) []output.Primitive {
		center := g.positions[0]
		prims := []output.Primitive{{
			Kind:      output.PrimitiveEllipse,
			Role:      output.RoleBody,
			Positions: []domain.WorldPosition{center},
			Radius:    g.radius,
			Fill:      g.fillColor(),
			Stroke:    g.strokeColor(),
			Width:     g.style.StrokeWidth,
		}}
		if g.showRadius {
			mid := geodesy.Midpoint(center, g.positions[1])
			prims = append(prims, g.labelAt(mid, geodesy.FormatRadius(g.radius)))
		}
		if g.showArea {
			prims = append(prims, g.labelAt(center, geodesy.FormatArea(g.area)))
		}
		return prims
	},
	geometry: func(g *Graphic) orb.Geometry {
		return orb.Polygon{toOrbPoints(g.ring())}
	},
	properties: func(g *Graphic) map[string]interface{} {
		c := g.geodetic[0]
		return map[string]interface{}{
			"shapeType":       "circle",
			"center":          []float64{c.Longitude, c.Latitude},
			"radius":          g.radius,
			"radiusFormatted": geodesy.FormatRadius(g.radius),
			"area":            g.area,
			"areaFormatted":   geodesy.FormatArea(g.area),
		}
	},
	editHandles: func(g *Graphic) []domain.WorldPosition {
		c := g.geodetic[0]
		east := domain.GeodeticPosition{
			Longitude: c.Longitude + g.radius/g.ellipsoid.MaximumRadius()*180/math.Pi,
			Latitude:  c.Latitude,
			Height:    c.Height,
		}
		return []domain.WorldPosition{g.positions[0], g.ellipsoid.ToWorld(east)}
	},
	// the boundary only; center to edge is not drawn
	outline: func(g *Graphic) []domain.WorldPosition {
		return g.ellipsoid.ToWorldAll(g.ring())
	},
}

func (g *Graphic) ring() []domain.GeodeticPosition {
	return g.ellipsoid.CircleRing(g.geodetic[0], g.radius, geodesy.DefaultCircleSegments)
}

// Center returns the circle center.
func (g *Graphic) Center() domain.GeodeticPosition {
	if g.kind == domain.KindCircle && len(g.geodetic) > 0 {
		return g.geodetic[0]
	}
	return g.centroid
}

// UpdateRadius moves the edge point of a circle and recomputes the radius.
func (g *Graphic) UpdateRadius(edge domain.WorldPosition) error {
	if err := g.require("UpdateRadius", domain.KindCircle); err != nil {
		return err
	}
	if len(g.positions) == 0 {
		return fmt.Errorf("circle has no center: %w", domain.ErrInvalidGeometry)
	}
	return g.Create([]domain.WorldPosition{g.positions[0], edge})
}

// ToggleRadiusLabel shows or hides the radius label.
func (g *Graphic) ToggleRadiusLabel(show bool) error {
	if err := g.require("ToggleRadiusLabel", domain.KindCircle); err != nil {
		return err
	}
	g.showRadius = show
	g.redraw()
	return nil
}
