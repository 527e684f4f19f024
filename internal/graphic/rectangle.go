package graphic

import (
	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var rectangleOps = kindOps{
	maxVertices: 2,
	derive: func(g *Graphic) {
		b := domain.ExtentOf(g.geodetic)
		nw := domain.GeodeticPosition{Longitude: b.West, Latitude: b.North}
		ne := domain.GeodeticPosition{Longitude: b.East, Latitude: b.North}
		sw := domain.GeodeticPosition{Longitude: b.West, Latitude: b.South}
		g.bounds = b
		g.width = g.ellipsoid.Distance(nw, ne)
		g.height = g.ellipsoid.Distance(nw, sw)
		// w×h rather than a true ellipsoidal area
		g.area = g.width * g.height
		g.perimeter = 2 * (g.width + g.height)
		g.centroid = b.Center()
	},
	build: func(g *Graphic) []output.Primitive {
		center := g.surface(g.centroid)
		prims := []output.Primitive{{
			Kind:   output.PrimitiveRectangle,
			Role:   output.RoleBody,
			Extent: g.bounds,
			Fill:   g.fillColor(),
			Stroke: g.strokeColor(),
			Width:  g.style.StrokeWidth,
		}}
		if g.showDimensions {
			prims = append(prims, g.labelAt(center, geodesy.FormatDimensions(g.width, g.height)))
		}
		if g.showArea {
			prims = append(prims, g.labelAt(center, geodesy.FormatArea(g.area)))
		}
		return prims
	},
	geometry: func(g *Graphic) orb.Geometry {
		return orb.Polygon{toOrbRing(g.corners())}
	},
	properties: func(g *Graphic) map[string]interface{} {
		return map[string]interface{}{
			"shapeType":           "rectangle",
			"width":               g.width,
			"height":              g.height,
			"dimensionsFormatted": geodesy.FormatDimensions(g.width, g.height),
			"area":                g.area,
			"areaFormatted":       geodesy.FormatArea(g.area),
			"west":                g.bounds.West,
			"south":               g.bounds.South,
			"east":                g.bounds.East,
			"north":               g.bounds.North,
		}
	},
	editHandles: func(g *Graphic) []domain.WorldPosition {
		corners := g.corners()
		out := make([]domain.WorldPosition, len(corners))
		for i, c := range corners {
			out[i] = g.surface(c)
		}
		return out
	},
	outline: func(g *Graphic) []domain.WorldPosition {
		corners := g.corners()
		out := make([]domain.WorldPosition, len(corners))
		for i, c := range corners {
			out[i] = g.surface(c)
		}
		return closedOutline(out)
	},
}

// corners returns NW, NE, SE, SW.
func (g *Graphic) corners() []domain.GeodeticPosition {
	b := g.bounds
	return []domain.GeodeticPosition{
		{Longitude: b.West, Latitude: b.North},
		{Longitude: b.East, Latitude: b.North},
		{Longitude: b.East, Latitude: b.South},
		{Longitude: b.West, Latitude: b.South},
	}
}

// ToggleDimensionLabel shows or hides the "W × H" label.
func (g *Graphic) ToggleDimensionLabel(show bool) error {
	if err := g.require("ToggleDimensionLabel", domain.KindRectangle); err != nil {
		return err
	}
	g.showDimensions = show
	g.redraw()
	return nil
}
