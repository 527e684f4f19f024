package graphic

import (
	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var polygonOps = kindOps{
	derive: func(g *Graphic) {
		g.area = geodesy.PlanarPolygonArea(g.geodetic)
		g.perimeter = g.ellipsoid.PolygonPerimeter(g.geodetic)
		c := geodesy.PolygonCentroid(g.geodetic)
		for _, p := range g.geodetic {
			c.Height += p.Height
		}
		c.Height /= float64(len(g.geodetic))
		g.centroid = c
	},
	build: func(g *Graphic) []output.Primitive {
		ring := append(g.Positions(), g.positions[0])
		prims := []output.Primitive{
			{
				Kind:      output.PrimitivePolygon,
				Role:      output.RoleBody,
				Positions: g.Positions(),
				Fill:      g.fillColor(),
			},
			{
				Kind:      output.PrimitivePolyline,
				Role:      output.RoleOutline,
				Positions: ring,
				Stroke:    g.strokeColor(),
				Width:     g.style.StrokeWidth,
			},
		}
		if g.showArea {
			prims = append(prims, g.labelAt(g.ellipsoid.ToWorld(g.centroid), geodesy.FormatArea(g.area)))
		}
		return prims
	},
	geometry: func(g *Graphic) orb.Geometry {
		return orb.Polygon{toOrbRing(g.geodetic)}
	},
	properties: func(g *Graphic) map[string]interface{} {
		return map[string]interface{}{
			"area":          g.area,
			"areaFormatted": geodesy.FormatArea(g.area),
			"perimeter":     g.perimeter,
			"vertexCount":   len(g.positions),
		}
	},
	editHandles: func(g *Graphic) []domain.WorldPosition { return g.Positions() },
	outline:     func(g *Graphic) []domain.WorldPosition { return closedOutline(g.positions) },
}

// VertexCount returns the number of vertices.
func (g *Graphic) VertexCount() int { return len(g.positions) }

// UpdateVertex moves vertex i of a polygon.
func (g *Graphic) UpdateVertex(i int, pos domain.WorldPosition) error {
	if err := g.require("UpdateVertex", domain.KindPolygon); err != nil {
		return err
	}
	n := len(g.positions)
	if i < 0 || i >= n {
		return &domain.VertexError{Op: "update", Index: i, Count: n, Err: domain.ErrInvalidIndex}
	}
	next := g.Positions()
	next[i] = pos
	return g.Create(next)
}

// InsertVertex inserts pos after vertex index after.
func (g *Graphic) InsertVertex(after int, pos domain.WorldPosition) error {
	if err := g.require("InsertVertex", domain.KindPolygon); err != nil {
		return err
	}
	n := len(g.positions)
	if after < 0 || after >= n {
		return &domain.VertexError{Op: "insert", Index: after, Count: n, Err: domain.ErrInvalidIndex}
	}
	next := make([]domain.WorldPosition, 0, n+1)
	next = append(next, g.positions[:after+1]...)
	next = append(next, pos)
	next = append(next, g.positions[after+1:]...)
	return g.Create(next)
}

// RemoveVertex deletes vertex i. A polygon never drops below three
// vertices; that check runs before the index check.
func (g *Graphic) RemoveVertex(i int) error {
	if err := g.require("RemoveVertex", domain.KindPolygon); err != nil {
		return err
	}
	n := len(g.positions)
	if n <= 3 {
		return &domain.VertexError{Op: "remove", Index: i, Count: n, Err: domain.ErrMinimumVertexViolation}
	}
	if i < 0 || i >= n {
		return &domain.VertexError{Op: "remove", Index: i, Count: n, Err: domain.ErrInvalidIndex}
	}
	next := make([]domain.WorldPosition, 0, n-1)
	next = append(next, g.positions[:i]...)
	next = append(next, g.positions[i+1:]...)
	return g.Create(next)
}

// ToggleAreaLabel shows or hides the area label of a polygon, circle or
// rectangle.
func (g *Graphic) ToggleAreaLabel(show bool) error {
	if err := g.require("ToggleAreaLabel", domain.KindPolygon, domain.KindCircle, domain.KindRectangle); err != nil {
		return err
	}
	g.showArea = show
	g.redraw()
	return nil
}
