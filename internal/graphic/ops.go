package graphic

import (
	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

const handleSize = 10

var handleFill = domain.Color{R: 1, A: 1}

// kindOps is the per-kind behaviour of a Graphic.
type kindOps struct {
	maxVertices int // 0 means unbounded
	validate    func(g *Graphic, geodetic []domain.GeodeticPosition) error
	derive      func(g *Graphic)
	build       func(g *Graphic) []output.Primitive
	geometry    func(g *Graphic) orb.Geometry
	properties  func(g *Graphic) map[string]interface{}
	editHandles func(g *Graphic) []domain.WorldPosition
	outline     func(g *Graphic) []domain.WorldPosition // visible vertices and edges, in order
}

// ops is indexed by kind; every kind below KindCount must have an entry.
var ops [domain.KindCount]kindOps

func init() {
	ops[domain.KindPoint] = pointOps
	ops[domain.KindLine] = lineOps
	ops[domain.KindPolygon] = polygonOps
	ops[domain.KindCircle] = circleOps
	ops[domain.KindRectangle] = rectangleOps
}

// color parses a CSS colour, falling back to white with a warning.
func (g *Graphic) color(css string, alpha float64) domain.Color {
	c, ok := domain.ParseColorOr(css, domain.White)
	if !ok {
		g.logger.Warn("invalid CSS color, using white",
			"graphic", g.id,
			"color", css,
		)
	}
	return c.WithAlpha(alpha)
}

func (g *Graphic) fillColor() domain.Color {
	return g.color(g.style.FillColor, g.style.FillOpacity*g.style.Opacity)
}

func (g *Graphic) strokeColor() domain.Color {
	return g.color(g.style.StrokeColor, g.style.Opacity)
}

func (g *Graphic) labelAt(pos domain.WorldPosition, text string) output.Primitive {
	return output.Primitive{
		Kind:      output.PrimitiveLabel,
		Role:      output.RoleLabel,
		Positions: []domain.WorldPosition{pos},
		Text:      text,
		Fill:      domain.White,
		Stroke:    domain.Color{A: 1},
		Width:     2,
	}
}

// surface converts a lon/lat position to a world position at height 0.
func (g *Graphic) surface(p domain.GeodeticPosition) domain.WorldPosition {
	p.Height = 0
	return g.ellipsoid.ToWorld(p)
}

// closedOutline repeats the first position so the closing edge is included.
func closedOutline(ps []domain.WorldPosition) []domain.WorldPosition {
	if len(ps) == 0 {
		return nil
	}
	return append(append([]domain.WorldPosition(nil), ps...), ps[0])
}

func toOrbPoint(p domain.GeodeticPosition) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// toOrbRing converts an open vertex list into a closed ring.
func toOrbRing(ps []domain.GeodeticPosition) orb.Ring {
	ring := toOrbPoints(ps)
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

func toOrbPoints(ps []domain.GeodeticPosition) orb.Ring {
	ring := make(orb.Ring, 0, len(ps)+1)
	for _, p := range ps {
		ring = append(ring, toOrbPoint(p))
	}
	return ring
}
