package graphic

import (
	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var pointOps = kindOps{
	maxVertices: 1,
	derive:      func(*Graphic) {},
	build: func(g *Graphic) []output.Primitive {
		prims := []output.Primitive{{
			Kind:      output.PrimitivePoint,
			Role:      output.RoleBody,
			Positions: []domain.WorldPosition{g.positions[0]},
			PointSize: g.style.PointSize,
			Fill:      g.color(g.style.PointColor, g.style.Opacity),
			Stroke:    g.strokeColor(),
			Width:     g.style.StrokeWidth,
		}}
		if g.label != "" {
			prims = append(prims, g.labelAt(g.positions[0], g.label))
		}
		return prims
	},
	geometry: func(g *Graphic) orb.Geometry {
		return toOrbPoint(g.geodetic[0])
	},
	properties: func(g *Graphic) map[string]interface{} {
		props := map[string]interface{}{"height": g.geodetic[0].Height}
		if g.label != "" {
			props["label"] = g.label
		}
		return props
	},
	editHandles: func(*Graphic) []domain.WorldPosition { return nil },
	outline:     func(g *Graphic) []domain.WorldPosition { return g.Positions() },
}

// UpdatePosition moves a point.
func (g *Graphic) UpdatePosition(pos domain.WorldPosition) error {
	if err := g.require("UpdatePosition", domain.KindPoint); err != nil {
		return err
	}
	return g.Create([]domain.WorldPosition{pos})
}

// Label returns the point label text.
func (g *Graphic) Label() string { return g.label }

// UpdateLabel changes the point label text.
func (g *Graphic) UpdateLabel(text string) error {
	if err := g.require("UpdateLabel", domain.KindPoint); err != nil {
		return err
	}
	g.label = text
	g.redraw()
	return nil
}
