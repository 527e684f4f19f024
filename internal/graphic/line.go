package graphic

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// LineStyle is the dash pattern of a line.
type LineStyle string

// Line styles.
const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
	LineDotted LineStyle = "dotted"
)

// ParseLineStyle validates a line style name.
func ParseLineStyle(s string) (LineStyle, error) {
	switch ls := LineStyle(s); ls {
	case LineSolid, LineDashed, LineDotted:
		return ls, nil
	case "":
		return LineSolid, nil
	}
	return "", fmt.Errorf("line style %q: %w", s, domain.ErrInvalidStyle)
}

func (ls LineStyle) dash() output.Dash {
	switch ls {
	case LineDashed:
		return output.Dash{Length: 16}
	case LineDotted:
		return output.Dash{Length: 4}
	}
	return output.Dash{}
}

var lineOps = kindOps{
	derive: func(g *Graphic) {
		g.length = g.ellipsoid.LineLength(g.geodetic)
		g.centroid = g.geodetic[len(g.geodetic)/2]
	},
	build: func(g *Graphic) []output.Primitive {
		prims := []output.Primitive{{
			Kind:      output.PrimitivePolyline,
			Role:      output.RoleBody,
			Positions: g.Positions(),
			Stroke:    g.strokeColor(),
			Width:     g.style.StrokeWidth,
			Dash:      g.lineStyle.dash(),
		}}
		if g.showLength && g.length > 0 {
			prims = append(prims, g.labelAt(g.positions[len(g.positions)/2], geodesy.FormatLength(g.length)))
		}
		return prims
	},
	geometry: func(g *Graphic) orb.Geometry {
		ls := make(orb.LineString, len(g.geodetic))
		for i, p := range g.geodetic {
			ls[i] = toOrbPoint(p)
		}
		return ls
	},
	properties: func(g *Graphic) map[string]interface{} {
		return map[string]interface{}{
			"length":          g.length,
			"lengthFormatted": geodesy.FormatLength(g.length),
			"lineStyle":       string(g.lineStyle),
		}
	},
	editHandles: func(g *Graphic) []domain.WorldPosition { return g.Positions() },
	outline:     func(g *Graphic) []domain.WorldPosition { return g.Positions() },
}

// UpdatePositions replaces the vertices of a line, polygon or rectangle.
func (g *Graphic) UpdatePositions(positions []domain.WorldPosition) error {
	if err := g.require("UpdatePositions", domain.KindLine, domain.KindPolygon, domain.KindRectangle); err != nil {
		return err
	}
	return g.Create(positions)
}

// LineStyle returns the dash pattern.
func (g *Graphic) LineStyle() LineStyle { return g.lineStyle }

// SetLineStyle changes the dash pattern and redraws. An unchanged style is
// a no-op.
func (g *Graphic) SetLineStyle(ls LineStyle) error {
	if err := g.require("SetLineStyle", domain.KindLine); err != nil {
		return err
	}
	ls, err := ParseLineStyle(string(ls))
	if err != nil {
		return err
	}
	if ls == g.lineStyle {
		return nil
	}
	g.lineStyle = ls
	g.redraw()
	return nil
}

// ToggleLengthLabel shows or hides the line length label.
func (g *Graphic) ToggleLengthLabel(show bool) error {
	if err := g.require("ToggleLengthLabel", domain.KindLine); err != nil {
		return err
	}
	g.showLength = show
	g.redraw()
	return nil
}
