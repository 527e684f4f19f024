// Package terrain provides height samplers used for picking and cut-volume
// computation.
package terrain

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var (
	_ output.TerrainSampler = Flat{}
	_ output.TerrainSampler = Plane{}
	_ output.TerrainSampler = (*Grid)(nil)
)

// Flat is terrain at a constant height.
type Flat struct {
	Height float64
}

// Available implements output.TerrainSampler.
func (f Flat) Available() bool { return true }

// SampleHeight implements output.TerrainSampler.
func (f Flat) SampleHeight(_ domain.GeodeticPosition) (float64, bool) {
	return f.Height, true
}

// Plane is a sloped surface through Origin. Slopes are metres of rise per
// degree of longitude and latitude.
type Plane struct {
	Origin     domain.GeodeticPosition
	SlopeEast  float64
	SlopeNorth float64
}

// Available implements output.TerrainSampler.
func (p Plane) Available() bool { return true }

// SampleHeight implements output.TerrainSampler.
func (p Plane) SampleHeight(pos domain.GeodeticPosition) (float64, bool) {
	return p.Origin.Height +
		(pos.Longitude-p.Origin.Longitude)*p.SlopeEast +
		(pos.Latitude-p.Origin.Latitude)*p.SlopeNorth, true
}

// Grid is a regular lon/lat height raster sampled bilinearly. Rows run
// from south to north and columns from west to east.
type Grid struct {
	West    float64     `yaml:"west"`
	South   float64     `yaml:"south"`
	East    float64     `yaml:"east"`
	North   float64     `yaml:"north"`
	NoData  *float64    `yaml:"nodata,omitempty"`
	Heights [][]float64 `yaml:"heights"`
}

// LoadGrid reads a grid from a YAML file.
func LoadGrid(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading terrain grid: %w", err)
	}
	return ParseGrid(data)
}

// ParseGrid decodes and validates a YAML grid.
func ParseGrid(data []byte) (*Grid, error) {
	var g Grid
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: terrain grid: %v", domain.ErrInvalidInput, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks the extent and the raster shape.
func (g *Grid) Validate() error {
	if g.East <= g.West || g.North <= g.South {
		return &domain.ValidationError{
			Field:      "extent",
			Value:      [4]float64{g.West, g.South, g.East, g.North},
			Constraint: "west < east, south < north",
			Message:    "grid extent is empty",
		}
	}
	if len(g.Heights) < 2 {
		return &domain.ValidationError{Field: "heights", Value: len(g.Heights), Constraint: ">= 2 rows", Message: "grid needs at least two rows"}
	}
	cols := len(g.Heights[0])
	if cols < 2 {
		return &domain.ValidationError{Field: "heights", Value: cols, Constraint: ">= 2 columns", Message: "grid needs at least two columns"}
	}
	for i, row := range g.Heights {
		if len(row) != cols {
			return &domain.ValidationError{
				Field:      fmt.Sprintf("heights[%d]", i),
				Value:      len(row),
				Constraint: fmt.Sprintf("%d columns", cols),
				Message:    "grid rows must have the same length",
			}
		}
	}
	return nil
}

// Available implements output.TerrainSampler.
func (g *Grid) Available() bool { return g != nil && len(g.Heights) > 0 }

// SampleHeight implements output.TerrainSampler. Positions outside the
// grid or next to a nodata cell have no sample.
func (g *Grid) SampleHeight(pos domain.GeodeticPosition) (float64, bool) {
	if pos.Longitude < g.West || pos.Longitude > g.East || pos.Latitude < g.South || pos.Latitude > g.North {
		return 0, false
	}
	rows, cols := len(g.Heights), len(g.Heights[0])

	fx := (pos.Longitude - g.West) / (g.East - g.West) * float64(cols-1)
	fy := (pos.Latitude - g.South) / (g.North - g.South) * float64(rows-1)
	x0 := min(int(math.Floor(fx)), cols-2)
	y0 := min(int(math.Floor(fy)), rows-2)
	tx, ty := fx-float64(x0), fy-float64(y0)

	h00, h10 := g.Heights[y0][x0], g.Heights[y0][x0+1]
	h01, h11 := g.Heights[y0+1][x0], g.Heights[y0+1][x0+1]
	for _, h := range [4]float64{h00, h10, h01, h11} {
		if g.isNoData(h) {
			return 0, false
		}
	}

	south := h00*(1-tx) + h10*tx
	north := h01*(1-tx) + h11*tx
	return south*(1-ty) + north*ty, true
}

func (g *Grid) isNoData(h float64) bool {
	return math.IsNaN(h) || (g.NoData != nil && h == *g.NoData)
}
