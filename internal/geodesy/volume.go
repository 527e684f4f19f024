package geodesy

import (
	"math"

	"github.com/jobrunner/geodraw/internal/domain"
)

// DefaultGranularity is the default maximum triangle edge in radians used
// when refining the volume mesh.
const DefaultGranularity = math.Pi / (1 << 11) / 64

// DefaultMaxTriangles caps the refined mesh size.
const DefaultMaxTriangles = 1 << 16

// Sampler provides terrain heights for the volume computation.
type Sampler interface {
	Available() bool
	SampleHeight(p domain.GeodeticPosition) (float64, bool)
}

// VolumeOptions tunes the mesh used by ComputeCutVolume. Zero values pick
// the defaults.
type VolumeOptions struct {
	Granularity  float64 `mapstructure:"granularity"`
	MaxTriangles int     `mapstructure:"max_triangles"`
}

func (o VolumeOptions) withDefaults() VolumeOptions {
	if o.Granularity <= 0 {
		o.Granularity = DefaultGranularity
	}
	if o.MaxTriangles <= 0 {
		o.MaxTriangles = DefaultMaxTriangles
	}
	return o
}

// ComputeCutVolume integrates terrain height above baseHeight over the
// footprint polygon on WGS84.
func ComputeCutVolume(footprint []domain.GeodeticPosition, sampler Sampler, baseHeight float64, opts VolumeOptions) (domain.VolumeSample, error) {
	return WGS84.ComputeCutVolume(footprint, sampler, baseHeight, opts)
}

// ComputeCutVolume triangulates the footprint, refines the mesh, samples
// terrain once per mesh vertex and sums prism volumes
// area × mean(h_i − baseHeight). Cells below the base contribute negatively.
func (e *Ellipsoid) ComputeCutVolume(footprint []domain.GeodeticPosition, sampler Sampler, baseHeight float64, opts VolumeOptions) (domain.VolumeSample, error) {
	if sampler == nil || !sampler.Available() {
		return domain.VolumeSample{}, domain.ErrTerrainUnavailable
	}
	if len(openRing(footprint)) < 3 {
		return domain.VolumeSample{}, domain.ErrInsufficientVertices
	}
	opts = opts.withDefaults()

	mesh := refine(triangulate(footprint), opts.Granularity, opts.MaxTriangles)

	type key struct{ lon, lat float64 }
	heights := make(map[key]float64, len(mesh))
	result := domain.VolumeSample{
		MinHeight:     math.Inf(1),
		MaxHeight:     math.Inf(-1),
		TriangleCount: len(mesh),
	}
	sample := func(p domain.GeodeticPosition) float64 {
		k := key{p.Longitude, p.Latitude}
		if h, ok := heights[k]; ok {
			return h
		}
		h, ok := sampler.SampleHeight(p)
		if !ok || math.IsNaN(h) {
			h = 0
		}
		heights[k] = h
		result.MinHeight = math.Min(result.MinHeight, h)
		result.MaxHeight = math.Max(result.MaxHeight, h)
		return h
	}

	for _, t := range mesh {
		var bottom [3]domain.WorldPosition
		var excess float64
		for i, p := range t {
			bottom[i] = e.ToWorld(domain.GeodeticPosition{Longitude: p.Longitude, Latitude: p.Latitude})
			excess += sample(p) - baseHeight
		}
		area := TriangleArea(bottom[0], bottom[1], bottom[2])
		result.BaseArea += area
		result.Volume += area * excess / 3
	}

	if len(heights) == 0 {
		result.MinHeight, result.MaxHeight = 0, 0
	}
	return result, nil
}

// SurfaceArea returns the polygon area in square metres by summing chord
// triangle areas over the refined mesh on the ellipsoid surface. It is
// slower than PlanarPolygonArea but holds up for larger polygons.
func (e *Ellipsoid) SurfaceArea(vertices []domain.GeodeticPosition) float64 {
	if len(openRing(vertices)) < 3 {
		return 0
	}
	var total float64
	for _, t := range refine(triangulate(vertices), DefaultGranularity*64, DefaultMaxTriangles) {
		var w [3]domain.WorldPosition
		for i, p := range t {
			w[i] = e.ToWorld(domain.GeodeticPosition{Longitude: p.Longitude, Latitude: p.Latitude})
		}
		total += TriangleArea(w[0], w[1], w[2])
	}
	return total
}
