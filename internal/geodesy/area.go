package geodesy

import (
	"math"

	"github.com/jobrunner/geodraw/internal/domain"
)

// MetersPerDegree is the equatorial length of one degree used by the planar
// area approximation.
const MetersPerDegree = 111320.0

// PlanarPolygonArea returns the polygon area in square metres using the
// shoelace formula in degrees, scaled by (111320·cos(meanLat))². It is a
// flat-earth approximation for sub-regional polygons; the single mean
// latitude scale is intentional. A closing duplicate vertex is tolerated.
func PlanarPolygonArea(vertices []domain.GeodeticPosition) float64 {
	vs := openRing(vertices)
	n := len(vs)
	if n < 3 {
		return 0
	}

	var sum, latSum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += vs[i].Longitude*vs[j].Latitude - vs[j].Longitude*vs[i].Latitude
		latSum += vs[i].Latitude
	}
	area := math.Abs(sum / 2)

	scale := MetersPerDegree * math.Cos(toRadians(latSum/float64(n)))
	return area * scale * scale
}

// TriangleArea returns the area of a triangle over three world positions
// using Heron's formula on chord distances.
func TriangleArea(a, b, c domain.WorldPosition) float64 {
	ab := ChordDistance(a, b)
	bc := ChordDistance(b, c)
	ca := ChordDistance(c, a)
	s := (ab + bc + ca) / 2
	p := s * (s - ab) * (s - bc) * (s - ca)
	if p <= 0 {
		return 0
	}
	return math.Sqrt(p)
}

// PolygonCentroid returns the signed-area-weighted centroid in lon/lat.
// It is meant for label placement. Degenerate rings fall back to the
// vertex mean.
func PolygonCentroid(vertices []domain.GeodeticPosition) domain.GeodeticPosition {
	vs := openRing(vertices)
	n := len(vs)
	if n == 0 {
		return domain.GeodeticPosition{}
	}

	var signedArea, cx, cy float64
	for i := 0; i < n; i++ {
		x0, y0 := vs[i].Longitude, vs[i].Latitude
		x1, y1 := vs[(i+1)%n].Longitude, vs[(i+1)%n].Latitude
		a := x0*y1 - x1*y0
		signedArea += a
		cx += (x0 + x1) * a
		cy += (y0 + y1) * a
	}
	signedArea *= 0.5

	if math.Abs(signedArea) < 1e-15 {
		return meanPosition(vs)
	}
	return domain.GeodeticPosition{
		Longitude: cx / (6 * signedArea),
		Latitude:  cy / (6 * signedArea),
	}
}

// LineLength sums the geodesic lengths of consecutive segments.
func (e *Ellipsoid) LineLength(vertices []domain.GeodeticPosition) float64 {
	var total float64
	for i := 1; i < len(vertices); i++ {
		total += e.Distance(vertices[i-1], vertices[i])
	}
	return total
}

// PolygonPerimeter is LineLength plus the closing segment.
func (e *Ellipsoid) PolygonPerimeter(vertices []domain.GeodeticPosition) float64 {
	vs := openRing(vertices)
	if len(vs) < 2 {
		return 0
	}
	return e.LineLength(vs) + e.Distance(vs[len(vs)-1], vs[0])
}

// openRing drops a trailing vertex that repeats the first one.
func openRing(vs []domain.GeodeticPosition) []domain.GeodeticPosition {
	n := len(vs)
	if n > 1 && vs[0].Longitude == vs[n-1].Longitude && vs[0].Latitude == vs[n-1].Latitude {
		return vs[:n-1]
	}
	return vs
}

func meanPosition(vs []domain.GeodeticPosition) domain.GeodeticPosition {
	var lon, lat float64
	for _, v := range vs {
		lon += v.Longitude
		lat += v.Latitude
	}
	n := float64(len(vs))
	return domain.GeodeticPosition{Longitude: lon / n, Latitude: lat / n}
}
