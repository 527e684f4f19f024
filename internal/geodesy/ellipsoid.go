// Package geodesy provides the stateless distance, area, centroid and volume
// computations used by the graphics and tools.
package geodesy

import (
	"math"

	"github.com/StefanSchroeder/Golang-Ellipsoid/ellipsoid"

	"github.com/jobrunner/geodraw/internal/domain"
)

// semiMajorAxes lists the equatorial radius of the supported reference
// ellipsoids, keyed by the names Golang-Ellipsoid understands.
var semiMajorAxes = map[string]float64{
	"WGS84":         6378137.0,
	"GRS80":         6378137.0,
	"Airy1830":      6377563.396,
	"Clarke1866":    6378206.4,
	"International": 6378388.0,
}

// meanEarthRadius is used for the great-circle fallback.
const meanEarthRadius = 6371008.8

// Ellipsoid performs geodesic computations on one reference ellipsoid.
type Ellipsoid struct {
	name      string
	semiMajor float64
	geo       ellipsoid.Ellipsoid
}

// WGS84 is the reference ellipsoid used when none is configured.
var WGS84 = MustEllipsoid("WGS84")

// NewEllipsoid returns the named reference ellipsoid.
func NewEllipsoid(name string) (*Ellipsoid, error) {
	a, ok := semiMajorAxes[name]
	if !ok {
		return nil, &domain.ValidationError{
			Field:      "ellipsoid",
			Value:      name,
			Constraint: "WGS84|GRS80|Airy1830|Clarke1866|International",
			Message:    "unknown reference ellipsoid",
		}
	}
	return &Ellipsoid{
		name:      name,
		semiMajor: a,
		geo: ellipsoid.Init(name, ellipsoid.Degrees, ellipsoid.Meter,
			ellipsoid.LongitudeIsSymmetric, ellipsoid.BearingIsSymmetric),
	}, nil
}

// MustEllipsoid is like NewEllipsoid but panics on an unknown name.
func MustEllipsoid(name string) *Ellipsoid {
	e, err := NewEllipsoid(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the ellipsoid name.
func (e *Ellipsoid) Name() string {
	return e.name
}

// MaximumRadius returns the equatorial radius in metres.
func (e *Ellipsoid) MaximumRadius() float64 {
	return e.semiMajor
}

// Distance returns the geodesic surface distance in metres between two
// positions. Heights are ignored. The pair is put in a canonical order
// first so that Distance(a, b) and Distance(b, a) are bit-identical.
func (e *Ellipsoid) Distance(a, b domain.GeodeticPosition) float64 {
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0
	}
	if b.Latitude < a.Latitude || (b.Latitude == a.Latitude && b.Longitude < a.Longitude) {
		a, b = b, a
	}
	d, _ := e.geo.To(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		// Vincenty does not converge for nearly antipodal points.
		return greatCircle(a, b)
	}
	return d
}

// ToWorld converts a geodetic position to an ECEF world position.
func (e *Ellipsoid) ToWorld(p domain.GeodeticPosition) domain.WorldPosition {
	x, y, z := e.geo.ToECEF(p.Latitude, p.Longitude, p.Height)
	return domain.WorldPosition{X: x, Y: y, Z: z}
}

// ToGeodetic converts an ECEF world position to a geodetic position.
func (e *Ellipsoid) ToGeodetic(w domain.WorldPosition) domain.GeodeticPosition {
	lat, lon, h := e.geo.ToLLA(w.X, w.Y, w.Z)
	return domain.GeodeticPosition{Longitude: lon, Latitude: lat, Height: h}
}

// ToGeodeticAll converts a slice of world positions.
func (e *Ellipsoid) ToGeodeticAll(ws []domain.WorldPosition) []domain.GeodeticPosition {
	out := make([]domain.GeodeticPosition, len(ws))
	for i, w := range ws {
		out[i] = e.ToGeodetic(w)
	}
	return out
}

// ToWorldAll converts a slice of geodetic positions.
func (e *Ellipsoid) ToWorldAll(ps []domain.GeodeticPosition) []domain.WorldPosition {
	out := make([]domain.WorldPosition, len(ps))
	for i, p := range ps {
		out[i] = e.ToWorld(p)
	}
	return out
}

// Distance is geodesic distance on WGS84.
func Distance(a, b domain.GeodeticPosition) float64 {
	return WGS84.Distance(a, b)
}

func greatCircle(a, b domain.GeodeticPosition) float64 {
	lat1, lat2 := toRadians(a.Latitude), toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * meanEarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
