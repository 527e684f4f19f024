package geodesy

import (
	"math"

	"github.com/jobrunner/geodraw/internal/domain"
)

// DefaultCircleSegments is the number of boundary segments used when a
// circle is exported as a polygon.
const DefaultCircleSegments = 36

// CircleRing approximates a circle boundary by offsetting radius/a radians
// (a being the equatorial radius) from the center along cos/sin of each
// segment angle. The returned ring is closed: it holds segments+1 points
// and the last one is an exact copy of the first.
func (e *Ellipsoid) CircleRing(center domain.GeodeticPosition, radius float64, segments int) []domain.GeodeticPosition {
	if segments < 3 {
		segments = DefaultCircleSegments
	}
	offset := radius / e.MaximumRadius()
	lon0, lat0 := toRadians(center.Longitude), toRadians(center.Latitude)

	ring := make([]domain.GeodeticPosition, 0, segments+1)
	for i := 0; i < segments; i++ {
		angle := float64(i) / float64(segments) * 2 * math.Pi
		ring = append(ring, domain.GeodeticPosition{
			Longitude: toDegrees(lon0 + offset*math.Cos(angle)),
			Latitude:  toDegrees(lat0 + offset*math.Sin(angle)),
			Height:    center.Height,
		})
	}
	return append(ring, ring[0])
}

// MeridianOffset returns the point at the given geodesic distance from p
// along its meridian, heading north unless that would cross the pole. The
// first guess of distance/a radians is refined against Distance until the
// relative error drops below 1e-9.
func (e *Ellipsoid) MeridianOffset(p domain.GeodeticPosition, distance float64) domain.GeodeticPosition {
	out := p
	if distance <= 0 {
		return out
	}
	dir := 1.0
	if p.Latitude+toDegrees(distance/e.MaximumRadius()) > 89 {
		dir = -1
	}

	delta := toDegrees(distance / e.MaximumRadius())
	for i := 0; i < 8; i++ {
		out.Latitude = p.Latitude + dir*delta
		d := e.Distance(p, out)
		if d == 0 || math.Abs(d-distance) <= 1e-9*distance {
			break
		}
		delta *= distance / d
	}
	return out
}
