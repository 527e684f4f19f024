package geodesy

import (
	"github.com/flywave/go3d/float64/vec3"

	"github.com/jobrunner/geodraw/internal/domain"
)

func toVec(w domain.WorldPosition) vec3.T {
	return vec3.T{w.X, w.Y, w.Z}
}

func fromVec(v vec3.T) domain.WorldPosition {
	return domain.WorldPosition{X: v[0], Y: v[1], Z: v[2]}
}

// ChordDistance returns the straight-line distance between two world
// positions.
func ChordDistance(a, b domain.WorldPosition) float64 {
	va, vb := toVec(a), toVec(b)
	d := vec3.Sub(&va, &vb)
	return d.Length()
}

// Lerp interpolates linearly between two world positions; t=0 yields a.
func Lerp(a, b domain.WorldPosition, t float64) domain.WorldPosition {
	va, vb := toVec(a), toVec(b)
	return fromVec(vec3.Interpolate(&va, &vb, t))
}

// Midpoint returns the chord midpoint of two world positions.
func Midpoint(a, b domain.WorldPosition) domain.WorldPosition {
	return Lerp(a, b, 0.5)
}
