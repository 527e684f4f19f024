package geodesy

import (
	"math"

	"github.com/jobrunner/geodraw/internal/domain"
)

// triangle holds three geodetic corners.
type triangle [3]domain.GeodeticPosition

// triangulate splits a simple polygon into triangles by ear clipping in
// lon/lat. Polygons the clipper cannot resolve, such as self-intersecting
// rings, fall back to a fan around the first vertex.
func triangulate(vertices []domain.GeodeticPosition) []triangle {
	vs := openRing(vertices)
	n := len(vs)
	if n < 3 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if signedArea(vs) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	out := make([]triangle, 0, n-2)
	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		clipped := false
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(vs, idx, prev, cur, next) {
				continue
			}
			out = append(out, triangle{vs[prev], vs[cur], vs[next]})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return fan(vs)
		}
	}
	if len(idx) == 3 {
		out = append(out, triangle{vs[idx[0]], vs[idx[1]], vs[idx[2]]})
	}
	return out
}

func isEar(vs []domain.GeodeticPosition, idx []int, prev, cur, next int) bool {
	a, b, c := vs[prev], vs[cur], vs[next]
	if cross(a, b, c) <= 0 {
		return false
	}
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if pointInTriangle(vs[k], a, b, c) {
			return false
		}
	}
	return true
}

func fan(vs []domain.GeodeticPosition) []triangle {
	out := make([]triangle, 0, len(vs)-2)
	for i := 1; i < len(vs)-1; i++ {
		out = append(out, triangle{vs[0], vs[i], vs[i+1]})
	}
	return out
}

func cross(a, b, c domain.GeodeticPosition) float64 {
	return (b.Longitude-a.Longitude)*(c.Latitude-a.Latitude) -
		(b.Latitude-a.Latitude)*(c.Longitude-a.Longitude)
}

func pointInTriangle(p, a, b, c domain.GeodeticPosition) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}

func signedArea(vs []domain.GeodeticPosition) float64 {
	var s float64
	for i := range vs {
		j := (i + 1) % len(vs)
		s += vs[i].Longitude*vs[j].Latitude - vs[j].Longitude*vs[i].Latitude
	}
	return s / 2
}

// maxEdgeRadians returns the longest edge of t as an angle, with the
// longitude span scaled by the cosine of the mean latitude.
func (t triangle) maxEdgeRadians() float64 {
	var longest float64
	for i := 0; i < 3; i++ {
		a, b := t[i], t[(i+1)%3]
		dLat := toRadians(b.Latitude - a.Latitude)
		dLon := toRadians(b.Longitude-a.Longitude) * math.Cos(toRadians((a.Latitude+b.Latitude)/2))
		longest = math.Max(longest, math.Hypot(dLat, dLon))
	}
	return longest
}

// refineDepth is the number of 4-way splits needed to bring every edge of
// t at or below granularity.
func (t triangle) refineDepth(granularity float64) int {
	edge := t.maxEdgeRadians()
	if edge <= granularity || granularity <= 0 {
		return 0
	}
	return int(math.Ceil(math.Log2(edge / granularity)))
}

// subdivide splits t into four triangles per level, depth levels deep.
func (t triangle) subdivide(depth int, out []triangle) []triangle {
	if depth <= 0 {
		return append(out, t)
	}
	ab := midGeodetic(t[0], t[1])
	bc := midGeodetic(t[1], t[2])
	ca := midGeodetic(t[2], t[0])
	out = triangle{t[0], ab, ca}.subdivide(depth-1, out)
	out = triangle{ab, t[1], bc}.subdivide(depth-1, out)
	out = triangle{ca, bc, t[2]}.subdivide(depth-1, out)
	return triangle{ab, bc, ca}.subdivide(depth-1, out)
}

func midGeodetic(a, b domain.GeodeticPosition) domain.GeodeticPosition {
	return domain.GeodeticPosition{
		Longitude: (a.Longitude + b.Longitude) / 2,
		Latitude:  (a.Latitude + b.Latitude) / 2,
	}
}

// refine subdivides every base triangle to the granularity while keeping the
// total below maxTriangles. The deepest triangles give up a level first.
func refine(base []triangle, granularity float64, maxTriangles int) []triangle {
	depths := make([]int, len(base))
	for i, t := range base {
		depths[i] = t.refineDepth(granularity)
	}

	total := func() int {
		n := 0
		for _, d := range depths {
			n += 1 << (2 * d)
		}
		return n
	}
	for maxTriangles > 0 && total() > maxTriangles {
		deepest := 0
		for i, d := range depths {
			if d > depths[deepest] {
				deepest = i
			}
		}
		if depths[deepest] == 0 {
			break
		}
		depths[deepest]--
	}

	out := make([]triangle, 0, total())
	for i, t := range base {
		out = t.subdivide(depths[i], out)
	}
	return out
}
