package domain

import (
	"fmt"
	"strings"
)

// Kind identifies a drawable shape variant.
type Kind int

// Shape kinds. The set is closed; KindCount sizes per-kind tables.
const (
	KindPoint Kind = iota
	KindLine
	KindPolygon
	KindCircle
	KindRectangle
	KindCount
)

var kindNames = [KindCount]string{
	KindPoint:     "point",
	KindLine:      "line",
	KindPolygon:   "polygon",
	KindCircle:    "circle",
	KindRectangle: "rectangle",
}

// minVertices holds the minimum accepted vertex count per kind. Circle is
// center + edge, rectangle is two opposite corners.
var minVertices = [KindCount]int{
	KindPoint:     1,
	KindLine:      2,
	KindPolygon:   3,
	KindCircle:    2,
	KindRectangle: 2,
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < KindCount
}

// MinVertices returns the minimum number of vertices needed to create k.
func (k Kind) MinVertices() int {
	if !k.Valid() {
		return 0
	}
	return minVertices[k]
}

// GeoJSONType returns the GeoJSON geometry type a shape of kind k exports to.
func (k Kind) GeoJSONType() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLine:
		return "LineString"
	default:
		return "Polygon"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGeometry, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. "area" is accepted as an alias for polygon.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point":
		return KindPoint, nil
	case "line", "linestring", "polyline":
		return KindLine, nil
	case "polygon", "area":
		return KindPolygon, nil
	case "circle":
		return KindCircle, nil
	case "rectangle":
		return KindRectangle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, s)
}

// Kinds returns all shape kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, KindCount)
	for k := Kind(0); k < KindCount; k++ {
		out = append(out, k)
	}
	return out
}
