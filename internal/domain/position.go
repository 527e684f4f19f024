// Package domain contains the core entities and value objects for drawing
// and measuring shapes on the globe.
package domain

import (
	"fmt"
	"math"
)

// GeodeticPosition is a point on or above the reference ellipsoid.
type GeodeticPosition struct {
	Longitude float64 `json:"lon"`    // Degrees, [-180, 180]
	Latitude  float64 `json:"lat"`    // Degrees, [-90, 90]
	Height    float64 `json:"height"` // Metres above the ellipsoid
}

// NewGeodeticPosition creates a position at ellipsoid height zero.
func NewGeodeticPosition(lon, lat float64) GeodeticPosition {
	return GeodeticPosition{Longitude: lon, Latitude: lat}
}

// Validate checks the longitude and latitude ranges.
func (p GeodeticPosition) Validate() error {
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return &ValidationError{
			Field:      "longitude",
			Value:      p.Longitude,
			Constraint: "[-180, 180]",
			Message:    "longitude must be between -180 and 180",
		}
	}
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return &ValidationError{
			Field:      "latitude",
			Value:      p.Latitude,
			Constraint: "[-90, 90]",
			Message:    "latitude must be between -90 and 90",
		}
	}
	return nil
}

// Coordinates returns the GeoJSON ordering [lon, lat, height].
func (p GeodeticPosition) Coordinates() []float64 {
	return []float64{p.Longitude, p.Latitude, p.Height}
}

// String returns a string representation of the position.
func (p GeodeticPosition) String() string {
	if p.Height != 0 {
		return fmt.Sprintf("(%f, %f, %.2fm)", p.Longitude, p.Latitude, p.Height)
	}
	return fmt.Sprintf("(%f, %f)", p.Longitude, p.Latitude)
}

// WorldPosition is an engine-space Cartesian point (ECEF metres).
type WorldPosition struct {
	X float64
	Y float64
	Z float64
}

// IsFinite reports whether all components are finite numbers.
func (w WorldPosition) IsFinite() bool {
	return !math.IsNaN(w.X) && !math.IsInf(w.X, 0) &&
		!math.IsNaN(w.Y) && !math.IsInf(w.Y, 0) &&
		!math.IsNaN(w.Z) && !math.IsInf(w.Z, 0)
}

// ScreenPosition is a window coordinate in pixels.
type ScreenPosition struct {
	X float64
	Y float64
}

// DistanceTo returns the pixel distance between two screen positions.
func (s ScreenPosition) DistanceTo(o ScreenPosition) float64 {
	return math.Hypot(s.X-o.X, s.Y-o.Y)
}

// Extent is a geodetic bounding box in degrees.
type Extent struct {
	West  float64
	South float64
	East  float64
	North float64
}

// ExtentOf returns the envelope of the given positions.
func ExtentOf(positions []GeodeticPosition) Extent {
	if len(positions) == 0 {
		return Extent{}
	}
	e := Extent{
		West:  positions[0].Longitude,
		East:  positions[0].Longitude,
		South: positions[0].Latitude,
		North: positions[0].Latitude,
	}
	for _, p := range positions[1:] {
		e.West = math.Min(e.West, p.Longitude)
		e.East = math.Max(e.East, p.Longitude)
		e.South = math.Min(e.South, p.Latitude)
		e.North = math.Max(e.North, p.Latitude)
	}
	return e
}

// Contains checks if a position is within the extent.
func (e Extent) Contains(p GeodeticPosition) bool {
	return p.Longitude >= e.West && p.Longitude <= e.East &&
		p.Latitude >= e.South && p.Latitude <= e.North
}

// IsValid checks if the extent has valid dimensions.
func (e Extent) IsValid() bool {
	return e.West <= e.East && e.South <= e.North
}

// Center returns the center of the extent.
func (e Extent) Center() GeodeticPosition {
	return GeodeticPosition{
		Longitude: (e.West + e.East) / 2,
		Latitude:  (e.South + e.North) / 2,
	}
}
