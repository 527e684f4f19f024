package domain

import "time"

// MeasureType selects what a measurement reports.
type MeasureType string

// Measurement types.
const (
	MeasureDistance MeasureType = "distance"
	MeasureArea     MeasureType = "area"
)

// Measurement is the result of a completed measure interaction.
type Measurement struct {
	ID        string             `json:"id"`
	Type      MeasureType        `json:"type"`
	Distance  float64            `json:"distance,omitempty"` // metres
	Area      float64            `json:"area,omitempty"`     // square metres
	Points    []GeodeticPosition `json:"points"`
	CreatedAt time.Time          `json:"createdAt"`
}

// VolumeSample is the result of a terrain-cut volume computation.
type VolumeSample struct {
	Volume        float64 `json:"volume"`        // cubic metres
	BaseArea      float64 `json:"baseArea"`      // square metres
	MinHeight     float64 `json:"minHeight"`     // lowest sampled terrain height
	MaxHeight     float64 `json:"maxHeight"`     // highest sampled terrain height
	TriangleCount int     `json:"triangleCount"` // mesh triangles integrated
}
