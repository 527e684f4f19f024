// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/domain"
)

// FeatureService defines the primary port for managing finished shapes.
type FeatureService interface {
	// Add stores a new feature and records an undo step.
	Add(ctx context.Context, f domain.Feature) (domain.Feature, error)

	// Get returns a feature by ID.
	Get(ctx context.Context, id string) (domain.Feature, error)

	// List returns all features in insertion order.
	List(ctx context.Context) []domain.Feature

	// Update applies a partial update.
	Update(ctx context.Context, id string, u domain.FeatureUpdate) (domain.Feature, error)

	// ToggleVisibility flips the visible flag.
	ToggleVisibility(ctx context.Context, id string) (domain.Feature, error)

	// Delete removes a feature.
	Delete(ctx context.Context, id string) error

	// Clear removes every feature and the history.
	Clear(ctx context.Context) error

	// Undo and Redo walk the history. They return false at either end.
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)

	// Export returns the features as a FeatureCollection.
	Export(selectedOnly bool) (*geojson.FeatureCollection, error)

	// Import adds the features of a GeoJSON document.
	Import(ctx context.Context, data []byte) (domain.ImportResult, error)
}

// MeasureService defines the primary port for coordinate measurements.
type MeasureService interface {
	Distance(ctx context.Context, points []domain.GeodeticPosition) (domain.Measurement, error)
	Area(ctx context.Context, points []domain.GeodeticPosition) (domain.Measurement, error)
}

// VolumeService defines the primary port for terrain cut volumes.
type VolumeService interface {
	// Compute integrates the terrain above baseHeight over footprint.
	Compute(ctx context.Context, footprint []domain.GeodeticPosition, baseHeight float64) (domain.VolumeSample, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy      bool              // Overall health status
	Ready        bool              // Ready to accept requests
	FeatureCount int               // Number of features in the store
	Components   map[string]string // Component statuses
}
