package output

import (
	"context"

	"github.com/jobrunner/geodraw/internal/domain"
)

// FeatureRepository persists finished features as GeoJSON snapshots.
type FeatureRepository interface {
	// Save inserts or replaces a feature.
	Save(ctx context.Context, f domain.Feature) error

	// Delete removes a feature. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all stored features ordered by creation time.
	List(ctx context.Context) ([]domain.Feature, error)

	// Clear removes every feature.
	Clear(ctx context.Context) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
