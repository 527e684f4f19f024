package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncShapesCreated counts graphics built by kind.
	IncShapesCreated(kind string)

	// IncToolOutcome counts tool completions and cancellations.
	IncToolOutcome(tool string, outcome string)

	// IncSnapHits counts snap targets found by type (vertex, edge).
	IncSnapHits(targetType string)

	// ObserveVolumeDuration records cut-volume computation time.
	ObserveVolumeDuration(duration time.Duration, triangles int)

	// SetFeatureCount sets the number of features in the store.
	SetFeatureCount(count int)

	// IncImported counts imported features by result.
	IncImported(success bool, n int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncShapesCreated implements MetricsCollector.
func (n *NoOpMetrics) IncShapesCreated(_ string) {}

// IncToolOutcome implements MetricsCollector.
func (n *NoOpMetrics) IncToolOutcome(_ string, _ string) {}

// IncSnapHits implements MetricsCollector.
func (n *NoOpMetrics) IncSnapHits(_ string) {}

// ObserveVolumeDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveVolumeDuration(_ time.Duration, _ int) {}

// SetFeatureCount implements MetricsCollector.
func (n *NoOpMetrics) SetFeatureCount(_ int) {}

// IncImported implements MetricsCollector.
func (n *NoOpMetrics) IncImported(_ bool, _ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
