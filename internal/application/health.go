package application

import (
	"context"
	"time"

	"github.com/jobrunner/geodraw/internal/ports/input"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// pingTimeout bounds the repository check of a readiness probe.
const pingTimeout = 2 * time.Second

// HealthService provides health check functionality.
type HealthService struct {
	store   *FeatureStore
	repo    output.FeatureRepository
	sampler output.TerrainSampler
}

// NewHealthService creates a new health service. repo and sampler may be
// nil.
func NewHealthService(store *FeatureStore, repo output.FeatureRepository, sampler output.TerrainSampler) *HealthService {
	return &HealthService{
		store:   store,
		repo:    repo,
		sampler: sampler,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true // Basic liveness check
}

// IsReady returns true once the store has loaded and the repository
// answers.
func (s *HealthService) IsReady(ctx context.Context) bool {
	if !s.store.Loaded() {
		return false
	}
	return s.repoStatus(ctx) != "error"
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	terrain := "none"
	if s.sampler != nil && s.sampler.Available() {
		terrain = "ok"
	}

	return input.HealthDetails{
		Healthy:      s.IsHealthy(ctx),
		Ready:        s.IsReady(ctx),
		FeatureCount: s.store.Count(),
		Components: map[string]string{
			"store":      boolStatus(s.store.Loaded(), "ok", "loading"),
			"repository": s.repoStatus(ctx),
			"terrain":    terrain,
		},
	}
}

func (s *HealthService) repoStatus(ctx context.Context) string {
	if s.repo == nil {
		return "none"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		return "error"
	}
	return "ok"
}

func boolStatus(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
