package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/input"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var (
	_ input.MeasureService = (*MeasureService)(nil)
	_ input.VolumeService  = (*VolumeService)(nil)
)

// MeasureService measures distances and areas of explicit coordinates.
type MeasureService struct {
	ellipsoid *geodesy.Ellipsoid
	logger    *slog.Logger
	clock     func() time.Time
}

// NewMeasureService creates a new measure service.
func NewMeasureService(ellipsoid *geodesy.Ellipsoid, logger *slog.Logger) *MeasureService {
	if ellipsoid == nil {
		ellipsoid = geodesy.WGS84
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MeasureService{ellipsoid: ellipsoid, logger: logger, clock: time.Now}
}

// Distance returns the geodesic length along points.
func (s *MeasureService) Distance(_ context.Context, points []domain.GeodeticPosition) (domain.Measurement, error) {
	if err := validatePoints(points, 2); err != nil {
		s.logger.Debug("distance rejected", "points", len(points), "error", err)
		return domain.Measurement{}, err
	}
	m := domain.Measurement{
		ID:        uuid.NewString(),
		Type:      domain.MeasureDistance,
		Distance:  s.ellipsoid.LineLength(points),
		Points:    points,
		CreatedAt: s.clock().UTC(),
	}
	s.logger.Debug("distance measured", "id", m.ID, "points", len(points), "meters", m.Distance)
	return m, nil
}

// Area returns the surface area enclosed by points.
func (s *MeasureService) Area(_ context.Context, points []domain.GeodeticPosition) (domain.Measurement, error) {
	if err := validatePoints(points, 3); err != nil {
		s.logger.Debug("area rejected", "points", len(points), "error", err)
		return domain.Measurement{}, err
	}
	m := domain.Measurement{
		ID:        uuid.NewString(),
		Type:      domain.MeasureArea,
		Area:      s.ellipsoid.SurfaceArea(points),
		Points:    points,
		CreatedAt: s.clock().UTC(),
	}
	s.logger.Debug("area measured", "id", m.ID, "points", len(points), "square_meters", m.Area)
	return m, nil
}

func validatePoints(points []domain.GeodeticPosition, minCount int) error {
	if len(points) < minCount {
		return fmt.Errorf("need %d points, got %d: %w", minCount, len(points), domain.ErrInsufficientVertices)
	}
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VolumeService computes terrain cut volumes against a configured sampler.
type VolumeService struct {
	ellipsoid *geodesy.Ellipsoid
	sampler   output.TerrainSampler
	options   geodesy.VolumeOptions
	metrics   output.MetricsCollector
	logger    *slog.Logger
}

// NewVolumeService creates a volume service. A nil sampler makes every
// computation fail with domain.ErrTerrainUnavailable.
func NewVolumeService(
	ellipsoid *geodesy.Ellipsoid,
	sampler output.TerrainSampler,
	opts geodesy.VolumeOptions,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *VolumeService {
	if ellipsoid == nil {
		ellipsoid = geodesy.WGS84
	}
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &VolumeService{
		ellipsoid: ellipsoid,
		sampler:   sampler,
		options:   opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Compute integrates the terrain above baseHeight over footprint.
func (s *VolumeService) Compute(ctx context.Context, footprint []domain.GeodeticPosition, baseHeight float64) (domain.VolumeSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.VolumeSample{}, err
	}
	for _, p := range footprint {
		if err := p.Validate(); err != nil {
			return domain.VolumeSample{}, err
		}
	}

	var sampler geodesy.Sampler
	if s.sampler != nil {
		sampler = s.sampler
	}

	start := time.Now()
	sample, err := s.ellipsoid.ComputeCutVolume(footprint, sampler, baseHeight, s.options)
	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("volume computation failed", "vertices", len(footprint), "error", err)
		return domain.VolumeSample{}, err
	}

	s.metrics.ObserveVolumeDuration(duration, sample.TriangleCount)
	s.logger.Info("volume computed",
		"volume", sample.Volume,
		"base_area", sample.BaseArea,
		"triangles", sample.TriangleCount,
		"duration_ms", duration.Milliseconds(),
	)
	return sample, nil
}
