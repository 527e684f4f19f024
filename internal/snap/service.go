// Package snap finds vertex and edge snap targets near a screen position.
package snap

import (
	"sort"
	"sync"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// DefaultTolerance is the snap radius in pixels.
const DefaultTolerance = 10.0

// edgeBias is applied to the current best distance when an edge competes
// with a vertex; the edge must be this much closer to win.
const edgeBias = 0.7

// TargetType tells whether a target is a vertex or a point on an edge.
type TargetType string

// Target types.
const (
	TargetVertex TargetType = "vertex"
	TargetEdge   TargetType = "edge"
)

// Options configures snapping.
type Options struct {
	Enabled      bool
	Tolerance    float64
	SnapToVertex bool
	SnapToEdge   bool
	ExcludeIDs   []string
}

// DefaultOptions returns snapping enabled for vertices and edges at 10px.
func DefaultOptions() Options {
	return Options{
		Enabled:      true,
		Tolerance:    DefaultTolerance,
		SnapToVertex: true,
		SnapToEdge:   true,
	}
}

// OptionsPatch carries a partial options update. Nil fields are kept.
type OptionsPatch struct {
	Enabled      *bool
	Tolerance    *float64
	SnapToVertex *bool
	SnapToEdge   *bool
	ExcludeIDs   []string
}

// Target is the best snap candidate for a cursor position.
type Target struct {
	Type           TargetType
	Position       domain.WorldPosition
	FeatureID      string
	ScreenDistance float64
	VertexIndex    int // valid for vertex targets
	EdgeIndex      int // valid for edge targets, segment i..i+1
}

// PositionSource exposes the vertex lists of all registered shapes.
type PositionSource interface {
	Snapshot() map[string][]domain.WorldPosition
}

// Service keeps a registry of shape vertices and resolves snap targets.
type Service struct {
	mu        sync.RWMutex
	projector output.Projector
	metrics   output.MetricsCollector
	options   Options
	vertices  map[string][]domain.WorldPosition
}

// NewService creates a snap service that projects through projector.
func NewService(projector output.Projector, metrics output.MetricsCollector, opts Options) *Service {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Service{
		projector: projector,
		metrics:   metrics,
		options:   opts,
		vertices:  make(map[string][]domain.WorldPosition),
	}
}

// Options returns the current options.
func (s *Service) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

// SetOptions merges a patch into the current options.
func (s *Service) SetOptions(p OptionsPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Enabled != nil {
		s.options.Enabled = *p.Enabled
	}
	if p.Tolerance != nil && *p.Tolerance > 0 {
		s.options.Tolerance = *p.Tolerance
	}
	if p.SnapToVertex != nil {
		s.options.SnapToVertex = *p.SnapToVertex
	}
	if p.SnapToEdge != nil {
		s.options.SnapToEdge = *p.SnapToEdge
	}
	if p.ExcludeIDs != nil {
		s.options.ExcludeIDs = append([]string(nil), p.ExcludeIDs...)
	}
}

// RegisterFeature stores a copy of the shape's vertices. Empty lists are
// ignored.
func (s *Service) RegisterFeature(id string, positions []domain.WorldPosition) {
	if len(positions) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices[id] = append([]domain.WorldPosition(nil), positions...)
}

// UnregisterFeature drops a shape.
func (s *Service) UnregisterFeature(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vertices, id)
}

// Clear drops all shapes.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices = make(map[string][]domain.WorldPosition)
}

// Len returns the number of registered shapes.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vertices)
}

// SyncFromStore replaces the registry with the shapes of source.
func (s *Service) SyncFromStore(source PositionSource) {
	snapshot := source.Snapshot()
	vertices := make(map[string][]domain.WorldPosition, len(snapshot))
	for id, positions := range snapshot {
		if len(positions) > 0 {
			vertices[id] = append([]domain.WorldPosition(nil), positions...)
		}
	}
	s.mu.Lock()
	s.vertices = vertices
	s.mu.Unlock()
}

// FindSnapTarget returns the closest vertex or edge point within the
// tolerance. Vertices are scanned for all shapes before any edge so that an
// edge only wins when it is clearly closer than the best vertex.
func (s *Service) FindSnapTarget(screen domain.ScreenPosition) (Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.options.Enabled {
		return Target{}, false
	}

	excluded := make(map[string]struct{}, len(s.options.ExcludeIDs))
	for _, id := range s.options.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	ids := make([]string, 0, len(s.vertices))
	for id := range s.vertices {
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var best Target
	found := false
	bestDistance := s.options.Tolerance

	if s.options.SnapToVertex {
		for _, id := range ids {
			for i, p := range s.vertices[id] {
				sp, ok := s.projector.WorldToScreen(p)
				if !ok {
					continue
				}
				if d := screen.DistanceTo(sp); d < bestDistance {
					bestDistance = d
					best = Target{Type: TargetVertex, Position: p, FeatureID: id, ScreenDistance: d, VertexIndex: i}
					found = true
				}
			}
		}
	}

	if s.options.SnapToEdge {
		for _, id := range ids {
			positions := s.vertices[id]
			for i := 0; i+1 < len(positions); i++ {
				pos, d, ok := s.edgePoint(screen, positions[i], positions[i+1])
				if !ok {
					continue
				}
				threshold := bestDistance
				if found && best.Type == TargetVertex {
					threshold = bestDistance * edgeBias
				}
				if d < threshold {
					bestDistance = d
					best = Target{Type: TargetEdge, Position: pos, FeatureID: id, ScreenDistance: d, EdgeIndex: i}
					found = true
				}
			}
		}
	}

	if found {
		s.metrics.IncSnapHits(string(best.Type))
	}
	return best, found
}

// edgePoint projects the cursor onto the screen-space segment and maps the
// segment parameter back to world space.
func (s *Service) edgePoint(screen domain.ScreenPosition, start, end domain.WorldPosition) (domain.WorldPosition, float64, bool) {
	a, ok := s.projector.WorldToScreen(start)
	if !ok {
		return domain.WorldPosition{}, 0, false
	}
	b, ok := s.projector.WorldToScreen(end)
	if !ok {
		return domain.WorldPosition{}, 0, false
	}

	dx, dy := b.X-a.X, b.Y-a.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return domain.WorldPosition{}, 0, false
	}
	t := ((screen.X-a.X)*dx + (screen.Y-a.Y)*dy) / lengthSq
	t = max(0, min(1, t))

	proj := domain.ScreenPosition{X: a.X + t*dx, Y: a.Y + t*dy}
	return geodesy.Lerp(start, end, t), screen.DistanceTo(proj), true
}
