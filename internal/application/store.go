// Package application contains the application services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/graphic"
	"github.com/jobrunner/geodraw/internal/ports/input"
	"github.com/jobrunner/geodraw/internal/ports/output"
	"github.com/jobrunner/geodraw/internal/snap"
)

var _ input.FeatureService = (*FeatureStore)(nil)

// minBoundSize pads degenerate bounds so points can be indexed.
const minBoundSize = 1e-9

// StoreOptions configures a FeatureStore. Scene is required; every other
// collaborator is optional.
type StoreOptions struct {
	Scene        output.Scene
	Repository   output.FeatureRepository
	Snap         *snap.Service
	Metrics      output.MetricsCollector
	Logger       *slog.Logger
	Ellipsoid    *geodesy.Ellipsoid
	HistoryLimit int
	Clock        func() time.Time
}

// FeatureStore owns the finished features and their live graphics.
type FeatureStore struct {
	mu       sync.RWMutex
	entries  map[string]*storeEntry
	selected map[string]struct{}
	index    *rtreego.Rtree
	history  *history
	seq      uint64
	loaded   bool

	scene     output.Scene
	repo      output.FeatureRepository
	snap      *snap.Service
	metrics   output.MetricsCollector
	logger    *slog.Logger
	ellipsoid *geodesy.Ellipsoid
	clock     func() time.Time
}

type storeEntry struct {
	feature domain.Feature
	graphic *graphic.Graphic
	item    *indexItem
	seq     uint64
}

// indexItem is the rtree record of a feature's lon/lat bounds.
type indexItem struct {
	id   string
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (i *indexItem) Bounds() rtreego.Rect {
	return i.rect
}

// NewFeatureStore creates an empty store.
func NewFeatureStore(opts StoreOptions) *FeatureStore {
	if opts.Metrics == nil {
		opts.Metrics = &output.NoOpMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Ellipsoid == nil {
		opts.Ellipsoid = geodesy.WGS84
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &FeatureStore{
		entries:   make(map[string]*storeEntry),
		selected:  make(map[string]struct{}),
		index:     rtreego.NewTree(2, 25, 50),
		history:   newHistory(opts.HistoryLimit),
		scene:     opts.Scene,
		repo:      opts.Repository,
		snap:      opts.Snap,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		ellipsoid: opts.Ellipsoid,
		clock:     opts.Clock,
	}
}

// Load restores the features saved in the repository. It does not record
// history.
func (s *FeatureStore) Load(ctx context.Context) error {
	if s.repo == nil {
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
		return nil
	}

	features, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading features: %w", err)
	}

	s.mu.Lock()
	loaded := 0
	for _, f := range features {
		if _, exists := s.entries[f.ID]; exists {
			continue
		}
		if _, err := s.insert(f); err != nil {
			s.logger.Warn("skipping stored feature", "id", f.ID, "error", err)
			continue
		}
		loaded++
	}
	s.loaded = true
	s.mu.Unlock()

	s.afterMutation(ctx, nil, nil)
	s.logger.Info("features loaded", "count", loaded, "stored", len(features))
	return nil
}

// Loaded reports whether Load has completed.
func (s *FeatureStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Add validates f, builds its graphic and records an add step.
func (s *FeatureStore) Add(ctx context.Context, f domain.Feature) (domain.Feature, error) {
	f = f.Clone()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := s.clock().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	s.mu.Lock()
	if _, exists := s.entries[f.ID]; exists {
		s.mu.Unlock()
		return domain.Feature{}, fmt.Errorf("%s: %w", f.ID, domain.ErrDuplicateFeature)
	}
	stored, err := s.insert(f)
	if err != nil {
		s.mu.Unlock()
		return domain.Feature{}, err
	}
	s.history.push(HistoryEntry{Action: ActionAdd, Timestamp: now, After: []domain.Feature{stored}})
	s.mu.Unlock()

	s.metrics.IncShapesCreated(stored.Kind.String())
	s.afterMutation(ctx, []domain.Feature{stored}, nil)
	s.logger.Debug("feature added", "id", stored.ID, "kind", stored.Kind.String())
	return stored.Clone(), nil
}

// Update applies a partial update and records the before and after states.
func (s *FeatureStore) Update(ctx context.Context, id string, u domain.FeatureUpdate) (domain.Feature, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return domain.Feature{}, fmt.Errorf("%s: %w", id, domain.ErrFeatureNotFound)
	}
	before := e.feature.Clone()
	next := u.Apply(before)
	next.UpdatedAt = s.clock().UTC()
	if err := next.Style.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Feature{}, err
	}
	stored, err := s.replace(next)
	if err != nil {
		s.mu.Unlock()
		return domain.Feature{}, err
	}
	s.history.push(HistoryEntry{
		Action:    ActionUpdate,
		Timestamp: next.UpdatedAt,
		Before:    []domain.Feature{before},
		After:     []domain.Feature{stored},
	})
	s.mu.Unlock()

	s.afterMutation(ctx, []domain.Feature{stored}, nil)
	return stored.Clone(), nil
}

// ToggleVisibility flips the visible flag through Update.
func (s *FeatureStore) ToggleVisibility(ctx context.Context, id string) (domain.Feature, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return domain.Feature{}, err
	}
	visible := !f.Visible
	return s.Update(ctx, id, domain.FeatureUpdate{Visible: &visible})
}

// Delete removes one feature.
func (s *FeatureStore) Delete(ctx context.Context, id string) error {
	n, err := s.DeleteMany(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, domain.ErrFeatureNotFound)
	}
	return nil
}

// DeleteMany removes the known IDs as a single undoable step and returns
// how many were removed. Unknown IDs are skipped.
func (s *FeatureStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	var removed []domain.Feature
	for _, id := range ids {
		if f, ok := s.remove(id); ok {
			removed = append(removed, f)
		}
	}
	if len(removed) > 0 {
		s.history.push(HistoryEntry{Action: ActionDelete, Timestamp: s.clock().UTC(), Before: removed})
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return 0, nil
	}
	deleted := make([]string, len(removed))
	for i, f := range removed {
		deleted[i] = f.ID
	}
	s.afterMutation(ctx, nil, deleted)
	return len(removed), nil
}

// Clear removes every feature and forgets history and selection.
func (s *FeatureStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.entries {
		s.remove(id)
	}
	s.history.reset()
	s.selected = make(map[string]struct{})
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Clear(ctx); err != nil {
			return fmt.Errorf("clearing repository: %w", err)
		}
	}
	s.afterMutation(ctx, nil, nil)
	s.logger.Info("feature store cleared")
	return nil
}

// Get returns a feature by ID.
func (s *FeatureStore) Get(_ context.Context, id string) (domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.Feature{}, fmt.Errorf("%s: %w", id, domain.ErrFeatureNotFound)
	}
	return e.feature.Clone(), nil
}

// List returns all features in insertion order.
func (s *FeatureStore) List(_ context.Context) []domain.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Feature, 0, len(s.entries))
	for _, e := range s.sortedEntries() {
		out = append(out, e.feature.Clone())
	}
	return out
}

// Count returns the number of features.
func (s *FeatureStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Graphic returns the live graphic of a feature.
func (s *FeatureStore) Graphic(id string) (*graphic.Graphic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.graphic, true
}

// Within returns the features whose lon/lat bounds intersect b.
func (s *FeatureStore) Within(b orb.Bound) []domain.Feature {
	rect, err := boundsRect(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []*storeEntry
	for _, sp := range s.index.SearchIntersect(rect) {
		if e, ok := s.entries[sp.(*indexItem).id]; ok {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })

	out := make([]domain.Feature, len(hits))
	for i, e := range hits {
		out[i] = e.feature.Clone()
	}
	return out
}

// Snapshot implements snap.PositionSource with the drawn outline of every
// visible feature.
func (s *FeatureStore) Snapshot() map[string][]domain.WorldPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.WorldPosition, len(s.entries))
	for id, e := range s.entries {
		if e.feature.Visible {
			out[id] = e.graphic.Outline()
		}
	}
	return out
}

// Undo reverts the last step. It returns false when there is nothing to
// undo.
func (s *FeatureStore) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	entry, ok := s.history.undo()
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	saved, deleted, err := s.apply(entry.After, entry.Before)
	s.mu.Unlock()

	s.afterMutation(ctx, saved, deleted)
	s.logger.Debug("undo", "action", string(entry.Action))
	return true, err
}

// Redo re-applies the last undone step.
func (s *FeatureStore) Redo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	entry, ok := s.history.redo()
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	saved, deleted, err := s.apply(entry.Before, entry.After)
	s.mu.Unlock()

	s.afterMutation(ctx, saved, deleted)
	s.logger.Debug("redo", "action", string(entry.Action))
	return true, err
}

// CanUndo reports whether Undo would do anything.
func (s *FeatureStore) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.canUndo()
}

// CanRedo reports whether Redo would do anything.
func (s *FeatureStore) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.canRedo()
}

// HistoryLen returns the number of recorded steps.
func (s *FeatureStore) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.len()
}

// apply moves the store from the from states to the to states. Features
// only in from are removed, features in to are (re)built.
func (s *FeatureStore) apply(from, to []domain.Feature) ([]domain.Feature, []string, error) {
	keep := make(map[string]struct{}, len(to))
	for _, f := range to {
		keep[f.ID] = struct{}{}
	}

	var deleted []string
	for _, f := range from {
		if _, ok := keep[f.ID]; ok {
			continue
		}
		if _, ok := s.remove(f.ID); ok {
			deleted = append(deleted, f.ID)
		}
	}

	var saved []domain.Feature
	var firstErr error
	for _, f := range to {
		stored, err := s.replace(f)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved = append(saved, stored)
	}
	return saved, deleted, firstErr
}

// insert builds the graphic of f and indexes it. Caller holds mu.
func (s *FeatureStore) insert(f domain.Feature) (domain.Feature, error) {
	e, err := s.build(f)
	if err != nil {
		return domain.Feature{}, err
	}
	s.seq++
	e.seq = s.seq
	s.register(e)
	return e.feature, nil
}

// replace swaps in a new state of f, keeping its insertion order when it
// already exists. The old state survives a failed build. Caller holds mu.
func (s *FeatureStore) replace(f domain.Feature) (domain.Feature, error) {
	old, exists := s.entries[f.ID]
	if !exists {
		return s.insert(f)
	}
	e, err := s.build(f)
	if err != nil {
		return domain.Feature{}, err
	}
	s.index.Delete(old.item)
	old.graphic.Destroy()
	e.seq = old.seq
	s.register(e)
	return e.feature, nil
}

func (s *FeatureStore) build(f domain.Feature) (*storeEntry, error) {
	g, err := graphic.FromFeature(f, s.scene, graphic.Options{
		Ellipsoid: s.ellipsoid,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}
	f.Name = g.Name()

	rect, err := featureRect(f, g)
	if err != nil {
		g.Destroy()
		return nil, err
	}
	return &storeEntry{feature: f, graphic: g, item: &indexItem{id: f.ID, rect: rect}}, nil
}

func (s *FeatureStore) register(e *storeEntry) {
	s.index.Insert(e.item)
	s.entries[e.feature.ID] = e
}

// remove destroys a feature's graphic and drops it from the index and the
// selection. Caller holds mu.
func (s *FeatureStore) remove(id string) (domain.Feature, bool) {
	e, ok := s.entries[id]
	if !ok {
		return domain.Feature{}, false
	}
	s.index.Delete(e.item)
	e.graphic.Destroy()
	delete(s.entries, id)
	delete(s.selected, id)
	return e.feature, true
}

func (s *FeatureStore) sortedEntries() []*storeEntry {
	entries := make([]*storeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}

// afterMutation persists changes, re-syncs snapping and updates metrics.
// It must be called without holding mu.
func (s *FeatureStore) afterMutation(ctx context.Context, saved []domain.Feature, deleted []string) {
	if s.repo != nil {
		for _, f := range saved {
			if err := s.repo.Save(ctx, f); err != nil {
				s.logger.Error("failed to persist feature", "id", f.ID, "error", err)
			}
		}
		for _, id := range deleted {
			if err := s.repo.Delete(ctx, id); err != nil {
				s.logger.Error("failed to delete persisted feature", "id", id, "error", err)
			}
		}
	}
	if s.snap != nil {
		s.snap.SyncFromStore(s)
	}
	s.metrics.SetFeatureCount(s.Count())
}

func featureRect(f domain.Feature, g *graphic.Graphic) (rtreego.Rect, error) {
	e := domain.ExtentOf(f.Positions)
	if f.Kind == domain.KindCircle {
		e = g.Bounds()
	}
	return boundsRect(e.West, e.South, e.East, e.North)
}

func boundsRect(west, south, east, north float64) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{west, south},
		[]float64{max(east-west, minBoundSize), max(north-south, minBoundSize)},
	)
}
