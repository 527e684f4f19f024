package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// mockScene records primitives in memory.
type mockScene struct {
	mu       sync.Mutex
	next     int
	entities map[output.EntityID]output.Primitive
}

func newMockScene() *mockScene {
	return &mockScene{entities: make(map[output.EntityID]output.Primitive)}
}

func (m *mockScene) Add(p output.Primitive) output.EntityID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := output.EntityID(fmt.Sprintf("e%d", m.next))
	m.entities[id] = p
	return id
}

func (m *mockScene) Remove(id output.EntityID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return false
	}
	delete(m.entities, id)
	return true
}

func (m *mockScene) SetVisible(id output.EntityID, v bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entities[id]
	if !ok {
		return false
	}
	p.Show = v
	m.entities[id] = p
	return true
}

func (m *mockScene) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

// mockProjector places nothing on screen.
type mockProjector struct{}

func (mockProjector) WorldToScreen(_ domain.WorldPosition) (domain.ScreenPosition, bool) {
	return domain.ScreenPosition{}, false
}

// lonLatProjector maps lon/lat degrees to pixels at a fixed scale.
type lonLatProjector struct{ pixelsPerDegree float64 }

func (p lonLatProjector) WorldToScreen(w domain.WorldPosition) (domain.ScreenPosition, bool) {
	g := geodesy.WGS84.ToGeodetic(w)
	return domain.ScreenPosition{X: g.Longitude * p.pixelsPerDegree, Y: g.Latitude * p.pixelsPerDegree}, true
}

// mockRepository implements output.FeatureRepository for testing.
type mockRepository struct {
	mu       sync.Mutex
	features map[string]domain.Feature
	saves    int
	deletes  int
	saveErr  error
	listErr  error
	pingErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{features: make(map[string]domain.Feature)}
}

func (m *mockRepository) Save(_ context.Context, f domain.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.features[f.ID] = f
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.features, id)
	return nil
}

func (m *mockRepository) List(_ context.Context) ([]domain.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Feature, 0, len(m.features))
	for _, f := range m.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = make(map[string]domain.Feature)
	return nil
}

func (m *mockRepository) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockRepository) Close() error {
	return nil
}

func (m *mockRepository) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.features[id]
	return ok
}

// mockStorage implements output.ObjectStorage for testing.
type mockStorage struct {
	mu      sync.Mutex
	objects map[string]output.StorageObject
	data    map[string][]byte
	listErr error
	getErr  error
	puts    map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		objects: make(map[string]output.StorageObject),
		data:    make(map[string][]byte),
		puts:    make(map[string][]byte),
	}
}

func (m *mockStorage) set(key, etag, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = output.StorageObject{Key: key, Size: int64(len(body)), ETag: etag}
	m.data[key] = []byte(body)
}

func (m *mockStorage) drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.data, key)
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]output.StorageObject, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj)
	}
	return out, nil
}

func (m *mockStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, &domain.StorageError{Operation: "get", Key: key, Err: domain.ErrNotFound}
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *mockStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockStorage) Put(_ context.Context, key string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts[key] = b
	return nil
}

// flatSampler reports the same height everywhere.
type flatSampler struct {
	height float64
}

func (f flatSampler) Available() bool { return true }

func (f flatSampler) SampleHeight(_ domain.GeodeticPosition) (float64, bool) {
	return f.height, true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedClock returns a clock that starts at t and advances one second per
// call.
func fixedClock(t time.Time) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func pos(lon, lat float64) domain.GeodeticPosition {
	return domain.NewGeodeticPosition(lon, lat)
}

func pointFeature(lon, lat float64) domain.Feature {
	return domain.Feature{
		Kind:      domain.KindPoint,
		Positions: []domain.GeodeticPosition{pos(lon, lat)},
		Style:     domain.DefaultStyle(),
		Visible:   true,
	}
}

func polygonFeature() domain.Feature {
	return domain.Feature{
		Kind:      domain.KindPolygon,
		Positions: []domain.GeodeticPosition{pos(0, 0), pos(0.01, 0), pos(0.01, 0.01), pos(0, 0.01)},
		Style:     domain.DefaultStyle(),
		Visible:   true,
	}
}
