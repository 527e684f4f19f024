package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/geodraw/internal/ports/output"
)

const (
	docTwoPoints = `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[2,2]},"properties":{}}]}`
	docOneLine = `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`
)

func newTestLibrary(storage output.ObjectStorage) (*Library, *FeatureStore) {
	store := NewFeatureStore(StoreOptions{Scene: newMockScene(), Logger: testLogger()})
	return NewLibrary(store, storage, &output.NoOpMetrics{}, testLogger(), ""), store
}

func TestLibrarySync(t *testing.T) {
	storage := newMockStorage()
	storage.set("a.geojson", "v1", docTwoPoints)
	storage.set("b.geojson", "v1", docOneLine)
	storage.set("readme.txt", "v1", "not geojson")
	storage.set(DefaultPublishKey, "v1", docTwoPoints)

	library, store := newTestLibrary(storage)
	ctx := context.Background()

	steps := []struct {
		name      string
		mutate    func()
		wantStats SyncStats
		wantCount int
	}{
		{
			name:      "initial sync skips other files and the publish key",
			mutate:    func() {},
			wantStats: SyncStats{Added: 2, Features: 3},
			wantCount: 3,
		},
		{
			name:      "unchanged documents are skipped",
			mutate:    func() {},
			wantStats: SyncStats{},
			wantCount: 3,
		},
		{
			name:      "changed document replaces its features",
			mutate:    func() { storage.set("a.geojson", "v2", docOneLine) },
			wantStats: SyncStats{Added: 1, Features: 1},
			wantCount: 2,
		},
		{
			name:      "removed document drops its features",
			mutate:    func() { storage.drop("b.geojson") },
			wantStats: SyncStats{Removed: 1},
			wantCount: 1,
		},
	}

	for _, step := range steps {
		step.mutate()
		stats, err := library.Sync(ctx)
		if err != nil {
			t.Fatalf("%s: Sync() error = %v", step.name, err)
		}
		if stats != step.wantStats {
			t.Errorf("%s: Sync() = %+v, want %+v", step.name, stats, step.wantStats)
		}
		if store.Count() != step.wantCount {
			t.Errorf("%s: Count() = %d, want %d", step.name, store.Count(), step.wantCount)
		}
	}
	if library.SourceCount() != 1 {
		t.Errorf("SourceCount() = %d, want 1", library.SourceCount())
	}
}

func TestLibrarySyncListError(t *testing.T) {
	storage := newMockStorage()
	storage.listErr = errors.New("bucket gone")
	library, _ := newTestLibrary(storage)

	if _, err := library.Sync(context.Background()); err == nil {
		t.Error("Sync() should fail when listing fails")
	}
}

func TestLibrarySyncWithoutStorage(t *testing.T) {
	library, _ := newTestLibrary(nil)
	stats, err := library.Sync(context.Background())
	if err != nil || stats != (SyncStats{}) {
		t.Errorf("Sync() = %+v, %v, want no-op", stats, err)
	}
	if _, err := library.Publish(context.Background()); err == nil {
		t.Error("Publish() without storage should fail")
	}
}

func TestLibraryImportSource(t *testing.T) {
	library, store := newTestLibrary(nil)
	ctx := context.Background()

	n, err := library.ImportSource(ctx, "/data/a.geojson", []byte(docTwoPoints))
	if err != nil || n != 2 {
		t.Fatalf("ImportSource() = %d, %v, want 2", n, err)
	}
	n, err = library.ImportSource(ctx, "/data/a.geojson", []byte(docOneLine))
	if err != nil || n != 1 {
		t.Fatalf("ImportSource(again) = %d, %v, want 1", n, err)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want the re-imported source only", store.Count())
	}

	if err := library.RemoveSource(ctx, "/data/a.geojson"); err != nil {
		t.Fatalf("RemoveSource() error = %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
	if err := library.RemoveSource(ctx, "/data/unknown.geojson"); err != nil {
		t.Errorf("RemoveSource(unknown) error = %v", err)
	}

	if _, err := library.ImportSource(ctx, "/data/bad.geojson", []byte("{")); err == nil {
		t.Error("ImportSource() should fail on malformed JSON")
	}
}

func TestLibraryPublish(t *testing.T) {
	storage := newMockStorage()
	library, store := newTestLibrary(storage)
	ctx := context.Background()
	store.Add(ctx, polygonFeature())

	key, err := library.Publish(ctx)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if key != DefaultPublishKey {
		t.Errorf("Publish() key = %q, want %q", key, DefaultPublishKey)
	}
	fc, err := geojson.UnmarshalFeatureCollection(storage.puts[key])
	if err != nil {
		t.Fatalf("published document is not GeoJSON: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Errorf("published features = %d, want 1", len(fc.Features))
	}
}

func TestLibrarySync_RateLimiting(t *testing.T) {
	library, _ := newTestLibrary(newMockStorage())
	service := NewLibrarySync(library, time.Hour, testLogger())

	ctx := context.Background()

	// First call should succeed (sync will return 0 added since storage is empty)
	result, err := service.TriggerSync(ctx)
	if err != nil {
		t.Errorf("first sync should succeed, got error: %v", err)
	}
	if result.DocumentsAdded != 0 {
		t.Errorf("expected 0 documents added with empty storage, got %d", result.DocumentsAdded)
	}

	// Immediate second call should be rate limited
	_, err = service.TriggerSync(ctx)
	if err != ErrRateLimited {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// SyncNow is not rate limited
	if _, err := service.SyncNow(ctx); err != nil {
		t.Errorf("SyncNow() error = %v", err)
	}
}

func TestLibrarySync_Result(t *testing.T) {
	storage := newMockStorage()
	storage.set("a.geojson", "v1", docTwoPoints)
	library, _ := newTestLibrary(storage)
	service := NewLibrarySync(library, time.Hour, testLogger())

	result, err := service.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow() error = %v", err)
	}
	if result.DocumentsAdded != 1 || result.FeaturesImported != 2 || result.FeaturesTotal != 2 {
		t.Errorf("SyncNow() = %+v", result)
	}
	if result.SyncedAt.IsZero() {
		t.Error("SyncedAt should be set")
	}
}

func TestLibrarySync_StartStop(t *testing.T) {
	storage := newMockStorage()
	storage.set("a.geojson", "v1", docTwoPoints)
	library, store := newTestLibrary(storage)

	// Use a short interval for testing
	service := NewLibrarySync(library, 20*time.Millisecond, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for store.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Count() != 2 {
		t.Errorf("scheduled sync imported %d features, want 2", store.Count())
	}

	service.Stop()
	// A second Stop must not panic
	service.Stop()
}

func TestLibrarySync_Interval(t *testing.T) {
	library, _ := newTestLibrary(nil)
	interval := 5 * time.Minute
	service := NewLibrarySync(library, interval, testLogger())

	if service.Interval() != interval {
		t.Errorf("Interval() = %v, want %v", service.Interval(), interval)
	}
}
