package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jobrunner/geodraw/internal/ports/output"
)

// DefaultPublishKey is where Publish writes the store export.
const DefaultPublishKey = "geodraw-export.geojson"

// SyncStats contains statistics from a library sync.
type SyncStats struct {
	Added    int // documents imported or re-imported
	Removed  int // documents gone from storage
	Features int // features imported
}

// librarySource records the features one document produced.
type librarySource struct {
	etag         string
	lastModified int64
	ids          []string
}

// Library mirrors GeoJSON documents from object storage into the feature
// store. Each document is a source; re-importing a source replaces the
// features it produced before.
type Library struct {
	mu         sync.Mutex
	store      *FeatureStore
	storage    output.ObjectStorage
	metrics    output.MetricsCollector
	logger     *slog.Logger
	publishKey string
	sources    map[string]librarySource
}

// NewLibrary creates a library. storage may be nil when only local sources
// (the directory watcher) feed the store.
func NewLibrary(
	store *FeatureStore,
	storage output.ObjectStorage,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	publishKey string,
) *Library {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if publishKey == "" {
		publishKey = DefaultPublishKey
	}
	return &Library{
		store:      store,
		storage:    storage,
		metrics:    metrics,
		logger:     logger,
		publishKey: publishKey,
		sources:    make(map[string]librarySource),
	}
}

// Sync imports new and changed documents and removes the features of
// documents that no longer exist in storage.
func (l *Library) Sync(ctx context.Context) (SyncStats, error) {
	if l.storage == nil {
		return SyncStats{}, nil
	}
	l.logger.Info("syncing library from storage")

	start := time.Now()
	objects, err := l.storage.List(ctx)
	l.observe("list", start, err)
	if err != nil {
		return SyncStats{}, err
	}

	remote := make(map[string]output.StorageObject, len(objects))
	for _, obj := range objects {
		if !output.IsGeoJSONKey(obj.Key) || obj.Key == l.publishKey {
			continue
		}
		remote[obj.Key] = obj
	}

	stats := SyncStats{}
	keys := make([]string, 0, len(remote))
	for key := range remote {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		obj := remote[key]
		if l.unchanged(obj) {
			l.logger.Debug("document unchanged, skipping", "key", key)
			continue
		}

		data, err := l.read(ctx, key)
		if err != nil {
			l.logger.Error("failed to read document", "key", key, "error", err)
			continue
		}
		n, err := l.importSource(ctx, key, data, obj.ETag, obj.LastModified)
		if err != nil {
			l.logger.Error("failed to import document", "key", key, "error", err)
			continue
		}
		stats.Added++
		stats.Features += n
	}

	for _, key := range l.sourcesMissingFrom(remote) {
		l.logger.Info("removing document not in storage", "key", key)
		if err := l.RemoveSource(ctx, key); err != nil {
			l.logger.Error("failed to remove document features", "key", key, "error", err)
			continue
		}
		stats.Removed++
	}

	l.logger.Info("library sync completed",
		"added", stats.Added,
		"removed", stats.Removed,
		"features", stats.Features,
		"total", l.store.Count(),
	)
	return stats, nil
}

// ImportSource imports a document under a source key, replacing the
// features an earlier version of it produced.
func (l *Library) ImportSource(ctx context.Context, key string, data []byte) (int, error) {
	return l.importSource(ctx, key, data, "", 0)
}

func (l *Library) importSource(ctx context.Context, key string, data []byte, etag string, modified int64) (int, error) {
	if err := l.RemoveSource(ctx, key); err != nil {
		return 0, err
	}
	result, err := l.store.Import(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", key, err)
	}
	for _, ie := range result.Errors {
		l.logger.Warn("skipped feature", "key", key, "index", ie.Index, "error", ie)
	}

	l.mu.Lock()
	l.sources[key] = librarySource{etag: etag, lastModified: modified, ids: result.IDs}
	l.mu.Unlock()
	return result.Success, nil
}

// RemoveSource deletes the features a document produced. Unknown keys are
// ignored.
func (l *Library) RemoveSource(ctx context.Context, key string) error {
	l.mu.Lock()
	src, ok := l.sources[key]
	delete(l.sources, key)
	l.mu.Unlock()

	if !ok || len(src.ids) == 0 {
		return nil
	}
	_, err := l.store.DeleteMany(ctx, src.ids)
	return err
}

// SourceCount returns the number of imported documents.
func (l *Library) SourceCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}

// Publish uploads the current store export and returns the key written.
func (l *Library) Publish(ctx context.Context) (string, error) {
	if l.storage == nil {
		return "", fmt.Errorf("publish: no storage configured")
	}
	fc, err := l.store.Export(false)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}

	start := time.Now()
	err = l.storage.Put(ctx, l.publishKey, bytes.NewReader(data), int64(len(data)))
	l.observe("put", start, err)
	if err != nil {
		return "", err
	}
	l.logger.Info("library published", "key", l.publishKey, "features", len(fc.Features), "bytes", len(data))
	return l.publishKey, nil
}

func (l *Library) unchanged(obj output.StorageObject) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.sources[obj.Key]
	if !ok {
		return false
	}
	if obj.ETag != "" {
		return src.etag == obj.ETag
	}
	return obj.LastModified != 0 && src.lastModified == obj.LastModified
}

func (l *Library) sourcesMissingFrom(remote map[string]output.StorageObject) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var missing []string
	for key := range l.sources {
		if _, ok := remote[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func (l *Library) read(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	rc, err := l.storage.GetReader(ctx, key)
	if err != nil {
		l.observe("get", start, err)
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	l.observe("get", start, err)
	return data, err
}

func (l *Library) observe(op string, start time.Time, err error) {
	l.metrics.IncStorageOperations(op, err == nil)
	l.metrics.ObserveStorageDuration(op, time.Since(start))
}
