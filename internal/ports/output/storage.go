// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
	"io"
	"strings"
)

// ObjectStorage is the driven port for GeoJSON document libraries.
type ObjectStorage interface {
	// List returns all GeoJSON documents in the storage.
	List(ctx context.Context) ([]StorageObject, error)

	// GetReader returns a reader for the given object.
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Put writes an object. Read-only backends return domain.ErrUnsupported.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}

// StorageObject represents a file in object storage.
type StorageObject struct {
	Key          string // Object key/path
	Size         int64  // Size in bytes
	LastModified int64  // Unix timestamp
	ETag         string // Content hash
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeHTTP  StorageType = "http"
	StorageTypeLocal StorageType = "local"
)

// IsGeoJSONKey reports whether a key names a GeoJSON document.
func IsGeoJSONKey(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, ".geojson") || strings.HasSuffix(k, ".json")
}
