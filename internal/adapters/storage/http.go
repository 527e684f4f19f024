package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

// HTTPStorage reads GeoJSON documents from a web server. The index file
// lists one document per line as "path [etag]"; blank lines and lines
// starting with # are skipped. Documents listed without an etag are
// re-imported on every sync. It is read-only.
type HTTPStorage struct {
	client    *http.Client
	baseURL   string
	indexFile string
	username  string
	password  string
}

var _ output.ObjectStorage = (*HTTPStorage)(nil)

// HTTPConfig holds HTTP storage configuration.
type HTTPConfig struct {
	BaseURL   string
	IndexFile string // default: index.txt
	Timeout   time.Duration
	Username  string
	Password  string
}

// NewHTTPStorage creates a new HTTP storage adapter.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.txt"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &HTTPStorage{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		indexFile: cfg.IndexFile,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

// List returns the GeoJSON documents named in the index file.
func (s *HTTPStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	resp, err := s.get(ctx, http.MethodGet, s.indexFile)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Key: s.indexFile, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	objects, err := parseIndex(resp.Body)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Key: s.indexFile, Err: err}
	}
	return objects, nil
}

// parseIndex reads "path [etag]" lines.
func parseIndex(r io.Reader) ([]output.StorageObject, error) {
	var objects []output.StorageObject
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if !output.IsGeoJSONKey(fields[0]) {
			continue
		}
		obj := output.StorageObject{Key: strings.TrimPrefix(fields[0], "/")}
		if len(fields) > 1 {
			obj.ETag = strings.Trim(fields[1], "\"")
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return objects, nil
}

// GetReader returns the body of the document at key.
func (s *HTTPStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.get(ctx, http.MethodGet, key)
	if err != nil {
		return nil, &domain.StorageError{Operation: "get", Key: key, Err: err}
	}
	return resp.Body, nil
}

// Exists checks for the document with a HEAD request. Transport failures
// are reported rather than read as absence.
func (s *HTTPStorage) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.get(ctx, http.MethodHead, key)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, &domain.StorageError{Operation: "exists", Key: key, Err: err}
	}
	_ = resp.Body.Close()
	return true, nil
}

// Put is not supported over plain HTTP.
func (s *HTTPStorage) Put(_ context.Context, key string, _ io.Reader, _ int64) error {
	return &domain.StorageError{Operation: "put", Key: key, Err: domain.ErrUnsupported}
}

// get issues the request and maps non-200 answers to domain errors. The
// caller closes the body of a successful response.
func (s *HTTPStorage) get(ctx context.Context, method, key string) (*http.Response, error) {
	target, err := url.JoinPath(s.baseURL, strings.Split(key, "/")...)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", domain.ErrInvalidInput, key, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrNotFound)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrStorageUnavailable)
	}
}
