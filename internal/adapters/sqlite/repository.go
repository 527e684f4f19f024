// Package sqlite provides the SQLite feature repository. Every row holds a
// GeoJSON snapshot of one finished feature.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

const driverName = "sqlite3_geodraw"

// Register the driver with connection pragmas applied to every connection.
func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, pragma := range []string{
				"PRAGMA journal_mode=WAL",
				"PRAGMA busy_timeout=5000",
				"PRAGMA synchronous=NORMAL",
			} {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return fmt.Errorf("%s: %w", pragma, err)
				}
			}
			return nil
		},
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS features (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	geojson    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS features_created_at ON features (created_at);
`

// Repository implements output.FeatureRepository on a SQLite file.
type Repository struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

var _ output.FeatureRepository = (*Repository)(nil)

// Open opens (and creates when missing) the database at path.
func Open(ctx context.Context, path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate", path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: classify(err)}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "migrate", Key: path, Err: err}
	}

	return &Repository{db: db, path: path}, nil
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// Save inserts or replaces a feature.
func (r *Repository) Save(ctx context.Context, f domain.Feature) error {
	doc, err := Encode(f)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO features (id, kind, name, geojson, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			geojson = excluded.geojson,
			updated_at = excluded.updated_at`,
		f.ID, f.Kind.String(), f.Name, string(doc),
		f.CreatedAt.UnixNano(), f.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return &domain.StorageError{Operation: "save", Key: f.ID, Err: classify(err)}
	}
	return nil
}

// Delete removes a feature. Unknown IDs are ignored.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id); err != nil {
		return &domain.StorageError{Operation: "delete", Key: id, Err: classify(err)}
	}
	return nil
}

// List returns all features ordered by creation time. Rows that no longer
// decode are skipped and reported in the returned error only when nothing
// could be read.
func (r *Repository) List(ctx context.Context) ([]domain.Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, geojson, created_at, updated_at
		FROM features
		ORDER BY created_at, id`)
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Err: classify(err)}
	}
	defer func() { _ = rows.Close() }()

	var features []domain.Feature
	var decodeErrs []error
	for rows.Next() {
		var id, doc string
		var created, updated int64
		if err := rows.Scan(&id, &doc, &created, &updated); err != nil {
			return nil, &domain.StorageError{Operation: "list", Err: err}
		}
		f, err := Decode([]byte(doc))
		if err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		f.ID = id
		f.CreatedAt = time.Unix(0, created).UTC()
		f.UpdatedAt = time.Unix(0, updated).UTC()
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Operation: "list", Err: err}
	}
	if len(features) == 0 && len(decodeErrs) > 0 {
		return nil, errors.Join(decodeErrs...)
	}
	return features, nil
}

// Count returns the number of stored rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		return 0, &domain.StorageError{Operation: "count", Err: classify(err)}
	}
	return n, nil
}

// Clear removes every feature.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM features`); err != nil {
		return &domain.StorageError{Operation: "clear", Err: classify(err)}
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &domain.StorageError{Operation: "ping", Key: r.path, Err: classify(err)}
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// classify marks lock contention as a transient outage.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}
