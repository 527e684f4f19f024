// Package watcher hot-imports GeoJSON files dropped into watched
// directories.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobrunner/geodraw/internal/ports/output"
)

// Event represents a file system event.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called when a relevant file event occurs.
type Handler func(ctx context.Context, event Event) error

// Source receives the documents found by the watcher. The application
// Library implements it.
type Source interface {
	ImportSource(ctx context.Context, key string, data []byte) (int, error)
	RemoveSource(ctx context.Context, key string) error
}

// ImportHandler returns a Handler that imports created and modified files
// into source and drops the features of deleted ones. Files are keyed by
// their absolute path.
func ImportHandler(source Source, logger *slog.Logger) Handler {
	return func(ctx context.Context, e Event) error {
		if e.Operation == OpDelete {
			return source.RemoveSource(ctx, e.Path)
		}
		data, err := os.ReadFile(e.Path) //#nosec G304 -- path comes from a watched directory
		if err != nil {
			if os.IsNotExist(err) {
				return source.RemoveSource(ctx, e.Path)
			}
			return fmt.Errorf("reading %s: %w", e.Path, err)
		}
		n, err := source.ImportSource(ctx, e.Path, data)
		if err != nil {
			return err
		}
		logger.Info("file imported", "path", e.Path, "features", n)
		return nil
	}
}

// pendingEvent holds a debounced event with its operation.
type pendingEvent struct {
	timestamp time.Time
	op        Operation
}

// Watcher watches directories for GeoJSON file changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	paths     []string
	debounce  time.Duration
	scan      bool
	mu        sync.Mutex
	pending   map[string]*pendingEvent
	wg        sync.WaitGroup
	done      chan struct{}
	stopOnce  sync.Once
}

// Config holds watcher configuration.
type Config struct {
	Paths    []string
	Debounce time.Duration
	// ScanExisting imports the files already present when Start runs.
	ScanExisting bool
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		paths:     cfg.Paths,
		debounce:  cfg.Debounce,
		scan:      cfg.ScanExisting,
		pending:   make(map[string]*pendingEvent),
		done:      make(chan struct{}),
	}, nil
}

// Start starts watching the configured paths.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("invalid watch path", "path", path, "error", err)
			continue
		}

		if err := w.fsWatcher.Add(absPath); err != nil {
			w.logger.Warn("failed to watch path", "path", absPath, "error", err)
			continue
		}

		w.logger.Info("watching directory", "path", absPath)
		if w.scan {
			w.scanDir(ctx, absPath)
		}
	}

	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher and waits for running handlers.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	w.wg.Wait()
	return err
}

// scanDir runs the handler for every GeoJSON file already in dir.
func (w *Watcher) scanDir(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("failed to scan directory", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !output.IsGeoJSONKey(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := w.handler(ctx, Event{Path: path, Operation: OpCreate}); err != nil {
			w.logger.Warn("failed to import existing file", "path", path, "error", err)
		}
	}
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent queues a GeoJSON file event for debouncing.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !output.IsGeoJSONKey(event.Name) {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

	op := fsnotifyOpToOperation(event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()

	existing, exists := w.pending[event.Name]
	if !exists {
		w.pending[event.Name] = &pendingEvent{
			timestamp: time.Now(),
			op:        op,
		}
		return
	}

	updatePendingEvent(existing, op, time.Now())
}

// updatePendingEvent merges a new operation into a queued one.
func updatePendingEvent(existing *pendingEvent, newOp Operation, now time.Time) {
	existing.timestamp = now

	switch {
	case existing.op == OpDelete && newOp != OpDelete:
		// Deleted then written again: import the new content
		existing.op = OpCreate
	case newOp == OpDelete:
		existing.op = OpDelete
	}
}

// debounceLoop processes debounced events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.done:
			// Deliver what is still queued before shutting down.
			w.flush(ctx, time.Now().Add(w.debounce))
			return

		case <-ticker.C:
			w.flush(ctx, time.Now())
		}
	}
}

// flush runs the handler for every event quiet for the debounce window.
// Handlers run outside the lock and in path order.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for _, event := range w.due(now) {
		w.logger.Info("processing file event",
			"path", event.Path,
			"operation", event.Operation.String(),
		)
		if err := w.handler(ctx, event); err != nil {
			w.logger.Error("handler error",
				"path", event.Path,
				"operation", event.Operation.String(),
				"error", err,
			)
		}
	}
}

// due removes and returns the events whose debounce window has passed.
func (w *Watcher) due(now time.Time) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []Event
	for path, pending := range w.pending {
		if now.Sub(pending.timestamp) < w.debounce {
			continue
		}
		delete(w.pending, path)
		events = append(events, Event{Path: path, Operation: pending.op})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		// Rename is treated as delete (the file is gone from original location)
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		// Write, Chmod, etc. are treated as modify
		return OpModify
	}
}

// AddPath adds a path to watch.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := w.fsWatcher.Add(absPath); err != nil {
		return err
	}

	w.logger.Info("added watch path", "path", absPath)
	return nil
}

// RemovePath removes a path from watching.
func (w *Watcher) RemovePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := w.fsWatcher.Remove(absPath); err != nil {
		return err
	}

	w.logger.Info("removed watch path", "path", absPath)
	return nil
}
