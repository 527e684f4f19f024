package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsnotifyOpToOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		expected Operation
	}{
		{name: "Remove returns OpDelete", op: fsnotify.Remove, expected: OpDelete},
		{name: "Rename returns OpDelete", op: fsnotify.Rename, expected: OpDelete},
		{name: "Create returns OpCreate", op: fsnotify.Create, expected: OpCreate},
		{name: "Write returns OpModify", op: fsnotify.Write, expected: OpModify},
		{name: "Chmod returns OpModify", op: fsnotify.Chmod, expected: OpModify},
		{name: "Remove takes precedence over Write", op: fsnotify.Remove | fsnotify.Write, expected: OpDelete},
		{name: "Create takes precedence over Write", op: fsnotify.Create | fsnotify.Write, expected: OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fsnotifyOpToOperation(tt.op)
			if result != tt.expected {
				t.Errorf("fsnotifyOpToOperation(%v) = %v, want %v", tt.op, result, tt.expected)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.op.String(); got != tt.expected {
				t.Errorf("Operation.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUpdatePendingEvent(t *testing.T) {
	tests := []struct {
		name     string
		existing Operation
		next     Operation
		want     Operation
	}{
		{name: "delete then create imports", existing: OpDelete, next: OpCreate, want: OpCreate},
		{name: "delete then modify imports", existing: OpDelete, next: OpModify, want: OpCreate},
		{name: "create then delete removes", existing: OpCreate, next: OpDelete, want: OpDelete},
		{name: "create then modify stays create", existing: OpCreate, next: OpModify, want: OpCreate},
		{name: "modify then modify", existing: OpModify, next: OpModify, want: OpModify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now()
			p := &pendingEvent{timestamp: now.Add(-time.Second), op: tt.existing}
			updatePendingEvent(p, tt.next, now)
			if p.op != tt.want {
				t.Errorf("op = %v, want %v", p.op, tt.want)
			}
			if !p.timestamp.Equal(now) {
				t.Error("timestamp should be refreshed")
			}
		})
	}
}

// recordingSource implements Source and records calls.
type recordingSource struct {
	mu       sync.Mutex
	imported map[string]string
	removed  []string
}

func newRecordingSource() *recordingSource {
	return &recordingSource{imported: make(map[string]string)}
}

func (r *recordingSource) ImportSource(_ context.Context, key string, data []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported[key] = string(data)
	return 1, nil
}

func (r *recordingSource) RemoveSource(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, key)
	delete(r.imported, key)
	return nil
}

func (r *recordingSource) content(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.imported[key]
	return s, ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImportHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.geojson")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := newRecordingSource()
	handler := ImportHandler(src, testLogger())
	ctx := context.Background()

	if err := handler(ctx, Event{Path: path, Operation: OpCreate}); err != nil {
		t.Fatalf("handler(create) error = %v", err)
	}
	if got, ok := src.content(path); !ok || got != "{}" {
		t.Errorf("imported = %q, %v", got, ok)
	}

	if err := handler(ctx, Event{Path: path, Operation: OpDelete}); err != nil {
		t.Fatalf("handler(delete) error = %v", err)
	}
	if _, ok := src.content(path); ok {
		t.Error("delete should remove the source")
	}

	// A modify event for a vanished file removes its features.
	if err := handler(ctx, Event{Path: filepath.Join(dir, "gone.geojson"), Operation: OpModify}); err != nil {
		t.Errorf("handler(vanished) error = %v", err)
	}
}

func TestWatcherImportsFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.geojson")
	if err := os.WriteFile(existing, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := newRecordingSource()
	w, err := New(Config{Paths: []string{dir}, Debounce: 50 * time.Millisecond, ScanExisting: true},
		ImportHandler(src, testLogger()), testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if _, ok := src.content(existing); !ok {
		t.Error("existing file should be imported on start")
	}

	added := filepath.Join(dir, "added.geojson")
	if err := os.WriteFile(added, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := src.content(added); ok && got == "new" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got, _ := src.content(added); got != "new" {
		t.Errorf("added file content = %q, want new", got)
	}
	if _, ok := src.content(filepath.Join(dir, "notes.txt")); ok {
		t.Error("non-GeoJSON files should be ignored")
	}
}
