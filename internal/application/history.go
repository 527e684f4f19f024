package application

import (
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
)

// DefaultHistoryLimit is the number of undoable steps kept.
const DefaultHistoryLimit = 50

// HistoryAction names what a history entry recorded.
type HistoryAction string

// History actions.
const (
	ActionAdd    HistoryAction = "add"
	ActionUpdate HistoryAction = "update"
	ActionDelete HistoryAction = "delete"
)

// HistoryEntry is one undoable step. Before is empty for adds, After is
// empty for deletes.
type HistoryEntry struct {
	Action    HistoryAction
	Timestamp time.Time
	Before    []domain.Feature
	After     []domain.Feature
}

// history is a bounded undo/redo stack. pos is the number of entries that
// are currently applied.
type history struct {
	entries []HistoryEntry
	pos     int
	limit   int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &history{limit: limit}
}

// push records an entry and drops any redo tail.
func (h *history) push(e HistoryEntry) {
	h.entries = append(h.entries[:h.pos], e)
	if len(h.entries) > h.limit {
		h.entries = append([]HistoryEntry(nil), h.entries[len(h.entries)-h.limit:]...)
	}
	h.pos = len(h.entries)
}

func (h *history) undo() (HistoryEntry, bool) {
	if h.pos == 0 {
		return HistoryEntry{}, false
	}
	h.pos--
	return h.entries[h.pos], true
}

func (h *history) redo() (HistoryEntry, bool) {
	if h.pos == len(h.entries) {
		return HistoryEntry{}, false
	}
	h.pos++
	return h.entries[h.pos-1], true
}

func (h *history) canUndo() bool { return h.pos > 0 }

func (h *history) canRedo() bool { return h.pos < len(h.entries) }

func (h *history) len() int { return len(h.entries) }

func (h *history) reset() {
	h.entries = nil
	h.pos = 0
}
