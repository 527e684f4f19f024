package tool

import (
	"time"

	"github.com/jobrunner/geodraw/internal/domain"
)

// DefaultMoveInterval limits pointer moves to roughly one per frame.
const DefaultMoveInterval = 16 * time.Millisecond

// Throttle admits at most one position per interval. Positions arriving
// inside the window are parked; the latest one wins and is released by
// Flush.
type Throttle struct {
	interval time.Duration
	last     time.Time
	admitted bool
	pending  *domain.ScreenPosition
}

// NewThrottle creates a throttle. A non-positive interval uses
// DefaultMoveInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultMoveInterval
	}
	return &Throttle{interval: interval}
}

// Offer admits pos when the window has elapsed, otherwise parks it.
func (t *Throttle) Offer(now time.Time, pos domain.ScreenPosition) (domain.ScreenPosition, bool) {
	if t.open(now) {
		t.admit(now)
		return pos, true
	}
	t.pending = &pos
	return domain.ScreenPosition{}, false
}

// Flush releases the parked position once the window has elapsed.
func (t *Throttle) Flush(now time.Time) (domain.ScreenPosition, bool) {
	if t.pending == nil || !t.open(now) {
		return domain.ScreenPosition{}, false
	}
	pos := *t.pending
	t.admit(now)
	return pos, true
}

// Pending reports whether a position is parked.
func (t *Throttle) Pending() bool {
	return t.pending != nil
}

// Reset forgets the window and any parked position.
func (t *Throttle) Reset() {
	t.admitted = false
	t.pending = nil
}

func (t *Throttle) open(now time.Time) bool {
	return !t.admitted || now.Sub(t.last) >= t.interval
}

func (t *Throttle) admit(now time.Time) {
	t.last = now
	t.admitted = true
	t.pending = nil
}
