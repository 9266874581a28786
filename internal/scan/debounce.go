package scan

import (
	"sync"
	"time"
)

// DefaultDebounceWindow absorbs duplicate hardware scan events.
const DefaultDebounceWindow = 700 * time.Millisecond

// Debouncer suppresses an immediate repeat of the same code within a short
// window. State is scoped to one scan station process and never persisted.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastCode string
	lastSeen time.Time
}

// NewDebouncer creates a debouncer with the given window. A zero or negative
// window falls back to the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// ShouldDrop reports whether this scan is a duplicate hardware event and must
// be silently dropped (not even logged). Any different code, or the same code
// after the window, is recorded as the new last scan and passes through.
func (d *Debouncer) ShouldDrop(code string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if code == d.lastCode && !d.lastSeen.IsZero() && now.Sub(d.lastSeen) < d.window {
		return true
	}

	d.lastCode = code
	d.lastSeen = now
	return false
}
