package leads

import (
	"errors"
	"sync"

	"github.com/propdesk/leadadmin/pkg/store"
)

// ErrPageNotReachable is returned when a page is requested before the
// cursor of its predecessor page is known.
var ErrPageNotReachable = errors.New("page not reachable: previous page not yet fetched")

// CursorTracker maps 1-indexed page numbers to the opaque cursor that
// starts each page. Page 1 always starts at the beginning. Forward-only:
// page k is reachable once page k-1 has been fetched.
type CursorTracker struct {
	mu      sync.Mutex
	cursors map[int]store.Cursor
}

// NewCursorTracker creates an empty tracker where only page 1 is reachable.
func NewCursorTracker() *CursorTracker {
	return &CursorTracker{cursors: make(map[int]store.Cursor)}
}

// CursorFor returns the start cursor for a page, or ErrPageNotReachable
// when the predecessor page has not been fetched yet.
func (t *CursorTracker) CursorFor(page int) (store.Cursor, error) {
	if page <= 1 {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.cursors[page]
	if !ok {
		return "", ErrPageNotReachable
	}
	return c, nil
}

// Record stores the cursor produced by fetching a page, making the next
// page reachable. An empty cursor marks the end of the result set and
// records nothing.
func (t *CursorTracker) Record(page int, next store.Cursor) {
	if next == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors[page+1] = next
}

// Reset invalidates all cursors. Called whenever the filter set changes
// or the underlying data is known to have moved.
func (t *CursorTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors = make(map[int]store.Cursor)
}
