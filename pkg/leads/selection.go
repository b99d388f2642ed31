package leads

import (
	"sort"
	"sync"
)

// Selection is the set of lead ids checked for a bulk action. It lives in
// the view session and survives page navigation; it is cleared when the
// filter view reloads or a bulk action succeeds.
type Selection struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips one id in or out of the selection and reports whether it
// is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// ToggleAll selects every given id, or deselects them all when every one
// is already selected. Only the ids rendered on the visible page are
// passed in, never the whole filtered result.
func (s *Selection) ToggleAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := len(ids) > 0
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			all = false
			break
		}
	}
	for _, id := range ids {
		if all {
			delete(s.ids, id)
		} else {
			s.ids[id] = struct{}{}
		}
	}
}

// Has reports whether an id is selected.
func (s *Selection) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected ids in stable order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the selection size.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}
