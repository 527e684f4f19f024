package application

import (
	"fmt"
	"sort"

	"github.com/jobrunner/geodraw/internal/domain"
)

// Select marks a feature as selected. Unless multi is set, the previous
// selection is replaced.
func (s *FeatureStore) Select(id string, multi bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrFeatureNotFound)
	}
	if !multi {
		s.selected = make(map[string]struct{})
	}
	s.selected[id] = struct{}{}
	return nil
}

// Deselect drops a feature from the selection.
func (s *FeatureStore) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// ToggleSelection flips the selection state of a feature and returns the
// new state.
func (s *FeatureStore) ToggleSelection(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, fmt.Errorf("%s: %w", id, domain.ErrFeatureNotFound)
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false, nil
	}
	s.selected[id] = struct{}{}
	return true, nil
}

// SelectAll selects every feature.
func (s *FeatureStore) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.entries {
		s.selected[id] = struct{}{}
	}
}

// DeselectAll empties the selection.
func (s *FeatureStore) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

// InvertSelection selects exactly the features that were not selected.
func (s *FeatureStore) InvertSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	inverted := make(map[string]struct{}, len(s.entries)-len(s.selected))
	for id := range s.entries {
		if _, ok := s.selected[id]; !ok {
			inverted[id] = struct{}{}
		}
	}
	s.selected = inverted
}

// IsSelected reports whether a feature is selected.
func (s *FeatureStore) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected IDs in sorted order.
func (s *FeatureStore) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
