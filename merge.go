package statetree

import (
	"fmt"

	"github.com/goliatone/go-statetree/layering"
)

// Merge deep-merges patch into the map at path: keys in patch win, nested
// maps merge recursively and slices are replaced. An absent path is created.
// The result is recorded and notified as a single write to path. Merging
// into a non-map value returns ErrNotMap.
func (s *Store) Merge(path string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	p := s.compiler.Compile(path)
	current, had := s.lookup(p)
	var base map[string]any
	if had && current != nil {
		typed, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s holds %T", ErrNotMap, p.String(), current)
		}
		base = typed
	}
	if patch == nil {
		return nil
	}
	merged := layering.Merge(patch, base)
	ch, changed := s.write(p, merged, "merge")
	if changed {
		s.notify(ch.Path, ch.NewValue, ch.OldValue)
	}
	return nil
}
