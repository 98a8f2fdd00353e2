package statetree

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-statetree/pkg/activity"
)

// Change is one recorded write. HadOld is false when the path did not
// exist before the write; undoing such a change removes the path.
type Change struct {
	Path      string    `json:"path"`
	OldValue  any       `json:"old_value,omitempty"`
	NewValue  any       `json:"new_value,omitempty"`
	HadOld    bool      `json:"had_old"`
	Removed   bool      `json:"removed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TxID      string    `json:"tx_id,omitempty"`

	seq uint64
}

// ToJSON serialises the change for logging or transport helpers.
func (c Change) ToJSON() ([]byte, error) {
	type alias Change
	return json.Marshal(alias(c))
}

// ChangeFromJSON deserialises a payload produced by ToJSON. Values decode
// as generic JSON (maps, slices, float64).
func ChangeFromJSON(payload []byte) (Change, error) {
	type alias Change
	var change alias
	if err := json.Unmarshal(payload, &change); err != nil {
		return Change{}, err
	}
	return Change(change), nil
}

// record stamps ch and pushes it onto the history ring. Callers hold s.mu.
func (s *Store) record(ch Change) Change {
	s.seq++
	ch.seq = s.seq
	ch.Timestamp = s.clock()
	ch.TxID = s.txID
	s.history.Push(ch)
	return ch
}

// Undo reverts the most recent recorded change and removes it from
// history. The revert itself is not recorded, so repeated calls walk back
// through history one change at a time. Watchers of the path are notified.
// Undo reports false when history is empty.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return false
	}
	ch, ok := s.history.PopNewest()
	if !ok {
		return false
	}

	p := s.compiler.Compile(ch.Path)
	current, _ := s.lookup(p)
	var restored any
	if ch.HadOld {
		restored = s.cloneValue(ch.OldValue)
		assign(s.tree, p, restored)
	} else {
		unassign(s.tree, p)
	}
	s.cache.invalidate(p)

	s.emit(activity.BuildStateRolledBackEvent(activity.StateEventInput{
		Path:       ch.Path,
		OldValue:   current,
		NewValue:   restored,
		TxID:       ch.TxID,
		OccurredAt: s.clock(),
		Metadata:   map[string]any{"reason": "undo"},
	}))
	s.notify(ch.Path, restored, current)
	return true
}

// ChangeHistory returns up to limit recorded changes, newest first. A
// limit <= 0 returns the whole history. Values are copies.
func (s *Store) ChangeHistory(limit int) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	changes := s.history.Last(limit)
	for i := range changes {
		changes[i].OldValue = s.cloneValue(changes[i].OldValue)
		changes[i].NewValue = s.cloneValue(changes[i].NewValue)
	}
	return changes
}

// ClearHistory drops every recorded change.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
}

// purgeExpiredHistory drops changes older than maxAge. Callers hold s.mu.
func (s *Store) purgeExpiredHistory(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := s.clock().Add(-maxAge)
	return s.history.PurgeOldest(func(ch Change) bool {
		return ch.Timestamp.Before(cutoff)
	})
}
