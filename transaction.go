package statetree

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-statetree/pkg/activity"
)

// Transaction runs fn against a snapshot of the tree. When fn returns an
// error or panics, the tree is restored to the snapshot, the value cache is
// cleared and the history entries fn recorded are dropped; the error is
// returned unchanged and a panic is re-raised with its original value.
//
// Only state is rolled back. Notifications scheduled by writes inside fn
// are delivered even when the transaction later fails, so watchers may
// observe values that no longer exist. Transactions nest; an inner failure
// rolls back only the inner body.
func (s *Store) Transaction(fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	snapshot := s.cloneTree(s.tree)
	startSeq := s.seq
	parentTx := s.txID
	txID := uuid.NewString()
	s.txID = txID
	s.txDepth++
	depth := s.txDepth
	s.mu.Unlock()

	_, span := startTransactionSpan(context.Background(), txID, depth)

	committed := false
	defer func() {
		if committed {
			return
		}
		r := recover()
		s.rollback(snapshot, startSeq, parentTx, txID)
		endTransactionSpan(span, err, r != nil)
		if r != nil {
			panic(r)
		}
	}()

	if err = fn(); err != nil {
		return err
	}

	s.mu.Lock()
	s.txID = parentTx
	s.txDepth--
	s.mu.Unlock()
	committed = true
	endTransactionSpan(span, nil, false)
	return nil
}

// Transact runs fn inside s.Transaction and returns its result. On failure
// the zero value is returned with the error.
func Transact[T any](s *Store, fn func() (T, error)) (T, error) {
	var out T
	err := s.Transaction(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (s *Store) rollback(snapshot map[string]any, startSeq uint64, parentTx, txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txID = parentTx
	s.txDepth--
	if s.destroyed {
		return
	}
	s.tree = snapshot
	s.cache.purge()
	dropped := s.history.DropNewestWhile(func(ch Change) bool {
		return ch.seq > startSeq
	})
	recordRollback(context.Background())
	s.logger.Debug("statetree transaction rolled back", "tx_id", txID, "dropped_changes", dropped)
	s.emit(activity.BuildStateRolledBackEvent(activity.StateEventInput{
		ObjectID:   txID,
		TxID:       txID,
		OccurredAt: s.clock(),
		Metadata:   map[string]any{"reason": "transaction", "dropped_changes": dropped},
	}))
}
