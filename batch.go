package statetree

import (
	"github.com/goliatone/go-statetree/internal/clone"
)

// BatchOption configures BatchSet and BatchRemove.
type BatchOption func(*batchConfig)

type batchConfig struct {
	silent bool
}

// WithoutNotify applies a batch without notifying watchers. History and
// activity events are still recorded.
func WithoutNotify() BatchOption {
	return func(cfg *batchConfig) {
		cfg.silent = true
	}
}

func applyBatchOptions(opts []BatchOption) batchConfig {
	cfg := batchConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// coalescer folds the writes of one batch into a single notification per
// path carrying the value from before the batch and the final value.
type coalescer struct {
	order   []string
	pending map[string]*batchChange
}

type batchChange struct {
	oldValue any
	newValue any
}

func newCoalescer(size int) *coalescer {
	return &coalescer{pending: make(map[string]*batchChange, size)}
}

func (c *coalescer) add(ch Change) {
	if existing, ok := c.pending[ch.Path]; ok {
		existing.newValue = ch.NewValue
		return
	}
	c.pending[ch.Path] = &batchChange{oldValue: ch.OldValue, newValue: ch.NewValue}
	c.order = append(c.order, ch.Path)
}

// flush notifies in first-write order, skipping paths whose final value
// equals their value before the batch.
func (c *coalescer) flush(s *Store) {
	for _, path := range c.order {
		change := c.pending[path]
		if clone.Equal(change.oldValue, change.newValue) {
			continue
		}
		s.notify(path, change.newValue, change.oldValue)
	}
}

// BatchSet applies updates in order. Each write is recorded in history, but
// watchers of a path written several times fire once, with the last value
// written and the value the path held before the batch.
func (s *Store) BatchSet(updates []Update, opts ...BatchOption) error {
	cfg := applyBatchOptions(opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	batch := newCoalescer(len(updates))
	for _, update := range updates {
		ch, changed := s.write(s.compiler.Compile(update.Path), update.Value, "batch_set")
		if changed {
			batch.add(ch)
		}
	}
	if !cfg.silent {
		batch.flush(s)
	}
	return nil
}

// BatchGet reads every path. Absent paths are omitted from the result.
func (s *Store) BatchGet(paths []string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(paths))
	if s.destroyed {
		return out
	}
	for _, path := range paths {
		if v, ok := s.lookup(s.compiler.Compile(path)); ok {
			out[path] = v
		}
	}
	return out
}

// BatchRemove removes every path, notifying each removed path once.
func (s *Store) BatchRemove(paths []string, opts ...BatchOption) error {
	cfg := applyBatchOptions(opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	batch := newCoalescer(len(paths))
	for _, path := range paths {
		if ch, removed := s.remove(s.compiler.Compile(path)); removed {
			batch.add(ch)
		}
	}
	if !cfg.silent {
		batch.flush(s)
	}
	return nil
}
