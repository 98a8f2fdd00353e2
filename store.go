package statetree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-statetree/internal/clone"
	"github.com/goliatone/go-statetree/internal/deferred"
	"github.com/goliatone/go-statetree/internal/history"
	"github.com/goliatone/go-statetree/internal/paths"
	"github.com/goliatone/go-statetree/internal/watchers"
	"github.com/goliatone/go-statetree/pkg/activity"
)

// Store is a hierarchical key/value tree addressed by dotted paths.
//
// A Store has a single owner: its methods are not meant to be called from
// several goroutines at once. Watchers run on a dispatcher goroutine after
// the write that triggered them returns; Flush waits for them.
type Store struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger
	clock  func() time.Time

	tree     map[string]any
	compiler *paths.Compiler
	cache    *valueCache
	watchers *watchers.Registry[WatchFunc]
	history  *history.Ring[Change]
	queue    *deferred.Queue
	emitter  *activity.Emitter
	hooks    activity.Hooks

	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	evalLogger   EvaluatorLogger

	seq     uint64
	txDepth int
	txID    string

	panics atomic.Int64

	stop      chan struct{}
	stopped   chan struct{}
	destroyed bool
}

// New constructs an empty Store and starts its dispatcher and, unless the
// interval is zero, its maintenance goroutine.
func New(opts ...Option) *Store {
	cfg := applyOptions(opts)
	s := &Store{
		cfg:          cfg.config,
		logger:       cfg.logger,
		clock:        cfg.clock,
		tree:         make(map[string]any),
		compiler:     paths.NewCompiler(cfg.config.PathCacheSize),
		cache:        newValueCache(cfg.config.CacheSize, cfg.logger),
		watchers:     watchers.New[WatchFunc](),
		history:      history.NewRing[Change](cfg.config.HistorySize),
		emitter:      newActivityEmitter(cfg),
		hooks:        cfg.activityHooks,
		evaluator:    cfg.evaluator,
		programCache: cfg.programCache,
		functions:    cfg.functions,
		evalLogger:   cfg.evalLogger,
	}
	if s.evalLogger == nil {
		s.evalLogger = SlogEvaluatorLogger(s.logger)
	}
	for _, err := range cfg.optionErrs {
		s.logger.Warn("statetree option ignored", "error", err)
	}
	s.queue = deferred.New(func(recovered any) {
		s.logger.Error("statetree deferred task panicked", "panic", recovered)
	})
	if cfg.initial != nil {
		if tree, ok := s.cloneValue(cfg.initial).(map[string]any); ok {
			s.tree = tree
		}
	}
	s.startMaintenance(cfg.config.MaintenanceInterval)
	return s
}

// Get returns the live value at path, or nil when the path is absent.
func (s *Store) Get(path string) any {
	v, _ := s.Lookup(path)
	return v
}

// Lookup returns the live value at path and whether the path exists. A
// stored nil reports true.
func (s *Store) Lookup(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, false
	}
	return s.lookup(s.compiler.Compile(path))
}

// GetClone returns an independent deep copy of the value at path.
func (s *Store) GetClone(path string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	v, _ := s.lookup(s.compiler.Compile(path))
	return s.cloneValue(v)
}

// GetAs returns the value at path asserted to T. It reports false when the
// path is absent or holds another type.
func GetAs[T any](s *Store, path string) (T, bool) {
	v, ok := s.Lookup(path)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Has reports whether path holds a non-nil value. An explicitly stored nil
// is indistinguishable from an absent path; use Lookup to tell them apart.
func (s *Store) Has(path string) bool {
	return s.Get(path) != nil
}

// Set writes value at path, creating intermediate maps as needed. A
// non-map value sitting where a branch is required is replaced by an empty
// map. Aggregate values are stored as deep copies. Writing a value equal to
// the current one does nothing: no history entry and no notification.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	ch, changed := s.write(s.compiler.Compile(path), value, "set")
	if changed {
		s.notify(ch.Path, ch.NewValue, ch.OldValue)
	}
	return nil
}

// Remove deletes the value at path. Removing an absent path does nothing.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	ch, removed := s.remove(s.compiler.Compile(path))
	if removed {
		s.notify(ch.Path, nil, ch.OldValue)
	}
	return nil
}

// Keys lists the path of every leaf in lexical order. Empty maps count as
// leaves. Descent stops at Config.KeysDepth.
func (s *Store) Keys() []string {
	descriptors := s.Describe()
	keys := make([]string, len(descriptors))
	for i, d := range descriptors {
		keys[i] = d.Path
	}
	return keys
}

// Clear empties the tree, the value cache and the history. Watchers stay
// registered and are not notified.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.tree = make(map[string]any)
	s.cache.purge()
	s.history.Clear()
	return nil
}

// Flush blocks until every notification scheduled so far has been
// delivered. It must not be called from inside a watcher.
func (s *Store) Flush() {
	s.queue.Flush()
}

// Destroy tears the store down: it stops maintenance, clears watchers and
// the cache, releases the tree and closes the dispatcher, dropping
// undelivered notifications. Later mutations return ErrDestroyed and reads
// return zero values. Destroy is idempotent.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	stop, stopped := s.stop, s.stopped
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-stopped
	}

	s.mu.Lock()
	s.watchers.Clear()
	s.cache.purge()
	s.compiler.Reset()
	s.history.Clear()
	s.tree = nil
	s.mu.Unlock()

	s.queue.Close()
	s.logger.Debug("statetree destroyed")
}

func (s *Store) lookup(p paths.Path) (any, bool) {
	key := p.String()
	if v, ok := s.cache.get(key); ok {
		return v, true
	}
	v, ok := walk(s.tree, p)
	if ok {
		s.cache.set(key, v)
	}
	return v, ok
}

// write applies value at p, records history and invalidates the cache. It
// reports false, changing nothing, when value equals the current value.
func (s *Store) write(p paths.Path, value any, op string) (Change, bool) {
	old, had := s.lookup(p)
	if had && clone.Equal(old, value) {
		return Change{}, false
	}
	stored := s.cloneValue(value)
	assign(s.tree, p, stored)
	s.cache.invalidate(p)

	ch := s.record(Change{
		Path:     p.String(),
		OldValue: s.cloneValue(old),
		NewValue: s.cloneValue(stored),
		HadOld:   had,
	})
	recordWrite(context.Background(), op)
	s.emit(activity.BuildStateUpdatedEvent(activity.StateEventInput{
		Path:       ch.Path,
		OldValue:   old,
		NewValue:   stored,
		TxID:       ch.TxID,
		OccurredAt: ch.Timestamp,
	}))
	return ch, true
}

// remove deletes the leaf at p. It reports false when p is absent.
func (s *Store) remove(p paths.Path) (Change, bool) {
	old, had := s.lookup(p)
	if !had {
		return Change{}, false
	}
	unassign(s.tree, p)
	s.cache.invalidate(p)

	ch := s.record(Change{
		Path:     p.String(),
		OldValue: s.cloneValue(old),
		HadOld:   true,
		Removed:  true,
	})
	recordWrite(context.Background(), "remove")
	s.emit(activity.BuildStateDeletedEvent(activity.StateEventInput{
		Path:       ch.Path,
		OldValue:   old,
		TxID:       ch.TxID,
		OccurredAt: ch.Timestamp,
	}))
	return ch, true
}

// cloneValue deep-copies aggregates. Scalars are returned unchanged.
func (s *Store) cloneValue(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return v
	}
	out, err := clone.Structured(v)
	if err == nil {
		return out
	}
	return clone.Value(v, s.cfg.CloneLimits)
}

func (s *Store) cloneTree(tree map[string]any) map[string]any {
	if tree == nil {
		return make(map[string]any)
	}
	out, ok := s.cloneValue(tree).(map[string]any)
	if !ok || out == nil {
		return make(map[string]any)
	}
	return out
}

func walk(root map[string]any, p paths.Path) (any, bool) {
	if root == nil {
		return nil, false
	}
	var node any = root
	for i := 0; i < p.Len(); i++ {
		branch, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = branch[p.At(i)]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func assign(root map[string]any, p paths.Path, value any) {
	node := root
	for i := 0; i < p.Len()-1; i++ {
		seg := p.At(i)
		next, ok := node[seg].(map[string]any)
		if !ok || next == nil {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[p.Last()] = value
}

func unassign(root map[string]any, p paths.Path) bool {
	node := root
	for i := 0; i < p.Len()-1; i++ {
		next, ok := node[p.At(i)].(map[string]any)
		if !ok {
			return false
		}
		node = next
	}
	if _, ok := node[p.Last()]; !ok {
		return false
	}
	delete(node, p.Last())
	return true
}

func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("statetree.Store{keys=%d watched=%d history=%d}", countLeaves(s.tree), s.watchers.Len(), s.history.Len())
}
