package statetree

import (
	"reflect"
	"time"

	"github.com/goliatone/go-statetree/pkg/activity"
)

// Snapshot returns an independent deep copy of the whole tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return map[string]any{}
	}
	return s.cloneTree(s.tree)
}

// Restore replaces the tree with a deep copy of tree and clears the value
// cache. History and watchers are kept; watchers are not notified.
func (s *Store) Restore(tree map[string]any) error {
	if tree == nil {
		return ErrInvalidSnapshot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.tree = s.cloneTree(tree)
	s.cache.purge()
	s.emit(activity.BuildStateRestoredEvent(activity.StateEventInput{
		OccurredAt: s.clock(),
		Metadata:   map[string]any{"keys": countLeaves(s.tree)},
	}))
	return nil
}

// Stats is a point-in-time summary of a Store.
type Stats struct {
	Keys                 int   `json:"keys"`
	WatchedPaths         int   `json:"watched_paths"`
	Handlers             int   `json:"handlers"`
	HistoryLength        int   `json:"history_length"`
	HistoryCapacity      int   `json:"history_capacity"`
	CacheSize            int   `json:"cache_size"`
	CacheCapacity        int   `json:"cache_capacity"`
	CacheHits            int64 `json:"cache_hits"`
	CacheMisses          int64 `json:"cache_misses"`
	CacheEvictions       int64 `json:"cache_evictions"`
	CompiledPaths        int   `json:"compiled_paths"`
	PendingNotifications int   `json:"pending_notifications"`
	WatcherPanics        int64 `json:"watcher_panics"`
	MemoryBytes          int64 `json:"memory_bytes"`
	Destroyed            bool  `json:"destroyed"`
}

// Stats reports counts and an approximate memory footprint of the tree.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cache := s.cache.stats()
	return Stats{
		Keys:                 countLeaves(s.tree),
		WatchedPaths:         s.watchers.Len(),
		Handlers:             s.watchers.HandlerCount(),
		HistoryLength:        s.history.Len(),
		HistoryCapacity:      s.history.Cap(),
		CacheSize:            cache.Size,
		CacheCapacity:        cache.Capacity,
		CacheHits:            cache.Hits,
		CacheMisses:          cache.Misses,
		CacheEvictions:       cache.Evictions,
		CompiledPaths:        s.compiler.Len(),
		PendingNotifications: s.queue.Pending(),
		WatcherPanics:        s.panics.Load(),
		MemoryBytes:          estimateSize(s.tree),
		Destroyed:            s.destroyed,
	}
}

// countLeaves counts non-map values plus empty maps.
func countLeaves(tree map[string]any) int {
	if tree == nil {
		return 0
	}
	count := 0
	stack := []map[string]any{tree}
	seen := map[uintptr]bool{}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range node {
			child, ok := v.(map[string]any)
			if !ok || len(child) == 0 {
				count++
				continue
			}
			ptr := reflect.ValueOf(child).Pointer()
			if seen[ptr] {
				continue
			}
			seen[ptr] = true
			stack = append(stack, child)
		}
	}
	return count
}

// estimateSize approximates the bytes held by v. Shared references are
// counted once.
func estimateSize(v any) int64 {
	const (
		wordSize      = 8
		ifaceHeader   = 2 * wordSize
		stringHeader  = 2 * wordSize
		sliceHeader   = 3 * wordSize
		mapHeader     = 48
		mapEntryExtra = wordSize
	)
	var total int64
	seen := map[uintptr]bool{}
	stack := []any{v}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch typed := item.(type) {
		case nil:
		case string:
			total += stringHeader + int64(len(typed))
		case bool, int8, uint8:
			total++
		case int16, uint16:
			total += 2
		case int32, uint32, float32:
			total += 4
		case int, int64, uint, uint64, float64, uintptr:
			total += wordSize
		case time.Time:
			total += 3 * wordSize
		case map[string]any:
			ptr := reflect.ValueOf(typed).Pointer()
			if typed == nil || seen[ptr] {
				continue
			}
			seen[ptr] = true
			total += mapHeader
			for key, child := range typed {
				total += stringHeader + int64(len(key)) + ifaceHeader + mapEntryExtra
				stack = append(stack, child)
			}
		case []any:
			total += sliceHeader + int64(cap(typed))*ifaceHeader
			if len(typed) == 0 {
				continue
			}
			ptr := reflect.ValueOf(typed).Pointer()
			if seen[ptr] {
				continue
			}
			seen[ptr] = true
			stack = append(stack, typed...)
		default:
			total += int64(reflect.TypeOf(typed).Size())
		}
	}
	return total
}
