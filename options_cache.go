package statetree

import (
	"sync"

	"github.com/goliatone/go-statetree/internal/lru"
)

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache used by the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}

// NewProgramCache returns a ProgramCache holding at most size programs,
// evicting the least recently used. It is safe for concurrent use.
func NewProgramCache(size int) ProgramCache {
	return &lruProgramCache{entries: lru.New[any](size)}
}

type lruProgramCache struct {
	mu      sync.Mutex
	entries *lru.Cache[any]
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

func (c *lruProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Set(key, value)
}
