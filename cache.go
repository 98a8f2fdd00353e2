package statetree

import (
	"context"
	"log/slog"

	"github.com/tidwall/btree"

	"github.com/goliatone/go-statetree/internal/lru"
	"github.com/goliatone/go-statetree/internal/paths"
)

// valueCache caches resolved values per canonical path. An ordered index of
// the cached keys turns descendant invalidation into a range scan.
type valueCache struct {
	entries *lru.Cache[any]
	index   *btree.BTreeG[string]
	logger  *slog.Logger
}

func newValueCache(capacity int, logger *slog.Logger) *valueCache {
	c := &valueCache{
		index: btree.NewBTreeGOptions(func(a, b string) bool { return a < b }, btree.Options{
			NoLocks: true,
		}),
		logger: logger,
	}
	c.entries = lru.New[any](capacity, lru.WithEvictHook(func(key string, _ any) {
		c.index.Delete(key)
		c.logger.Debug("statetree cache eviction", "path", key)
		recordCacheEviction(context.Background())
	}))
	return c
}

func (c *valueCache) get(key string) (any, bool) {
	v, ok := c.entries.Get(key)
	if ok {
		recordCacheHit(context.Background())
	} else {
		recordCacheMiss(context.Background())
	}
	return v, ok
}

// set caches value under key. nil values are never cached.
func (c *valueCache) set(key string, value any) {
	if value == nil {
		return
	}
	c.index.Set(key)
	c.entries.Set(key, value)
}

func (c *valueCache) delete(key string) {
	if c.entries.Delete(key) {
		c.index.Delete(key)
	}
}

// invalidate drops p, every ancestor of p and every descendant of p.
func (c *valueCache) invalidate(p paths.Path) {
	key := p.String()
	c.delete(key)
	for _, ancestor := range paths.Ancestors(p) {
		c.delete(ancestor)
	}

	lo, hi := paths.DescendantBounds(key)
	var descendants []string
	c.index.Ascend(lo, func(k string) bool {
		if k >= hi {
			return false
		}
		descendants = append(descendants, k)
		return true
	})
	for _, k := range descendants {
		c.delete(k)
	}
}

func (c *valueCache) purge() {
	c.entries.Purge()
	c.index.Clear()
}

func (c *valueCache) stats() lru.Stats {
	return c.entries.Stats()
}
