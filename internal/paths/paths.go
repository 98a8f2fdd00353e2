// Package paths compiles dotted state paths into segments and answers
// ancestry questions between them.
package paths

import (
	"strings"
	"sync"
)

// Separator splits a path into segments.
const Separator = "."

// DefaultCacheSize bounds the number of compiled paths kept by a Compiler.
const DefaultCacheSize = 200

// Path is a compiled dotted path. Single-segment paths keep the raw string
// and never allocate a segment slice.
type Path struct {
	raw    string
	single bool
	segs   []string
}

// String returns the canonical form of the path: segments joined by the
// separator with empty segments dropped.
func (p Path) String() string { return p.raw }

// Len returns the number of segments.
func (p Path) Len() int {
	if p.single {
		return 1
	}
	return len(p.segs)
}

// At returns the i-th segment.
func (p Path) At(i int) string {
	if p.single {
		return p.raw
	}
	return p.segs[i]
}

// Last returns the final segment.
func (p Path) Last() string {
	return p.At(p.Len() - 1)
}

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	if p.single {
		return []string{p.raw}
	}
	out := make([]string, len(p.segs))
	copy(out, p.segs)
	return out
}

// Compiler caches compiled paths. When the cache is full the oldest half is
// dropped in one pass.
type Compiler struct {
	mu    sync.Mutex
	size  int
	cache map[string]Path
	order []string
}

// NewCompiler constructs a compiler with the given cache bound. Non-positive
// sizes fall back to DefaultCacheSize.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Compiler{
		size:  size,
		cache: make(map[string]Path, size),
		order: make([]string, 0, size),
	}
}

// Compile returns the segments for path, reusing a cached result when present.
func (c *Compiler) Compile(path string) Path {
	if !strings.Contains(path, Separator) {
		return Path{raw: path, single: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if compiled, ok := c.cache[path]; ok {
		return compiled
	}
	compiled := split(path)
	if len(c.order) >= c.size {
		c.evictOldestHalf()
	}
	c.cache[path] = compiled
	c.order = append(c.order, path)
	return compiled
}

// Len reports the number of cached entries.
func (c *Compiler) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Reset drops every cached entry.
func (c *Compiler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]Path, c.size)
	c.order = c.order[:0]
}

func (c *Compiler) evictOldestHalf() {
	half := len(c.order) / 2
	if half == 0 {
		half = len(c.order)
	}
	for _, key := range c.order[:half] {
		delete(c.cache, key)
	}
	remaining := make([]string, len(c.order)-half, c.size)
	copy(remaining, c.order[half:])
	c.order = remaining
}

// Compile compiles path without caching.
func Compile(path string) Path {
	if !strings.Contains(path, Separator) {
		return Path{raw: path, single: true}
	}
	return split(path)
}

func split(path string) Path {
	parts := strings.Split(path, Separator)
	segs := parts[:0]
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	switch len(segs) {
	case 0:
		return Path{raw: "", single: true}
	case 1:
		return Path{raw: segs[0], single: true}
	}
	return Path{raw: strings.Join(segs, Separator), segs: segs}
}

// Join concatenates non-empty parts with the separator.
func Join(parts ...string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(part)
	}
	return b.String()
}

// IsAncestor reports whether ancestor is a strict ancestor of path on a
// segment boundary ("a" is an ancestor of "a.b", not of "ab").
func IsAncestor(ancestor, path string) bool {
	if ancestor == "" || len(path) <= len(ancestor) {
		return false
	}
	return strings.HasPrefix(path, ancestor) && path[len(ancestor)] == '.'
}

// Related reports whether a and b are equal or one is an ancestor of the other.
func Related(a, b string) bool {
	return a == b || IsAncestor(a, b) || IsAncestor(b, a)
}

// Ancestors returns the strict ancestors of p ordered from the root down.
func Ancestors(p Path) []string {
	n := p.Len()
	if n <= 1 {
		return nil
	}
	out := make([]string, 0, n-1)
	prefix := p.At(0)
	out = append(out, prefix)
	for i := 1; i < n-1; i++ {
		prefix = prefix + Separator + p.At(i)
		out = append(out, prefix)
	}
	return out
}

// DescendantBounds returns the half-open key range [lo, hi) that contains
// every descendant of path in lexical order.
func DescendantBounds(path string) (lo, hi string) {
	// '/' sorts immediately after '.'.
	return path + ".", path + "/"
}
