// Package watchers tracks which handlers observe which paths.
//
// Handler identity is a caller-supplied ID, never function identity, so the
// same handler may be registered several times; each registration is
// reference counted and must be matched by one Unwatch.
package watchers

import "sort"

// ID identifies a handler.
type ID uint64

// Registration pairs a handler ID with its callback.
type Registration[F any] struct {
	ID ID
	Fn F
}

// bucket holds one path's handlers. One ID may carry a different callback
// on each path it watches.
type bucket[F any] struct {
	refs  map[ID]int
	fns   map[ID]F
	order []ID
}

// Registry maps paths to handler sets. NOT safe for concurrent use.
type Registry[F any] struct {
	paths map[string]*bucket[F]
	refs  map[ID]int
}

// New constructs an empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{
		paths: make(map[string]*bucket[F]),
		refs:  make(map[ID]int),
	}
}

// Watch adds one reference for id on path.
func (r *Registry[F]) Watch(path string, id ID, fn F) {
	b, ok := r.paths[path]
	if !ok {
		b = &bucket[F]{refs: make(map[ID]int), fns: make(map[ID]F)}
		r.paths[path] = b
	}
	if b.refs[id] == 0 {
		b.order = append(b.order, id)
	}
	b.refs[id]++
	r.refs[id]++
	b.fns[id] = fn
}

// Unwatch drops one reference for id on path. It reports whether a
// reference existed; extra calls are no-ops.
func (r *Registry[F]) Unwatch(path string, id ID) bool {
	b, ok := r.paths[path]
	if !ok || b.refs[id] == 0 {
		return false
	}
	b.refs[id]--
	if b.refs[id] == 0 {
		delete(b.refs, id)
		delete(b.fns, id)
		b.order = removeID(b.order, id)
	}
	if len(b.refs) == 0 {
		delete(r.paths, path)
	}
	r.refs[id]--
	if r.refs[id] <= 0 {
		delete(r.refs, id)
	}
	return true
}

// Handlers returns the registrations for path in first-registration order.
func (r *Registry[F]) Handlers(path string) []Registration[F] {
	b, ok := r.paths[path]
	if !ok {
		return nil
	}
	out := make([]Registration[F], 0, len(b.order))
	for _, id := range b.order {
		out = append(out, Registration[F]{ID: id, Fn: b.fns[id]})
	}
	return out
}

// Has reports whether any handler observes path.
func (r *Registry[F]) Has(path string) bool {
	_, ok := r.paths[path]
	return ok
}

// Refs returns the total reference count held by id across all paths.
func (r *Registry[F]) Refs(id ID) int {
	return r.refs[id]
}

// PathRefs returns the reference count held by id on path.
func (r *Registry[F]) PathRefs(path string, id ID) int {
	if b, ok := r.paths[path]; ok {
		return b.refs[id]
	}
	return 0
}

// Paths returns the watched paths in sorted order.
func (r *Registry[F]) Paths() []string {
	out := make([]string, 0, len(r.paths))
	for path := range r.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of watched paths.
func (r *Registry[F]) Len() int { return len(r.paths) }

// HandlerCount returns the number of distinct live handlers.
func (r *Registry[F]) HandlerCount() int { return len(r.refs) }

// Prune removes empty buckets and orphaned refcount entries. Both are
// normally removed eagerly; Prune only repairs leftovers and returns how
// many entries it dropped.
func (r *Registry[F]) Prune() int {
	removed := 0
	live := make(map[ID]int, len(r.refs))
	for path, b := range r.paths {
		for id, n := range b.refs {
			if n <= 0 {
				delete(b.refs, id)
				delete(b.fns, id)
				b.order = removeID(b.order, id)
				removed++
				continue
			}
			live[id] += n
		}
		if len(b.refs) == 0 {
			delete(r.paths, path)
			removed++
		}
	}
	for id := range r.refs {
		if live[id] == 0 {
			delete(r.refs, id)
			removed++
		}
	}
	return removed
}

// Clear drops every registration.
func (r *Registry[F]) Clear() {
	r.paths = make(map[string]*bucket[F])
	r.refs = make(map[ID]int)
}

func removeID(ids []ID, id ID) []ID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
