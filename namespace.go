package statetree

import "strings"

// Namespace is a view over the subtree rooted at a fixed prefix. It holds
// no state of its own; every call goes through the owning Store.
type Namespace struct {
	store  *Store
	prefix string
	err    error
}

// Namespace returns a view that prefixes every path with name + ".". A
// blank name yields a view whose mutators return ErrEmptyNamespace and
// whose readers return zero values.
func (s *Store) Namespace(name string) *Namespace {
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return &Namespace{store: s, err: ErrEmptyNamespace}
	}
	return &Namespace{store: s, prefix: name}
}

// Name returns the view's prefix.
func (n *Namespace) Name() string { return n.prefix }

// Namespace returns a nested view under this one.
func (n *Namespace) Namespace(name string) *Namespace {
	if n.err != nil {
		return n
	}
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return &Namespace{store: n.store, err: ErrEmptyNamespace}
	}
	return &Namespace{store: n.store, prefix: n.prefix + "." + name}
}

func (n *Namespace) full(path string) string {
	if path == "" {
		return n.prefix
	}
	return n.prefix + "." + path
}

func (n *Namespace) relative(path string) string {
	if path == n.prefix {
		return ""
	}
	return strings.TrimPrefix(path, n.prefix+".")
}

// Get returns the value at path within the namespace.
func (n *Namespace) Get(path string) any {
	if n.err != nil {
		return nil
	}
	return n.store.Get(n.full(path))
}

// Lookup returns the value at path and whether it exists.
func (n *Namespace) Lookup(path string) (any, bool) {
	if n.err != nil {
		return nil, false
	}
	return n.store.Lookup(n.full(path))
}

// Has reports whether path holds a non-nil value.
func (n *Namespace) Has(path string) bool {
	return n.Get(path) != nil
}

// Set writes value at path within the namespace.
func (n *Namespace) Set(path string, value any) error {
	if n.err != nil {
		return n.err
	}
	return n.store.Set(n.full(path), value)
}

// Remove deletes path within the namespace.
func (n *Namespace) Remove(path string) error {
	if n.err != nil {
		return n.err
	}
	return n.store.Remove(n.full(path))
}

// Merge deep-merges patch into path within the namespace.
func (n *Namespace) Merge(path string, patch map[string]any) error {
	if n.err != nil {
		return n.err
	}
	return n.store.Merge(n.full(path), patch)
}

// Watch registers fn on path within the namespace. Watchers receive the
// path relative to the namespace.
func (n *Namespace) Watch(path string, fn WatchFunc) func() {
	if n.err != nil || fn == nil {
		return func() {}
	}
	return n.store.Watch(n.full(path), n.scoped(fn))
}

// WatchHandler registers h on path within the namespace.
func (n *Namespace) WatchHandler(path string, h Handler) func() {
	if n.err != nil || h.Fn == nil {
		return func() {}
	}
	return n.store.WatchHandler(n.full(path), Handler{ID: h.ID, Fn: n.scoped(h.Fn)})
}

func (n *Namespace) scoped(fn WatchFunc) WatchFunc {
	return func(newValue, oldValue any, path string) {
		fn(newValue, oldValue, n.relative(path))
	}
}

// BatchSet applies updates whose paths are relative to the namespace.
func (n *Namespace) BatchSet(updates []Update, opts ...BatchOption) error {
	if n.err != nil {
		return n.err
	}
	prefixed := make([]Update, len(updates))
	for i, u := range updates {
		prefixed[i] = Update{Path: n.full(u.Path), Value: u.Value}
	}
	return n.store.BatchSet(prefixed, opts...)
}

// BatchGet reads paths relative to the namespace. Keys of the result are
// the relative paths; absent paths are omitted.
func (n *Namespace) BatchGet(paths []string) map[string]any {
	out := make(map[string]any, len(paths))
	if n.err != nil {
		return out
	}
	for _, p := range paths {
		if v, ok := n.store.Lookup(n.full(p)); ok {
			out[p] = v
		}
	}
	return out
}

// BatchRemove removes paths relative to the namespace.
func (n *Namespace) BatchRemove(paths []string, opts ...BatchOption) error {
	if n.err != nil {
		return n.err
	}
	prefixed := make([]string, len(paths))
	for i, p := range paths {
		prefixed[i] = n.full(p)
	}
	return n.store.BatchRemove(prefixed, opts...)
}

// Keys lists leaf paths under the namespace, relative to it.
func (n *Namespace) Keys() []string {
	if n.err != nil {
		return nil
	}
	var keys []string
	for _, key := range n.store.Keys() {
		if strings.HasPrefix(key, n.prefix+".") {
			keys = append(keys, n.relative(key))
		}
	}
	return keys
}

// Snapshot returns a deep copy of the namespace subtree. A missing or
// non-map subtree yields an empty map.
func (n *Namespace) Snapshot() map[string]any {
	if n.err != nil {
		return map[string]any{}
	}
	if m, ok := n.store.GetClone(n.prefix).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Clear removes the whole namespace subtree.
func (n *Namespace) Clear() error {
	if n.err != nil {
		return n.err
	}
	return n.store.Remove(n.prefix)
}
