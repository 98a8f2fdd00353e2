// Package statetree is an in-memory hierarchical key/value store addressed
// by dotted paths such as "user.profile.name".
//
// A Store keeps a single tree of nested map[string]any values. Reads go
// through a bounded value cache; writes invalidate the written path, its
// ancestors and its descendants. Watchers subscribe to exact paths and are
// called on a dispatcher goroutine after the write returns, so callers use
// Flush when they need delivery to have happened.
//
// Every effective write is recorded in a bounded history that supports
// Undo. Transaction restores the tree when its function fails or panics,
// and BatchSet coalesces notifications so each path fires once.
//
// Namespace returns a prefixing view over a subtree without copying it.
// Snapshot and Restore exchange the whole tree as a deep copy; pkg/snapshot
// persists those trees.
//
// Rule expressions run against a snapshot through a pluggable Evaluator:
// expr by default, cel-go via NewCELEvaluator and goja via NewJSEvaluator
// when built with the js_eval tag.
package statetree
