package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrETagMismatch = errors.New("snapshot: etag mismatch")

var ErrInvalidRef = errors.New("snapshot: invalid ref")

// Ref identifies one persisted tree.
type Ref struct {
	Domain    string
	Namespace string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads and saves one tree for a single Ref. On Save, a non-empty
// meta.ETag is the ETag the caller last saw; stores that support
// concurrency control reject the save with ErrETagMismatch when it differs
// from the stored one.
type Store interface {
	Load(ctx context.Context, ref Ref) (tree map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, tree map[string]any, meta Meta) (Meta, error)
}

// Mutator edits a loaded tree in place.
type Mutator func(tree map[string]any) error

// Identifier returns the canonical storage key: "domain" or
// "domain/namespace".
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	if domain == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidRef)
	}
	if strings.Contains(domain, "/") {
		return "", fmt.Errorf("%w: domain %q must not contain '/'", ErrInvalidRef, domain)
	}
	ns := strings.Trim(strings.TrimSpace(r.Namespace), ".")
	if ns == "" {
		return domain, nil
	}
	if strings.Contains(ns, "/") {
		return "", fmt.Errorf("%w: namespace %q must not contain '/'", ErrInvalidRef, ns)
	}
	return domain + "/" + ns, nil
}

// Mutate loads the tree for ref, applies fn and saves the result. A
// non-empty expected.ETag must match the loaded ETag. A missing tree starts
// empty. Nothing is saved when fn fails.
func Mutate(ctx context.Context, store Store, ref Ref, expected Meta, fn Mutator) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("snapshot: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("snapshot: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	tree, loaded, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: load %q: %w", ref.Domain, err)
	}
	if !ok || tree == nil {
		tree = map[string]any{}
		loaded = Meta{}
	}
	if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
		return loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}

	if err := fn(tree); err != nil {
		return loaded, err
	}

	saved, err := store.Save(ctx, ref, tree, mergeMeta(loaded, expected))
	if err != nil {
		return loaded, fmt.Errorf("snapshot: save %q: %w", ref.Domain, err)
	}
	return saved, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
