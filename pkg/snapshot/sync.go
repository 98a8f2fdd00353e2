package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source is a live tree that can be captured and replaced.
type Source interface {
	Snapshot() map[string]any
	Restore(tree map[string]any) error
}

// Sync saves and loads one Ref on behalf of a live tree, carrying the ETag
// between calls.
type Sync struct {
	store Store
	ref   Ref
	now   func() time.Time

	mu   sync.Mutex
	meta Meta
}

// NewSync binds store and ref.
func NewSync(store Store, ref Ref) *Sync {
	return &Sync{store: store, ref: ref, now: time.Now}
}

// Meta returns the metadata from the last successful Save or Load.
func (s *Sync) Meta() Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMeta(s.meta)
}

// Save persists src.Snapshot() under a fresh SnapshotID. It fails with
// ErrETagMismatch when the stored tree changed since the last Save or Load.
func (s *Sync) Save(ctx context.Context, src Source) (Meta, error) {
	if s.store == nil {
		return Meta{}, fmt.Errorf("snapshot: store is required")
	}
	if src == nil {
		return Meta{}, fmt.Errorf("snapshot: source is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := Meta{
		SnapshotID: uuid.NewString(),
		ETag:       s.meta.ETag,
		UpdatedAt:  s.now(),
		Extra:      s.meta.Extra,
	}
	saved, err := s.store.Save(ctx, s.ref, src.Snapshot(), meta)
	if err != nil {
		return Meta{}, err
	}
	s.meta = cloneMeta(saved)
	return saved, nil
}

// Load restores dst from the stored tree. It reports false, leaving dst
// untouched, when nothing is stored for the ref.
func (s *Sync) Load(ctx context.Context, dst Source) (Meta, bool, error) {
	if s.store == nil {
		return Meta{}, false, fmt.Errorf("snapshot: store is required")
	}
	if dst == nil {
		return Meta{}, false, fmt.Errorf("snapshot: destination is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, meta, ok, err := s.store.Load(ctx, s.ref)
	if err != nil {
		return Meta{}, false, err
	}
	if !ok {
		return Meta{}, false, nil
	}
	if tree == nil {
		tree = map[string]any{}
	}
	if err := dst.Restore(tree); err != nil {
		return Meta{}, false, fmt.Errorf("snapshot: restore %q: %w", s.ref.Domain, err)
	}
	s.meta = cloneMeta(meta)
	return meta, true, nil
}
