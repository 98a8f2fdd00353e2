package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps encoded trees in memory, keyed by Ref.Identifier. It
// assigns a SnapshotID when the caller leaves it empty and derives the
// ETag from the encoded bytes.
type MemoryStore struct {
	mu      sync.RWMutex
	codec   Codec
	now     func() time.Time
	records map[string]memoryRecord
}

type memoryRecord struct {
	data []byte
	meta Meta
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCodec sets the encoding used for stored trees. Defaults to JSONCodec.
func WithCodec(codec Codec) MemoryOption {
	return func(s *MemoryStore) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithClock sets the time source for Meta.UpdatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		codec:   JSONCodec{},
		now:     time.Now,
		records: map[string]memoryRecord{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	tree, err := s.codec.Unmarshal(record.data)
	if err != nil {
		return nil, Meta{}, false, err
	}
	return tree, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, tree map[string]any, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	data, err := s.codec.Marshal(tree)
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.records[key]; ok && meta.ETag != "" && meta.ETag != current.meta.ETag {
		return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, current.meta.ETag)
	}

	saved := cloneMeta(meta)
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.NewString()
	}
	sum := sha256.Sum256(data)
	saved.ETag = hex.EncodeToString(sum[:8])
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = s.now()
	}
	s.records[key] = memoryRecord{data: data, meta: saved}
	return cloneMeta(saved), nil
}

// Delete drops the tree stored for ref.
func (s *MemoryStore) Delete(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored trees.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
