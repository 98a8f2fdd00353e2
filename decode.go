package statetree

import (
	"fmt"

	"github.com/goliatone/go-statetree/internal/hydrate"
)

// DecodeOption configures Decode.
type DecodeOption[T any] func(*decodeConfig[T])

type decodeConfig[T any] struct {
	options []hydrate.DecoderOption[T]
}

// DecodePreHook rewrites the subtree before it is decoded. The hook receives
// a copy and the path being decoded.
func DecodePreHook[T any](hook func(path string, payload map[string]any) (map[string]any, error)) DecodeOption[T] {
	return func(cfg *decodeConfig[T]) {
		if hook == nil {
			return
		}
		cfg.options = append(cfg.options, hydrate.WithPreHook[T](hook))
	}
}

// DecodePostHook adjusts or validates the decoded value.
func DecodePostHook[T any](hook func(path string, value *T) error) DecodeOption[T] {
	return func(cfg *decodeConfig[T]) {
		if hook == nil {
			return
		}
		cfg.options = append(cfg.options, hydrate.WithPostHook[T](hook))
	}
}

// DecodeStrict rejects subtree keys that have no matching field.
func DecodeStrict[T any]() DecodeOption[T] {
	return func(cfg *decodeConfig[T]) {
		cfg.options = append(cfg.options, hydrate.WithDisallowUnknownFields[T]())
	}
}

// DecodeUseNumber decodes numbers into json.Number instead of float64.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return func(cfg *decodeConfig[T]) {
		cfg.options = append(cfg.options, hydrate.WithUseNumber[T]())
	}
}

// Decode converts the map at path into T through its JSON representation.
// An empty path decodes the whole tree. Regexp leaves decode as their
// source string; cyclic subtrees are rejected.
func Decode[T any](s *Store, path string, opts ...DecodeOption[T]) (T, error) {
	var zero T
	payload, err := s.subtree(path)
	if err != nil {
		return zero, err
	}
	cfg := decodeConfig[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return hydrate.NewDecoder(cfg.options...).Decode(path, payload)
}

// SetFrom stores the JSON object form of v at path, so struct fields land
// as a subtree keyed by their json names. Integral numbers are stored as
// int64.
func (s *Store) SetFrom(path string, v any) error {
	tree, err := hydrate.Encode(v)
	if err != nil {
		return err
	}
	return s.Set(path, tree)
}

func (s *Store) subtree(path string) (map[string]any, error) {
	if path == "" {
		return s.Snapshot(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	p := s.compiler.Compile(path)
	v, ok := s.lookup(p)
	if !ok {
		return nil, fmt.Errorf("statetree: decode %q: path not found", p.String())
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: %s holds %T", ErrNotMap, p.String(), v)
	}
	return s.cloneTree(m), nil
}
