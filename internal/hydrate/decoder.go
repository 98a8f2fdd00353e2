// Package hydrate converts state subtrees to typed values and back through
// their JSON form, with hooks around the decode step.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"time"
)

// ErrNilPayload is returned when Decode receives a nil map.
var ErrNilPayload = errors.New("hydrate: payload is nil")

// PreHook rewrites the payload for path before decoding. It receives a copy.
type PreHook func(path string, payload map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(path string, value *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder turns subtrees into values of T.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	strict    bool
	useNumber bool
}

// WithPreHook appends a pre-decode hook. Hooks run in registration order.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook appends a post-decode hook.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber decodes numbers into untyped fields as json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.useNumber = true }
}

// WithDisallowUnknownFields fails on keys with no matching field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

// NewDecoder builds a Decoder from opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T. Regexp leaves decode as their source
// string and times as RFC 3339 strings.
func (d *Decoder[T]) Decode(path string, payload map[string]any) (T, error) {
	var zero T
	label := pathLabel(path)
	if payload == nil {
		return zero, fmt.Errorf("%w: %q", ErrNilPayload, label)
	}

	copied, err := plain(payload, map[uintptr]bool{})
	if err != nil {
		return zero, fmt.Errorf("hydrate: %q: %w", label, err)
	}
	current := copied.(map[string]any)
	for _, hook := range d.pre {
		next, err := hook(path, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q: %w", label, err)
		}
		if next != nil {
			current = next
		}
	}

	buf, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal %q: %w", label, err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.useNumber {
		dec.UseNumber()
	}
	var out T
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("hydrate: decode %q: %w", label, err)
	}

	for _, hook := range d.post {
		if err := hook(path, &out); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q: %w", label, err)
		}
	}
	return out, nil
}

// Encode converts v into a subtree. v must encode as a JSON object.
// Integral numbers become int64, others float64.
func Encode(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hydrate: encode %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("hydrate: encode %T: %w", v, err)
	}
	tree, ok := numbers(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("hydrate: encode %T: not an object", v)
	}
	return tree, nil
}

// ErrCycle is returned when a subtree refers back to one of its ancestors.
var ErrCycle = errors.New("hydrate: cyclic subtree")

// plain copies the map and slice structure of v, replacing values JSON
// cannot represent faithfully. active holds the maps on the current branch.
func plain(v any, active map[uintptr]bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		id := reflect.ValueOf(t).Pointer()
		if active[id] {
			return nil, ErrCycle
		}
		active[id] = true
		defer delete(active, id)
		out := make(map[string]any, len(t))
		for k, child := range t {
			c, err := plain(child, active)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			c, err := plain(child, active)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case *regexp.Regexp:
		if t == nil {
			return nil, nil
		}
		return t.String(), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	default:
		return v, nil
	}
}

func numbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = numbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = numbers(child)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func pathLabel(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
