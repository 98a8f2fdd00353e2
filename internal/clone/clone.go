// Package clone produces independent deep copies of state values.
//
// Both cloners walk values with an explicit stack rather than recursion and
// keep a visited table keyed by reference identity, so shared references are
// copied once and re-linked and cycles terminate.
package clone

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"time"
	"unsafe"
)

// ErrUnsupported is returned by Structured for values outside the JSON-like
// subset it handles.
var ErrUnsupported = errors.New("clone: unsupported value")

// Limits caps the fan-out copied at each level. Zero means unbounded.
type Limits struct {
	MaxElements int `json:"max_elements" yaml:"max_elements"`
	MaxKeys     int `json:"max_keys" yaml:"max_keys"`
}

// DefaultLimits bounds worst-case work for the reflective cloner.
var DefaultLimits = Limits{MaxElements: 1000, MaxKeys: 100}

var (
	timeType   = reflect.TypeOf(time.Time{})
	regexpType = reflect.TypeOf((*regexp.Regexp)(nil))
)

type visitKey struct {
	ptr unsafe.Pointer
	typ reflect.Type
	n   int
}

type frame struct {
	src  reflect.Value
	dst  reflect.Value
	post func()
}

// Value deep-copies v with the reflective cloner. It never fails: slices
// beyond limits.MaxElements and maps beyond limits.MaxKeys are truncated
// (map keys are kept in sorted order), channels and funcs are shared, and
// unexported struct fields are copied shallowly.
func Value(v any, limits Limits) any {
	if v == nil {
		return nil
	}
	src := reflect.ValueOf(v)
	holder := reflect.New(src.Type()).Elem()

	w := walker{limits: limits, visited: make(map[visitKey]reflect.Value)}
	w.stack = append(w.stack, frame{src: src, dst: holder})
	for len(w.stack) > 0 {
		f := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if f.post != nil {
			f.post()
			continue
		}
		w.fill(f.src, f.dst)
	}
	return holder.Interface()
}

type walker struct {
	limits  Limits
	visited map[visitKey]reflect.Value
	stack   []frame
}

func (w *walker) push(f frame) {
	w.stack = append(w.stack, f)
}

// fill copies src into the settable dst. dst has the type of src or is an
// interface src is assignable to.
func (w *walker) fill(src, dst reflect.Value) {
	v := src
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	switch v.Type() {
	case timeType:
		dst.Set(v)
		return
	case regexpType:
		if v.IsNil() {
			dst.Set(v)
			return
		}
		dst.Set(reflect.ValueOf(copyRegexp(v.Interface().(*regexp.Regexp))))
		return
	}

	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			dst.Set(reflect.Zero(v.Type()))
			return
		}
		key := visitKey{ptr: v.UnsafePointer(), typ: v.Type()}
		if seen, ok := w.visited[key]; ok {
			dst.Set(seen)
			return
		}
		keys := v.MapKeys()
		sortKeys(keys)
		if w.limits.MaxKeys > 0 && len(keys) > w.limits.MaxKeys {
			keys = keys[:w.limits.MaxKeys]
		}
		m := reflect.MakeMapWithSize(v.Type(), len(keys))
		w.visited[key] = m
		dst.Set(m)
		elemType := v.Type().Elem()
		for _, k := range keys {
			k := k
			holder := reflect.New(elemType).Elem()
			w.push(frame{post: func() { m.SetMapIndex(k, holder) }})
			w.push(frame{src: v.MapIndex(k), dst: holder})
		}
	case reflect.Slice:
		if v.IsNil() {
			dst.Set(reflect.Zero(v.Type()))
			return
		}
		key := visitKey{ptr: v.UnsafePointer(), typ: v.Type(), n: v.Len()}
		if seen, ok := w.visited[key]; ok {
			dst.Set(seen)
			return
		}
		n := v.Len()
		if w.limits.MaxElements > 0 && n > w.limits.MaxElements {
			n = w.limits.MaxElements
		}
		s := reflect.MakeSlice(v.Type(), n, n)
		w.visited[key] = s
		dst.Set(s)
		for i := n - 1; i >= 0; i-- {
			w.push(frame{src: v.Index(i), dst: s.Index(i)})
		}
	case reflect.Pointer:
		if v.IsNil() {
			dst.Set(reflect.Zero(v.Type()))
			return
		}
		key := visitKey{ptr: v.UnsafePointer(), typ: v.Type()}
		if seen, ok := w.visited[key]; ok {
			dst.Set(seen)
			return
		}
		p := reflect.New(v.Type().Elem())
		w.visited[key] = p
		dst.Set(p)
		w.push(frame{src: v.Elem(), dst: p.Elem()})
	case reflect.Array, reflect.Struct:
		if dst.Type() != v.Type() {
			holder := reflect.New(v.Type()).Elem()
			w.push(frame{post: func() { dst.Set(holder) }})
			w.push(frame{src: v, dst: holder})
			return
		}
		dst.Set(v)
		if v.Kind() == reflect.Array {
			for i := v.Len() - 1; i >= 0; i-- {
				w.push(frame{src: v.Index(i), dst: dst.Index(i)})
			}
			return
		}
		for i := v.NumField() - 1; i >= 0; i-- {
			field := dst.Field(i)
			if !field.CanSet() {
				continue
			}
			w.push(frame{src: v.Field(i), dst: field})
		}
	default:
		dst.Set(v)
	}
}

// Structured deep-copies JSON-like trees: map[string]any, []any, strings,
// booleans, numbers, nil, time.Time and *regexp.Regexp. No caps apply. Any
// other value yields ErrUnsupported.
func Structured(v any) (any, error) {
	var out any
	type sframe struct {
		src    any
		assign func(any)
	}
	visitedMaps := make(map[unsafe.Pointer]map[string]any)
	visitedSlices := make(map[visitKey][]any)

	stack := []sframe{{src: v, assign: func(c any) { out = c }}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch typed := f.src.(type) {
		case nil:
			f.assign(nil)
		case map[string]any:
			if typed == nil {
				f.assign(typed)
				continue
			}
			ptr := reflect.ValueOf(typed).UnsafePointer()
			if seen, ok := visitedMaps[ptr]; ok {
				f.assign(seen)
				continue
			}
			dst := make(map[string]any, len(typed))
			visitedMaps[ptr] = dst
			f.assign(dst)
			for key, child := range typed {
				key := key
				stack = append(stack, sframe{src: child, assign: func(c any) { dst[key] = c }})
			}
		case []any:
			if typed == nil {
				f.assign(typed)
				continue
			}
			key := visitKey{ptr: reflect.ValueOf(typed).UnsafePointer(), n: len(typed)}
			if seen, ok := visitedSlices[key]; ok {
				f.assign(seen)
				continue
			}
			dst := make([]any, len(typed))
			visitedSlices[key] = dst
			f.assign(dst)
			for i := len(typed) - 1; i >= 0; i-- {
				i := i
				stack = append(stack, sframe{src: typed[i], assign: func(c any) { dst[i] = c }})
			}
		case *regexp.Regexp:
			if typed == nil {
				f.assign(typed)
				continue
			}
			f.assign(copyRegexp(typed))
		case string, bool, time.Time,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, uintptr,
			float32, float64:
			f.assign(typed)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupported, f.src)
		}
	}
	return out, nil
}

func copyRegexp(re *regexp.Regexp) *regexp.Regexp {
	if copied, err := regexp.Compile(re.String()); err == nil {
		return copied
	}
	return re
}

func sortKeys(keys []reflect.Value) {
	sort.Slice(keys, func(i, j int) bool {
		return keyString(keys[i]) < keyString(keys[j])
	})
}

func keyString(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}
