// Package layering deep-merges state values. A stronger value wins over a
// weaker one; maps merge key by key, everything else is replaced.
package layering

import (
	"reflect"

	"github.com/goliatone/go-statetree/internal/clone"
)

// Merge returns a new value combining strong over weak. Nested maps of the
// same type merge recursively; slices, scalars and mismatched types take the
// strong value. A nil strong value yields a copy of weak. Neither input is
// modified.
func Merge(strong, weak any) any {
	if strong == nil {
		return clone.Value(weak, clone.Limits{})
	}
	merged := mergeValue(reflect.ValueOf(strong), reflect.ValueOf(weak))
	if !merged.IsValid() {
		return nil
	}
	return merged.Interface()
}

// MergeLayers composes snapshots ordered from strongest to weakest.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}

	if !merged.IsValid() {
		return zero
	}
	typ := reflect.TypeOf(zero)
	if typ != nil && merged.Type() != typ {
		result := reflect.New(typ).Elem()
		result.Set(merged.Convert(typ))
		return result.Interface().(T)
	}
	return merged.Interface().(T)
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Type() == strong.Type() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type().Elem())
		result.Elem().Set(mergeValue(strong.Elem(), weakElem))
		return result
	case reflect.Interface:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		merged := mergeValue(strong.Elem(), weakElem)
		return merged.Convert(strong.Type())
	case reflect.Struct:
		var weakStruct reflect.Value
		if weak.IsValid() && weak.Type() == strong.Type() {
			weakStruct = weak
		}
		result := reflect.New(strong.Type()).Elem()
		result.Set(strong)
		for i := 0; i < strong.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if weakStruct.IsValid() {
				weakField = weakStruct.Field(i)
			}
			field.Set(mergeValue(strong.Field(i), weakField))
		}
		return result
	case reflect.Map:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Type() == strong.Type() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			if existing := result.MapIndex(key); existing.IsValid() {
				result.SetMapIndex(key, mergeValue(iter.Value(), existing))
				continue
			}
			result.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return result
	case reflect.Slice:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		return cloneValue(strong)
	default:
		return cloneValue(strong)
	}
}

// cloneValue deep-copies v with the uncapped reflective cloner and keeps
// the static type of v.
func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() || !v.CanInterface() {
		return v
	}
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer ||
		v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return reflect.Zero(v.Type())
	}
	copied := clone.Value(v.Interface(), clone.Limits{})
	if copied == nil {
		return reflect.Zero(v.Type())
	}
	out := reflect.ValueOf(copied)
	if out.Type() != v.Type() {
		return out.Convert(v.Type())
	}
	return out
}
