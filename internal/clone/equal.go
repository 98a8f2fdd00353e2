package clone

import (
	"reflect"
	"regexp"
	"time"
)

// Equal reports whether a and b hold the same value. Times compare by
// instant and regular expressions by source; everything else uses deep
// structural equality.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case *regexp.Regexp:
		y, ok := b.(*regexp.Regexp)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		return x.String() == y.String()
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case int:
		y, ok := b.(int)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}
