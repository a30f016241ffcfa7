package extraction

import (
	"fmt"
	"math"
	"reflect"
)

// normalizeKey makes loader values usable as map keys. Integral numbers are
// unified to int64 so that rows from different loaders match on the same id.
func normalizeKey(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint:
		return normalizeUnsigned(uint64(t))
	case uint64:
		return normalizeUnsigned(t)
	case uintptr:
		return normalizeUnsigned(uint64(t))
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case []byte:
		return string(t)
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprintf("%v", v)
	}
	return v
}

// normalizeUnsigned keeps values above MaxInt64 unsigned so they never collide
// with a negative int64.
func normalizeUnsigned(v uint64) any {
	if v <= math.MaxInt64 {
		return int64(v)
	}
	return v
}

func normalizeFloat(v float64) any {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

// axisKey identifies a crosstab cell by its horizontal and vertical join
// values. Either component may be nil.
type axisKey struct {
	h any
	v any
}

func newAxisKey(h, v any) axisKey {
	return axisKey{h: normalizeKey(h), v: normalizeKey(v)}
}
