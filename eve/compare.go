package eve

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// CompareValues compares two values for the deterministic, stable-across-
// equal-states ordering spec.md §4.1 requires of Iterate. Returns -1, 0, 1.
// Nil sorts before any non-nil value. Values of incomparable dynamic types
// fall back to their string forms.
func CompareValues(left, right Value) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	if ptr, ok := left.(*Id); ok {
		left = *ptr
	}
	if ptr, ok := right.(*Id); ok {
		right = *ptr
	}
	if ptr, ok := left.(*Attribute); ok {
		left = *ptr
	}
	if ptr, ok := right.(*Attribute); ok {
		right = *ptr
	}

	if id1, ok := left.(Id); ok {
		if id2, ok := right.(Id); ok {
			return compareHashes(id1.hash, id2.hash)
		}
		return -1
	}

	if a1, ok := left.(Attribute); ok {
		if a2, ok := right.(Attribute); ok {
			return strings.Compare(a1.String(), a2.String())
		}
		return -1
	}

	switch l := left.(type) {
	case int:
		return compareNumeric(int64(l), right)
	case int64:
		return compareNumeric(l, right)
	case float64:
		return compareFloat(l, right)
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
		return -1
	case bool:
		if r, ok := right.(bool); ok {
			switch {
			case !l && r:
				return -1
			case l && !r:
				return 1
			default:
				return 0
			}
		}
		return -1
	case time.Time:
		if r, ok := right.(time.Time); ok {
			switch {
			case l.Before(r):
				return -1
			case l.After(r):
				return 1
			default:
				return 0
			}
		}
		return -1
	}

	return strings.Compare(stringValue(left), stringValue(right))
}

func compareNumeric(left int64, right Value) int {
	switch r := right.(type) {
	case int:
		return compareInt64s(left, int64(r))
	case int64:
		return compareInt64s(left, r)
	case float64:
		return compareFloat(float64(left), right)
	}
	return -1
}

func compareFloat(left float64, right Value) int {
	switch r := right.(type) {
	case int:
		return compareFloats(left, float64(r))
	case int64:
		return compareFloats(left, float64(r))
	case float64:
		return compareFloats(left, r)
	}
	return -1
}

// compareHashes orders two 20-byte hashes as two uint64s and a uint32,
// avoiding the string allocation a byte-slice comparison would otherwise
// require on every Iterate call.
func compareHashes(a, b [20]byte) int {
	if a1, b1 := binary.BigEndian.Uint64(a[0:8]), binary.BigEndian.Uint64(b[0:8]); a1 != b1 {
		return compareUint64s(a1, b1)
	}
	if a2, b2 := binary.BigEndian.Uint64(a[8:16]), binary.BigEndian.Uint64(b[8:16]); a2 != b2 {
		return compareUint64s(a2, b2)
	}
	a3, b3 := binary.BigEndian.Uint32(a[16:20]), binary.BigEndian.Uint32(b[16:20])
	switch {
	case a3 < b3:
		return -1
	case a3 > b3:
		return 1
	default:
		return 0
	}
}

func compareUint64s(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64s(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ValuesEqual reports whether a and b represent the same logical value,
// which for Id specifically means "same hash", not "same cached strings".
func ValuesEqual(a, b Value) bool {
	if ptr, ok := a.(*Id); ok {
		a = *ptr
	}
	if ptr, ok := b.(*Id); ok {
		b = *ptr
	}
	if ptr, ok := a.(*Attribute); ok {
		a = *ptr
	}
	if ptr, ok := b.(*Attribute); ok {
		b = *ptr
	}

	if id1, ok := a.(Id); ok {
		id2, ok := b.(Id)
		return ok && id1.hash == id2.hash
	}
	if a1, ok := a.(Attribute); ok {
		a2, ok := b.(Attribute)
		return ok && a1.name == a2.name
	}

	switch av := a.(type) {
	case int, int64, float64, string, bool:
		return a == b
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func stringValue(v Value) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case Id:
		return val.String()
	case Attribute:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
