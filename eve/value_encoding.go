package eve

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ValueType tags the dynamic shape of a Value for wire/dump encoding.
type ValueType byte

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeBytes
	TypeReference
	TypeAttribute
)

// Type returns the ValueType of v, panicking on a shape the core doesn't
// know how to encode — a collaborator bug, not a recoverable error.
func Type(v Value) ValueType {
	switch val := v.(type) {
	case *Id:
		return TypeReference
	case *Attribute:
		return TypeAttribute
	case string:
		return TypeString
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTime
	case []byte:
		return TypeBytes
	case Id:
		return TypeReference
	case Attribute:
		return TypeAttribute
	default:
		panic(fmt.Sprintf("unknown value type: %T", val))
	}
}

// EncodeValue serializes a value to bytes, used by the save dump (spec.md
// §4.8) and by TripleIndex's value-hash bucket.
func EncodeValue(v Value) []byte {
	switch ptr := v.(type) {
	case *Id:
		return ptr.Bytes()
	case *Attribute:
		return ptr.Bytes()
	}

	switch val := v.(type) {
	case string:
		return []byte(val)
	case int64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(val))
		return buf
	case float64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(val))
		return buf
	case bool:
		if val {
			return []byte{1}
		}
		return []byte{0}
	case time.Time:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(val.UnixNano()))
		return buf
	case []byte:
		return val
	case Id:
		return val.Bytes()
	case Attribute:
		return val.Bytes()
	default:
		panic(fmt.Sprintf("cannot encode value type: %T", v))
	}
}

// DecodeValue is the inverse of EncodeValue, used when reconstructing a
// quad from a save dump.
func DecodeValue(vType ValueType, data []byte) (Value, error) {
	switch vType {
	case TypeString:
		return string(data), nil
	case TypeInt:
		if len(data) != 8 {
			return nil, fmt.Errorf("int value must be 8 bytes, got %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case TypeFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("float value must be 8 bytes, got %d", len(data))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case TypeBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("bool value must be 1 byte, got %d", len(data))
		}
		return data[0] != 0, nil
	case TypeTime:
		if len(data) != 8 {
			return nil, fmt.Errorf("time value must be 8 bytes, got %d", len(data))
		}
		return time.Unix(0, int64(binary.BigEndian.Uint64(data))), nil
	case TypeBytes:
		return data, nil
	case TypeReference:
		if len(data) != 20 {
			return nil, fmt.Errorf("reference value must be 20 bytes, got %d", len(data))
		}
		var hash [20]byte
		copy(hash[:], data)
		return IdFromHash(hash), nil
	case TypeAttribute:
		return NewAttribute(string(data)), nil
	default:
		return nil, fmt.Errorf("unknown value type: %v", vType)
	}
}
