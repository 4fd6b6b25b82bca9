// Package values defines the closed set of property value types flowing
// through the import pipeline and the coercion rules between them.
package values

import (
	apperrors "github.com/graph-import/pkg/errors"
)

// ValueType identifies the storage type of a property column.
type ValueType int

const (
	// TypeUnknown marks a column whose type has not been observed yet.
	TypeUnknown ValueType = iota
	// TypeLong is a 64-bit signed integer.
	TypeLong
	// TypeDouble is a 64-bit float.
	TypeDouble
	// TypeString is a UTF-8 string.
	TypeString
	// TypeBoolean is a bool.
	TypeBoolean
	// TypeLongArray is a []int64.
	TypeLongArray
	// TypeDoubleArray is a []float64.
	TypeDoubleArray
	// TypeFloatArray is a []float32.
	TypeFloatArray
	// TypeStringArray is a []string.
	TypeStringArray
	// TypeBooleanArray is a []bool.
	TypeBooleanArray
)

// String returns the CSV header token for the value type.
func (t ValueType) String() string {
	switch t {
	case TypeLong:
		return "long"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeLongArray:
		return "long[]"
	case TypeDoubleArray:
		return "double[]"
	case TypeFloatArray:
		return "float[]"
	case TypeStringArray:
		return "string[]"
	case TypeBooleanArray:
		return "boolean[]"
	default:
		return "unknown"
	}
}

// IsArray reports whether the type holds multiple elements per value.
func (t ValueType) IsArray() bool {
	switch t {
	case TypeLongArray, TypeDoubleArray, TypeFloatArray, TypeStringArray, TypeBooleanArray:
		return true
	}
	return false
}

// ParseValueType parses a CSV header value-type token.
// The scalar "float" token is stored as double; there is no 32-bit scalar column.
func ParseValueType(token string) (ValueType, error) {
	switch token {
	case "long":
		return TypeLong, nil
	case "double":
		return TypeDouble, nil
	case "float":
		return TypeDouble, nil
	case "string":
		return TypeString, nil
	case "boolean":
		return TypeBoolean, nil
	case "long[]":
		return TypeLongArray, nil
	case "double[]":
		return TypeDoubleArray, nil
	case "float[]":
		return TypeFloatArray, nil
	case "string[]":
		return TypeStringArray, nil
	case "boolean[]":
		return TypeBooleanArray, nil
	default:
		return TypeUnknown, apperrors.Newf(apperrors.CodeInvalidValueType,
			"unrecognized value type token %q", token)
	}
}

// DefaultValue returns the zero value used to fill unset column entries.
func (t ValueType) DefaultValue() Value {
	switch t {
	case TypeLong:
		return LongValue(0)
	case TypeDouble:
		return DoubleValue(0)
	case TypeString:
		return StringValue("")
	case TypeBoolean:
		return BooleanValue(false)
	case TypeLongArray:
		return LongArrayValue(nil)
	case TypeDoubleArray:
		return DoubleArrayValue(nil)
	case TypeFloatArray:
		return FloatArrayValue(nil)
	case TypeStringArray:
		return StringArrayValue(nil)
	case TypeBooleanArray:
		return BooleanArrayValue(nil)
	default:
		return nil
	}
}
