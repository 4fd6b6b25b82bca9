package values

import (
	"fmt"

	apperrors "github.com/graph-import/pkg/errors"
)

// Value is one typed property value.
// The set of implementations is closed; column builders switch on Type().
type Value interface {
	Type() ValueType
	// Raw returns the underlying Go value for serialization.
	Raw() interface{}
}

// LongValue is a 64-bit integer value.
type LongValue int64

// DoubleValue is a 64-bit float value.
type DoubleValue float64

// StringValue is a string value.
type StringValue string

// BooleanValue is a bool value.
type BooleanValue bool

// LongArrayValue is a []int64 value.
type LongArrayValue []int64

// DoubleArrayValue is a []float64 value.
type DoubleArrayValue []float64

// FloatArrayValue is a []float32 value.
type FloatArrayValue []float32

// StringArrayValue is a []string value.
type StringArrayValue []string

// BooleanArrayValue is a []bool value.
type BooleanArrayValue []bool

// Type implementations.

func (v LongValue) Type() ValueType         { return TypeLong }
func (v DoubleValue) Type() ValueType       { return TypeDouble }
func (v StringValue) Type() ValueType       { return TypeString }
func (v BooleanValue) Type() ValueType      { return TypeBoolean }
func (v LongArrayValue) Type() ValueType    { return TypeLongArray }
func (v DoubleArrayValue) Type() ValueType  { return TypeDoubleArray }
func (v FloatArrayValue) Type() ValueType   { return TypeFloatArray }
func (v StringArrayValue) Type() ValueType  { return TypeStringArray }
func (v BooleanArrayValue) Type() ValueType { return TypeBooleanArray }

// Raw implementations.

func (v LongValue) Raw() interface{}         { return int64(v) }
func (v DoubleValue) Raw() interface{}       { return float64(v) }
func (v StringValue) Raw() interface{}       { return string(v) }
func (v BooleanValue) Raw() interface{}      { return bool(v) }
func (v LongArrayValue) Raw() interface{}    { return []int64(v) }
func (v DoubleArrayValue) Raw() interface{}  { return []float64(v) }
func (v FloatArrayValue) Raw() interface{}   { return []float32(v) }
func (v StringArrayValue) Raw() interface{}  { return []string(v) }
func (v BooleanArrayValue) Raw() interface{} { return []bool(v) }

// Of infers a Value from a raw Go value. Integers become longs, floats
// doubles. Used on the lazy schema path where the first observation of a
// property key defines its column type.
func Of(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case Value:
		return v, nil
	case int:
		return LongValue(v), nil
	case int32:
		return LongValue(v), nil
	case int64:
		return LongValue(v), nil
	case float32:
		return DoubleValue(v), nil
	case float64:
		return DoubleValue(v), nil
	case string:
		return StringValue(v), nil
	case bool:
		return BooleanValue(v), nil
	case []int64:
		return LongArrayValue(v), nil
	case []float64:
		return DoubleArrayValue(v), nil
	case []float32:
		return FloatArrayValue(v), nil
	case []string:
		return StringArrayValue(v), nil
	case []bool:
		return BooleanArrayValue(v), nil
	default:
		return nil, apperrors.Newf(apperrors.CodePropertyTypeMismatch,
			"unsupported raw value of type %T", raw)
	}
}

// Coerce converts v to the target column type. Widening conversions
// (long to double, long[] to double[], float[] to double[]) and the
// double[] to float[] conversion are applied silently; anything else is a
// type mismatch.
func Coerce(v Value, target ValueType) (Value, error) {
	if v == nil {
		return target.DefaultValue(), nil
	}
	if v.Type() == target {
		return v, nil
	}

	switch target {
	case TypeDouble:
		if lv, ok := v.(LongValue); ok {
			return DoubleValue(lv), nil
		}
	case TypeLong:
		// Doubles that carry an integral value still reject: the column
		// owner declared long, the producer sent double.
	case TypeDoubleArray:
		switch av := v.(type) {
		case LongArrayValue:
			out := make(DoubleArrayValue, len(av))
			for i, x := range av {
				out[i] = float64(x)
			}
			return out, nil
		case FloatArrayValue:
			out := make(DoubleArrayValue, len(av))
			for i, x := range av {
				out[i] = float64(x)
			}
			return out, nil
		}
	case TypeFloatArray:
		if av, ok := v.(DoubleArrayValue); ok {
			out := make(FloatArrayValue, len(av))
			for i, x := range av {
				out[i] = float32(x)
			}
			return out, nil
		}
	}

	return nil, apperrors.Newf(apperrors.CodePropertyTypeMismatch,
		"cannot store %s value into %s column", v.Type(), target)
}

// FormatValue renders a value the way the CSV layer writes it back.
func FormatValue(v Value) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v.Raw())
}
