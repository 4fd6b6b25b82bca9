package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-import/pkg/errors"
)

func TestParseValueType(t *testing.T) {
	cases := map[string]ValueType{
		"long":      TypeLong,
		"double":    TypeDouble,
		"float":     TypeDouble,
		"string":    TypeString,
		"boolean":   TypeBoolean,
		"long[]":    TypeLongArray,
		"double[]":  TypeDoubleArray,
		"float[]":   TypeFloatArray,
		"string[]":  TypeStringArray,
		"boolean[]": TypeBooleanArray,
	}
	for token, want := range cases {
		got, err := ParseValueType(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestParseValueType_UnknownToken(t *testing.T) {
	_, err := ParseValueType("decimal")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidValueType, apperrors.GetErrorCode(err))
}

func TestValueType_IsArray(t *testing.T) {
	assert.False(t, TypeLong.IsArray())
	assert.False(t, TypeString.IsArray())
	assert.True(t, TypeLongArray.IsArray())
	assert.True(t, TypeBooleanArray.IsArray())
}

func TestOf_Inference(t *testing.T) {
	v, err := Of(42)
	require.NoError(t, err)
	assert.Equal(t, TypeLong, v.Type())

	v, err = Of(3.14)
	require.NoError(t, err)
	assert.Equal(t, TypeDouble, v.Type())

	v, err = Of([]int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, TypeLongArray, v.Type())

	_, err = Of(struct{}{})
	require.Error(t, err)
}

func TestCoerce_Widening(t *testing.T) {
	v, err := Coerce(LongValue(7), TypeDouble)
	require.NoError(t, err)
	assert.Equal(t, DoubleValue(7), v)

	v, err = Coerce(LongArrayValue{1, 2}, TypeDoubleArray)
	require.NoError(t, err)
	assert.Equal(t, DoubleArrayValue{1, 2}, v)

	v, err = Coerce(FloatArrayValue{1.5}, TypeDoubleArray)
	require.NoError(t, err)
	assert.Equal(t, DoubleArrayValue{1.5}, v)
}

func TestCoerce_Mismatch(t *testing.T) {
	_, err := Coerce(StringValue("x"), TypeLong)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePropertyTypeMismatch, apperrors.GetErrorCode(err))

	_, err = Coerce(DoubleValue(1.0), TypeLong)
	require.Error(t, err, "doubles never narrow to long columns")
}

func TestCoerce_NilUsesDefault(t *testing.T) {
	v, err := Coerce(nil, TypeLong)
	require.NoError(t, err)
	assert.Equal(t, LongValue(0), v)
}

func TestPropertyValues_Basic(t *testing.T) {
	p := NewPropertyValues()
	assert.True(t, p.IsEmpty())

	p.Put("name", StringValue("alice"))
	p.Put("age", LongValue(30))

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, StringValue("alice"), p.Get("name"))
	assert.Nil(t, p.Get("missing"))
	assert.True(t, p.Has("age"))
	assert.Equal(t, []string{"name", "age"}, p.Keys())
}

func TestPropertyValues_PutReplaces(t *testing.T) {
	p := NewPropertyValues()
	p.Put("score", LongValue(1))
	p.Put("score", LongValue(2))

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, LongValue(2), p.Get("score"))
}

func TestPropertyValues_ForEachOrder(t *testing.T) {
	p := NewPropertyValues()
	p.Put("c", LongValue(3))
	p.Put("a", LongValue(1))
	p.Put("b", LongValue(2))

	var order []string
	err := p.ForEach(func(key string, value Value) error {
		order = append(order, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestPropertyValues_Reset(t *testing.T) {
	p := NewPropertyValues()
	p.Put("x", LongValue(1))
	p.Reset()

	assert.True(t, p.IsEmpty())
	assert.False(t, p.Has("x"))

	p.Put("y", LongValue(2))
	assert.Equal(t, []string{"y"}, p.Keys())
}
