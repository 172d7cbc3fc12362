package primitive

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrowFloat(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0, "0"},
		{3, "3"},
		{-12, "-12"},
		{2.5, "2.5"},
		{1e21, "1e+21"},
		{0.1, "0.1"},
	}

	for _, tt := range tests {
		got, err := NarrowFloat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "NarrowFloat(%v)", tt.in)
	}

	_, err := NarrowFloat(math.NaN())
	assert.ErrorIs(t, err, ErrNotRepresentable)

	_, err = NarrowFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrNotRepresentable)
}

func TestFormatNumber(t *testing.T) {
	type Weight float32

	tests := []struct {
		in       any
		expected string
	}{
		{float32(0.1), "0.1"},
		{float32(1.5), "1.5"},
		{float32(16777216), "16777216"},
		{Weight(2.3), "2.3"},
		{0.1, "0.1"},
		{int8(-3), "-3"},
		{uint64(math.MaxUint64), "18446744073709551615"},
	}

	for _, tt := range tests {
		got, err := FormatNumber(reflect.ValueOf(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "FormatNumber(%T %v)", tt.in, tt.in)
	}

	_, err := FormatNumber(reflect.ValueOf("x"))
	assert.ErrorIs(t, err, ErrNotNumber)
}

func TestParseNumber(t *testing.T) {
	type Level uint8

	tests := []struct {
		name     string
		text     string
		rtype    reflect.Type
		expected any
		wantErr  bool
	}{
		{"int", "42", reflect.TypeFor[int](), 42, false},
		{"int from integral float text", "5.0", reflect.TypeFor[int](), 5, false},
		{"int from fraction", "5.5", reflect.TypeFor[int](), nil, true},
		{"int8 overflow", "300", reflect.TypeFor[int8](), nil, true},
		{"int8 min", "-128", reflect.TypeFor[int8](), int8(-128), false},
		{"named uint8", "200", reflect.TypeFor[Level](), Level(200), false},
		{"uint negative", "-1", reflect.TypeFor[uint](), nil, true},
		{"uint64 max", "18446744073709551615", reflect.TypeFor[uint64](), uint64(math.MaxUint64), false},
		{"float32", "1.5", reflect.TypeFor[float32](), float32(1.5), false},
		{"float64 from int text", "7", reflect.TypeFor[float64](), float64(7), false},
		{"not a number kind", "1", reflect.TypeFor[string](), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseNumber(tt.text, tt.rtype)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Interface())
		})
	}
}

func TestNarrow(t *testing.T) {
	v, err := Narrow("3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = Narrow("3.0")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = Narrow("3.25")
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)

	_, err = Narrow("abc")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	key, ok := FormatKey(reflect.ValueOf(12))
	require.True(t, ok)
	assert.Equal(t, "12", key)

	key, ok = FormatKey(reflect.ValueOf(1.5))
	require.True(t, ok)
	assert.Equal(t, "1.5", key)

	_, ok = FormatKey(reflect.ValueOf(true))
	assert.False(t, ok)

	v, err := ParseKey("12", reflect.TypeFor[int32]())
	require.NoError(t, err)
	assert.Equal(t, int32(12), v.Interface())

	v, err = ParseKey("name", reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.Equal(t, "name", v.Interface())

	_, err = ParseKey("true", reflect.TypeFor[bool]())
	assert.ErrorIs(t, err, ErrNotNumber)
}
