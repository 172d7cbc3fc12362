package primitive

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"datatables/utils"
)

var (
	// ErrNotRepresentable is returned for values that have no number text (NaN, ±Inf).
	ErrNotRepresentable = errors.New("value is not representable as a number")
	// ErrOutOfRange is returned when a number does not fit the target kind.
	ErrOutOfRange = errors.New("number out of range")
	// ErrNotNumber is returned when the target type is not a number kind.
	ErrNotNumber = errors.New("not a number kind")
)

// NarrowFloat renders f with the narrowing policy: values that survive a
// round trip through int64 are written as integers, the rest as floats.
func NarrowFloat(f float64) (string, error) {
	return narrowFloat(f, 64)
}

// narrowFloat formats the fractional case with the shortest text that
// round-trips at the given bit size.
func narrowFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrNotRepresentable
	}

	if f == math.Trunc(f) && utils.IsInRange(-math.Ldexp(1, 63), f, math.Nextafter(math.Ldexp(1, 63), 0)) {
		i := int64(f)
		if float64(i) == f {
			return strconv.FormatInt(i, 10), nil
		}
	}

	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

// IsIntegerText reports whether text parses as an exact integer.
func IsIntegerText(text string) bool {
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseUint(text, 10, 64)

	return err == nil
}

// FormatNumber renders a number value as narrowed number text.
func FormatNumber(v reflect.Value) (string, error) {
	kind := FromReflectType(v.Type())
	switch {
	case kind.IsSigned():
		return strconv.FormatInt(v.Int(), 10), nil
	case kind.IsUnsigned():
		return strconv.FormatUint(v.Uint(), 10), nil
	case kind.IsFloat():
		return narrowFloat(v.Float(), kind.Bits())
	}

	return "", fmt.Errorf("%s: %w", v.Type(), ErrNotNumber)
}

// ParseNumber converts number text into a value of rtype, which must be a
// number kind (possibly named). Fractional text into an integer kind and
// values outside the kind's range fail with ErrOutOfRange.
func ParseNumber(text string, rtype reflect.Type) (reflect.Value, error) {
	kind := FromReflectType(rtype)
	out := reflect.New(rtype).Elem()

	switch {
	case kind.IsSigned():
		i, err := strconv.ParseInt(text, 10, kind.Bits())
		if err != nil {
			f, ferr := strconv.ParseFloat(text, 64)
			limit := math.Ldexp(1, kind.Bits()-1)
			if ferr != nil || f != math.Trunc(f) || !utils.IsInRange(-limit, f, math.Nextafter(limit, 0)) {
				return reflect.Value{}, fmt.Errorf("%q into %s: %w", text, rtype, ErrOutOfRange)
			}
			i = int64(f)
		}
		out.SetInt(i)

	case kind.IsUnsigned():
		u, err := strconv.ParseUint(text, 10, kind.Bits())
		if err != nil {
			f, ferr := strconv.ParseFloat(text, 64)
			limit := math.Ldexp(1, kind.Bits())
			if ferr != nil || f != math.Trunc(f) || !utils.IsInRange(0, f, math.Nextafter(limit, 0)) {
				return reflect.Value{}, fmt.Errorf("%q into %s: %w", text, rtype, ErrOutOfRange)
			}
			u = uint64(f)
		}
		out.SetUint(u)

	case kind.IsFloat():
		f, err := strconv.ParseFloat(text, kind.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%q into %s: %w", text, rtype, ErrOutOfRange)
		}
		out.SetFloat(f)

	default:
		return reflect.Value{}, fmt.Errorf("%s: %w", rtype, ErrNotNumber)
	}

	return out, nil
}

// Narrow converts number text into an int when the text is an exact integer
// that fits, otherwise into a float64. Used for untyped (interface) slots.
func Narrow(text string) (any, error) {
	if i, err := strconv.ParseInt(text, 10, strconv.IntSize); err == nil {
		return int(i), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", text, ErrNotRepresentable)
	}

	limit := math.Ldexp(1, strconv.IntSize-1)
	if f == math.Trunc(f) && utils.IsInRange(-limit, f, math.Nextafter(limit, 0)) {
		return int(f), nil
	}

	return f, nil
}

// FormatKey renders a map key of a supported key domain.
func FormatKey(v reflect.Value) (string, bool) {
	kind := FromReflectType(v.Type())
	if !kind.IsKeyDomain() {
		return "", false
	}

	if kind == KindString {
		return v.String(), true
	}

	text, err := FormatNumber(v)
	if err != nil {
		return "", false
	}

	return text, true
}

// ParseKey converts a wire key back into a map key of rtype.
func ParseKey(text string, rtype reflect.Type) (reflect.Value, error) {
	kind := FromReflectType(rtype)
	if kind == KindString {
		out := reflect.New(rtype).Elem()
		out.SetString(text)
		return out, nil
	}

	if !kind.IsNumber() {
		return reflect.Value{}, fmt.Errorf("%s: %w", rtype, ErrNotNumber)
	}

	return ParseNumber(text, rtype)
}
