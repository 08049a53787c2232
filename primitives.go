package typedjson

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf16"
)

// numKind records which representation of a generic number is exact.
type numKind int

const (
	numFloat numKind = iota
	numInt
	numUint
)

type number struct {
	kind numKind
	f    float64
	i    int64
	u    uint64
}

// toNumber reads any Go numeric value, or a json.Number style value, as a
// generic number.
func toNumber(raw any) (number, bool) {
	switch n := raw.(type) {
	case float64:
		return number{kind: numFloat, f: n}, true
	case float32:
		return number{kind: numFloat, f: float64(n)}, true
	case interface{ Int64() (int64, error) }:
		if i, err := n.Int64(); err == nil {
			return number{kind: numInt, i: i, f: float64(i)}, true
		}
		if fl, ok := raw.(interface{ Float64() (float64, error) }); ok {
			if f, err := fl.Float64(); err == nil {
				return number{kind: numFloat, f: f}, true
			}
		}
		return number{}, false
	}
	v := reflect.ValueOf(raw)
	switch {
	case !v.IsValid():
		return number{}, false
	case isIntKind(v.Kind()):
		return number{kind: numInt, i: v.Int(), f: float64(v.Int())}, true
	case isUintKind(v.Kind()):
		return number{kind: numUint, u: v.Uint(), f: float64(v.Uint())}, true
	case isFloatKind(v.Kind()):
		return number{kind: numFloat, f: v.Float()}, true
	}
	return number{}, false
}

// integer returns n as an int64 when it holds an integral value in range.
func (n number) integer() (int64, error) {
	switch n.kind {
	case numInt:
		return n.i, nil
	case numUint:
		if n.u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", n.u)
		}
		return int64(n.u), nil
	}
	if math.IsNaN(n.f) || math.IsInf(n.f, 0) || n.f != math.Trunc(n.f) {
		return 0, fmt.Errorf("%v is not an integer", n.f)
	}
	if n.f < math.MinInt64 || n.f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", n.f)
	}
	return int64(n.f), nil
}

// unsigned returns n as a uint64 when it holds a non-negative integral value.
func (n number) unsigned() (uint64, error) {
	switch n.kind {
	case numUint:
		return n.u, nil
	case numInt:
		if n.i < 0 {
			return 0, fmt.Errorf("%d is negative", n.i)
		}
		return uint64(n.i), nil
	}
	if math.IsNaN(n.f) || math.IsInf(n.f, 0) || n.f != math.Trunc(n.f) {
		return 0, fmt.Errorf("%v is not an integer", n.f)
	}
	if n.f < 0 || n.f >= math.MaxUint64 {
		return 0, fmt.Errorf("%v overflows uint64", n.f)
	}
	return uint64(n.f), nil
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}

func isPrimitiveKind(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Bool || isNumericKind(k)
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// isNumericSlice reports whether t is a typed numeric array such as []float32.
func isNumericSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && !isByteSlice(t) && isNumericKind(t.Elem().Kind())
}

// isValueType reports whether t is converted by the primitive strategies.
func isValueType(t reflect.Type) bool {
	return t == typeTime || isByteSlice(t) || isNumericSlice(t) || isPrimitiveKind(t.Kind())
}

// decodePrimitive converts raw into a value of t. ok is false when t is not
// a primitive or built-in value type.
func decodePrimitive(raw any, t reflect.Type, path string, d Descriptor) (reflect.Value, bool, error) {
	var (
		v   reflect.Value
		err error
	)
	switch {
	case t == typeTime:
		v, err = decodeTime(raw)
	case isByteSlice(t):
		v, err = decodeBytes(raw, t)
	case isNumericSlice(t):
		v, err = decodeNumbers(raw, t)
	case isPrimitiveKind(t.Kind()):
		v, err = decodeScalar(raw, t)
	default:
		return reflect.Value{}, false, nil
	}
	if err != nil {
		return reflect.Value{}, true, newConversionError(ErrShapeMismatch, path, d, err)
	}
	return v, true, nil
}

func decodeScalar(raw any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch k := t.Kind(); {
	case k == reflect.String:
		s, ok := raw.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("got %T", raw)
		}
		out.SetString(s)
	case k == reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return reflect.Value{}, fmt.Errorf("got %T", raw)
		}
		out.SetBool(b)
	default:
		n, ok := toNumber(raw)
		if !ok {
			return reflect.Value{}, fmt.Errorf("got %T", raw)
		}
		if err := setNumber(out, n); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}

// setNumber stores n in out, rejecting fractional values for integer kinds
// and values that do not fit.
func setNumber(out reflect.Value, n number) error {
	switch k := out.Kind(); {
	case isIntKind(k):
		i, err := n.integer()
		if err != nil {
			return err
		}
		if out.OverflowInt(i) {
			return fmt.Errorf("%d overflows %s", i, out.Type())
		}
		out.SetInt(i)
	case isUintKind(k):
		u, err := n.unsigned()
		if err != nil {
			return err
		}
		if out.OverflowUint(u) {
			return fmt.Errorf("%d overflows %s", u, out.Type())
		}
		out.SetUint(u)
	case isFloatKind(k):
		if out.OverflowFloat(n.f) {
			return fmt.Errorf("%v overflows %s", n.f, out.Type())
		}
		out.SetFloat(n.f)
	}
	return nil
}

// decodeTime accepts an RFC 3339 string, an integral millisecond timestamp or
// a time.Time produced by a decoder that understands timestamps.
func decodeTime(raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return reflect.ValueOf(v), nil
	case string:
		tm, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tm), nil
	}
	n, ok := toNumber(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("got %T", raw)
	}
	ms, err := n.integer()
	if err != nil {
		return reflect.Value{}, fmt.Errorf("timestamp: %w", err)
	}
	return reflect.ValueOf(time.UnixMilli(ms).UTC()), nil
}

// decodeBytes accepts the 16-bit code unit string form or an array of byte
// values. Array elements are truncated and wrapped like typed arrays.
func decodeBytes(raw any, t reflect.Type) (reflect.Value, error) {
	if s, ok := raw.(string); ok {
		return reflect.ValueOf(stringToUnits(s)).Convert(t), nil
	}
	return decodeNumbers(raw, t)
}

// decodeNumbers builds a typed numeric slice. Integer element types coerce
// by truncation toward zero and wrap on overflow.
func decodeNumbers(raw any, t reflect.Type) (reflect.Value, error) {
	items, ok := asArray(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("got %T", raw)
	}
	out := reflect.MakeSlice(t, len(items), len(items))
	ek := t.Elem().Kind()
	for i, item := range items {
		n, ok := toNumber(item)
		if !ok {
			return reflect.Value{}, fmt.Errorf("element %d: got %T", i, item)
		}
		el := out.Index(i)
		switch {
		case isFloatKind(ek):
			el.SetFloat(n.f)
		case isIntKind(ek):
			el.SetInt(truncInt(n))
		default:
			el.SetUint(uint64(truncInt(n)))
		}
	}
	return out, nil
}

// truncInt truncates n toward zero. Setting the result on a narrower kind
// keeps the low-order bits.
func truncInt(n number) int64 {
	switch n.kind {
	case numInt:
		return n.i
	case numUint:
		return int64(n.u)
	}
	if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
		return 0
	}
	return int64(n.f)
}

// encodePrimitive renders a primitive or built-in value. ok is false when t
// is not handled here.
func encodePrimitive(v reflect.Value, t reflect.Type, path string, d Descriptor) (any, bool, error) {
	switch {
	case t == typeTime:
		tm, ok := v.Interface().(time.Time)
		if !ok {
			return nil, true, newConversionError(ErrShapeMismatch, path, d, fmt.Errorf("got %s", v.Type()))
		}
		return tm.UTC().Format(time.RFC3339Nano), true, nil
	case isByteSlice(t):
		s, err := unitsToString(v.Bytes())
		if err != nil {
			return nil, true, newConversionError(ErrBinaryEncoding, path, d, err)
		}
		return s, true, nil
	case isNumericSlice(t):
		out := make([]any, v.Len())
		for i := range out {
			out[i] = encodeNumber(v.Index(i))
		}
		return out, true, nil
	case t.Kind() == reflect.String:
		return v.String(), true, nil
	case t.Kind() == reflect.Bool:
		return v.Bool(), true, nil
	case isNumericKind(t.Kind()):
		return encodeNumber(v), true, nil
	}
	return nil, false, nil
}

func encodeNumber(v reflect.Value) any {
	switch k := v.Kind(); {
	case isIntKind(k):
		return v.Int()
	case isUintKind(k):
		return v.Uint()
	}
	return v.Float()
}

var errOddLength = errors.New("odd byte length")

// unitsToString reads b as little-endian 16-bit code units.
func unitsToString(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: %d", errOddLength, len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return "", fmt.Errorf("unpaired surrogate %#04x at unit %d", u, i)
			}
			i++
		case u >= 0xDC00 && u <= 0xDFFF:
			return "", fmt.Errorf("unpaired surrogate %#04x at unit %d", u, i)
		}
	}
	return string(utf16.Decode(units)), nil
}

// stringToUnits writes s as little-endian 16-bit code units.
func stringToUnits(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}

// asArray views raw as a list.
func asArray(raw any) ([]any, bool) {
	if items, ok := raw.([]any); ok {
		return items, true
	}
	v := reflect.ValueOf(raw)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) || isByteSlice(v.Type()) {
		return nil, false
	}
	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, true
}
