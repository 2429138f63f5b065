// Package convert coerces deserialized values back into the Go types a caller declared.
//
// Serializers do not all preserve Go types: JSON and protobuf Struct carry every number as a
// double (or json.Number) and every struct as an object. A Converter bridges that gap on both
// sides of a call: the server coerces arguments to the target method's parameter types and the
// client coerces returned data to the expected result type.
package convert

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Converter converts value to target, reporting false instead of panicking when no safe
// coercion exists.
type Converter interface {
	TryConvert(value any, target reflect.Type) (any, bool)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(value any, target reflect.Type) (any, bool)

func (f ConverterFunc) TryConvert(value any, target reflect.Type) (any, bool) {
	return f(value, target)
}

// Default is the converter used when none is configured.
var Default Converter = DefaultConverter{}

// DefaultConverter handles identity, nil, numeric width and representation changes, element-wise
// slices, arrays and maps, and JSON-shaped objects into structs.
type DefaultConverter struct{}

func (DefaultConverter) TryConvert(value any, target reflect.Type) (any, bool) {
	v, ok := convertValue(value, target)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// To converts value to T with c, or Default when c is nil.
func To[T any](c Converter, value any) (T, bool) {
	var zero T
	if c == nil {
		c = Default
	}
	out, ok := c.TryConvert(value, reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return zero, false
	}
	if out == nil {
		return zero, true
	}
	t, ok := out.(T)
	return t, ok
}

var jsonNumberType = reflect.TypeOf((*json.Number)(nil)).Elem()

func convertValue(value any, target reflect.Type) (reflect.Value, bool) {
	if value == nil {
		switch target.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(target), true
		}
		return reflect.Value{}, false
	}

	src := reflect.ValueOf(value)
	if src.Type() == target {
		return src, true
	}
	if target.Kind() == reflect.Interface {
		if src.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(src)
			return out, true
		}
		return reflect.Value{}, false
	}

	if src.Type() == jsonNumberType && target.Kind() != reflect.Pointer {
		return convertNumber(value.(json.Number), target)
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		if isNumeric(src.Kind()) {
			return convertNumeric(src, target)
		}
	case reflect.String, reflect.Bool:
		if src.Kind() == target.Kind() {
			return src.Convert(target), true
		}
	case reflect.Pointer:
		elem, ok := convertValue(value, target.Elem())
		if !ok {
			return reflect.Value{}, false
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, true
	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 && src.Kind() == reflect.String {
			return reflectJSON(value, target)
		}
		if src.Kind() == reflect.Slice || src.Kind() == reflect.Array {
			return convertSequence(src, target)
		}
	case reflect.Array:
		if (src.Kind() == reflect.Slice || src.Kind() == reflect.Array) && src.Len() == target.Len() {
			return convertSequence(src, target)
		}
	case reflect.Map:
		if src.Kind() == reflect.Map {
			return convertMap(src, target)
		}
	case reflect.Struct:
		if src.Kind() == reflect.Map || src.Kind() == reflect.Struct {
			return reflectJSON(value, target)
		}
	}

	if src.Type().ConvertibleTo(target) && src.Kind() == target.Kind() {
		return src.Convert(target), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertNumeric converts between numeric kinds, refusing conversions that would overflow the
// target or drop a fractional part.
func convertNumeric(src reflect.Value, target reflect.Type) (reflect.Value, bool) {
	out := reflect.New(target).Elem()

	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := src.Int()
		switch {
		case out.CanInt():
			if out.OverflowInt(i) {
				return reflect.Value{}, false
			}
			out.SetInt(i)
		case out.CanUint():
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, false
			}
			out.SetUint(uint64(i))
		default:
			out.SetFloat(float64(i))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		switch {
		case out.CanInt():
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return reflect.Value{}, false
			}
			out.SetInt(int64(u))
		case out.CanUint():
			if out.OverflowUint(u) {
				return reflect.Value{}, false
			}
			out.SetUint(u)
		default:
			out.SetFloat(float64(u))
		}
	default:
		f := src.Float()
		switch {
		case out.CanInt():
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return reflect.Value{}, false
			}
			out.SetInt(int64(f))
		case out.CanUint():
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return reflect.Value{}, false
			}
			out.SetUint(uint64(f))
		default:
			if target.Kind() == reflect.Float32 && !math.IsInf(f, 0) && out.OverflowFloat(f) {
				return reflect.Value{}, false
			}
			out.SetFloat(f)
		}
	}
	return out, true
}

func convertNumber(n json.Number, target reflect.Type) (reflect.Value, bool) {
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return convertNumeric(reflect.ValueOf(i), target)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return convertNumeric(reflect.ValueOf(u), target)
		}
	case reflect.String:
		return reflect.ValueOf(string(n)).Convert(target), true
	}
	if !isNumeric(target.Kind()) {
		return reflect.Value{}, false
	}
	f, err := n.Float64()
	if err != nil {
		return reflect.Value{}, false
	}
	return convertNumeric(reflect.ValueOf(f), target)
}

func convertSequence(src reflect.Value, target reflect.Type) (reflect.Value, bool) {
	var out reflect.Value
	if target.Kind() == reflect.Array {
		out = reflect.New(target).Elem()
	} else {
		out = reflect.MakeSlice(target, src.Len(), src.Len())
	}
	for i := 0; i < src.Len(); i++ {
		elem, ok := convertValue(src.Index(i).Interface(), target.Elem())
		if !ok {
			return reflect.Value{}, false
		}
		out.Index(i).Set(elem)
	}
	return out, true
}

func convertMap(src reflect.Value, target reflect.Type) (reflect.Value, bool) {
	out := reflect.MakeMapWithSize(target, src.Len())
	iter := src.MapRange()
	for iter.Next() {
		key, ok := convertValue(iter.Key().Interface(), target.Key())
		if !ok {
			return reflect.Value{}, false
		}
		val, ok := convertValue(iter.Value().Interface(), target.Elem())
		if !ok {
			return reflect.Value{}, false
		}
		out.SetMapIndex(key, val)
	}
	return out, true
}

// reflectJSON re-encodes value through JSON into a fresh target value. It covers objects that
// arrive as map[string]any and byte slices that arrive as base64 strings.
func reflectJSON(value any, target reflect.Type) (reflect.Value, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, false
	}
	ptr := reflect.New(target)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, false
	}
	return ptr.Elem(), true
}
