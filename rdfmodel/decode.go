package rdfmodel

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
)

// MaxDecodeDepth is the maximum nesting depth for recursive entity decoding.
// This prevents infinite loops when fetched entity graphs contain cycles.
const MaxDecodeDepth = 10

var (
	quadValueType = reflect.TypeOf((*quad.Value)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
	entityPtrType = reflect.TypeOf((*Entity)(nil))
)

// Decode creates a T and populates it from e. Struct fields are matched by
// their `rdf:"name"` tag; the special names @id and @uri receive the numeric
// id and the identity URI. Fields that were not fetched are left untouched.
//
// Supported field types: string, integers, floats, bool, time.Time,
// quad.Value, *Entity, pointers to structs (nested entities), and slices of
// any of those.
func Decode[T any](e *Entity) (*T, error) {
	result := new(T)
	if err := DecodeInto(result, e); err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeInto populates the struct pointed to by target from e.
func DecodeInto(target any, e *Entity) error {
	return decodeWithDepth(target, e, 0)
}

func decodeWithDepth(target any, e *Entity, depth int) error {
	if depth > MaxDecodeDepth {
		return fmt.Errorf("decode depth exceeded maximum of %d (possible cycle in graph)", MaxDecodeDepth)
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer to struct")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must point to a struct, got %s", v.Kind())
	}
	if e == nil {
		return nil
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("rdf"), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		field := v.Field(i)

		switch name {
		case "@id":
			if id, ok := e.ID(); ok {
				if err := setScalar(field, quad.Int(id)); err != nil {
					return &DecodeError{TypeName: e.typ.name, Field: sf.Name, Cause: err}
				}
			}
			continue
		case "@uri":
			if field.Kind() != reflect.String {
				return &DecodeError{TypeName: e.typ.name, Field: sf.Name, Cause: fmt.Errorf("@uri needs a string field")}
			}
			field.SetString(e.URI())
			continue
		}

		val, ok := e.Get(name)
		if !ok || val == nil {
			continue
		}
		if err := setFieldValue(field, val, depth); err != nil {
			return &DecodeError{TypeName: e.typ.name, Field: sf.Name, Cause: err}
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, val any, depth int) error {
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() != reflect.Uint8 {
		return setSliceField(field, val, depth)
	}
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		val = list[0]
	}
	return setSingle(field, val, depth)
}

func setSliceField(field reflect.Value, val any, depth int) error {
	list, ok := val.([]any)
	if !ok {
		list = []any{val}
	}
	slice := reflect.MakeSlice(field.Type(), len(list), len(list))
	for i, item := range list {
		if err := setSingle(slice.Index(i), item, depth); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	field.Set(slice)
	return nil
}

func setSingle(field reflect.Value, val any, depth int) error {
	switch x := val.(type) {
	case *Entity:
		return setEntity(field, x, depth)
	case quad.Value:
		return setScalar(field, x)
	default:
		return fmt.Errorf("unexpected value %T", val)
	}
}

func setEntity(field reflect.Value, e *Entity, depth int) error {
	ft := field.Type()
	switch {
	case ft == entityPtrType:
		field.Set(reflect.ValueOf(e))
		return nil
	case ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct && ft.Elem() != timeType:
		ptr := reflect.New(ft.Elem())
		if err := decodeWithDepth(ptr.Interface(), e, depth+1); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	case ft.Kind() == reflect.Struct && ft != timeType:
		ptr := reflect.New(ft)
		if err := decodeWithDepth(ptr.Interface(), e, depth+1); err != nil {
			return err
		}
		field.Set(ptr.Elem())
		return nil
	default:
		return setScalar(field, e.ref)
	}
}

func setScalar(field reflect.Value, v quad.Value) error {
	ft := field.Type()
	if ft.Kind() == reflect.Ptr && ft != entityPtrType {
		ptr := reflect.New(ft.Elem())
		if err := setScalar(ptr.Elem(), v); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}
	if ft == quadValueType {
		field.Set(reflect.ValueOf(v))
		return nil
	}
	if ft == timeType {
		t, err := coerceToTime(v)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	}

	switch ft.Kind() {
	case reflect.String:
		field.SetString(Lexical(v))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := coerceToInt64(v)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, ft)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := coerceToInt64(v)
		if err != nil {
			return err
		}
		if n < 0 || field.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %s", n, ft)
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := coerceToFloat64(v)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, ok := NativeValue(v).(bool)
		if !ok {
			parsed, err := strconv.ParseBool(Lexical(v))
			if err != nil {
				return fmt.Errorf("cannot coerce %s to bool", v)
			}
			b = parsed
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", ft)
	}
	return nil
}

func coerceToInt64(v quad.Value) (int64, error) {
	switch n := NativeValue(v).(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(Lexical(v)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot coerce %s to integer", v)
	}
	return n, nil
}

func coerceToFloat64(v quad.Value) (float64, error) {
	switch n := NativeValue(v).(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(Lexical(v)), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot coerce %s to float", v)
	}
	return f, nil
}

func coerceToTime(v quad.Value) (time.Time, error) {
	if t, ok := NativeValue(v).(time.Time); ok {
		return t, nil
	}
	s := Lexical(v)
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time string: %q", s)
}
