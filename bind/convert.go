package bind

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/derive/schema/field"
)

// convert coerces a call-site value to the representation drivers expect
// for a property of type t. Nil stays nil.
func convert(t field.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
		v = rv.Interface()
	}
	switch t {
	case field.TypeInt, field.TypeInt64:
		return toInt64(rv)
	case field.TypeFloat:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.String:
			return strconv.ParseFloat(rv.String(), 64)
		}
		n, err := toInt64(rv)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case field.TypeBool:
		switch rv.Kind() {
		case reflect.Bool:
			return rv.Bool(), nil
		case reflect.String:
			return strconv.ParseBool(rv.String())
		}
	case field.TypeString, field.TypeEnum:
		switch v := v.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case field.TypeUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}
	case field.TypeTime:
		switch v := v.(type) {
		case time.Time:
			return v, nil
		case string:
			return time.Parse(time.RFC3339Nano, v)
		}
	case field.TypeBytes:
		switch v := v.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	case field.TypeJSON:
		if _, ok := v.([]byte); ok {
			return v, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return b, nil
	case field.TypeStrings:
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := make([]string, rv.Len())
			for i := range out {
				out[i] = fmt.Sprint(rv.Index(i).Interface())
			}
			return out, nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}

func toInt64(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %s to an integer", rv.Type())
}

// elements returns the elements of a slice or array value.
func elements(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// zero reports if v is nil or the zero value of its type.
func zero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	return rv.IsZero()
}

// scalar reports if v is a plain value rather than an entity instance.
func scalar(v any) bool {
	switch v.(type) {
	case time.Time, uuid.UUID, []byte:
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map
}

// Property reads a dotted property path from an entity instance. Instances
// are maps keyed by property name or structs whose fields match property
// names case-insensitively or carry a `derive:"name"` tag. A nil value on
// the way yields nil.
func Property(entity any, path string) (any, error) {
	v := entity
	for _, name := range strings.Split(path, ".") {
		if v == nil {
			return nil, nil
		}
		next, err := member(v, name)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

func member(v any, name string) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot read %q from %s", name, rv.Type())
		}
		if mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())); mv.IsValid() {
			return mv.Interface(), nil
		}
		iter := rv.MapRange()
		for iter.Next() {
			if strings.EqualFold(iter.Key().String(), name) {
				return iter.Value().Interface(), nil
			}
		}
		return nil, fmt.Errorf("entity has no property %q", name)
	case reflect.Struct:
		t := rv.Type()
		match := -1
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if tag, _, _ := strings.Cut(f.Tag.Get("derive"), ","); tag == name {
				match = i
				break
			}
			if match < 0 && strings.EqualFold(f.Name, name) {
				match = i
			}
		}
		if match < 0 {
			return nil, fmt.Errorf("%s has no property %q", t, name)
		}
		return rv.Field(match).Interface(), nil
	}
	return nil, fmt.Errorf("cannot read %q from %s", name, rv.Type())
}
