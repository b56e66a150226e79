package schema

import (
	"encoding/json"
	"reflect"
)

// toFloat widens any Go numeric kind (and json.Number) to float64.
// Number reports v as a float64 when it holds any Go numeric type or a
// json.Number. Validators use it so that ints written by code and floats
// decoded from JSON are checked alike.
func Number(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isList(v any) bool {
	if _, ok := v.([]any); ok {
		return true
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isMap(v any) bool {
	if _, ok := v.(map[string]any); ok {
		return true
	}
	return reflect.ValueOf(v).Kind() == reflect.Map
}

// asData narrows an untyped value to Data without copying when possible.
func asData(v any) (Data, bool) {
	switch d := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return d, d != nil
	case *Instance:
		if d == nil || d.Data == nil {
			return nil, false
		}
		return d.Data, true
	case Instance:
		return d.Data, d.Data != nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String && !rv.IsNil() {
		out, _ := normalize(v).(map[string]any)
		return out, out != nil
	}
	return nil, false
}

// normalize deep-copies v into the JSON-like shapes used for erased data:
// slices become []any and string-keyed maps become map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case string, bool, float64, int, json.Number:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}

// ToData narrows an untyped value to Data. Maps with string keys of any
// other Go type are converted.
func ToData(v any) (Data, bool) {
	return asData(v)
}
