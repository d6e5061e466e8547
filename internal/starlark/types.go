// Package starlark evaluates Starlark data files into template data and
// converts values between Go and Starlark.
package starlark

import (
	"fmt"
	"reflect"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: nil, strings, bools, integers, floats, slices, arrays and
// string-keyed maps of supported types.
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case starlark.Value:
		return val, nil

	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case uint64:
		return starlark.MakeUint64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil
	}

	return reflectToStarlark(reflect.ValueOf(v))
}

// reflectToStarlark covers the remaining numeric kinds and typed
// collections such as []int or map[string]string.
func reflectToStarlark(rv reflect.Value) (starlark.Value, error) {
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32:
		return starlark.Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return GoToStarlark(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type: %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return GoToStarlark(m)
	case reflect.Pointer:
		if rv.IsNil() {
			return starlark.None, nil
		}
		return GoToStarlark(rv.Elem().Interface())
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Fallback for very large integers - convert to string
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		return sequenceToGo(val, "list")

	case starlark.Tuple:
		return sequenceToGo(val, "tuple")

	case *starlark.Set:
		return sequenceToGo(val, "set")

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case *starlarkstruct.Struct:
		result := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			gv, err := ToGo(attr)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			result[name] = gv
		}
		return result, nil

	case starlark.Callable:
		return nil, fmt.Errorf("cannot convert %s %q to data", val.Type(), val.Name())

	default:
		// Try to get a string representation
		return val.String(), nil
	}
}

func sequenceToGo(seq starlark.Iterable, kind string) ([]any, error) {
	var result []any
	iter := seq.Iterate()
	defer iter.Done()

	var item starlark.Value
	for i := 0; iter.Next(&item); i++ {
		gv, err := ToGo(item)
		if err != nil {
			return nil, fmt.Errorf("%s index %d: %w", kind, i, err)
		}
		result = append(result, gv)
	}
	if result == nil {
		result = []any{}
	}
	return result, nil
}
