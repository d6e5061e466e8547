package template

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ParamStyle selects how bound values are spelled in the rendered SQL.
type ParamStyle int

// ParamStyle constants.
const (
	StylePositional ParamStyle = iota // ? markers, values as an ordered list
	StyleNamed                        // :name markers, values keyed by name
)

func (s ParamStyle) String() string {
	switch s {
	case StylePositional:
		return "positional"
	case StyleNamed:
		return "named"
	default:
		return "unknown"
	}
}

// ParseParamStyle accepts "positional"/"list" and "named"/"dict".
func ParseParamStyle(s string) (ParamStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "positional", "list":
		return StylePositional, nil
	case "named", "dict":
		return StyleNamed, nil
	default:
		return StylePositional, fmt.Errorf("unsupported parameter style: %q", s)
	}
}

// LoopFrame records the alias and 1-based index of one for iteration.
type LoopFrame struct {
	Alias  string
	Value  any
	Index  int
	parent *LoopFrame
}

// Scope is the data view of a single render call. It is never shared
// between renders.
type Scope struct {
	data   map[string]any
	strict bool
	style  ParamStyle
	loop   *LoopFrame
	depth  int // embed/eval nesting
}

// NewScope creates the top-level scope for a render.
func NewScope(data map[string]any, strict bool, style ParamStyle) *Scope {
	if data == nil {
		data = map[string]any{}
	}
	return &Scope{data: data, strict: strict, style: style}
}

// Strict reports whether missing identifiers are errors.
func (s *Scope) Strict() bool { return s.strict }

// Style returns the parameter style of the render.
func (s *Scope) Style() ParamStyle { return s.style }

// Loop returns the innermost loop frame, or nil outside loops.
func (s *Scope) Loop() *LoopFrame { return s.loop }

// withLoop returns a child scope whose alias shadows any outer value.
func (s *Scope) withLoop(alias string, value any, index int) *Scope {
	child := *s
	child.loop = &LoopFrame{Alias: alias, Value: value, Index: index, parent: s.loop}
	return &child
}

// Lookup resolves a dotted identifier. Loop aliases shadow the data mapping,
// innermost first.
func (s *Scope) Lookup(ident string) (any, error) {
	head, rest, _ := strings.Cut(ident, ".")
	for f := s.loop; f != nil; f = f.parent {
		if f.Alias == head {
			if rest == "" {
				return f.Value, nil
			}
			return resolvePath(ident, strings.Split(rest, "."), f.Value)
		}
	}
	return Resolve(ident, s.data)
}

// frameIndexes returns the loop indexes, outermost first, down to the frame
// whose alias is the first segment of ident. It returns nil when ident does
// not refer to a loop alias.
func (s *Scope) frameIndexes(ident string) []int {
	head, _, _ := strings.Cut(ident, ".")
	var chain []*LoopFrame
	for f := s.loop; f != nil; f = f.parent {
		chain = append(chain, f)
	}
	for i, f := range chain {
		if f.Alias != head {
			continue
		}
		indexes := make([]int, 0, len(chain)-i)
		for j := len(chain) - 1; j >= i; j-- {
			indexes = append(indexes, chain[j].Index)
		}
		return indexes
	}
	return nil
}

// Resolve walks data along the dotted path ident. Maps with string keys and
// struct fields (matched by db or json tag, then by name) are traversed.
// A missing segment yields ErrNotFound; an empty segment ErrInvalidPath.
func Resolve(ident string, data map[string]any) (any, error) {
	segments := strings.Split(ident, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, ident)
		}
	}
	v, ok := data[segments[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ident)
	}
	return resolvePath(ident, segments[1:], v)
}

func resolvePath(ident string, segments []string, v any) (any, error) {
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, ident)
		}
		next, ok := field(v, seg)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, ident)
		}
		v = next
	}
	return v, nil
}

// field returns the member name of v.
func field(v any, name string) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		val, found := m[name]
		return val, found
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true

	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if tagName(f.Tag.Get("db")) == name || tagName(f.Tag.Get("json")) == name || f.Name == name {
				return rv.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// Truthy reports whether v enables an if block: true, non-zero numbers,
// non-empty strings and collections, and non-nil pointers to truthy values.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	case reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}

// elements returns the items of a slice or array, or the sorted keys of a
// string-keyed map.
func elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	case reflect.Map:
		keys := sortedKeys(rv)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = k.Interface()
		}
		return items, true
	default:
		return nil, false
	}
}

// sortedKeys orders map keys by their formatted value.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
