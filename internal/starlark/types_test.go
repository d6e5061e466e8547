package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{
			name:    "string",
			input:   "hello",
			wantStr: `"hello"`,
		},
		{
			name:    "int",
			input:   42,
			wantStr: "42",
		},
		{
			name:    "int64",
			input:   int64(123456789),
			wantStr: "123456789",
		},
		{
			name:    "int32",
			input:   int32(-7),
			wantStr: "-7",
		},
		{
			name:    "float64",
			input:   3.14,
			wantStr: "3.14",
		},
		{
			name:    "bool true",
			input:   true,
			wantStr: "True",
		},
		{
			name:    "nil",
			input:   nil,
			wantStr: "None",
		},
		{
			name:    "string slice",
			input:   []string{"a", "b", "c"},
			wantStr: `["a", "b", "c"]`,
		},
		{
			name:    "int slice",
			input:   []int{1, 2},
			wantStr: `[1, 2]`,
		},
		{
			name:    "any slice",
			input:   []any{"x", 1, true},
			wantStr: `["x", 1, True]`,
		},
		{
			name:    "map with sorted keys",
			input:   map[string]any{"b": "2", "a": 1},
			wantStr: `{"a": 1, "b": "2"}`,
		},
		{
			name:    "string map",
			input:   map[string]string{"env": "prod"},
			wantStr: `{"env": "prod"}`,
		},
		{
			name:    "non-string map keys",
			input:   map[int]string{1: "a"},
			wantErr: true,
		},
		{
			name:    "channel",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}
			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.wantStr, got.String(), "GoToStarlark()")
		})
	}
}

func TestToGo(t *testing.T) {
	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{
			name:  "string",
			input: starlark.String("hello"),
			want:  "hello",
		},
		{
			name:  "int",
			input: starlark.MakeInt(42),
			want:  int64(42),
		},
		{
			name:  "float",
			input: starlark.Float(3.14),
			want:  3.14,
		},
		{
			name:  "bool false",
			input: starlark.Bool(false),
			want:  false,
		},
		{
			name:  "none",
			input: starlark.None,
			want:  nil,
		},
		{
			name:  "list",
			input: starlark.NewList([]starlark.Value{starlark.String("a"), starlark.MakeInt(1)}),
			want:  []any{"a", int64(1)},
		},
		{
			name:  "empty list",
			input: starlark.NewList(nil),
			want:  []any{},
		},
		{
			name:  "tuple",
			input: starlark.Tuple{starlark.True, starlark.None},
			want:  []any{true, nil},
		},
		{
			name: "struct",
			input: starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
				"id":   starlark.MakeInt(1),
				"tags": starlark.NewList([]starlark.Value{starlark.String("x")}),
			}),
			want: map[string]any{"id": int64(1), "tags": []any{"x"}},
		},
		{
			name: "dict with non-string key",
			input: func() starlark.Value {
				d := starlark.NewDict(1)
				_ = d.SetKey(starlark.MakeInt(1), starlark.String("x"))
				return d
			}(),
			wantErr: true,
		},
		{
			name:    "builtin",
			input:   starlark.NewBuiltin("f", getenv),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}
			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.want, got, "ToGo()")
		})
	}
}

func TestRoundTrip_NestedData(t *testing.T) {
	in := map[string]any{
		"filters": map[string]any{"status": int64(1), "names": []any{"a", "b"}},
		"limit":   int64(10),
	}
	sv, err := GoToStarlark(in)
	require.NoError(t, err)

	out, err := ToGo(sv)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
