package starlark

import (
	"fmt"
	"os"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// builtinNames are reserved and cannot be shadowed by predeclared values.
var builtinNames = map[string]bool{
	"struct": true,
	"getenv": true,
}

// getenv(name, default=None) reads an environment variable.
func getenv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return starlark.String(v), nil
	}
	return def, nil
}

// Predeclared returns the globals visible to a data file: the builtins
// struct() and getenv(), plus vars converted with GoToStarlark.
func Predeclared(vars map[string]any) (starlark.StringDict, error) {
	globals := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"getenv": starlark.NewBuiltin("getenv", getenv),
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if builtinNames[name] {
			return nil, fmt.Errorf("predeclared value %q conflicts with builtin", name)
		}
		v, err := GoToStarlark(vars[name])
		if err != nil {
			return nil, fmt.Errorf("predeclared value %q: %w", name, err)
		}
		globals[name] = v
	}
	return globals, nil
}
