package starlark

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// ExecError reports a data file that failed to execute or convert.
type ExecError struct {
	File    string
	Message string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// ExecData executes a Starlark data file and returns its exported globals
// as template data. Names starting with "_" and functions are not exported.
// predeclared values are visible to the file but not exported unless the
// file rebinds them.
func ExecData(path string, src []byte, predeclared map[string]any) (map[string]any, error) {
	globals, err := Predeclared(predeclared)
	if err != nil {
		return nil, &ExecError{File: path, Message: err.Error()}
	}

	pool := NewThreadPool(1, nil)
	thread := pool.Get(path)
	defer pool.Put(thread)

	return execData(thread, path, src, globals)
}

func execData(thread *starlark.Thread, path string, src []byte, predeclared starlark.StringDict) (map[string]any, error) {
	globals, err := starlark.ExecFile(thread, path, src, predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, &ExecError{File: path, Message: evalErr.Backtrace()}
		}
		return nil, &ExecError{File: path, Message: err.Error()}
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make(map[string]any, len(globals))
	for _, name := range names {
		value := globals[name]
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := value.(starlark.Callable); ok {
			continue
		}
		gv, err := ToGo(value)
		if err != nil {
			return nil, &ExecError{File: path, Message: fmt.Sprintf("global %q: %v", name, err)}
		}
		data[name] = gv
	}
	return data, nil
}
