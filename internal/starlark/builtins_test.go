package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestPredeclared(t *testing.T) {
	globals, err := Predeclared(map[string]any{"env": "dev", "ids": []int{1, 2}})
	require.NoError(t, err)

	for _, name := range []string{"struct", "getenv", "env", "ids"} {
		assert.Contains(t, globals, name)
	}
	assert.Equal(t, starlark.String("dev"), globals["env"])
}

func TestPredeclared_Conflict(t *testing.T) {
	_, err := Predeclared(map[string]any{"struct": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with builtin")
}

func TestGetenv(t *testing.T) {
	t.Setenv("SQLSHADE_TEST_REGION", "eu")

	data, err := ExecData("env.star", []byte(`
region = getenv("SQLSHADE_TEST_REGION")
missing = getenv("SQLSHADE_TEST_MISSING", default = "fallback")
none = getenv("SQLSHADE_TEST_MISSING")
`), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"region": "eu", "missing": "fallback", "none": nil}, data)
}
