package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/leapstack-labs/sqlshade/internal/testutil"
	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewRenderCommand(), "render <template>", []string{"data", "set"}},
		{NewCheckCommand(), "check [paths...]", nil},
		{NewListCommand(), "list", nil},
		{NewWatchCommand(), "watch", nil},
		{NewVersionCommand("1.2.3"), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag %s", name)
			}
		})
	}

	assert.Equal(t, "d", NewRenderCommand().Flags().Lookup("data").Shorthand)
}

func TestParseSetValues(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr string
	}{
		{
			name:  "scalars",
			pairs: []string{"nickname=kjim", "status=1", "active=true", "ratio=0.5"},
			want:  map[string]any{"nickname": "kjim", "status": 1, "active": true, "ratio": 0.5},
		},
		{
			name:  "list",
			pairs: []string{"ids=[1, 2]"},
			want:  map[string]any{"ids": []any{1, 2}},
		},
		{
			name:  "dotted keys nest",
			pairs: []string{"user.name=kjim", "user.age=30"},
			want:  map[string]any{"user": map[string]any{"name": "kjim", "age": 30}},
		},
		{
			name:  "empty value is empty string",
			pairs: []string{"name="},
			want:  map[string]any{"name": ""},
		},
		{
			name:  "value keeps later equals signs",
			pairs: []string{"expr=a=b"},
			want:  map[string]any{"expr": "a=b"},
		},
		{
			name:    "missing equals",
			pairs:   []string{"nickname"},
			wantErr: "expected key=value",
		},
		{
			name:    "empty key",
			pairs:   []string{"=1"},
			wantErr: "expected key=value",
		},
		{
			name:    "empty segment",
			pairs:   []string{"user..name=x"},
			wantErr: "empty key segment",
		},
		{
			name:    "scalar then nested",
			pairs:   []string{"user=x", "user.name=y"},
			wantErr: `"user" is already set to a non-map value`,
		},
		{
			name:    "bad yaml",
			pairs:   []string{"ids=[1, 2"},
			wantErr: "invalid --set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSetValues(tt.pairs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindingRows(t *testing.T) {
	positional := &sqlshade.Query{
		SQL:   "SELECT ? , ?",
		Args:  []any{"kjim", nil},
		Style: sqlshade.Positional,
	}
	assert.Equal(t, []string{"#", "Value", "Type"}, bindingHeader(positional))
	assert.Equal(t, [][]any{
		{1, `"kjim"`, "string"},
		{2, "NULL", "<nil>"},
	}, bindingRows(positional))

	named := &sqlshade.Query{
		SQL:   "SELECT :b, :a",
		Named: map[string]any{"a": 1, "b": true},
		Names: []string{"b", "a"},
		Style: sqlshade.Named,
	}
	assert.Equal(t, []string{"Name", "Value", "Type"}, bindingHeader(named))
	assert.Equal(t, [][]any{
		{":b", "true", "bool"},
		{":a", "1", "int"},
	}, bindingRows(named))
}

func TestCheckError(t *testing.T) {
	_, parseErr := sqlshade.New("SELECT 1\n/*#if :x*/", sqlshade.WithFilename("q.sql"))
	require.Error(t, parseErr)

	ce := checkError("q.sql", &loader.LoadError{Path: "q.sql", Err: parseErr})
	assert.Equal(t, "q.sql", ce.Path)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, 1, ce.Column)
	assert.Equal(t, "unclosed 'if' control (missing '/*#endif*/')", ce.Message)
	assert.Equal(t, "q.sql:2:1", location(ce))

	plain := checkError("q.sql", errors.New("q.sql: permission denied"))
	assert.Equal(t, "permission denied", plain.Message)
	assert.Zero(t, plain.Line)
	assert.Equal(t, "q.sql", location(plain))
}

func TestRelPath(t *testing.T) {
	dir := t.TempDir()

	rel, err := relPath(dir, filepath.Join(dir, "reports", "daily.sql"))
	require.NoError(t, err)
	assert.Equal(t, "reports/daily.sql", rel)

	_, err = relPath(dir, "relative.sql")
	assert.Error(t, err)
}

func TestReportWatch(t *testing.T) {
	dir := testutil.TemplateDir(t, map[string]string{
		"ok.sql":     "SELECT /*:a*/1",
		"broken.sql": "SELECT 1 /*#if :x*/AND 1",
	})
	l, err := loader.New(dir, loader.Options{})
	require.NoError(t, err)

	result, err := l.LoadAll(t.Context())
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.Len(t, result.Errors, 1)

	var out bytes.Buffer
	r := output.NewRendererWithTTY(&out, &out, false, output.ModeJSON)

	reportWatch(r, l, loader.WatchEvent{Path: result.Entries[0].Path, Entry: result.Entries[0]})
	reportWatch(r, l, loader.WatchEvent{Path: result.Errors[0].Path, Err: result.Errors[0].Err})
	reportWatch(r, l, loader.WatchEvent{Path: filepath.Join(dir, "gone.sql"), Removed: true})

	assert.Equal(t,
		`{"path":"ok.sql","status":"ok","message":"1 idents"}`+"\n"+
			`{"path":"broken.sql:1:10","status":"error","message":"unclosed 'if' control (missing '/*#endif*/')"}`+"\n"+
			`{"path":"gone.sql","status":"removed"}`+"\n",
		out.String())
}
