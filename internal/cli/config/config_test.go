package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig creates a project dir with the given sqlshade.yaml and makes
// it the working directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if content != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlshade.yaml"), []byte(content), 0o600))
	}
	t.Chdir(dir)
	ResetConfig()
	return dir
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("templates-dir", "", "")
	flags.String("style", "", "")
	flags.Bool("strict", true, "")
	flags.String("env", "", "")
	flags.StringP("output", "o", "", "")
	flags.Int("cache-size", 0, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultTemplatesDir), cfg.TemplatesDir)
	assert.True(t, cfg.Strict)
	assert.Equal(t, DefaultStyle, cfg.Style)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := writeConfig(t, `
templates_dir: sql
strict: false
style: named
cache_size: 16
data: [data/base.yaml]
vars:
  region: eu
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sql"), cfg.TemplatesDir)
	assert.False(t, cfg.Strict)
	assert.Equal(t, sqlshade.Named, cfg.ParamStyle())
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, []string{filepath.Join(dir, "data", "base.yaml")}, cfg.Data)
	assert.Equal(t, map[string]any{"region": "eu"}, cfg.Vars)
	assert.Equal(t, filepath.Join(dir, "sqlshade.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_FoundUpward(t *testing.T) {
	dir := writeConfig(t, "templates_dir: sql\n")
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "sql"), cfg.TemplatesDir)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	writeConfig(t, "")
	other := t.TempDir()
	path := filepath.Join(other, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("style: dict\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.ProjectRoot)
	assert.Equal(t, sqlshade.Named, cfg.ParamStyle())

	_, err = LoadConfig(filepath.Join(other, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_Precedence(t *testing.T) {
	writeConfig(t, "style: named\ncache_size: 16\noutput: text\n")
	t.Setenv("SQLSHADE_STYLE", "positional")
	t.Setenv("SQLSHADE_CACHE_SIZE", "32")
	t.Setenv("SQLSHADE_OUTPUT", "table")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--output", "json", "--strict=false"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "positional", cfg.Style, "env overrides file")
	assert.Equal(t, 32, cfg.CacheSize, "env overrides file")
	assert.Equal(t, "json", cfg.OutputFormat, "flag overrides env")
	assert.False(t, cfg.Strict, "set flag is applied")
}

func TestLoadConfig_UnsetFlagsDoNotOverride(t *testing.T) {
	writeConfig(t, "strict: false\nstyle: named\n")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "named", cfg.Style)
}

func TestLoadConfig_TemplatesDirFlagIsRelativeToCwd(t *testing.T) {
	writeConfig(t, "templates_dir: sql\n")
	cwd, err := os.Getwd()
	require.NoError(t, err)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--templates-dir", "other"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "other"), cfg.TemplatesDir)
}

func TestLoadConfig_Environments(t *testing.T) {
	dir := writeConfig(t, `
data: [base.yaml]
vars:
  region: eu
  schema: public
environments:
  prod:
    templates_dir: prod_sql
    data: [prod.yaml]
    vars:
      region: us
      password: ${SQLSHADE_TEST_PASSWORD}
`)
	t.Setenv("SQLSHADE_TEST_PASSWORD", "secret")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--env", "prod"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, filepath.Join(dir, "prod_sql"), cfg.TemplatesDir)
	assert.Equal(t, []string{filepath.Join(dir, "base.yaml"), filepath.Join(dir, "prod.yaml")}, cfg.Data)
	assert.Equal(t, map[string]any{"region": "us", "schema": "public", "password": "secret"}, cfg.Vars)

	flags = testFlags()
	require.NoError(t, flags.Parse([]string{"--env", "staging"}))
	_, err = LoadConfig("", flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown environment "staging"`)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{TemplatesDir: "q", Style: "positional", OutputFormat: "auto", LogLevel: "warn", CacheSize: 1}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "alias style", mutate: func(c *Config) { c.Style = "dict" }},
		{name: "upper log level", mutate: func(c *Config) { c.LogLevel = "DEBUG" }},
		{name: "empty templates dir", mutate: func(c *Config) { c.TemplatesDir = "" }, wantErr: "templates_dir is required"},
		{name: "bad style", mutate: func(c *Config) { c.Style = "numeric" }, wantErr: `invalid style "numeric"`},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: `invalid output "xml"`},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: `invalid log_level "trace"`},
		{name: "zero cache", mutate: func(c *Config) { c.CacheSize = 0 }, wantErr: "cache_size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := &Config{TemplatesDir: t.TempDir()}
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.TemplatesDir = filepath.Join(cfg.TemplatesDir, "missing")
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--templates-dir")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SQLSHADE_TEST_HOST", "db.local")

	assert.Equal(t, "db.local:5432", expandEnvVars("${SQLSHADE_TEST_HOST}:5432"))
	assert.Equal(t, "${SQLSHADE_TEST_UNSET}", expandEnvVars("${SQLSHADE_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))

	vars := map[string]any{
		"nested": map[string]any{"host": "${SQLSHADE_TEST_HOST}"},
		"list":   []any{"${SQLSHADE_TEST_HOST}", 1},
	}
	expandVars(vars)
	assert.Equal(t, map[string]any{
		"nested": map[string]any{"host": "db.local"},
		"list":   []any{"db.local", 1},
	}, vars)
}

func TestGetLogger(t *testing.T) {
	logger := GetLogger(context.Background())
	require.NotNil(t, logger, "falls back to a discard logger")

	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
