// Package config provides configuration management for the sqlshade CLI.
//
// Values are layered with koanf: built-in defaults, then sqlshade.yaml, then
// SQLSHADE_* environment variables, then explicitly set command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	TemplatesDir string               `koanf:"templates_dir"`
	Strict       bool                 `koanf:"strict"`
	Style        string               `koanf:"style"`
	Encoding     string               `koanf:"encoding"`
	CacheSize    int                  `koanf:"cache_size"`
	Data         []string             `koanf:"data"` // data files loaded before --data
	Vars         map[string]any       `koanf:"vars"` // base render data, visible to .star files
	Environment  string               `koanf:"environment"`
	Environments map[string]EnvConfig `koanf:"environments"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	TemplatesDir string         `koanf:"templates_dir"`
	Data         []string       `koanf:"data"`
	Vars         map[string]any `koanf:"vars"`
}

// Default configuration values.
const (
	DefaultTemplatesDir = "queries"
	DefaultStyle        = "positional"
	DefaultCacheSize    = 128
	DefaultLogLevel     = "warn"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// ConfigFileNames are the config file names searched for, in order.
var ConfigFileNames = []string{"sqlshade.yaml", "sqlshade.yml"}

// ValidOutputs lists the accepted output formats.
var ValidOutputs = []string{"auto", "text", "markdown", "json", "table"}

// ValidLogLevels lists the accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}
