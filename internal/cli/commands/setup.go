package commands

import (
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlshade/internal/cli/config"
	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewLoader creates a template loader for dir using the configured
// encoding, defaults and cache size.
func (c *CommandContext) NewLoader(dir string) (*loader.Loader, error) {
	return loader.New(dir, loader.Options{
		Encoding:  c.Cfg.Encoding,
		Strict:    c.Cfg.Strict,
		Style:     c.Cfg.ParamStyle(),
		CacheSize: c.Cfg.CacheSize,
		Logger:    c.Logger,
	})
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		TemplatesDir: getEnvOrDefault("SQLSHADE_TEMPLATES_DIR", config.DefaultTemplatesDir),
		Strict:       os.Getenv("SQLSHADE_STRICT") != "false",
		Style:        getEnvOrDefault("SQLSHADE_STYLE", config.DefaultStyle),
		Encoding:     os.Getenv("SQLSHADE_ENCODING"),
		CacheSize:    config.DefaultCacheSize,
		LogLevel:     config.DefaultLogLevel,
		OutputFormat: getEnvOrDefault("SQLSHADE_OUTPUT", config.DefaultOutput),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
