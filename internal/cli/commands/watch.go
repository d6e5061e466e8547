package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check templates as they change",
		Long: `Check every template once, then watch the templates directory and
re-check each template when it is written, created or removed.

Stops on Ctrl+C. With --output json every result is one JSON line.`,
		Example: `  # Watch the templates directory
  sqlshade watch

  # Stream results as JSON lines
  sqlshade watch --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	l, err := cmdCtx.NewLoader(cmdCtx.Cfg.TemplatesDir)
	if err != nil {
		return err
	}

	result, err := l.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	for _, e := range result.Entries {
		reportWatch(r, l, loader.WatchEvent{Path: e.Path, Entry: e})
	}
	for _, loadErr := range result.Errors {
		reportWatch(r, l, loader.WatchEvent{Path: loadErr.Path, Err: loadErr.Err})
	}

	if r.EffectiveMode() != output.ModeJSON {
		r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", cmdCtx.Cfg.TemplatesDir))
	}
	cmdCtx.Logger.Info("watching templates", "dir", cmdCtx.Cfg.TemplatesDir)

	return l.Watch(ctx, func(ev loader.WatchEvent) {
		reportWatch(r, l, ev)
	})
}

func reportWatch(r *output.Renderer, l *loader.Loader, ev loader.WatchEvent) {
	name := ev.Path
	if rel, err := relPath(l.Dir(), ev.Path); err == nil {
		name = rel
	}

	out := output.WatchOutput{Path: name}
	switch {
	case ev.Removed:
		out.Status = "removed"
	case ev.Err != nil:
		ce := checkError(ev.Path, ev.Err)
		out.Status = "error"
		out.Message = ce.Message
		if ce.Line > 0 {
			out.Path = fmt.Sprintf("%s:%d:%d", name, ce.Line, ce.Column)
		}
	default:
		out.Status = "ok"
		out.Message = fmt.Sprintf("%d idents", len(ev.Entry.Template.Idents()))
	}

	if r.EffectiveMode() == output.ModeJSON {
		line, err := json.Marshal(out)
		if err == nil {
			r.Println(string(line))
		}
		return
	}
	r.StatusLine(out.Path, out.Status, out.Message)
}

// relPath returns path relative to dir with forward slashes.
func relPath(dir, path string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
