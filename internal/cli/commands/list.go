package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates in the templates directory",
		Long: `List every template in the templates directory with its frontmatter name,
description, parameter style and the data identifiers it refers to.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json, table`,
		Example: `  # List all templates
  sqlshade list

  # List templates as JSON
  sqlshade list --output json

  # List templates of another directory
  sqlshade list --templates-dir sql/reports`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	l, err := cmdCtx.NewLoader(cmdCtx.Cfg.TemplatesDir)
	if err != nil {
		return err
	}
	result, err := l.LoadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	infos := make([]output.TemplateInfo, 0, len(result.Entries))
	for _, e := range result.Entries {
		infos = append(infos, templateInfo(l, e))
	}
	failures := make([]output.CheckError, 0, len(result.Errors))
	for _, loadErr := range result.Errors {
		failures = append(failures, checkError(loadErr.Path, loadErr.Err))
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.ListOutput{Templates: infos, Errors: failures})
	}

	r.Header(1, fmt.Sprintf("Templates (%d total)", len(infos)))
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("")
	}

	rows := make([][]any, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []any{
			info.Name,
			info.Path,
			info.Style,
			strings.Join(info.Idents, ", "),
			info.Description,
		})
	}
	r.Table([]string{"Name", "Path", "Style", "Idents", "Description"}, rows)

	for _, f := range failures {
		r.Warning(fmt.Sprintf("%s: %s", location(f), f.Message))
	}
	return nil
}

func templateInfo(l *loader.Loader, e *loader.Entry) output.TemplateInfo {
	path := e.Path
	if rel, err := relPath(l.Dir(), e.Path); err == nil {
		path = rel
	}
	return output.TemplateInfo{
		Name:        e.Name,
		Path:        path,
		Description: e.Frontmatter.Description,
		Style:       e.Template.Style().String(),
		Strict:      e.Template.Strict(),
		Tags:        e.Frontmatter.Tags,
		Idents:      e.Template.Idents(),
	}
}
