package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"github.com/spf13/cobra"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var dataFiles, setValues []string

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template into SQL and bind values",
		Long: `Render a template with data and print the resulting SQL and its bind values.

The template is a file path or a template name in the templates directory.
Data comes from, in increasing precedence: config vars, config data files,
--data files (.yaml, .yml, .json, .star) and --set values.

Output adapts to environment:
  - Terminal: SQL followed by the bind values as comments
  - Piped/Scripted: Markdown with code block and bindings table
  - table: SQL followed by a bindings table
  - json: {template, sql, style, args|named}`,
		Example: `  # Render a template by name with inline values
  sqlshade render find_member --set nickname=kjim --set status=1

  # Render a file with data files and named parameters
  sqlshade render queries/report.sql --data params.yaml --data calc.star --style named

  # Leave unknown placeholders in place
  sqlshade render find_member --strict=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], dataFiles, setValues)
		},
	}

	cmd.Flags().StringArrayVarP(&dataFiles, "data", "d", nil, "Data file (.yaml, .yml, .json, .star); repeatable, later files win")
	cmd.Flags().StringArrayVar(&setValues, "set", nil, "Set a value as key=value (dotted keys nest, values are YAML); repeatable")

	return cmd
}

func runRender(cmd *cobra.Command, target string, dataFiles, setValues []string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	l, err := cmdCtx.NewLoader(cfg.TemplatesDir)
	if err != nil {
		return err
	}

	entry, err := resolveTemplate(l, target)
	if err != nil {
		return err
	}

	data, err := renderData(cmdCtx, dataFiles, setValues)
	if err != nil {
		return err
	}

	// each explicit flag wins over frontmatter for its own setting only
	strict, style := entry.Template.Strict(), entry.Template.Style()
	if cmd.Flags().Changed("strict") {
		strict = cfg.Strict
	}
	if cmd.Flags().Changed("style") {
		style = cfg.ParamStyle()
	}
	q, err := entry.RenderWith(data, strict, style)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", entry.Name, err)
	}
	cmdCtx.Logger.Debug("template rendered", "template", entry.Name, "bindings", q.Len())

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.RenderOutput{
			Template: entry.Name,
			SQL:      q.SQL,
			Style:    q.Style.String(),
			Args:     q.Args,
			Named:    q.Named,
			Names:    q.Names,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Rendered SQL: %s", entry.Name)))
		r.Println("")
		r.Println(output.FormatCodeBlock("sql", q.SQL))
		if q.Len() > 0 {
			r.Println("")
			r.Println(output.FormatHeader(2, "Bindings"))
			r.Println("")
			r.Table(bindingHeader(q), bindingRows(q))
		}
	case output.ModeTable:
		r.Println(q.SQL)
		if q.Len() > 0 {
			r.Println("")
			r.Table(bindingHeader(q), bindingRows(q))
		}
	default:
		r.Println(q.SQL)
		if q.Len() > 0 {
			r.Println("")
			for _, row := range bindingRows(q) {
				r.Muted(fmt.Sprintf("-- %v = %v", row[0], row[1]))
			}
		}
	}
	return nil
}

// resolveTemplate loads target as a file path when it exists, otherwise as
// a template name in the templates directory.
func resolveTemplate(l *loader.Loader, target string) (*loader.Entry, error) {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}
		return l.Load(abs)
	}
	return l.Get(target)
}

// renderData assembles render data: config vars, then data files, then
// --set values. Vars and --set values are also visible to .star files.
func renderData(cmdCtx *CommandContext, dataFiles, setValues []string) (map[string]any, error) {
	set, err := parseSetValues(setValues)
	if err != nil {
		return nil, err
	}

	predeclared := make(map[string]any, len(cmdCtx.Cfg.Vars)+len(set))
	loader.MergeData(predeclared, cmdCtx.Cfg.Vars)
	loader.MergeData(predeclared, set)

	files := append(append([]string{}, cmdCtx.Cfg.Data...), dataFiles...)
	fileData, err := loader.LoadData(files, predeclared, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}

	data := make(map[string]any)
	loader.MergeData(data, cmdCtx.Cfg.Vars)
	loader.MergeData(data, fileData)
	loader.MergeData(data, set)
	return data, nil
}

func bindingHeader(q *sqlshade.Query) []string {
	if q.Style == sqlshade.Named {
		return []string{"Name", "Value", "Type"}
	}
	return []string{"#", "Value", "Type"}
}

func bindingRows(q *sqlshade.Query) [][]any {
	if q.Style == sqlshade.Named {
		rows := make([][]any, 0, len(q.Names))
		for _, name := range q.Names {
			v := q.Named[name]
			rows = append(rows, []any{":" + name, output.FormatValue(v), fmt.Sprintf("%T", v)})
		}
		return rows
	}
	rows := make([][]any, 0, len(q.Args))
	for i, v := range q.Args {
		rows = append(rows, []any{i + 1, output.FormatValue(v), fmt.Sprintf("%T", v)})
	}
	return rows
}
