package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	"github.com/leapstack-labs/sqlshade/internal/loader"
	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Parse templates and report syntax errors",
		Long: `Parse every template under the given files or directories and report
each error with its file, line and column. Without arguments the templates
directory is checked.

Exits with a non-zero status when any template fails to parse.`,
		Example: `  # Check the templates directory
  sqlshade check

  # Check specific files and directories
  sqlshade check queries/members.sql reports/

  # Machine-readable report
  sqlshade check --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command, paths []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if len(paths) == 0 {
		if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
			return err
		}
		paths = []string{cmdCtx.Cfg.TemplatesDir}
	}

	var entries []*loader.Entry
	var failures []output.CheckError
	for _, path := range paths {
		e, f, err := checkPath(cmdCtx, cmd, path)
		if err != nil {
			return err
		}
		entries = append(entries, e...)
		failures = append(failures, f...)
	}
	checked := len(entries) + len(failures)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(output.CheckOutput{Checked: checked, Failed: len(failures), Errors: failures}); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Check (%d templates)", checked)))
		r.Println("")
		for _, e := range entries {
			r.Println(fmt.Sprintf("- ✓ `%s`", e.Path))
		}
		for _, f := range failures {
			r.Println(fmt.Sprintf("- ✗ `%s`: %s", location(f), f.Message))
		}
	default:
		for _, e := range entries {
			r.StatusLine(e.Path, "ok", fmt.Sprintf("%d idents", len(e.Template.Idents())))
		}
		for _, f := range failures {
			r.StatusLine(location(f), "error", f.Message)
		}
		if len(failures) == 0 {
			r.Success(fmt.Sprintf("%d templates checked", checked))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d templates failed to check", len(failures), checked)
	}
	return nil
}

// checkPath parses one file or every template under one directory.
func checkPath(cmdCtx *CommandContext, cmd *cobra.Command, path string) ([]*loader.Entry, []output.CheckError, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot check %s: %w", path, err)
	}

	if !info.IsDir() {
		l, err := cmdCtx.NewLoader(filepath.Dir(path))
		if err != nil {
			return nil, nil, err
		}
		entry, err := l.Load(path)
		if err != nil {
			return nil, []output.CheckError{checkError(path, err)}, nil
		}
		return []*loader.Entry{entry}, nil, nil
	}

	l, err := cmdCtx.NewLoader(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := l.LoadAll(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	failures := make([]output.CheckError, 0, len(result.Errors))
	for _, loadErr := range result.Errors {
		failures = append(failures, checkError(loadErr.Path, loadErr.Err))
	}
	return result.Entries, failures, nil
}

// checkError converts a load failure, keeping the template position when
// there is one.
func checkError(path string, err error) output.CheckError {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		err = loadErr.Err
	}
	ce := output.CheckError{Path: path, Message: strings.TrimPrefix(err.Error(), path+": ")}

	var tmplErr sqlshade.Error
	if errors.As(err, &tmplErr) {
		pos := tmplErr.Position()
		ce.Line, ce.Column = pos.Line, pos.Column
		if m, ok := tmplErr.(interface{ Message() string }); ok {
			ce.Message = m.Message()
		}
	}
	return ce
}

func location(ce output.CheckError) string {
	if ce.Line == 0 {
		return ce.Path
	}
	return fmt.Sprintf("%s:%d:%d", ce.Path, ce.Line, ce.Column)
}
