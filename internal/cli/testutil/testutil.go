// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlshade/internal/cli/output"
	roottestutil "github.com/leapstack-labs/sqlshade/internal/testutil"
)

// FindMemberSQL is the find_member template of the test project.
const FindMemberSQL = `/*---
name: find_member
description: Find members by nickname
tags: [members]
---*/
SELECT * FROM t_member
WHERE nickname = /*:nickname*/'kjim'
/*#if :only_active*/AND status = /*:status*/1 /*#endif*/`

// ByIDsSQL is the reports/by_ids template of the test project.
const ByIDsSQL = `SELECT id, name FROM t_report WHERE id IN /*:ids*/(1, 2)`

// SetupTestProject creates a temporary project with a config file, two
// templates and data files, and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	return roottestutil.TemplateDir(t, map[string]string{
		"sqlshade.yaml": `templates_dir: queries
vars:
  status: 1
`,
		"queries/find_member.sql":    FindMemberSQL,
		"queries/reports/by_ids.sql": ByIDsSQL,
		"data/params.yaml":           "nickname: kjim\nonly_active: true\n",
		"data/ids.star":              "ids = [n * status for n in range(1, 4)]\n",
	})
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
