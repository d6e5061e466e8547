// Package output renders command results for terminals, markdown consumers
// and scripts.
package output

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// OutputMode selects how results are written.
type OutputMode string //nolint:revive // output.OutputMode reads better at call sites than output.Kind

// Output modes.
const (
	ModeAuto     OutputMode = "auto"     // text on a TTY, markdown otherwise
	ModeText     OutputMode = "text"     // styled text
	ModeMarkdown OutputMode = "markdown" // agent and pipe friendly
	ModeJSON     OutputMode = "json"
	ModeTable    OutputMode = "table" // text with bindings and listings as tables
)

// Mode converts a configured output name to an OutputMode. Unknown names
// fall back to ModeAuto.
func Mode(s string) OutputMode {
	switch m := OutputMode(strings.ToLower(s)); m {
	case ModeText, ModeMarkdown, ModeJSON, ModeTable:
		return m
	default:
		return ModeAuto
	}
}

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

// isTerminal reports whether w is a terminal.
func isTerminal(w any) bool {
	f, ok := w.(fder)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

// noColor reports whether the NO_COLOR convention is in effect.
func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}
