package template

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by RenderError.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPath      = errors.New("invalid identifier path")
	ErrMissingVariable  = errors.New("no variable fed")
	ErrEmptyBinding     = errors.New("binding data should not be empty")
	ErrNotIterable      = errors.New("value is not iterable")
	ErrUnsupportedEmbed = errors.New("unsupported embed value")
	ErrRecursionLimit   = errors.New("embed/eval recursion limit exceeded")
)

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
	// Source returns the template text the error was raised against.
	Source() string
}

// baseError provides common error functionality.
type baseError struct {
	pos    Position
	msg    string
	source string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Source() string     { return e.source }
func (e *baseError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

// Message returns the error text without the position prefix.
func (e *baseError) Message() string { return e.msg }

// SyntaxError represents malformed template syntax: bad control arguments,
// an unterminated fake value, or unbalanced control comments.
type SyntaxError struct {
	baseError
}

// NewSyntaxError creates a new syntax error.
func NewSyntaxError(pos Position, source, msg string) *SyntaxError {
	return &SyntaxError{baseError: baseError{pos: pos, msg: msg, source: source}}
}

// NewSyntaxErrorf creates a new syntax error with formatting.
func NewSyntaxErrorf(pos Position, source, format string, args ...any) *SyntaxError {
	return NewSyntaxError(pos, source, fmt.Sprintf(format, args...))
}

// CompileError represents a structurally invalid template, such as an
// unknown control keyword or undecodable source text.
type CompileError struct {
	baseError
}

// NewCompileError creates a new compile error.
func NewCompileError(pos Position, source, msg string) *CompileError {
	return &CompileError{baseError: baseError{pos: pos, msg: msg, source: source}}
}

// NewCompileErrorf creates a new compile error with formatting.
func NewCompileErrorf(pos Position, source, format string, args ...any) *CompileError {
	return NewCompileError(pos, source, fmt.Sprintf(format, args...))
}

// RenderError represents an error during template rendering.
type RenderError struct {
	baseError
	Cause error // ErrMissingVariable, ErrEmptyBinding, a nested parse error, ...
}

// NewRenderError wraps cause as a render error.
func NewRenderError(pos Position, source, msg string, cause error) *RenderError {
	return &RenderError{
		baseError: baseError{pos: pos, msg: msg, source: source},
		Cause:     cause,
	}
}

func (e *RenderError) Error() string {
	base := e.baseError.Error()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// UnmatchedBlockError indicates a control comment without its counterpart.
// It unwraps to a *SyntaxError.
type UnmatchedBlockError struct {
	SyntaxError
	Keyword string
	Closing bool // true for a close without an open
}

// NewUnmatchedBlockError creates a new unmatched block error. pos is the
// position of the offending comment: the opening one for unterminated
// blocks, the closing one otherwise.
func NewUnmatchedBlockError(pos Position, source, keyword string, closing bool) *UnmatchedBlockError {
	var msg string
	if closing {
		msg = fmt.Sprintf("closing control '%s' without opening control", keyword)
	} else {
		msg = fmt.Sprintf("unclosed '%s' control (missing '/*#end%s*/')", keyword, keyword)
	}
	return &UnmatchedBlockError{
		SyntaxError: SyntaxError{baseError: baseError{pos: pos, msg: msg, source: source}},
		Keyword:     keyword,
		Closing:     closing,
	}
}

func (e *UnmatchedBlockError) Unwrap() error {
	return &e.SyntaxError
}
