// Package sqlshade compiles SQL templates whose placeholders and control flow
// are written as SQL comments. A template stays runnable as plain SQL; each
// placeholder carries a literal "fake value" that is replaced by a bind
// marker when the template is rendered.
//
//	tmpl, err := sqlshade.New(`SELECT * FROM t_member
//	WHERE nickname = /*:nickname*/'kjim'
//	/*#if :only_active*/AND status = 1/*#endif*/`)
//	q, err := tmpl.Render(map[string]any{"nickname": "kjim", "only_active": true})
//	rows, err := db.QueryContext(ctx, q.SQL, q.DriverArgs()...)
package sqlshade

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlshade/internal/template"
)

// Style selects the bind marker syntax of rendered queries.
type Style = template.ParamStyle

// Style values.
const (
	Positional = template.StylePositional // ? markers
	Named      = template.StyleNamed      // :name markers
)

// ParseStyle accepts "positional" (alias "list") and "named" (alias "dict").
func ParseStyle(s string) (Style, error) {
	return template.ParseParamStyle(s)
}

// Errors returned by parsing and rendering.
type (
	Error               = template.Error
	SyntaxError         = template.SyntaxError
	CompileError        = template.CompileError
	RenderError         = template.RenderError
	UnmatchedBlockError = template.UnmatchedBlockError
	Position            = template.Position
)

// Causes wrapped by RenderError, for use with errors.Is.
var (
	ErrMissingVariable  = template.ErrMissingVariable
	ErrEmptyBinding     = template.ErrEmptyBinding
	ErrInvalidPath      = template.ErrInvalidPath
	ErrNotIterable      = template.ErrNotIterable
	ErrUnsupportedEmbed = template.ErrUnsupportedEmbed
	ErrRecursionLimit   = template.ErrRecursionLimit
)

type options struct {
	filename string
	encoding string
	strict   bool
	style    Style
	logger   *slog.Logger
}

// Option configures a Template.
type Option func(*options)

// WithFilename sets the name used in error positions and as the template ID.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithEncoding decodes byte sources with the named encoding instead of
// detecting it from a BOM or magic comment.
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding = name }
}

// WithStrict controls whether missing data is an error (the default) or the
// construct is written back untouched.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithStyle sets the bind marker style. Positional is the default.
func WithStyle(style Style) Option {
	return func(o *options) { o.style = style }
}

// WithLogger sets the logger for parse and render events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{strict: true, style: Positional}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Template is a parsed SQL template. It is immutable and safe for
// concurrent use.
type Template struct {
	id     string
	tree   *template.Template
	strict bool
	style  Style
	logger *slog.Logger
}

// New parses template text.
func New(text string, opts ...Option) (*Template, error) {
	return newTemplate(text, buildOptions(opts))
}

// NewFromBytes decodes and parses template source. See WithEncoding.
func NewFromBytes(src []byte, opts ...Option) (*Template, error) {
	o := buildOptions(opts)
	text, err := decodeSource(src, o.encoding, o.filename)
	if err != nil {
		return nil, err
	}
	return newTemplate(text, o)
}

// ParseFile reads and parses the template at path. The path is the default
// filename.
func ParseFile(path string, opts ...Option) (*Template, error) {
	src, err := os.ReadFile(path) //nolint:gosec // template path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return NewFromBytes(src, append([]Option{WithFilename(path)}, opts...)...)
}

func newTemplate(text string, o options) (*Template, error) {
	start := time.Now()
	tree, err := template.ParseString(text, o.filename)
	if err != nil {
		o.logger.Debug("template parse failed", slog.String("file", o.filename), slog.String("error", err.Error()))
		return nil, err
	}

	id := o.filename
	if id == "" {
		id = "memory:" + uuid.NewString()
	}
	o.logger.Debug("template parsed",
		slog.String("id", id),
		slog.Int("nodes", len(tree.Nodes)),
		slog.Duration("duration", time.Since(start)))

	return &Template{
		id:     id,
		tree:   tree,
		strict: o.strict,
		style:  o.style,
		logger: o.logger,
	}, nil
}

// ID returns the filename, or "memory:<uuid>" for templates built from text.
func (t *Template) ID() string { return t.id }

// Tree returns the parse tree. Passing a Template as data to an embed
// block renders it in place.
func (t *Template) Tree() *template.Template { return t.tree }

// Idents lists the data identifiers the template refers to.
func (t *Template) Idents() []string { return t.tree.Idents() }

// Strict reports the missing-data policy used by Render.
func (t *Template) Strict() bool { return t.strict }

// Style reports the bind marker style used by Render.
func (t *Template) Style() Style { return t.style }

// Render binds data into the template.
func (t *Template) Render(data map[string]any) (*Query, error) {
	return t.RenderWith(data, t.strict, t.style)
}

// RenderWith renders with an explicit missing-data policy and style.
func (t *Template) RenderWith(data map[string]any, strict bool, style Style) (*Query, error) {
	result, err := template.Render(t.tree, data, template.Options{Strict: strict, Style: style})
	if err != nil {
		t.logger.Debug("template render failed", slog.String("id", t.id), slog.String("error", err.Error()))
		return nil, err
	}
	t.logger.Debug("template rendered",
		slog.String("id", t.id),
		slog.String("style", style.String()),
		slog.Int("bindings", max(len(result.Args), len(result.Names))))
	return newQuery(result), nil
}
