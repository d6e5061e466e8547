package template

import (
	"errors"
	"fmt"
	"reflect"
)

// MaxDepth bounds embed/eval nesting.
const MaxDepth = 64

// Options controls a single render.
type Options struct {
	// Strict makes a missing identifier an error. When false the construct
	// is written back as it appeared in the template.
	Strict bool
	Style  ParamStyle
}

// Result holds the rendered SQL and its bound values. Args is set for the
// positional style; Named and Names (first-bind order) for the named style.
type Result struct {
	SQL   string
	Args  []any
	Named map[string]any
	Names []string
	Style ParamStyle
}

// Treer is implemented by values that carry a parsed template and can be
// used as embed data.
type Treer interface {
	Tree() *Template
}

// Render renders tmpl against data. The template is not modified and may be
// rendered concurrently.
func Render(tmpl *Template, data map[string]any, opts Options) (*Result, error) {
	var p printer
	if opts.Style == StyleNamed {
		p = newNamedPrinter()
	} else {
		p = &positionalPrinter{}
	}

	r := &renderer{p: p}
	if err := r.renderNodes(tmpl.Nodes, NewScope(data, opts.Strict, opts.Style)); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// RenderString parses and renders input in one step.
func RenderString(input, file string, data map[string]any, opts Options) (*Result, error) {
	tmpl, err := ParseString(input, file)
	if err != nil {
		return nil, err
	}
	return Render(tmpl, data, opts)
}

type renderer struct {
	p printer
}

func (r *renderer) renderNodes(nodes []Node, scope *Scope) error {
	for _, n := range nodes {
		if err := r.renderNode(n, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderNode(n Node, scope *Scope) error {
	switch node := n.(type) {
	case *Literal:
		r.p.write(node.Text)
	case *Comment:
		r.p.write(node.Raw())
	case *Placeholder:
		return r.renderPlaceholder(node, scope)
	case *IfBlock:
		return r.renderIf(node, scope)
	case *ForBlock:
		return r.renderFor(node, scope)
	case *EmbedBlock:
		return r.renderEmbed(node, scope)
	case *EvalBlock:
		return r.renderEval(node, scope)
	case *TipBlock:
		// never rendered
	default:
		return NewRenderError(n.Pos(), n.Source(), fmt.Sprintf("unknown node type %T", n), nil)
	}
	return nil
}

// lookup resolves ident for node. found is false when the value is missing
// and the render is non-strict; the caller then writes the construct back.
func (r *renderer) lookup(n Node, ident string, scope *Scope) (value any, found bool, err error) {
	value, err = scope.Lookup(ident)
	if err == nil {
		return value, true, nil
	}
	if errors.Is(err, ErrNotFound) {
		if scope.Strict() {
			return nil, false, NewRenderError(n.Pos(), n.Source(),
				fmt.Sprintf("no variable fed: '%s'", ident), ErrMissingVariable)
		}
		return nil, false, nil
	}
	return nil, false, NewRenderError(n.Pos(), n.Source(), fmt.Sprintf("cannot resolve '%s'", ident), err)
}

func (r *renderer) renderPlaceholder(node *Placeholder, scope *Scope) error {
	value, found, err := r.lookup(node, node.Ident, scope)
	if err != nil {
		return err
	}
	if !found {
		r.p.write(node.Raw())
		return nil
	}

	name := bindName(node.Ident, scope.frameIndexes(node.Ident))
	items, keys, ok := collection(value, scope.Style())
	if !ok {
		r.p.bind(name, value)
		return nil
	}
	if len(items) == 0 {
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("binding data should not be empty: '%s'", node.Ident), ErrEmptyBinding)
	}

	r.p.write("(")
	for i, item := range items {
		if i > 0 {
			r.p.write(", ")
		}
		if keys != nil {
			r.p.bind(name+"_"+keys[i], item)
		} else {
			r.p.bind(fmt.Sprintf("%s_%d", name, i+1), item)
		}
	}
	r.p.write(")")
	return nil
}

// passthrough writes a control block back with its raw comments around the
// rendered body.
func (r *renderer) passthrough(open, close string, body []Node, scope *Scope) error {
	r.p.write(open)
	if err := r.renderNodes(body, scope); err != nil {
		return err
	}
	r.p.write(close)
	return nil
}

func (r *renderer) renderIf(node *IfBlock, scope *Scope) error {
	value, found, err := r.lookup(node, node.Ident, scope)
	if err != nil {
		return err
	}
	if !found {
		return r.passthrough(node.Open, node.Close, node.Body(), scope)
	}
	if !Truthy(value) {
		return nil
	}
	return r.renderNodes(node.Body(), scope)
}

func (r *renderer) renderFor(node *ForBlock, scope *Scope) error {
	value, found, err := r.lookup(node, node.Ident, scope)
	if err != nil {
		return err
	}
	if !found {
		return r.passthrough(node.Open, node.Close, node.Body(), scope)
	}

	items, ok := elements(value)
	if !ok {
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("'%s' is %T", node.Ident, value), ErrNotIterable)
	}
	for i, item := range items {
		if err := r.renderNodes(node.Body(), scope.withLoop(node.VarName, item, i+1)); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderEmbed(node *EmbedBlock, scope *Scope) error {
	value, found, err := r.lookup(node, node.Ident, scope)
	if err != nil {
		return err
	}
	if !found {
		return r.passthrough(node.Open, node.Close, node.Body(), scope)
	}

	switch v := value.(type) {
	case string:
		r.p.write(v)
		return nil
	case *Template:
		return r.renderNested(node, v, scope)
	case Treer:
		return r.renderNested(node, v.Tree(), scope)
	default:
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("cannot embed '%s' of type %T", node.Ident, value), ErrUnsupportedEmbed)
	}
}

func (r *renderer) renderEval(node *EvalBlock, scope *Scope) error {
	value, found, err := r.lookup(node, node.Ident, scope)
	if err != nil {
		return err
	}
	if !found {
		return r.passthrough(node.Open, node.Close, node.Body(), scope)
	}

	text, ok := value.(string)
	if !ok {
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("eval '%s' needs template text, got %T", node.Ident, value), ErrUnsupportedEmbed)
	}
	tmpl, err := ParseString(text, "<eval:"+node.Ident+">")
	if err != nil {
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("eval '%s' failed to parse", node.Ident), err)
	}
	return r.renderNested(node, tmpl, scope)
}

// renderNested renders a sub-template into the same printer, with the same
// scope, so its markers and bindings interleave with the outer ones.
func (r *renderer) renderNested(node Node, tmpl *Template, scope *Scope) error {
	if tmpl == nil {
		return NewRenderError(node.Pos(), node.Source(), "embedded template is nil", ErrUnsupportedEmbed)
	}
	if scope.depth >= MaxDepth {
		return NewRenderError(node.Pos(), node.Source(),
			fmt.Sprintf("nesting deeper than %d", MaxDepth), ErrRecursionLimit)
	}
	nested := *scope
	nested.depth++
	return r.renderNodes(tmpl.Nodes, &nested)
}

// collection returns the items of a value bound as a parenthesized list.
// Maps are only expanded in the named style, keyed by their sorted keys.
func collection(v any, style ParamStyle) (items []any, keys []string, ok bool) {
	if v == nil || isBytes(v) {
		return nil, nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items, _ = elements(v)
		return items, nil, true
	case reflect.Map:
		if style != StyleNamed {
			return nil, nil, false
		}
		for _, k := range sortedKeys(rv) {
			keys = append(keys, fmt.Sprint(k.Interface()))
			items = append(items, rv.MapIndex(k).Interface())
		}
		return items, keys, true
	default:
		return nil, nil, false
	}
}

func isBytes(v any) bool {
	_, ok := v.([]byte)
	return ok
}
