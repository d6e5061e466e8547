package template

import (
	"fmt"
	"reflect"
	"strings"
)

// printer accumulates rendered SQL and the values bound to its markers.
type printer interface {
	write(s string)
	// bind records value under name (ignored by positional printers) and
	// writes its marker.
	bind(name string, value any)
	result() *Result
}

// positionalPrinter writes ? markers and collects values in order.
type positionalPrinter struct {
	sql  strings.Builder
	args []any
}

func (p *positionalPrinter) write(s string) { p.sql.WriteString(s) }

func (p *positionalPrinter) bind(_ string, value any) {
	p.sql.WriteByte('?')
	p.args = append(p.args, value)
}

func (p *positionalPrinter) result() *Result {
	args := p.args
	if args == nil {
		args = []any{}
	}
	return &Result{SQL: p.sql.String(), Args: args, Style: StylePositional}
}

// namedPrinter writes :name markers. Names are unique per render: binding
// an existing name to an equal value reuses it, a different value takes the
// next free _<n> suffix.
type namedPrinter struct {
	sql   strings.Builder
	named map[string]any
	names []string
}

func newNamedPrinter() *namedPrinter {
	return &namedPrinter{named: make(map[string]any)}
}

func (p *namedPrinter) write(s string) { p.sql.WriteString(s) }

func (p *namedPrinter) bind(name string, value any) {
	p.sql.WriteByte(':')
	p.sql.WriteString(p.claim(name, value))
}

// claim returns the name value is bound under.
func (p *namedPrinter) claim(name string, value any) string {
	existing, ok := p.named[name]
	if !ok {
		p.named[name] = value
		p.names = append(p.names, name)
		return name
	}
	if reflect.DeepEqual(existing, value) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if v, taken := p.named[candidate]; taken {
			if reflect.DeepEqual(v, value) {
				return candidate
			}
			continue
		}
		p.named[candidate] = value
		p.names = append(p.names, candidate)
		return candidate
	}
}

func (p *namedPrinter) result() *Result {
	names := p.names
	if names == nil {
		names = []string{}
	}
	return &Result{SQL: p.sql.String(), Named: p.named, Names: names, Style: StyleNamed}
}

// bindName is the named-style name of ident: dots become "__" and each
// loop index that applies is appended as _<i>.
func bindName(ident string, indexes []int) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(ident, ".", "__"))
	for _, i := range indexes {
		fmt.Fprintf(&b, "_%d", i)
	}
	return b.String()
}
