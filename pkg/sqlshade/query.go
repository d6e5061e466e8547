package sqlshade

import (
	"database/sql"

	"github.com/leapstack-labs/sqlshade/internal/template"
)

// Query is a rendered template.
type Query struct {
	SQL string
	// Args holds positional values in marker order.
	Args []any
	// Named holds named values; Names lists them in first-bind order.
	Named map[string]any
	Names []string
	Style Style
}

func newQuery(r *template.Result) *Query {
	return &Query{
		SQL:   r.SQL,
		Args:  r.Args,
		Named: r.Named,
		Names: r.Names,
		Style: r.Style,
	}
}

// DriverArgs returns the bound values ready for database/sql: Args for the
// positional style, or sql.NamedArg values in Names order.
func (q *Query) DriverArgs() []any {
	if q.Style != Named {
		return q.Args
	}
	args := make([]any, 0, len(q.Names))
	for _, name := range q.Names {
		args = append(args, sql.Named(name, q.Named[name]))
	}
	return args
}

// Len returns the number of bound values.
func (q *Query) Len() int {
	if q.Style == Named {
		return len(q.Names)
	}
	return len(q.Args)
}
