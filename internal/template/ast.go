// Package template implements the sqlshade template language: SQL text whose
// placeholders and control flow live in comments, so the same file runs
// unmodified in a plain SQL tool.
//
//	SELECT * FROM t_member WHERE name = /*:name*/'kjim'
//	/*#if :only_active*/AND status = 1/*#endif*/
package template

// MemoryFile names templates that were not loaded from a file.
const MemoryFile = "<memory>"

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Node is the interface for all template AST nodes.
type Node interface {
	Pos() Position
	// Source returns the raw template text the node was parsed from.
	Source() string
	Children() []Node
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos    Position
	source string
}

func (n *nodeBase) Pos() Position    { return n.pos }
func (n *nodeBase) Source() string   { return n.source }
func (n *nodeBase) Children() []Node { return nil }
func (n *nodeBase) node()            {}

// Literal represents SQL text passed through unchanged.
type Literal struct {
	nodeBase
	Text string
}

// Comment represents an ordinary SQL comment.
// Block is true for /* */ comments and false for -- comments.
type Comment struct {
	nodeBase
	Text  string
	Block bool
}

// Raw returns the comment as it appeared in the template.
func (c *Comment) Raw() string {
	if c.Block {
		return "/*" + c.Text + "*/"
	}
	return "--" + c.Text
}

// Placeholder represents a /*:ident*/fake substitution.
// FakeValue is the literal written after the marker; it is kept so that
// non-strict rendering can reproduce the original text.
type Placeholder struct {
	nodeBase
	Ident     string
	FakeValue string
}

// Raw returns the placeholder as it appeared in the template.
func (p *Placeholder) Raw() string {
	return "/*:" + p.Ident + "*/" + p.FakeValue
}

// Block is implemented by every control comment node.
type Block interface {
	Node
	Keyword() string
	Body() []Node
	block()
}

// controlBase holds what every control comment shares.
type controlBase struct {
	nodeBase
	keyword string
	Args    string // raw argument text after the keyword
	Open    string // opening comment, e.g. "/*#if :x*/"
	Close   string // closing comment, e.g. "/*#endif*/"
	body    []Node
}

func (c *controlBase) Keyword() string   { return c.keyword }
func (c *controlBase) Body() []Node      { return c.body }
func (c *controlBase) Children() []Node  { return c.body }
func (c *controlBase) block()            {}
func (c *controlBase) append(child Node)  { c.body = append(c.body, child) }
func (c *controlBase) base() *controlBase { return c }

// IfBlock renders its body when Ident resolves to a truthy value.
type IfBlock struct {
	controlBase
	Ident string
}

// ForBlock renders its body once per element of Ident, binding VarName.
type ForBlock struct {
	controlBase
	VarName string
	Ident   string
}

// EmbedBlock replaces itself with the text (or parsed template) held by Ident.
// The body is fallback SQL used when running the template standalone.
type EmbedBlock struct {
	controlBase
	Ident string
}

// EvalBlock parses the template source held by Ident and renders it in place.
type EvalBlock struct {
	controlBase
	Ident string
}

// TipBlock marks a region that never reaches the rendered output.
type TipBlock struct {
	controlBase
}

// Template represents a complete parsed template.
type Template struct {
	Nodes []Node
	File  string // Source file path
}

// Walk calls fn for every node in depth-first order.
// Returning false from fn skips the node's children.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.Children(), fn)
		}
	}
}

// Idents returns every identifier referenced by the template, in order of
// first appearance. Loop aliases are reported like any other identifier.
func (t *Template) Idents() []string {
	seen := make(map[string]bool)
	var idents []string
	add := func(ident string) {
		if ident != "" && !seen[ident] {
			seen[ident] = true
			idents = append(idents, ident)
		}
	}
	Walk(t.Nodes, func(n Node) bool {
		switch v := n.(type) {
		case *Placeholder:
			add(v.Ident)
		case *IfBlock:
			add(v.Ident)
		case *ForBlock:
			add(v.Ident)
		case *EmbedBlock:
			add(v.Ident)
		case *EvalBlock:
			add(v.Ident)
		}
		return true
	})
	return idents
}
