package template

import (
	"errors"
	"regexp"
	"sort"
)

// Argument grammars for control comments. The ':' sigil is optional.
var (
	forArgsPattern   = regexp.MustCompile(`^\s*(\w+)\s+in\s+:?([\w.]+)\s*$`)
	identArgsPattern = regexp.MustCompile(`^\s*:?([\w.]+)\s*$`)
)

// controlFactory builds a control block from its parsed comment. A non-nil
// error is the usage message reported as a syntax error.
type controlFactory func(base controlBase) (container, error)

// container is a control block the parser can append children to.
type container interface {
	Block
	append(child Node)
	base() *controlBase
}

// controlFactories is the single registration point for control keywords.
var controlFactories = map[string]controlFactory{
	"if": func(base controlBase) (container, error) {
		ident, err := parseIdentArg(base, "if syntax is 'if <ident>'")
		if err != nil {
			return nil, err
		}
		return &IfBlock{controlBase: base, Ident: ident}, nil
	},
	"for": func(base controlBase) (container, error) {
		m := forArgsPattern.FindStringSubmatch(base.Args)
		if m == nil || !validIdent(m[2]) {
			return nil, errors.New("for syntax is 'for <item> in <ident>'")
		}
		return &ForBlock{controlBase: base, VarName: m[1], Ident: m[2]}, nil
	},
	"embed": func(base controlBase) (container, error) {
		ident, err := parseIdentArg(base, "embed syntax is 'embed <ident>'")
		if err != nil {
			return nil, err
		}
		return &EmbedBlock{controlBase: base, Ident: ident}, nil
	},
	"eval": func(base controlBase) (container, error) {
		ident, err := parseIdentArg(base, "eval syntax is 'eval <ident>'")
		if err != nil {
			return nil, err
		}
		return &EvalBlock{controlBase: base, Ident: ident}, nil
	},
	"tip": func(base controlBase) (container, error) {
		return &TipBlock{controlBase: base}, nil
	},
}

// Keywords returns the registered control keywords in sorted order.
func Keywords() []string {
	keywords := make([]string, 0, len(controlFactories))
	for k := range controlFactories {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	return keywords
}

func parseIdentArg(base controlBase, usage string) (string, error) {
	m := identArgsPattern.FindStringSubmatch(base.Args)
	if m == nil || !validIdent(m[1]) {
		return "", errors.New(usage)
	}
	return m[1], nil
}

// Parser builds a Template from lexer tokens.
type Parser struct {
	tokens []Token
	source string
	file   string
	root   *Template
	stack  []container // open control blocks, innermost last
}

// NewParser creates a parser over tokens produced from source.
func NewParser(tokens []Token, source, file string) *Parser {
	if file == "" {
		file = MemoryFile
	}
	return &Parser{
		tokens: tokens,
		source: source,
		file:   file,
		root:   &Template{File: file},
	}
}

// Parse folds the token stream into a tree.
func (p *Parser) Parse() (*Template, error) {
	for _, tok := range p.tokens {
		switch tok.Type {
		case TokenText:
			p.appendNode(&Literal{nodeBase: p.base(tok), Text: tok.Value})

		case TokenComment:
			p.appendNode(&Comment{nodeBase: p.base(tok), Text: tok.Value, Block: tok.Block})

		case TokenPlaceholder:
			p.appendNode(&Placeholder{nodeBase: p.base(tok), Ident: tok.Value, FakeValue: tok.Arg})

		case TokenBlockStart:
			factory, ok := controlFactories[tok.Value]
			if !ok {
				return nil, NewCompileErrorf(tok.Pos, p.source, "no such control: '%s'", tok.Value)
			}
			block, err := factory(controlBase{
				nodeBase: p.base(tok),
				keyword:  tok.Value,
				Args:     tok.Arg,
				Open:     tok.Raw,
			})
			if err != nil {
				return nil, NewSyntaxError(tok.Pos, p.source, err.Error())
			}
			p.appendNode(block)
			p.stack = append(p.stack, block)

		case TokenBlockEnd:
			if len(p.stack) == 0 {
				return nil, NewUnmatchedBlockError(tok.Pos, p.source, tok.Value, true)
			}
			top := p.stack[len(p.stack)-1]
			if top.Keyword() != tok.Value {
				return nil, NewSyntaxErrorf(tok.Pos, p.source,
					"closing control '%s' does not match control '%s' opened at %d:%d",
					tok.Value, top.Keyword(), top.Pos().Line, top.Pos().Column)
			}
			top.base().Close = tok.Raw
			for _, open := range p.stack {
				open.base().source += tok.Raw
			}
			p.stack = p.stack[:len(p.stack)-1]

		case TokenEOF:
			if len(p.stack) > 0 {
				open := p.stack[len(p.stack)-1]
				return nil, NewUnmatchedBlockError(open.Pos(), p.source, open.Keyword(), false)
			}
		}
	}
	return p.root, nil
}

func (p *Parser) base(tok Token) nodeBase {
	return nodeBase{pos: tok.Pos, source: tok.Raw}
}

// appendNode adds n to the innermost open block, or the root.
func (p *Parser) appendNode(n Node) {
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		top.append(n)
		// keep the raw source of every open block complete
		for _, open := range p.stack {
			if open != n {
				open.base().source += n.Source()
			}
		}
		return
	}
	p.root.Nodes = append(p.root.Nodes, n)
}

// ParseString parses template text in one step.
func ParseString(input, file string) (*Template, error) {
	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, input, file).Parse()
}

// MustParse is like ParseString but panics on error. Intended for tests and
// package-level template variables.
func MustParse(input string) *Template {
	t, err := ParseString(input, "")
	if err != nil {
		panic(err)
	}
	return t
}
