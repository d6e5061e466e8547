package template

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText        TokenType = iota // Literal text (SQL)
	TokenComment                      // /* comment */ or -- comment
	TokenPlaceholder                  // /*:ident*/fake
	TokenBlockStart                   // /*#keyword args*/
	TokenBlockEnd                     // /*#endkeyword*/ or /*#/keyword*/
	TokenEOF                          // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenComment:
		return "COMMENT"
	case TokenPlaceholder:
		return "PLACEHOLDER"
	case TokenBlockStart:
		return "BLOCK_START"
	case TokenBlockEnd:
		return "BLOCK_END"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type TokenType
	// Value is the text, the comment body, the placeholder ident or the
	// control keyword, depending on Type.
	Value string
	// Arg is the fake value of a placeholder or the argument text of a
	// block start.
	Arg   string
	Raw   string // exact source text consumed for this token
	Block bool   // block (/* */) rather than line (--) comment
	Pos   Position
}

// Matchers are compiled once and shared by every lexer.
var (
	commentPattern     = regexp.MustCompile(`^(?s)(?:/\*((?:[^:#].*?)?)\*/|--([^\n\r]*))`)
	placeholderPattern = regexp.MustCompile(`^/\*:([\w.]+)\*/[\w'(+\-]`)
	blockEndPattern    = regexp.MustCompile(`^/\*#(?:/|end)[\t ]*(\w+?)[\t ]*\*/`)
	blockStartPattern  = regexp.MustCompile(`^(?s)/\*#([\w.:]+)((?:\s+:?[\w.]+)*)\s*\*/`)
	literalPattern     = regexp.MustCompile(`^(?s)(.*?)(--|/\*|\\\r?\n|$)`)
)

// Lexer tokenizes a template string.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	if file == "" {
		file = MemoryFile
	}
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// nextToken returns the next token from the input. Matchers are tried in
// priority order; the first one that matches wins.
func (l *Lexer) nextToken() (Token, error) {
	for {
		if l.pos >= len(l.input) {
			return Token{Type: TokenEOF, Pos: l.position()}, nil
		}

		rest := l.input[l.pos:]
		l.markStart()

		if m := commentPattern.FindStringSubmatchIndex(rest); m != nil {
			tok := Token{Type: TokenComment, Raw: rest[:m[1]], Pos: l.startPosition()}
			if m[2] >= 0 {
				tok.Value, tok.Block = rest[m[2]:m[3]], true
			} else {
				tok.Value = rest[m[4]:m[5]]
			}
			l.advanceBy(m[1])
			return tok, nil
		}

		if strings.HasPrefix(rest, "/*:") {
			if m := placeholderPattern.FindStringSubmatchIndex(rest); m != nil {
				return l.scanPlaceholder(rest, m)
			}
		}

		if strings.HasPrefix(rest, "/*#") {
			if m := blockEndPattern.FindStringSubmatchIndex(rest); m != nil {
				tok := Token{Type: TokenBlockEnd, Value: rest[m[2]:m[3]], Raw: rest[:m[1]], Pos: l.startPosition()}
				l.advanceBy(m[1])
				return tok, nil
			}
			if m := blockStartPattern.FindStringSubmatchIndex(rest); m != nil {
				tok := Token{
					Type:  TokenBlockStart,
					Value: rest[m[2]:m[3]],
					Arg:   rest[m[4]:m[5]],
					Raw:   rest[:m[1]],
					Pos:   l.startPosition(),
				}
				l.advanceBy(m[1])
				return tok, nil
			}
		}

		tok, ok, err := l.scanText(rest)
		if err != nil {
			return Token{}, err
		}
		if ok {
			return tok, nil
		}
		// an escaped newline alone produces no token
	}
}

// scanPlaceholder consumes /*:ident*/ and the fake value that follows it.
func (l *Lexer) scanPlaceholder(rest string, m []int) (Token, error) {
	ident := rest[m[2]:m[3]]
	if !validIdent(ident) {
		return Token{}, NewSyntaxErrorf(l.startPosition(), l.input, "invalid identifier %q in placeholder", ident)
	}

	fakeStart := m[1] - 1 // the pattern consumed the first char of the fake value
	n, err := ScanFakeValue(rest[fakeStart:])
	if err != nil {
		return Token{}, NewSyntaxErrorf(l.startPosition(), l.input, "placeholder '%s': %v", ident, err)
	}

	end := fakeStart + n
	tok := Token{
		Type:  TokenPlaceholder,
		Value: ident,
		Arg:   rest[fakeStart:end],
		Raw:   rest[:end],
		Pos:   l.startPosition(),
	}
	l.advanceBy(end)
	return tok, nil
}

// scanText scans literal text up to the next comment, escaped newline or EOF.
// The escaped newline itself is consumed and dropped.
func (l *Lexer) scanText(rest string) (Token, bool, error) {
	m := literalPattern.FindStringSubmatchIndex(rest)
	text := rest[m[2]:m[3]]
	term := rest[m[4]:m[5]]

	consumed := m[3]
	if strings.HasPrefix(term, `\`) {
		consumed = m[5]
	}

	if consumed == 0 {
		// Sitting on a "/*" that no other matcher accepted.
		return Token{}, false, NewSyntaxErrorf(l.startPosition(), l.input,
			"malformed comment %q: placeholders need a fake value right after '*/', control comments take '/*#keyword args*/'",
			excerpt(rest))
	}

	tok := Token{Type: TokenText, Value: text, Raw: rest[:consumed], Pos: l.startPosition()}
	l.advanceBy(consumed)
	return tok, text != "", nil
}

// Helper methods

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// advanceBy moves n bytes forward.
func (l *Lexer) advanceBy(n int) {
	target := l.pos + n
	for l.pos < target {
		l.advance()
	}
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}

// excerpt trims s to its first line, at most 30 bytes.
func excerpt(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) > 30 {
		s = s[:30] + "..."
	}
	return s
}

// validIdent reports whether ident is a dotted path without empty segments.
func validIdent(ident string) bool {
	if ident == "" {
		return false
	}
	for _, seg := range strings.Split(ident, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}
