package template

import (
	"errors"
	"strings"
)

var (
	errUnterminatedString = errors.New("unterminated string literal in fake value")
	errUnbalancedParen    = errors.New("unbalanced parenthesis in fake value")
	errEmptyFakeValue     = errors.New("placeholder must be followed by a fake value")
)

// ScanFakeValue returns the byte length of the fake value literal at the
// start of text, i.e. the SQL written right after a /*:ident*/ marker.
//
// Quoted strings end at the matching quote (backslash escapes, '' is an
// escaped quote). Parenthesized lists end at the closing paren. Bare tokens
// such as 1000, -2.8E-45, CURRENT_TIMESTAMP or now() end at whitespace, a
// comma, a closing paren, a semicolon or a comment opener (/* or --) found
// outside quotes and parens.
func ScanFakeValue(text string) (int, error) {
	if text == "" {
		return 0, errEmptyFakeValue
	}
	if text[0] == '\'' {
		return scanQuoted(text)
	}

	depth := 0
	inQuote := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '\'':
				inQuote = false
			}
			continue
		}
		if depth == 0 && isCommentStart(text[i:]) {
			return nonEmpty(i)
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth == 0 {
				// closes a paren opened before the placeholder
				return nonEmpty(i)
			}
			depth--
			if depth == 0 && text[0] == '(' {
				return i + 1, nil
			}
		case ' ', '\t', '\n', '\r', '\f', '\v', ',', ';':
			if depth == 0 {
				return nonEmpty(i)
			}
		}
	}
	if inQuote {
		return 0, errUnterminatedString
	}
	if depth != 0 {
		return 0, errUnbalancedParen
	}
	return len(text), nil
}

func isCommentStart(s string) bool {
	return strings.HasPrefix(s, "/*") || strings.HasPrefix(s, "--")
}

func scanQuoted(text string) (int, error) {
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '\'':
			if i+1 < len(text) && text[i+1] == '\'' {
				i++
				continue
			}
			return i + 1, nil
		}
	}
	return 0, errUnterminatedString
}

func nonEmpty(n int) (int, error) {
	if n == 0 {
		return 0, errEmptyFakeValue
	}
	return n, nil
}
