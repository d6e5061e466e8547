package sqlshade

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlshade/internal/template"
	"golang.org/x/text/encoding/htmlindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// magicEncodingPattern matches an Emacs/Python style coding declaration
// inside a SQL comment, e.g. "-- -*- coding: shift_jis -*-".
var magicEncodingPattern = regexp.MustCompile(`^[ \t\f]*(?:--|/\*).*?coding[:=][ \t]*([-\w.]+)`)

// magicEncoding returns the encoding declared on one of the first two lines.
func magicEncoding(src []byte) string {
	for i, line := range bytes.SplitN(src, []byte("\n"), 3) {
		if i == 2 {
			break
		}
		if m := magicEncodingPattern.FindSubmatch(line); m != nil {
			return string(m[1])
		}
	}
	return ""
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// decodeSource turns template bytes into text. A UTF-8 BOM is stripped and
// must not contradict a magic comment. declared wins over the magic comment;
// without either the source must be valid UTF-8.
func decodeSource(src []byte, declared, file string) (string, error) {
	if file == "" {
		file = template.MemoryFile
	}
	pos := template.Position{File: file, Line: 1, Column: 1}
	lossy := func() string { return strings.ToValidUTF8(string(src), "") }

	if bytes.HasPrefix(src, utf8BOM) {
		src = src[len(utf8BOM):]
		if magic := magicEncoding(src); magic != "" && !isUTF8Name(magic) {
			return "", template.NewCompileErrorf(pos, lossy(),
				"found utf-8 BOM in file, with conflicting magic encoding comment of '%s'", magic)
		}
		if declared == "" {
			declared = "utf-8"
		}
	}

	name := declared
	if name == "" {
		name = magicEncoding(src)
	}
	if name == "" {
		if !utf8.Valid(src) {
			return "", template.NewCompileError(pos, lossy(),
				"could not read template as utf-8; did you forget a magic encoding comment?")
		}
		return string(src), nil
	}

	if isUTF8Name(name) {
		if !utf8.Valid(src) {
			return "", template.NewCompileErrorf(pos, lossy(), "decoding with encoding '%s' failed", name)
		}
		return string(src), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", template.NewCompileErrorf(pos, lossy(), "unknown encoding '%s'", name)
	}
	out, err := enc.NewDecoder().Bytes(src)
	if err != nil {
		return "", template.NewCompileError(pos, lossy(),
			fmt.Sprintf("decoding with encoding '%s' failed: %v", name, err))
	}
	return string(out), nil
}

// Decode converts template source to text the way NewFromBytes does, for
// callers that inspect the text before parsing it. encoding may be empty.
func Decode(src []byte, encoding, filename string) (string, error) {
	return decodeSource(src, encoding, filename)
}
