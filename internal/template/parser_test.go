package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Nodes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		checkFunc func(t *testing.T, tmpl *Template)
	}{
		{
			name:      "plain text",
			input:     "SELECT * FROM users",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				lit, ok := tmpl.Nodes[0].(*Literal)
				require.True(t, ok, "expected Literal, got %T", tmpl.Nodes[0])
				assert.Equal(t, "SELECT * FROM users", lit.Text)
			},
		},
		{
			name:      "placeholder",
			input:     "WHERE id = /*:user.id*/1000",
			wantNodes: 2,
			checkFunc: func(t *testing.T, tmpl *Template) {
				ph, ok := tmpl.Nodes[1].(*Placeholder)
				require.True(t, ok, "expected Placeholder, got %T", tmpl.Nodes[1])
				assert.Equal(t, "user.id", ph.Ident)
				assert.Equal(t, "1000", ph.FakeValue)
				assert.Equal(t, "/*:user.id*/1000", ph.Raw())
				assert.Equal(t, ph.Raw(), ph.Source())
			},
		},
		{
			name:      "comment",
			input:     "/* note */SELECT 1",
			wantNodes: 2,
			checkFunc: func(t *testing.T, tmpl *Template) {
				c, ok := tmpl.Nodes[0].(*Comment)
				require.True(t, ok, "expected Comment, got %T", tmpl.Nodes[0])
				assert.Equal(t, " note ", c.Text)
				assert.True(t, c.Block)
				assert.Equal(t, "/* note */", c.Raw())
			},
		},
		{
			name:      "if block",
			input:     "/*#if :active*/AND status = /*:status*/1/*#endif*/",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				block, ok := tmpl.Nodes[0].(*IfBlock)
				require.True(t, ok, "expected IfBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "if", block.Keyword())
				assert.Equal(t, "active", block.Ident)
				assert.Equal(t, "/*#if :active*/", block.Open)
				assert.Equal(t, "/*#endif*/", block.Close)
				require.Len(t, block.Body(), 2)
				assert.Equal(t, "/*#if :active*/AND status = /*:status*/1/*#endif*/", block.Source())
			},
		},
		{
			name:      "for block without sigil",
			input:     "/*#for item in items*/x/*#/for*/",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				block, ok := tmpl.Nodes[0].(*ForBlock)
				require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "item", block.VarName)
				assert.Equal(t, "items", block.Ident)
				assert.Equal(t, "/*#/for*/", block.Close)
			},
		},
		{
			name:      "embed and eval",
			input:     "/*#embed :cond*/1 = 1/*#endembed*/ /*#eval :raw.sql*/x/*#endeval*/",
			wantNodes: 3,
			checkFunc: func(t *testing.T, tmpl *Template) {
				embed, ok := tmpl.Nodes[0].(*EmbedBlock)
				require.True(t, ok, "expected EmbedBlock, got %T", tmpl.Nodes[0])
				assert.Equal(t, "cond", embed.Ident)

				eval, ok := tmpl.Nodes[2].(*EvalBlock)
				require.True(t, ok, "expected EvalBlock, got %T", tmpl.Nodes[2])
				assert.Equal(t, "raw.sql", eval.Ident)
			},
		},
		{
			name:      "tip",
			input:     "/*#tip*/hint/*#endtip*/",
			wantNodes: 1,
			checkFunc: func(t *testing.T, tmpl *Template) {
				_, ok := tmpl.Nodes[0].(*TipBlock)
				require.True(t, ok, "expected TipBlock, got %T", tmpl.Nodes[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseString(tt.input, "test.sql")
			require.NoError(t, err)
			require.Len(t, tmpl.Nodes, tt.wantNodes)
			if tt.checkFunc != nil {
				tt.checkFunc(t, tmpl)
			}
		})
	}
}

func TestParser_NestedBlocks(t *testing.T) {
	input := "/*#for r in :rows*/(/*#if :r.on*/x = /*:r.x*/0/*#endif*/)/*#endfor*/"
	tmpl, err := ParseString(input, "test.sql")
	require.NoError(t, err)
	require.Len(t, tmpl.Nodes, 1)

	outer, ok := tmpl.Nodes[0].(*ForBlock)
	require.True(t, ok, "expected ForBlock, got %T", tmpl.Nodes[0])
	assert.Equal(t, input, outer.Source(), "outer block source covers nested blocks")
	require.Len(t, outer.Body(), 3)

	inner, ok := outer.Body()[1].(*IfBlock)
	require.True(t, ok, "expected IfBlock, got %T", outer.Body()[1])
	assert.Equal(t, "r.on", inner.Ident)
	assert.Equal(t, "/*#if :r.on*/x = /*:r.x*/0/*#endif*/", inner.Source())
}

func TestParser_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"for without in", "/*#for item items*/x/*#endfor*/", "for syntax is 'for <item> in <ident>'"},
		{"if without ident", "/*#if*/x/*#endif*/", "if syntax is 'if <ident>'"},
		{"if with two idents", "/*#if a b*/x/*#endif*/", "if syntax is 'if <ident>'"},
		{"embed with empty segment", "/*#embed a..b*/x/*#endembed*/", "embed syntax is 'embed <ident>'"},
		{"eval without ident", "/*#eval*/x/*#endeval*/", "eval syntax is 'eval <ident>'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input, "test.sql")
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %T: %v", err, err)
			assert.Equal(t, tt.message, syntaxErr.Message())
			assert.Equal(t, tt.input, syntaxErr.Source())
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errType string
		line    int
		col     int
	}{
		{
			name:    "unclosed if",
			input:   "SELECT 1\n  /*#if :x*/AND y",
			errType: "UnmatchedBlockError",
			line:    2,
			col:     3,
		},
		{
			name:    "close without open",
			input:   "abc/*#endif*/",
			errType: "UnmatchedBlockError",
			line:    1,
			col:     4,
		},
		{
			name:    "mismatched close",
			input:   "/*#if :x*/\n/*#endfor*/",
			errType: "SyntaxError",
			line:    2,
			col:     1,
		},
		{
			name:    "unknown control",
			input:   "a\n/*#while x*/y/*#endwhile*/",
			errType: "CompileError",
			line:    2,
			col:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input, "test.sql")
			require.Error(t, err)

			var tmplErr Error
			require.True(t, errors.As(err, &tmplErr), "expected template Error, got %T", err)
			assert.Equal(t, tt.line, tmplErr.Position().Line, "line")
			assert.Equal(t, tt.col, tmplErr.Position().Column, "column")

			switch tt.errType {
			case "UnmatchedBlockError":
				_, ok := err.(*UnmatchedBlockError)
				assert.True(t, ok, "expected UnmatchedBlockError, got %T: %v", err, err)
				var syntaxErr *SyntaxError
				assert.True(t, errors.As(err, &syntaxErr), "UnmatchedBlockError unwraps to SyntaxError")
			case "SyntaxError":
				_, ok := err.(*SyntaxError)
				assert.True(t, ok, "expected SyntaxError, got %T: %v", err, err)
			case "CompileError":
				_, ok := err.(*CompileError)
				assert.True(t, ok, "expected CompileError, got %T: %v", err, err)
				assert.Contains(t, err.Error(), "no such control: 'while'")
			}
		})
	}
}

func TestParser_UnclosedMessage(t *testing.T) {
	_, err := ParseString("SELECT 1\n/*#for x in :xs*/x", "q.sql")
	require.Error(t, err)
	assert.Equal(t, "q.sql:2:1: unclosed 'for' control (missing '/*#endfor*/')", err.Error())

	var unmatched *UnmatchedBlockError
	require.True(t, errors.As(err, &unmatched))
	assert.Equal(t, "for", unmatched.Keyword)
	assert.False(t, unmatched.Closing)
}

func TestParser_MemoryFile(t *testing.T) {
	tmpl, err := ParseString("SELECT 1", "")
	require.NoError(t, err)
	assert.Equal(t, MemoryFile, tmpl.File)
	assert.Equal(t, MemoryFile, tmpl.Nodes[0].Pos().File)
}

func TestTemplate_Idents(t *testing.T) {
	tmpl := MustParse("/*:a*/1 /*#if :b.c*//*:a*/2/*#endif*/ /*#for x in :xs*//*:x*/0/*#endfor*/ /*#embed :e*//*#endembed*/")
	assert.Equal(t, []string{"a", "b.c", "xs", "x", "e"}, tmpl.Idents())
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"embed", "eval", "for", "if", "tip"}, Keywords())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("/*#if :x*/") })
}
