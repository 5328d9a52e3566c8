package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src, "test.js", 1)
	var toks []Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		if tok.Type == TokenEnd {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestTokens(t *testing.T) {
	toks := lexAll(t, "var x = 1 + 2;")
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenVar, TokenName, TokenAssignment, TokenNumber,
		TokenAddition, TokenNumber, TokenSemicolon,
	}, types)
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.25", 3.25},
		{".5", 0.5},
		{"1e3", 1000},
		{"1.5e-2", 0.015},
		{"1E+2", 100},
		{"0x10", 16},
		{"0XFF", 255},
		{"0b101", 5},
		{"0o17", 15},
	}
	for _, tt := range tests {
		toks := lexAll(t, tt.src)
		require.Len(t, toks, 1, tt.src)
		assert.Equal(t, TokenNumber, toks[0].Type, tt.src)
		assert.Equal(t, tt.want, toks[0].Number, tt.src)
	}
}

func TestMalformedNumbers(t *testing.T) {
	for _, src := range []string{"1e", "1e+", "0x", "0b2", "0o8", "12abc"} {
		l := NewLexer(src, "", 1)
		_, err := l.Next()
		assert.Error(t, err, src)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"plain"`, "plain"},
		{`'single'`, "single"},
		{`"a\nb\tc"`, "a\nb\tc"},
		{`"\x41\x62"`, "Ab"},
		{`"\u0041"`, "A"},
		{`"\uD83D\uDE00"`, "\U0001F600"},
		{`"\u{1F600}"`, "\U0001F600"},
		{`"😀"`, "\U0001F600"},
		{`"\uD83D"`, "�"},
		{`"\q"`, "q"},
		{`"\0"`, "\x00"},
	}
	for _, tt := range tests {
		toks := lexAll(t, tt.src)
		require.Len(t, toks, 1, tt.src)
		assert.Equal(t, TokenString, toks[0].Type)
		assert.Equal(t, tt.want, toks[0].Text, tt.src)
	}
}

func TestBadStrings(t *testing.T) {
	for _, src := range []string{`"open`, `"line
break"`, `"\u12G4"`, `"\u{110000}"`, `"\x4"`} {
		l := NewLexer(src, "", 1)
		_, err := l.Next()
		assert.Error(t, err, src)
	}
}

func TestLineTracking(t *testing.T) {
	toks := lexAll(t, "a\nb\r\nc")
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[2].Line)
}

func TestComments(t *testing.T) {
	toks := lexAll(t, "a // line comment\n/* block\ncomment */ b")
	require.Len(t, toks, 2)
	assert.Equal(t, "a", toks[0].Text)
	assert.Equal(t, "b", toks[1].Text)
	assert.Equal(t, 3, toks[1].Line)
}

func TestRegexpVersusDivision(t *testing.T) {
	// After a value, '/' is division.
	toks := lexAll(t, "a / b")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenDivision, toks[1].Type)

	// In expression position it starts a regexp literal.
	toks = lexAll(t, "a = /ab+c/gi")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenRegexp, toks[2].Type)
	assert.Equal(t, "/ab+c/gi", toks[2].Text)

	// After ')' it is division.
	toks = lexAll(t, "(a) / b")
	assert.Equal(t, TokenDivision, toks[3].Type)

	// A class may contain an unescaped slash.
	toks = lexAll(t, "x = /[/]/")
	assert.Equal(t, TokenRegexp, toks[2].Type)
}

func TestPrevTypeLineEnd(t *testing.T) {
	l := NewLexer("a\nb", "", 1)

	_, err := l.Next()
	require.NoError(t, err)
	_, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenLineEnd, l.PrevType())

	l = NewLexer("a b", "", 1)
	_, _ = l.Next()
	_, _ = l.Next()
	assert.Equal(t, TokenName, l.PrevType())
}

func TestUniqueID(t *testing.T) {
	toks := lexAll(t, "foo bar foo")
	require.Len(t, toks, 3)
	assert.Equal(t, toks[0].UniqueID, toks[2].UniqueID)
	assert.NotEqual(t, toks[0].UniqueID, toks[1].UniqueID)
	assert.NotZero(t, toks[0].UniqueID)
}

func TestKeywords(t *testing.T) {
	toks := lexAll(t, "function typeof instanceof")
	assert.Equal(t, TokenFunction, toks[0].Type)
	assert.Equal(t, TokenTypeof, toks[1].Type)
	assert.Equal(t, TokenInstanceof, toks[2].Type)
}

func TestOperatorMaximalMunch(t *testing.T) {
	toks := lexAll(t, "a >>>= b >>> c >> d > e")
	types := []TokenType{}
	for _, tok := range toks {
		if tok.Type != TokenName {
			types = append(types, tok.Type)
		}
	}
	assert.Equal(t, []TokenType{
		TokenUnsignedRightShiftAssignment, TokenUnsignedRightShift,
		TokenRightShift, TokenGreater,
	}, types)
}
