package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cygraph/internal/lexer"
	"github.com/orneryd/cygraph/internal/token"
)

func scanAll(src string) []token.Token {
	l := lexer.New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanKeywordsAndIdent(t *testing.T) {
	toks := scanAll(`MATCH (p:Person) RETURN p`)
	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.MATCH, token.LPAREN, token.IDENT, token.COLON, token.IDENT,
		token.RPAREN, token.RETURN, token.IDENT, token.EOF,
	}, kinds)
}

func TestScanIntegerLiteralBases(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"42", 42},
		{"0x2A", 42},
		{"0o52", 42},
		{"0b101010", 42},
	}
	for _, c := range cases {
		l := lexer.New(c.src)
		tok := l.Next()
		require.Equal(t, token.INTEGER, tok.Kind, c.src)
		assert.Equal(t, c.want, tok.IntValue, c.src)
		require.Nil(t, l.Err())
	}
}

func TestScanFloatLiteral(t *testing.T) {
	l := lexer.New("3.14e2")
	tok := l.Next()
	require.Equal(t, token.FLOAT, tok.Kind)
	assert.InDelta(t, 314.0, tok.FloatValue, 0.0001)
}

func TestScanStringEscapes(t *testing.T) {
	l := lexer.New(`"a\nb\u{41}"`)
	tok := l.Next()
	require.Equal(t, token.STRING, tok.Kind)
	assert.Equal(t, "a\nbA", tok.Lexeme)
}

func TestScanUnterminatedStringRecordsError(t *testing.T) {
	l := lexer.New(`"unterminated`)
	tok := l.Next()
	assert.Equal(t, token.ILLEGAL, tok.Kind)
	require.NotNil(t, l.Err())
	assert.Equal(t, 1, l.Err().Pos.Line)
}

func TestScanBacktickIdentifierWithEscapedBacktick(t *testing.T) {
	l := lexer.New("`a``b`")
	tok := l.Next()
	require.Equal(t, token.IDENT, tok.Kind)
	assert.Equal(t, "a`b", tok.Lexeme)
}

func TestScanParam(t *testing.T) {
	l := lexer.New("$limit")
	tok := l.Next()
	require.Equal(t, token.PARAM, tok.Kind)
	assert.Equal(t, "limit", tok.Lexeme)
}

func TestScanGreedyArrowsAndOperators(t *testing.T) {
	cases := []struct {
		src  string
		want token.Kind
	}{
		{"<->", token.ARROW_BOTH},
		{"<-", token.ARROW_LEFT},
		{"->", token.ARROW_RIGHT},
		{"<=", token.LE},
		{">=", token.GE},
		{"<>", token.NEQ},
		{"=~", token.REGEX_EQ},
		{"..", token.DOTDOT},
	}
	for _, c := range cases {
		tok := lexer.New(c.src).Next()
		assert.Equal(t, c.want, tok.Kind, c.src)
	}
}

func TestScanLineAndBlockComments(t *testing.T) {
	toks := scanAll("RETURN 1 // trailing comment\n/* block */ , 2")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.RETURN, token.INTEGER, token.COMMA, token.INTEGER, token.EOF,
	}, kinds)
}

func TestScanUnknownCharacterRecordsErrorAndReturnsEOFAfter(t *testing.T) {
	l := lexer.New("RETURN 1 \x01")
	for {
		tok := l.Next()
		if tok.Kind == token.EOF {
			break
		}
	}
	require.NotNil(t, l.Err())
	assert.Equal(t, "lexical", l.Err().Kind.String())
}

func TestNextAtEOFKeepsReturningEOF(t *testing.T) {
	l := lexer.New("")
	assert.Equal(t, token.EOF, l.Next().Kind)
	assert.Equal(t, token.EOF, l.Next().Kind)
}
