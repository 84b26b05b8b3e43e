package dsl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_DemoPipeline(t *testing.T) {
	toks, err := Tokenize(`pipeline "demo" ( Build() > Test(noBuild: true) )`)
	require.NoError(t, err)

	assert.Equal(t, []TokenKind{
		TokenPipeline, TokenString, TokenLParen,
		TokenIdent, TokenLParen, TokenRParen,
		TokenChain,
		TokenIdent, TokenLParen, TokenIdent, TokenColon, TokenBool, TokenRParen,
		TokenRParen, TokenEOF,
	}, kinds(toks))

	assert.Equal(t, "demo", toks[1].Lexeme)
	assert.Equal(t, "Build", toks[3].Lexeme)
	assert.Equal(t, "noBuild", toks[9].Lexeme)
	assert.Equal(t, "true", toks[11].Lexeme)
}

func TestTokenize_Positions(t *testing.T) {
	toks, err := Tokenize("pipeline \"x\"\n  Step")
	require.NoError(t, err)
	require.Len(t, toks, 5)

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, Position{Line: 1, Column: 10, Offset: 9}, toks[1].Pos)
	assert.Equal(t, TokenEOL, toks[2].Kind)
	assert.Equal(t, Position{Line: 1, Column: 13, Offset: 12}, toks[2].Pos)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 15}, toks[3].Pos)
	assert.Equal(t, TokenEOF, toks[4].Kind)
}

func TestTokenize_Literals(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		kind   TokenKind
		lexeme string
	}{
		{"integer", "42", TokenNumber, "42"},
		{"decimal", "3.25", TokenNumber, "3.25"},
		{"true", "true", TokenBool, "true"},
		{"false", "false", TokenBool, "false"},
		{"capitalized bool is an identifier", "True", TokenIdent, "True"},
		{"keyword", "pipeline", TokenPipeline, "pipeline"},
		{"capitalized keyword is an identifier", "Pipeline", TokenIdent, "Pipeline"},
		{"keyword prefix is an identifier", "pipelines", TokenIdent, "pipelines"},
		{"underscore identifier", "_build_2", TokenIdent, "_build_2"},
		{"unicode identifier", "étape", TokenIdent, "étape"},
		{"string", `"hello world"`, TokenString, "hello world"},
		{"escaped quote", `"say \"hi\""`, TokenString, `say "hi"`},
		{"escaped newline", `"a\nb"`, TokenString, "a\nb"},
		{"empty string", `""`, TokenString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.src)
			require.NoError(t, err)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.kind, toks[0].Kind)
			assert.Equal(t, tt.lexeme, toks[0].Lexeme)
			assert.Equal(t, TokenEOF, toks[1].Kind)
		})
	}
}

func TestTokenize_Punctuation(t *testing.T) {
	toks, err := Tokenize(", = ( ) : >")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{
		TokenComma, TokenEquals, TokenLParen, TokenRParen, TokenColon, TokenChain, TokenEOF,
	}, kinds(toks))
}

func TestTokenize_LineEndings(t *testing.T) {
	toks, err := Tokenize("a\r\nb\n\nc")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenEOL, TokenIdent, TokenEOL, TokenEOL, TokenIdent, TokenEOF,
	}, kinds(toks))
}

func TestTokenize_NumberFollowedByDot(t *testing.T) {
	_, err := Tokenize("1.")
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, '.', lexErr.Char)
	assert.Equal(t, Position{Line: 1, Column: 2, Offset: 1}, lexErr.Pos)
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  Position
		msg  string
	}{
		{"unexpected character", `pipeline "x" ( Build() @ )`, Position{1, 24, 23}, `1:24: unexpected character '@'`},
		{"second line", "pipeline\n  $", Position{2, 3, 11}, `2:3: unexpected character '$'`},
		{"unterminated string", `Build(path: "abc`, Position{1, 13, 12}, "1:13: unterminated string literal"},
		{"newline in string", "\"ab\ncd\"", Position{1, 4, 3}, "1:4: newline in string literal"},
		{"unknown escape", `"a\qb"`, Position{1, 3, 2}, `1:3: unknown escape sequence \q`},
		{"negative number", "-1", Position{1, 1, 0}, `1:1: unexpected character '-'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.src)
			assert.Nil(t, toks)
			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr), "want *LexError, got %T", err)
			assert.Equal(t, tt.pos, lexErr.Pos)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestTokens_LazyAndRestartable(t *testing.T) {
	seq := Tokens(`pipeline "x" ( A() )`)

	var first []TokenKind
	for tok, err := range seq {
		require.NoError(t, err)
		first = append(first, tok.Kind)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []TokenKind{TokenPipeline, TokenString}, first)

	var all []TokenKind
	for tok, err := range seq {
		require.NoError(t, err)
		all = append(all, tok.Kind)
	}
	assert.Len(t, all, 8)
	assert.Equal(t, TokenEOF, all[len(all)-1])
}

func TestTokens_StopsAtError(t *testing.T) {
	var got []TokenKind
	var lexErr error
	for tok, err := range Tokens("a b ? c") {
		if err != nil {
			lexErr = err
			continue
		}
		got = append(got, tok.Kind)
	}
	assert.Equal(t, []TokenKind{TokenIdent, TokenIdent}, got)
	assert.Error(t, lexErr)
}

func TestTokenize_EmptySource(t *testing.T) {
	toks, err := Tokenize("  \t ")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{TokenEOF}, kinds(toks))
}
