// Package dsl implements the pipeline description language: a lexer that
// turns source text into tokens and a parser that builds a PipelineNode.
package dsl

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenPipeline TokenKind = iota // the "pipeline" keyword
	TokenIdent
	TokenString
	TokenNumber
	TokenBool
	TokenComma
	TokenEquals
	TokenLParen
	TokenRParen
	TokenColon
	TokenChain // ">"
	TokenEOL
	TokenEOF
)

var kindNames = [...]string{
	TokenPipeline: "pipeline keyword",
	TokenIdent:    "identifier",
	TokenString:   "string literal",
	TokenNumber:   "number literal",
	TokenBool:     "boolean literal",
	TokenComma:    "','",
	TokenEquals:   "'='",
	TokenLParen:   "'('",
	TokenRParen:   "')'",
	TokenColon:    "':'",
	TokenChain:    "'>'",
	TokenEOL:      "end of line",
	TokenEOF:      "end of file",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Position locates a token in the source. Line and Column are 1-based,
// Column counts runes; Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical unit. For string literals Lexeme holds the
// decoded value without quotes.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Pos    Position
}

func (t Token) String() string {
	switch t.Kind {
	case TokenIdent, TokenNumber, TokenBool:
		return fmt.Sprintf("%s %s", t.Kind, t.Lexeme)
	case TokenString:
		return fmt.Sprintf("%s %q", t.Kind, t.Lexeme)
	}
	return t.Kind.String()
}
