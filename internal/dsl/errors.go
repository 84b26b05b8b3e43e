package dsl

import (
	"fmt"
	"strings"
)

// LexError reports a character the lexer could not classify.
type LexError struct {
	Pos  Position
	Char rune
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: unexpected character %q", e.Pos, e.Char)
}

// ParseError reports the first token that did not fit the grammar, or a
// duplicate parameter key.
type ParseError struct {
	Pos      Position
	Expected []TokenKind
	Found    Token
	Msg      string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	want := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		want[i] = k.String()
	}
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, strings.Join(want, " or "), e.Found)
}
