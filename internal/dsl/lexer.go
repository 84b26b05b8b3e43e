package dsl

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

var punctuation = map[rune]TokenKind{
	',': TokenComma,
	'=': TokenEquals,
	'(': TokenLParen,
	')': TokenRParen,
	':': TokenColon,
	'>': TokenChain,
}

// Tokens lexes src lazily. Each call starts a fresh scan. The sequence ends
// after the EOF token, or after yielding a *LexError for the first
// character that matches no rule.
func Tokens(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		s := &scanner{src: src, line: 1, col: 1}
		for {
			tok, err := s.next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !yield(tok, nil) || tok.Kind == TokenEOF {
				return
			}
		}
	}
}

// Tokenize lexes the whole of src. On success the last token is TokenEOF.
func Tokenize(src string) ([]Token, error) {
	var toks []Token
	for tok, err := range Tokens(src) {
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

type scanner struct {
	src  string
	off  int
	line int
	col  int
}

func (s *scanner) pos() Position {
	return Position{Line: s.line, Column: s.col, Offset: s.off}
}

// peek returns the rune at the current offset; width is 0 at end of input.
func (s *scanner) peek() (rune, int) {
	if s.off >= len(s.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.src[s.off:])
}

// peekSecond returns the rune following the current one.
func (s *scanner) peekSecond() (rune, int) {
	_, w := s.peek()
	if s.off+w >= len(s.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.src[s.off+w:])
}

func (s *scanner) advance() rune {
	r, w := s.peek()
	s.off += w
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) next() (Token, error) {
	for {
		r, w := s.peek()
		if w == 0 || r == '\n' || !unicode.IsSpace(r) {
			break
		}
		s.advance()
	}

	start := s.pos()
	r, w := s.peek()
	switch {
	case w == 0:
		return Token{Kind: TokenEOF, Pos: start}, nil
	case r == '\n':
		s.advance()
		return Token{Kind: TokenEOL, Lexeme: "\n", Pos: start}, nil
	case r == '"':
		return s.scanString(start)
	case isDigit(r):
		return s.scanNumber(start), nil
	case isIdentStart(r):
		return s.scanWord(start), nil
	}

	if kind, ok := punctuation[r]; ok {
		s.advance()
		return Token{Kind: kind, Lexeme: string(r), Pos: start}, nil
	}
	return Token{}, &LexError{Pos: start, Char: r}
}

func (s *scanner) scanString(start Position) (Token, error) {
	s.advance() // opening quote
	var sb strings.Builder
	for {
		r, w := s.peek()
		switch {
		case w == 0:
			return Token{}, &LexError{Pos: start, Char: '"', Msg: "unterminated string literal"}
		case r == '\n':
			return Token{}, &LexError{Pos: s.pos(), Char: r, Msg: "newline in string literal"}
		case r == '"':
			s.advance()
			return Token{Kind: TokenString, Lexeme: sb.String(), Pos: start}, nil
		case r == '\\':
			escPos := s.pos()
			s.advance()
			e, w := s.peek()
			switch {
			case w == 0:
				return Token{}, &LexError{Pos: start, Char: '"', Msg: "unterminated string literal"}
			case e == '\n':
				return Token{}, &LexError{Pos: s.pos(), Char: e, Msg: "newline in string literal"}
			case e == '"' || e == '\\':
				sb.WriteRune(e)
			case e == 'n':
				sb.WriteByte('\n')
			case e == 't':
				sb.WriteByte('\t')
			default:
				return Token{}, &LexError{Pos: escPos, Char: e, Msg: fmt.Sprintf("unknown escape sequence \\%c", e)}
			}
			s.advance()
		default:
			sb.WriteRune(r)
			s.advance()
		}
	}
}

// scanNumber reads digits with at most one embedded decimal point. A point
// not followed by a digit is left for the next token.
func (s *scanner) scanNumber(start Position) Token {
	s.skipDigits()
	if r, _ := s.peek(); r == '.' {
		if d, _ := s.peekSecond(); isDigit(d) {
			s.advance()
			s.skipDigits()
		}
	}
	return Token{Kind: TokenNumber, Lexeme: s.src[start.Offset:s.off], Pos: start}
}

func (s *scanner) skipDigits() {
	for {
		r, w := s.peek()
		if w == 0 || !isDigit(r) {
			return
		}
		s.advance()
	}
}

func (s *scanner) scanWord(start Position) Token {
	for {
		r, w := s.peek()
		if w == 0 || !isIdentPart(r) {
			break
		}
		s.advance()
	}
	word := s.src[start.Offset:s.off]
	kind := TokenIdent
	switch word {
	case "pipeline":
		kind = TokenPipeline
	case "true", "false":
		kind = TokenBool
	}
	return Token{Kind: kind, Lexeme: word, Pos: start}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool { return isIdentStart(r) || unicode.IsDigit(r) }
