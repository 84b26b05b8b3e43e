package dsl

import "fmt"

// ParseString lexes and parses a source unit holding exactly one pipeline.
func ParseString(src string) (*PipelineNode, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// ParseAllString lexes and parses a source unit holding one or more
// pipelines separated by line breaks.
func ParseAllString(src string) ([]*PipelineNode, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ParseAll(toks)
}

// Parse builds the single pipeline described by tokens. Blank lines may
// surround it; anything else after the closing parenthesis is an error.
func Parse(tokens []Token) (*PipelineNode, error) {
	p := newParser(tokens)
	p.skipEOL()
	node, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	p.skipEOL()
	if t := p.peek(); t.Kind != TokenEOF {
		return nil, p.unexpected(t, TokenEOF)
	}
	return node, nil
}

// ParseAll builds every pipeline in tokens. Declarations are separated by
// at least one end of line.
func ParseAll(tokens []Token) ([]*PipelineNode, error) {
	p := newParser(tokens)
	var nodes []*PipelineNode
	for {
		p.skipEOL()
		if p.peek().Kind == TokenEOF {
			break
		}
		node, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)

		if t := p.peek(); t.Kind != TokenEOL && t.Kind != TokenEOF {
			return nil, p.unexpected(t, TokenEOL, TokenEOF)
		}
	}
	if len(nodes) == 0 {
		return nil, p.unexpected(p.peek(), TokenPipeline)
	}
	return nodes, nil
}

type parser struct {
	toks []Token
	pos  int
	// depth counts open parentheses; end-of-line tokens are skipped while
	// it is positive.
	depth int
}

func newParser(tokens []Token) *parser {
	if n := len(tokens); n == 0 || tokens[n-1].Kind != TokenEOF {
		eof := Token{Kind: TokenEOF, Pos: Position{Line: 1, Column: 1}}
		if n > 0 {
			eof.Pos = tokens[n-1].Pos
		}
		tokens = append(tokens[:n:n], eof)
	}
	return &parser{toks: tokens}
}

func (p *parser) peek() Token {
	for p.depth > 0 && p.toks[p.pos].Kind == TokenEOL {
		p.pos++
	}
	return p.toks[p.pos]
}

func (p *parser) advance() Token {
	t := p.peek()
	if t.Kind == TokenEOF {
		return t
	}
	p.pos++
	switch t.Kind {
	case TokenLParen:
		p.depth++
	case TokenRParen:
		p.depth--
	}
	return t
}

func (p *parser) skipEOL() {
	for p.peek().Kind == TokenEOL {
		p.advance()
	}
}

// expect consumes the next token if it is one of kinds.
func (p *parser) expect(kinds ...TokenKind) (Token, error) {
	t := p.peek()
	for _, k := range kinds {
		if t.Kind == k {
			return p.advance(), nil
		}
	}
	return Token{}, p.unexpected(t, kinds...)
}

func (p *parser) unexpected(found Token, expected ...TokenKind) *ParseError {
	return &ParseError{Pos: found.Pos, Expected: expected, Found: found}
}

// pipeline := KW_PIPELINE STRING '(' chain ')'
func (p *parser) parsePipeline() (*PipelineNode, error) {
	kw, err := p.expect(TokenPipeline)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenString)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	steps, err := p.parseChain(name.Lexeme)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &PipelineNode{Name: name.Lexeme, Steps: steps, Pos: kw.Pos}, nil
}

// chain := step ( '>' step )*
func (p *parser) parseChain(pipeline string) ([]*StepNode, error) {
	if t := p.peek(); t.Kind == TokenRParen {
		return nil, &ParseError{
			Pos:      t.Pos,
			Expected: []TokenKind{TokenIdent},
			Found:    t,
			Msg:      fmt.Sprintf("pipeline %q has no steps", pipeline),
		}
	}

	var steps []*StepNode
	for {
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)

		switch t := p.peek(); t.Kind {
		case TokenChain:
			p.advance()
		case TokenRParen:
			return steps, nil
		default:
			return nil, p.unexpected(t, TokenChain, TokenRParen)
		}
	}
}

// step := IDENT '(' [ param ( ',' param )* ] ')'
func (p *parser) parseStep() (*StepNode, error) {
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	node := &StepNode{Name: name.Lexeme, Pos: name.Pos}

	if p.peek().Kind != TokenRParen {
		seen := make(map[string]Position)
	params:
		for {
			param, keyTok, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			if first, dup := seen[param.Key]; dup {
				return nil, &ParseError{
					Pos:      param.Pos,
					Expected: []TokenKind{TokenIdent},
					Found:    keyTok,
					Msg: fmt.Sprintf("duplicate parameter key %q in step %s (first set at %s)",
						param.Key, node.Name, first),
				}
			}
			seen[param.Key] = param.Pos
			node.Params = append(node.Params, param)

			switch t := p.peek(); t.Kind {
			case TokenComma:
				p.advance()
			case TokenRParen:
				break params
			default:
				return nil, p.unexpected(t, TokenComma, TokenRParen)
			}
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return node, nil
}

// param := IDENT ':' literal
func (p *parser) parseParam() (Param, Token, error) {
	key, err := p.expect(TokenIdent)
	if err != nil {
		return Param{}, key, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return Param{}, key, err
	}
	val, err := p.expect(TokenString, TokenNumber, TokenBool)
	if err != nil {
		return Param{}, key, err
	}

	lit := Literal{Text: val.Lexeme, Pos: val.Pos}
	switch val.Kind {
	case TokenString:
		lit.Kind = LiteralString
	case TokenNumber:
		lit.Kind = LiteralNumber
	case TokenBool:
		lit.Kind = LiteralBool
	}
	return Param{Key: key.Lexeme, Value: lit, Pos: key.Pos}, key, nil
}
