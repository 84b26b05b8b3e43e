package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// LiteralKind is the type of a parameter value.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralNumber:
		return "number"
	case LiteralBool:
		return "bool"
	}
	return fmt.Sprintf("LiteralKind(%d)", int(k))
}

// Literal is a parameter value as written in the source. Text holds the
// decoded string for strings and the raw lexeme otherwise.
type Literal struct {
	Kind LiteralKind
	Text string
	Pos  Position
}

// Float returns the numeric value of a number literal.
func (l Literal) Float() (float64, error) {
	if l.Kind != LiteralNumber {
		return 0, fmt.Errorf("%s literal is not a number", l.Kind)
	}
	return strconv.ParseFloat(l.Text, 64)
}

// Int returns the value of a number literal without a fractional part.
func (l Literal) Int() (int64, error) {
	if l.Kind != LiteralNumber {
		return 0, fmt.Errorf("%s literal is not a number", l.Kind)
	}
	if strings.Contains(l.Text, ".") {
		return 0, fmt.Errorf("number %s is not an integer", l.Text)
	}
	return strconv.ParseInt(l.Text, 10, 64)
}

// Bool returns the value of a boolean literal.
func (l Literal) Bool() (bool, error) {
	if l.Kind != LiteralBool {
		return false, fmt.Errorf("%s literal is not a bool", l.Kind)
	}
	return l.Text == "true", nil
}

func (l Literal) String() string {
	if l.Kind == LiteralString {
		return quote(l.Text)
	}
	return l.Text
}

// quote renders s as a string literal the lexer reads back unchanged. Only
// the escapes the lexer knows are used; every other rune is written raw.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Param is one key: value pair of a step invocation.
type Param struct {
	Key   string
	Value Literal
	Pos   Position
}

// StepNode is one step in a pipeline chain. Parameter keys are unique.
type StepNode struct {
	Name   string
	Params []Param
	Pos    Position
}

// Param returns the value bound to key.
func (s *StepNode) Param(key string) (Literal, bool) {
	for _, p := range s.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Literal{}, false
}

func (s *StepNode) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Key + ": " + p.Value.String()
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}

// PipelineNode is a named, non-empty chain of steps executed left to right.
type PipelineNode struct {
	Name  string
	Steps []*StepNode
	Pos   Position
}

// String renders the pipeline back into source form.
func (p *PipelineNode) String() string {
	steps := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = s.String()
	}
	return fmt.Sprintf("pipeline %s ( %s )", quote(p.Name), strings.Join(steps, " > "))
}
