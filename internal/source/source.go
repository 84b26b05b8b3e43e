package source

import (
	"context"
	"fmt"

	"github.com/futureCreator/vflow/internal/dsl"
)

// Unit is one piece of pipeline source text.
type Unit struct {
	// Name labels the unit in errors and run records: a file path,
	// "inline", or an embedded pipeline name.
	Name string
	Text string
	// Dir is the directory steps run in by default; empty means the
	// current directory.
	Dir string
}

// Source fetches pipeline source text.
type Source interface {
	Fetch(ctx context.Context) (*Unit, error)
}

// Error prefixes a positioned lexing or parsing error with the unit name,
// giving "ci.flow:3:7: ...".
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Parse parses every pipeline declared in u.
func Parse(u *Unit) ([]*dsl.PipelineNode, error) {
	nodes, err := dsl.ParseAllString(u.Text)
	if err != nil {
		return nil, &Error{Name: u.Name, Err: err}
	}
	return nodes, nil
}
