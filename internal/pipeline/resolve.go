package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/futureCreator/vflow/internal/dsl"
	"github.com/futureCreator/vflow/internal/workflow"
)

// UnknownStepError reports a step name with no registered definition.
type UnknownStepError struct {
	Name string
	Pos  dsl.Position
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("%s: unknown step %q", e.Pos, e.Name)
}

// StepConstructionError reports a step whose parameters could not be
// bound or whose factory failed.
type StepConstructionError struct {
	Name string
	Pos  dsl.Position
	Err  error
}

func (e *StepConstructionError) Error() string {
	return fmt.Sprintf("%s: constructing step %s: %v", e.Pos, e.Name, e.Err)
}

func (e *StepConstructionError) Unwrap() error { return e.Err }

// ParamError describes one parameter that does not fit its declaration.
type ParamError struct {
	Key string
	Pos dsl.Position
	Msg string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Key, e.Msg)
}

// Resolve turns one step node into a runnable step using reg.
func Resolve(node *dsl.StepNode, reg *Registry) (workflow.Step, error) {
	def, ok := reg.Lookup(node.Name)
	if !ok {
		return nil, &UnknownStepError{Name: node.Name, Pos: node.Pos}
	}
	args, err := bind(def, node)
	if err != nil {
		return nil, &StepConstructionError{Name: node.Name, Pos: node.Pos, Err: err}
	}
	step, err := def.New(args)
	if err != nil {
		return nil, &StepConstructionError{Name: node.Name, Pos: node.Pos, Err: err}
	}
	if step == nil {
		return nil, &StepConstructionError{Name: node.Name, Pos: node.Pos, Err: fmt.Errorf("factory returned no step")}
	}
	return step, nil
}

// ResolveAll resolves the chain of p in order and stops at the first
// failure.
func ResolveAll(p *dsl.PipelineNode, reg *Registry) ([]workflow.Step, error) {
	steps := make([]workflow.Step, 0, len(p.Steps))
	for _, node := range p.Steps {
		s, err := Resolve(node, reg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func bind(def *Definition, node *dsl.StepNode) (Args, error) {
	values := make(map[string]any, len(def.Params))
	for _, p := range node.Params {
		spec, ok := def.param(p.Key)
		if !ok {
			return Args{}, &ParamError{Key: p.Key, Pos: p.Pos, Msg: "not accepted by " + def.Name}
		}
		v, err := convert(spec.Type, p.Value)
		if err != nil {
			return Args{}, &ParamError{Key: p.Key, Pos: p.Value.Pos, Msg: err.Error()}
		}
		values[p.Key] = v
	}
	for _, spec := range def.Params {
		if _, ok := values[spec.Name]; ok {
			continue
		}
		if spec.Required {
			return Args{}, &ParamError{Key: spec.Name, Pos: node.Pos, Msg: "required"}
		}
		if spec.Default != nil {
			values[spec.Name] = spec.Default
		}
	}
	return Args{step: node.Name, values: values}, nil
}

func convert(t ParamType, lit dsl.Literal) (any, error) {
	switch t {
	case ParamString:
		if lit.Kind != dsl.LiteralString {
			return nil, fmt.Errorf("want string, got %s %s", lit.Kind, lit)
		}
		return lit.Text, nil
	case ParamInt:
		if lit.Kind != dsl.LiteralNumber {
			return nil, fmt.Errorf("want int, got %s %s", lit.Kind, lit)
		}
		return lit.Int()
	case ParamFloat:
		if lit.Kind != dsl.LiteralNumber {
			return nil, fmt.Errorf("want float, got %s %s", lit.Kind, lit)
		}
		return lit.Float()
	case ParamBool:
		if lit.Kind != dsl.LiteralBool {
			return nil, fmt.Errorf("want bool, got %s %s", lit.Kind, lit)
		}
		return lit.Bool()
	case ParamDuration:
		return duration(lit)
	}
	return nil, fmt.Errorf("unsupported parameter type %s", t)
}

// duration accepts a Go duration string ("1m30s") or a number of seconds.
func duration(lit dsl.Literal) (time.Duration, error) {
	switch lit.Kind {
	case dsl.LiteralString:
		d, err := time.ParseDuration(lit.Text)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %s", lit)
		}
		return d, nil
	case dsl.LiteralNumber:
		secs, err := lit.Float()
		if err != nil {
			return 0, err
		}
		if secs > math.MaxInt64/float64(time.Second) {
			return 0, fmt.Errorf("duration %s out of range", lit.Text)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("want duration, got %s %s", lit.Kind, lit)
}
