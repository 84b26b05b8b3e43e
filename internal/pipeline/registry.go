package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/futureCreator/vflow/internal/workflow"
)

// ParamType is the declared type of a step parameter.
type ParamType int

const (
	ParamString ParamType = iota
	ParamInt
	ParamFloat
	ParamBool
	ParamDuration
)

func (t ParamType) String() string {
	switch t {
	case ParamString:
		return "string"
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	case ParamBool:
		return "bool"
	case ParamDuration:
		return "duration"
	}
	return fmt.Sprintf("ParamType(%d)", int(t))
}

// goType names the Go type Args holds for t.
func (t ParamType) goType() string {
	switch t {
	case ParamInt:
		return "int64"
	case ParamFloat:
		return "float64"
	case ParamDuration:
		return "time.Duration"
	}
	return t.String()
}

// ParamSpec declares one parameter a step accepts.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	// Default is used when an optional parameter is absent. It must hold
	// the Go type Args returns for Type (string, int64, float64, bool,
	// time.Duration) or be nil.
	Default any
	Doc     string
}

// StepFactory builds a step from bound parameters.
type StepFactory func(args Args) (workflow.Step, error)

// Definition describes a step type that pipeline sources can name.
type Definition struct {
	Name        string
	Description string
	Params      []ParamSpec
	New         StepFactory
}

func (d *Definition) param(key string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == key {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Registry maps step names to their definitions. It is filled once at
// start-up and only read afterwards.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def. Names are unique and every definition needs a
// factory.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("registering step: empty name")
	}
	if def.New == nil {
		return fmt.Errorf("registering step %q: no factory", def.Name)
	}
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("registering step %q: already registered", def.Name)
	}
	seen := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		if seen[p.Name] {
			return fmt.Errorf("registering step %q: parameter %q declared twice", def.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Default != nil && !defaultMatches(p) {
			return fmt.Errorf("registering step %q: default for %q must be %s, got %T", def.Name, p.Name, p.Type.goType(), p.Default)
		}
	}
	r.defs[def.Name] = &def
	return nil
}

// MustRegister is Register for start-up code; it panics on error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns all registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	names := r.Names()
	out := make([]*Definition, len(names))
	for i, n := range names {
		out[i] = r.defs[n]
	}
	return out
}

func defaultMatches(p ParamSpec) bool {
	switch p.Type {
	case ParamString:
		_, ok := p.Default.(string)
		return ok
	case ParamInt:
		_, ok := p.Default.(int64)
		return ok
	case ParamFloat:
		_, ok := p.Default.(float64)
		return ok
	case ParamBool:
		_, ok := p.Default.(bool)
		return ok
	case ParamDuration:
		_, ok := p.Default.(time.Duration)
		return ok
	}
	return false
}

// Args holds the typed parameter values bound for one step invocation.
// Absent optional parameters without a default are not present.
type Args struct {
	step   string
	values map[string]any
}

// NewArgs builds Args directly, for constructing steps outside a pipeline
// source.
func NewArgs(step string, values map[string]any) Args {
	if values == nil {
		values = map[string]any{}
	}
	return Args{step: step, values: values}
}

// Step returns the name of the step being constructed.
func (a Args) Step() string { return a.step }

// Has reports whether key has a value, given or defaulted.
func (a Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a Args) String(key string) string {
	v, _ := a.values[key].(string)
	return v
}

func (a Args) Int(key string) int64 {
	v, _ := a.values[key].(int64)
	return v
}

func (a Args) Float(key string) float64 {
	v, _ := a.values[key].(float64)
	return v
}

func (a Args) Bool(key string) bool {
	v, _ := a.values[key].(bool)
	return v
}

func (a Args) Duration(key string) time.Duration {
	v, _ := a.values[key].(time.Duration)
	return v
}
