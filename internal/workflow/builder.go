package workflow

import "fmt"

// Workflow is an immutable, built plan. It may be run any number of times,
// concurrently, each run with its own Context.
type Workflow struct {
	name   string
	phases [phaseCount][]Step
	built  bool
}

// Name returns the workflow name given to NewBuilder.
func (w *Workflow) Name() string { return w.name }

// Steps returns a copy of the actions of phase p in execution order.
func (w *Workflow) Steps(p Phase) []Step {
	if !p.valid() {
		return nil
	}
	return append([]Step(nil), w.phases[p]...)
}

// Builder assembles a Workflow. Actions are appended to their phase in call
// order; phases may be filled in any order. A Builder is consumed by a
// successful Build and panics if used afterwards.
type Builder struct {
	name     string
	phases   [phaseCount][]Step
	consumed bool
}

// NewBuilder returns an empty builder for a workflow called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Add appends steps to phase.
func (b *Builder) Add(phase Phase, steps ...Step) {
	b.mustBeOpen()
	if !phase.valid() {
		panic(fmt.Sprintf("workflow: invalid phase %d", int(phase)))
	}
	b.phases[phase] = append(b.phases[phase], steps...)
}

// AddFunc appends an inline action to phase.
func (b *Builder) AddFunc(phase Phase, name string, fn ActionFunc) {
	b.Add(phase, Action(name, fn))
}

// Start appends steps to the start phase.
func (b *Builder) Start(steps ...Step) { b.Add(PhaseStart, steps...) }

// Body appends steps to the body phase.
func (b *Builder) Body(steps ...Step) { b.Add(PhaseBody, steps...) }

// OnError appends steps to the error-handler phase.
func (b *Builder) OnError(steps ...Step) { b.Add(PhaseError, steps...) }

// Finally appends steps to the finally phase.
func (b *Builder) Finally(steps ...Step) { b.Add(PhaseFinally, steps...) }

// Build validates the phases and returns the Workflow. The start phase must
// hold at least one action.
func (b *Builder) Build() (*Workflow, error) {
	b.mustBeOpen()
	if len(b.phases[PhaseStart]) == 0 {
		return nil, &BuildError{Workflow: b.name, Err: ErrEmptyStart}
	}

	wf := &Workflow{name: b.name, built: true}
	for p := range b.phases {
		for i, s := range b.phases[p] {
			if s == nil {
				return nil, &BuildError{
					Workflow: b.name,
					Err:      fmt.Errorf("%s phase: action %d is nil", Phase(p), i),
				}
			}
		}
		wf.phases[p] = append([]Step(nil), b.phases[p]...)
	}

	b.consumed = true
	b.phases = [phaseCount][]Step{}
	return wf, nil
}

func (b *Builder) mustBeOpen() {
	if b.consumed {
		panic("workflow: builder used after Build")
	}
}
