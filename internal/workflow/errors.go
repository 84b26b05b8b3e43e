package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotBuilt is returned when running a Workflow that did not come
	// from Builder.Build.
	ErrNotBuilt = errors.New("workflow: not built")
	// ErrNilContext is returned by RunContext for a nil Context.
	ErrNilContext = errors.New("workflow: nil context")
	// ErrContextInUse is returned when a Context already bound to a run is
	// passed to another one.
	ErrContextInUse = errors.New("workflow: context already bound to a run")
	// ErrInputAlreadySet is returned by a second SetInput.
	ErrInputAlreadySet = errors.New("workflow: input already set")
	// ErrNoInput is returned by InputAs when the slot is empty.
	ErrNoInput = errors.New("workflow: no input")
	// ErrEmptyStart is wrapped by BuildError when no start action was added.
	ErrEmptyStart = errors.New("start phase is empty")
)

// KeyNotFoundError reports a read of a key no action has written.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("context key %q not found", e.Key)
}

// KeyTypeError reports a stored value of an unexpected type.
type KeyTypeError struct {
	Key  string
	Want string
	Got  any
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("context key %q holds %T, not %s", e.Key, e.Got, e.Want)
}

// BuildError is returned by Builder.Build.
type BuildError struct {
	Workflow string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building workflow %q: %v", e.Workflow, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ActionError wraps an error returned by an action during a run.
type ActionError struct {
	Phase Phase
	Step  string
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s step %q failed: %v", e.Phase, e.Step, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// PanicError carries the value recovered from a panicking action.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RunError reports the primary error of a failed run together with the
// errors recorded after it.
type RunError struct {
	Primary   error
	Secondary []error
}

func (e *RunError) Error() string {
	if len(e.Secondary) == 0 {
		return e.Primary.Error()
	}
	more := make([]string, len(e.Secondary))
	for i, err := range e.Secondary {
		more[i] = err.Error()
	}
	return fmt.Sprintf("%v (also: %s)", e.Primary, strings.Join(more, "; "))
}

func (e *RunError) Unwrap() []error {
	return append([]error{e.Primary}, e.Secondary...)
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
