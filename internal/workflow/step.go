// Package workflow runs an ordered composition of actions split into
// start, body, error-handler and finally phases.
package workflow

import (
	"context"
	"fmt"
)

// Step is a unit of work. Execute receives the run's shared Context and a
// ctx whose cancellation the step should honour at its own await points.
type Step interface {
	// Name identifies the step in logs, events and run results.
	Name() string
	Execute(ctx context.Context, wc *Context) error
}

// ActionFunc is the signature of an inline action.
type ActionFunc func(ctx context.Context, wc *Context) error

type action struct {
	name string
	fn   ActionFunc
}

func (a *action) Name() string { return a.name }

func (a *action) Execute(ctx context.Context, wc *Context) error { return a.fn(ctx, wc) }

// Action wraps fn as a Step.
func Action(name string, fn ActionFunc) Step {
	return &action{name: name, fn: fn}
}

// Phase selects one of the four ordered action lists of a Workflow.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseBody
	PhaseError
	PhaseFinally

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseBody:
		return "body"
	case PhaseError:
		return "error"
	case PhaseFinally:
		return "finally"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) valid() bool { return p >= PhaseStart && p < phaseCount }

// State is a position in the executor's state machine.
type State int

const (
	StateIdle State = iota
	StateRunningStart
	StateRunningBody
	StateRunningErrorHandlers
	StateRunningFinally
	StateSucceeded
	StateFailed
	StateCanceled
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateRunningStart:         "running-start",
	StateRunningBody:          "running-body",
	StateRunningErrorHandlers: "running-error-handlers",
	StateRunningFinally:       "running-finally",
	StateSucceeded:            "succeeded",
	StateFailed:               "failed",
	StateCanceled:             "canceled",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the terminal result of a run.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) state() State {
	switch o {
	case OutcomeFailed:
		return StateFailed
	case OutcomeCanceled:
		return StateCanceled
	}
	return StateSucceeded
}

// StepStatus records what happened to one action in a run.
type StepStatus int

const (
	StepCompleted StepStatus = iota
	StepFailed
	StepCanceled // returned early because the run was canceled
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepCompleted:
		return "completed"
	case StepFailed:
		return "failed"
	case StepCanceled:
		return "canceled"
	case StepSkipped:
		return "skipped"
	}
	return fmt.Sprintf("StepStatus(%d)", int(s))
}
