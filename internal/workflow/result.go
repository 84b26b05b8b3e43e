package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StepRecord is the outcome of one action within a run.
type StepRecord struct {
	Phase    Phase
	Name     string
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// Result describes one finished run.
type Result struct {
	ID       uuid.UUID
	Workflow string
	Outcome  Outcome

	// Primary is the first error recorded in the run.
	Primary error
	// Secondary holds errors recorded after Primary, from error handlers
	// and finally actions.
	Secondary []error
	// Cause is the cancellation cause when cancellation was observed.
	Cause error

	Steps     []StepRecord
	StartedAt time.Time
	Duration  time.Duration
}

func (r *Result) Succeeded() bool { return r.Outcome == OutcomeSucceeded }
func (r *Result) Failed() bool    { return r.Outcome == OutcomeFailed }
func (r *Result) Canceled() bool  { return r.Outcome == OutcomeCanceled }

// Completed returns the names of the actions that completed, in execution
// order.
func (r *Result) Completed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Status == StepCompleted {
			names = append(names, s.Name)
		}
	}
	return names
}

// Err returns nil unless the run failed. With secondary errors present it
// returns a *RunError that unwraps to all of them, primary first.
func (r *Result) Err() error {
	if r.Outcome != OutcomeFailed || r.Primary == nil {
		return nil
	}
	if len(r.Secondary) == 0 {
		return r.Primary
	}
	return &RunError{Primary: r.Primary, Secondary: r.Secondary}
}

// ActionEvent is delivered to listeners around each action.
type ActionEvent struct {
	RunID    uuid.UUID
	Workflow string
	Phase    Phase
	Step     string
	State    State
	Status   StepStatus // set for AfterAction and OnError
	Duration time.Duration
	Err      error
}

// Listener observes a run. Calls happen on the run's goroutine between
// actions; a slow listener delays the run.
type Listener interface {
	BeforeAction(ctx context.Context, ev ActionEvent)
	AfterAction(ctx context.Context, ev ActionEvent)
	OnError(ctx context.Context, ev ActionEvent)
}

// ListenerFuncs adapts optional functions to Listener.
type ListenerFuncs struct {
	Before func(ctx context.Context, ev ActionEvent)
	After  func(ctx context.Context, ev ActionEvent)
	Error  func(ctx context.Context, ev ActionEvent)
}

func (l ListenerFuncs) BeforeAction(ctx context.Context, ev ActionEvent) {
	if l.Before != nil {
		l.Before(ctx, ev)
	}
}

func (l ListenerFuncs) AfterAction(ctx context.Context, ev ActionEvent) {
	if l.After != nil {
		l.After(ctx, ev)
	}
}

func (l ListenerFuncs) OnError(ctx context.Context, ev ActionEvent) {
	if l.Error != nil {
		l.Error(ctx, ev)
	}
}
