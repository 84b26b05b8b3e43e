package workflow

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Executor runs built workflows. It holds no per-run state and may be used
// for concurrent runs.
type Executor struct {
	Logger    *slog.Logger
	Listeners []Listener
}

// Run executes wf against a fresh Context whose input slot holds input
// (left empty when input is nil). The returned error is non-nil only for
// misuse; action failures are reported in the Result.
func (e *Executor) Run(ctx context.Context, wf *Workflow, input any) (*Result, error) {
	wc := NewContext()
	if input != nil {
		_ = wc.SetInput(input)
	}
	return e.RunContext(ctx, wf, wc)
}

// RunContext executes wf against wc, which must not have been used by
// another run.
func (e *Executor) RunContext(ctx context.Context, wf *Workflow, wc *Context) (*Result, error) {
	if wf == nil || !wf.built {
		return nil, ErrNotBuilt
	}
	if wc == nil {
		return nil, ErrNilContext
	}
	id := uuid.New()
	if err := wc.bind(id); err != nil {
		return nil, err
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &runner{
		listeners: e.Listeners,
		wf:        wf,
		wc:        wc,
		logger:    logger.With("workflow", wf.name, "run", id.String()),
		result:    &Result{ID: id, Workflow: wf.name},
	}
	r.execute(ctx)
	return r.result, nil
}

type runner struct {
	listeners []Listener
	wf        *Workflow
	wc        *Context
	logger    *slog.Logger
	result    *Result

	state    State
	canceled bool
}

func (r *runner) execute(ctx context.Context) {
	r.result.StartedAt = time.Now()
	r.logger.Info("Workflow started",
		"start", len(r.wf.phases[PhaseStart]),
		"body", len(r.wf.phases[PhaseBody]),
		"error", len(r.wf.phases[PhaseError]),
		"finally", len(r.wf.phases[PhaseFinally]))

	r.transition(StateRunningStart)
	if r.runPhase(ctx, PhaseStart) {
		r.transition(StateRunningBody)
		r.runPhase(ctx, PhaseBody)
	} else {
		r.skip(PhaseBody, r.wf.phases[PhaseBody])
	}

	if r.result.Primary != nil {
		r.transition(StateRunningErrorHandlers)
		r.runErrorHandlers(ctx)
	} else {
		r.skip(PhaseError, r.wf.phases[PhaseError])
	}

	r.transition(StateRunningFinally)
	r.runFinally(ctx)

	switch {
	case r.result.Primary != nil:
		r.result.Outcome = OutcomeFailed
	case r.canceled:
		r.result.Outcome = OutcomeCanceled
	default:
		r.result.Outcome = OutcomeSucceeded
	}
	r.transition(r.result.Outcome.state())
	r.result.Duration = time.Since(r.result.StartedAt)

	switch r.result.Outcome {
	case OutcomeFailed:
		r.logger.Error("Workflow failed", "error", r.result.Err(), "elapsed", r.result.Duration)
	case OutcomeCanceled:
		r.logger.Warn("Workflow canceled", "cause", r.result.Cause, "elapsed", r.result.Duration)
	default:
		r.logger.Info("Workflow completed", "elapsed", r.result.Duration)
	}
}

// runPhase executes a start or body phase. It returns false when the run
// must stop advancing because of an error or cancellation.
func (r *runner) runPhase(ctx context.Context, phase Phase) bool {
	steps := r.wf.phases[phase]
	for i, step := range steps {
		if r.checkCanceled(ctx) {
			r.skip(phase, steps[i:])
			return false
		}
		if err := r.invoke(ctx, ctx, phase, step); err != nil {
			if !errors.Is(err, errStepCanceled) {
				r.result.Primary = err
			}
			r.skip(phase, steps[i+1:])
			return false
		}
	}
	return true
}

// runErrorHandlers executes every error handler once. Their errors are
// recorded as secondary and never re-enter error handling.
func (r *runner) runErrorHandlers(ctx context.Context) {
	steps := r.wf.phases[PhaseError]
	for i, step := range steps {
		if r.checkCanceled(ctx) {
			r.skip(PhaseError, steps[i:])
			return
		}
		if err := r.invoke(ctx, ctx, PhaseError, step); err != nil && !errors.Is(err, errStepCanceled) {
			r.result.Secondary = append(r.result.Secondary, err)
		}
	}
}

// runFinally executes every finally action. Cancellation observed here is
// recorded but does not skip actions, and actions run on a context that is
// not canceled with the run.
func (r *runner) runFinally(ctx context.Context) {
	fctx := context.WithoutCancel(ctx)
	for _, step := range r.wf.phases[PhaseFinally] {
		r.checkCanceled(ctx)
		if err := r.invoke(ctx, fctx, PhaseFinally, step); err != nil {
			if r.result.Primary == nil {
				r.result.Primary = err
			} else {
				r.result.Secondary = append(r.result.Secondary, err)
			}
		}
	}
}

var errStepCanceled = errors.New("step returned on cancellation")

// invoke runs one action on stepCtx and records it. runCtx is the run's
// own context, used to tell a cancellation return from a failure. A step
// returning early because of cancellation marks the run canceled and yields
// errStepCanceled.
func (r *runner) invoke(runCtx, stepCtx context.Context, phase Phase, step Step) error {
	ev := ActionEvent{
		RunID:    r.result.ID,
		Workflow: r.wf.name,
		Phase:    phase,
		Step:     step.Name(),
		State:    r.state,
	}
	for _, l := range r.listeners {
		l.BeforeAction(stepCtx, ev)
	}
	r.logger.Info("Step started", "phase", phase.String(), "step", ev.Step)

	began := time.Now()
	err := r.call(stepCtx, step)
	ev.Duration = time.Since(began)

	rec := StepRecord{Phase: phase, Name: ev.Step, Duration: ev.Duration}
	switch {
	case err == nil:
		rec.Status = StepCompleted
		r.logger.Info("Step completed", "phase", phase.String(), "step", ev.Step, "elapsed", ev.Duration)
	case phase != PhaseFinally && returnedOnCancel(runCtx, err):
		rec.Status = StepCanceled
		rec.Err = err
		r.markCanceled(runCtx)
		r.logger.Warn("Step canceled", "phase", phase.String(), "step", ev.Step, "elapsed", ev.Duration)
		err = errStepCanceled
	default:
		err = &ActionError{Phase: phase, Step: ev.Step, Err: err}
		rec.Status = StepFailed
		rec.Err = err
		r.logger.Error("Step failed", "phase", phase.String(), "step", ev.Step, "error", err, "elapsed", ev.Duration)
	}
	r.result.Steps = append(r.result.Steps, rec)

	ev.Status = rec.Status
	ev.Err = rec.Err
	if rec.Status == StepFailed {
		for _, l := range r.listeners {
			l.OnError(stepCtx, ev)
		}
	}
	for _, l := range r.listeners {
		l.AfterAction(stepCtx, ev)
	}
	return err
}

func (r *runner) call(ctx context.Context, step Step) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return step.Execute(ctx, r.wc)
}

// checkCanceled is the per-action cancellation check.
func (r *runner) checkCanceled(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	r.markCanceled(ctx)
	return true
}

func (r *runner) markCanceled(ctx context.Context) {
	if r.canceled {
		return
	}
	r.canceled = true
	r.result.Cause = context.Cause(ctx)
	r.logger.Warn("Cancellation observed", "state", r.state.String(), "cause", r.result.Cause)
}

func (r *runner) skip(phase Phase, steps []Step) {
	for _, s := range steps {
		r.result.Steps = append(r.result.Steps, StepRecord{Phase: phase, Name: s.Name(), Status: StepSkipped})
	}
}

func (r *runner) transition(to State) {
	r.logger.Debug("Run state changed", "from", r.state.String(), "to", to.String())
	r.state = to
}

// returnedOnCancel reports whether err is the run's own cancellation
// surfacing from a step.
func returnedOnCancel(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, ctx.Err()) || errors.Is(err, context.Cause(ctx))
}
