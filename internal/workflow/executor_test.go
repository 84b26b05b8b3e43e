package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trace records the order in which actions ran.
type trace struct {
	calls []string
}

func (tr *trace) step(name string) Step {
	return tr.stepFn(name, nil)
}

func (tr *trace) failing(name string, err error) Step {
	return tr.stepFn(name, func(context.Context, *Context) error { return err })
}

func (tr *trace) stepFn(name string, fn ActionFunc) Step {
	return Action(name, func(ctx context.Context, wc *Context) error {
		tr.calls = append(tr.calls, name)
		if fn != nil {
			return fn(ctx, wc)
		}
		return nil
	})
}

func quietExecutor(listeners ...Listener) *Executor {
	return &Executor{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Listeners: listeners,
	}
}

func build(t *testing.T, b *Builder) *Workflow {
	t.Helper()
	wf, err := b.Build()
	require.NoError(t, err)
	return wf
}

func statuses(res *Result) map[string]StepStatus {
	out := make(map[string]StepStatus, len(res.Steps))
	for _, s := range res.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestExecutor_StartAndFinallySucceed(t *testing.T) {
	tr := &trace{}
	b := NewBuilder("simple")
	b.Finally(tr.step("f1"), tr.step("f2"))
	b.Start(tr.step("s1"), tr.step("s2"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.True(t, res.Succeeded())
	assert.NoError(t, res.Err())
	assert.Equal(t, []string{"s1", "s2", "f1", "f2"}, tr.calls)
	assert.Equal(t, []string{"s1", "s2", "f1", "f2"}, res.Completed())
	assert.Equal(t, "simple", res.Workflow)
	assert.NotZero(t, res.ID)
}

func TestExecutor_BodyErrorRunsHandlersThenFinally(t *testing.T) {
	tr := &trace{}
	boom := errors.New("compile failed")

	b := NewBuilder("failing")
	b.Start(tr.step("init"))
	b.Body(tr.step("restore"), tr.failing("build", boom), tr.step("test"))
	b.OnError(tr.step("notify"), tr.step("rollback"))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "restore", "build", "notify", "rollback", "cleanup"}, tr.calls)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err(), boom)

	var actionErr *ActionError
	require.ErrorAs(t, res.Primary, &actionErr)
	assert.Equal(t, PhaseBody, actionErr.Phase)
	assert.Equal(t, "build", actionErr.Step)
	assert.Empty(t, res.Secondary)

	st := statuses(res)
	assert.Equal(t, StepFailed, st["build"])
	assert.Equal(t, StepSkipped, st["test"])
	assert.Equal(t, StepCompleted, st["notify"])
	assert.Equal(t, StepCompleted, st["cleanup"])
}

func TestExecutor_StartErrorSkipsBody(t *testing.T) {
	tr := &trace{}
	b := NewBuilder("start-fails")
	b.Start(tr.failing("init", errors.New("no workspace")), tr.step("init2"))
	b.Body(tr.step("build"))
	b.OnError(tr.step("handler"))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "handler", "cleanup"}, tr.calls)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	st := statuses(res)
	assert.Equal(t, StepSkipped, st["init2"])
	assert.Equal(t, StepSkipped, st["build"])
}

func TestExecutor_NoErrorSkipsHandlers(t *testing.T) {
	tr := &trace{}
	b := NewBuilder("ok")
	b.Start(tr.step("init"))
	b.Body(tr.step("build"))
	b.OnError(tr.step("handler"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "build"}, tr.calls)
	assert.Equal(t, StepSkipped, statuses(res)["handler"])
}

func TestExecutor_CancelBeforeSecondBodyAction(t *testing.T) {
	tr := &trace{}
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	stop := errors.New("user interrupt")

	b := NewBuilder("cancel")
	b.Start(tr.step("init"))
	b.Body(
		tr.stepFn("first", func(context.Context, *Context) error {
			cancel(stop)
			return nil
		}),
		tr.step("second"),
		tr.step("third"),
	)
	b.OnError(tr.step("handler"))
	b.Finally(tr.stepFn("cleanup", func(ctx context.Context, _ *Context) error {
		return ctx.Err()
	}))

	res, err := quietExecutor().Run(ctx, build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "first", "cleanup"}, tr.calls)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.True(t, res.Canceled())
	assert.NoError(t, res.Err())
	assert.ErrorIs(t, res.Cause, stop)

	st := statuses(res)
	assert.Equal(t, StepCompleted, st["first"])
	assert.Equal(t, StepSkipped, st["second"])
	assert.Equal(t, StepSkipped, st["third"])
	assert.Equal(t, StepSkipped, st["handler"])
	assert.Equal(t, StepCompleted, st["cleanup"], "finally actions must not see the run's cancellation")
}

func TestExecutor_CanceledBeforeRun(t *testing.T) {
	tr := &trace{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder("precanceled")
	b.Start(tr.step("init"))
	b.Body(tr.step("build"))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(ctx, build(t, b), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleanup"}, tr.calls)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.ErrorIs(t, res.Cause, context.Canceled)
}

func TestExecutor_StepReturningOnCancel(t *testing.T) {
	tr := &trace{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBuilder("sleepy")
	b.Start(tr.step("init"))
	b.Body(
		tr.stepFn("wait", func(ctx context.Context, _ *Context) error {
			cancel()
			<-ctx.Done()
			return fmt.Errorf("waiting: %w", ctx.Err())
		}),
		tr.step("after"),
	)
	b.OnError(tr.step("handler"))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(ctx, build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.Nil(t, res.Primary)
	assert.Equal(t, []string{"init", "wait", "cleanup"}, tr.calls)
	st := statuses(res)
	assert.Equal(t, StepCanceled, st["wait"])
	assert.Equal(t, StepSkipped, st["after"])
	assert.Equal(t, StepSkipped, st["handler"])
}

func TestExecutor_ErrorHandlerErrorsAreSecondary(t *testing.T) {
	tr := &trace{}
	primary := errors.New("tests failed")
	handlerErr := errors.New("slack unreachable")

	b := NewBuilder("handlers")
	b.Start(tr.step("init"))
	b.Body(tr.failing("test", primary))
	b.OnError(tr.failing("notify", handlerErr), tr.step("rollback"))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "test", "notify", "rollback", "cleanup"}, tr.calls)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Primary, primary)
	require.Len(t, res.Secondary, 1)
	assert.ErrorIs(t, res.Secondary[0], handlerErr)

	var runErr *RunError
	require.ErrorAs(t, res.Err(), &runErr)
	assert.ErrorIs(t, res.Err(), primary)
	assert.ErrorIs(t, res.Err(), handlerErr)
	assert.Equal(t,
		`body step "test" failed: tests failed (also: error step "notify" failed: slack unreachable)`,
		res.Err().Error())
}

func TestExecutor_FinallyErrors(t *testing.T) {
	t.Run("after success becomes primary", func(t *testing.T) {
		tr := &trace{}
		cleanupErr := errors.New("disk full")
		b := NewBuilder("finally-fails")
		b.Start(tr.step("init"))
		b.Finally(tr.failing("cleanup", cleanupErr), tr.step("report"))

		res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Primary, cleanupErr)
		assert.Equal(t, []string{"init", "cleanup", "report"}, tr.calls)
	})

	t.Run("after failure stays secondary", func(t *testing.T) {
		tr := &trace{}
		buildErr := errors.New("build broke")
		cleanupErr := errors.New("disk full")
		b := NewBuilder("both-fail")
		b.Start(tr.failing("build", buildErr))
		b.Finally(tr.failing("cleanup", cleanupErr))

		res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Primary, buildErr)
		require.Len(t, res.Secondary, 1)
		assert.ErrorIs(t, res.Secondary[0], cleanupErr)
	})

	t.Run("after cancellation fails the run", func(t *testing.T) {
		tr := &trace{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cleanupErr := errors.New("disk full")
		b := NewBuilder("cancel-then-fail")
		b.Start(tr.step("init"))
		b.Finally(tr.failing("cleanup", cleanupErr))

		res, err := quietExecutor().Run(ctx, build(t, b), nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err(), cleanupErr)
		assert.ErrorIs(t, res.Cause, context.Canceled)
	})
}

func TestExecutor_CancelDuringFinally(t *testing.T) {
	tr := &trace{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBuilder("late-cancel")
	b.Start(tr.step("init"))
	b.Finally(
		tr.stepFn("f1", func(context.Context, *Context) error {
			cancel()
			return nil
		}),
		tr.step("f2"),
	)

	res, err := quietExecutor().Run(ctx, build(t, b), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "f1", "f2"}, tr.calls)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
}

func TestExecutor_PanicIsActionError(t *testing.T) {
	tr := &trace{}
	b := NewBuilder("panics")
	b.Start(tr.stepFn("explode", func(context.Context, *Context) error {
		panic("nil map write")
	}))
	b.Finally(tr.step("cleanup"))

	res, err := quietExecutor().Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)

	var panicErr *PanicError
	require.ErrorAs(t, res.Primary, &panicErr)
	assert.Equal(t, "nil map write", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, []string{"explode", "cleanup"}, tr.calls)
}

func TestExecutor_ContextFlowsBetweenActions(t *testing.T) {
	b := NewBuilder("flow")
	b.AddFunc(PhaseStart, "read-input", func(_ context.Context, wc *Context) error {
		in, err := InputAs[string](wc)
		if err != nil {
			return err
		}
		wc.Set("version", in+"-1")
		return nil
	})
	b.AddFunc(PhaseBody, "package", func(_ context.Context, wc *Context) error {
		v, err := Get[string](wc, "version")
		if err != nil {
			return err
		}
		wc.Set("artifact", "app-"+v+".tar.gz")
		return nil
	})
	b.AddFunc(PhaseBody, "publish", func(_ context.Context, wc *Context) error {
		_, err := Get[string](wc, "signature")
		return err
	})

	wc := NewContext()
	require.NoError(t, wc.SetInput("2.0"))
	res, err := quietExecutor().RunContext(context.Background(), build(t, b), wc)
	require.NoError(t, err)

	artifact, err := Get[string](wc, "artifact")
	require.NoError(t, err)
	assert.Equal(t, "app-2.0-1.tar.gz", artifact)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	var notFound *KeyNotFoundError
	assert.ErrorAs(t, res.Err(), &notFound)
	assert.Equal(t, res.ID, wc.RunID())
}

func TestExecutor_ConcurrentRunsHaveIndependentContexts(t *testing.T) {
	b := NewBuilder("parallel")
	b.AddFunc(PhaseStart, "write", func(_ context.Context, wc *Context) error {
		in, err := InputAs[string](wc)
		if err != nil {
			return err
		}
		wc.Set("owner", in)
		wc.Set("only-"+in, true)
		return nil
	})
	b.AddFunc(PhaseBody, "check", func(_ context.Context, wc *Context) error {
		time.Sleep(10 * time.Millisecond)
		in, _ := InputAs[string](wc)
		owner, err := Get[string](wc, "owner")
		if err != nil {
			return err
		}
		if owner != in {
			return fmt.Errorf("owner %q leaked into run %q", owner, in)
		}
		for _, other := range []string{"a", "b"} {
			if other != in && wc.Has("only-"+other) {
				return fmt.Errorf("key of run %q visible in run %q", other, in)
			}
		}
		return nil
	})
	wf := build(t, b)
	exec := quietExecutor()

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	for i, in := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := exec.Run(context.Background(), wf, in)
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, OutcomeSucceeded, res.Outcome, "run error: %v", res.Err())
	}
	assert.NotEqual(t, results[0].ID, results[1].ID)
}

func TestExecutor_WorkflowCanRunRepeatedly(t *testing.T) {
	count := 0
	b := NewBuilder("repeat")
	b.AddFunc(PhaseStart, "count", func(_ context.Context, wc *Context) error {
		if wc.Has("seen") {
			return errors.New("store carried over between runs")
		}
		wc.Set("seen", true)
		count++
		return nil
	})
	wf := build(t, b)

	for range 3 {
		res, err := quietExecutor().Run(context.Background(), wf, nil)
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
	}
	assert.Equal(t, 3, count)
}

func TestExecutor_Misuse(t *testing.T) {
	exec := quietExecutor()
	b := NewBuilder("m")
	b.Start(Action("a", noop))
	wf := build(t, b)

	_, err := exec.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = exec.Run(context.Background(), &Workflow{}, nil)
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = exec.RunContext(context.Background(), wf, nil)
	assert.ErrorIs(t, err, ErrNilContext)

	wc := NewContext()
	_, err = exec.RunContext(context.Background(), wf, wc)
	require.NoError(t, err)
	res, err := exec.RunContext(context.Background(), wf, wc)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrContextInUse)
}

func TestExecutor_DefaultLogger(t *testing.T) {
	b := NewBuilder("default-logger")
	b.Start(Action("a", noop))
	res, err := (&Executor{}).Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}

func TestExecutor_Listeners(t *testing.T) {
	var events []string
	l := ListenerFuncs{
		Before: func(_ context.Context, ev ActionEvent) {
			events = append(events, "before:"+ev.Step+":"+ev.State.String())
		},
		After: func(_ context.Context, ev ActionEvent) {
			events = append(events, "after:"+ev.Step+":"+ev.Status.String())
		},
		Error: func(_ context.Context, ev ActionEvent) {
			events = append(events, "error:"+ev.Step)
		},
	}

	b := NewBuilder("observed")
	b.Start(Action("init", noop))
	b.Body(Action("build", func(context.Context, *Context) error { return errors.New("x") }))
	b.OnError(Action("notify", noop))
	b.Finally(Action("cleanup", noop))

	_, err := quietExecutor(l).Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before:init:running-start", "after:init:completed",
		"before:build:running-body", "error:build", "after:build:failed",
		"before:notify:running-error-handlers", "after:notify:completed",
		"before:cleanup:running-finally", "after:cleanup:completed",
	}, events)
}

func TestExecutor_EmptyListenerFuncs(t *testing.T) {
	b := NewBuilder("empty-listener")
	b.Start(Action("fail", func(context.Context, *Context) error { return errors.New("x") }))
	res, err := quietExecutor(ListenerFuncs{}).Run(context.Background(), build(t, b), nil)
	require.NoError(t, err)
	assert.True(t, res.Failed())
}
