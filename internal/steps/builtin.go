package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	vlog "github.com/futureCreator/vflow/internal/log"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/workflow"
)

// Store keys written by the built-in steps.
const (
	KeyBuildConfiguration = "build.configuration"
	KeyTestAttempts       = "test.attempts"
)

// Build runs a build command. The configuration is stored before the
// command runs so the command can reference ${build.configuration}.
type Build struct {
	*Shell
	configuration string
}

func newBuild(opts Options) pipeline.StepFactory {
	return func(a pipeline.Args) (workflow.Step, error) {
		sh, err := newShell(a.Step(), a.String("command"), a, opts)
		if err != nil {
			return nil, err
		}
		return &Build{Shell: sh, configuration: a.String("configuration")}, nil
	}
}

func (b *Build) Execute(ctx context.Context, wc *workflow.Context) error {
	wc.Set(KeyBuildConfiguration, b.configuration)
	return b.Shell.Execute(ctx, wc)
}

// Test runs a test command, retrying failed attempts. Unless noBuild is
// set, it runs its build command first when no Build step has run.
type Test struct {
	*Shell
	retries int64
	build   *Shell
}

func newTest(opts Options) pipeline.StepFactory {
	return func(a pipeline.Args) (workflow.Step, error) {
		if a.Int("retries") < 0 {
			return nil, fmt.Errorf("retries must not be negative")
		}
		sh, err := newShell(a.Step(), a.String("command"), a, opts)
		if err != nil {
			return nil, err
		}
		t := &Test{Shell: sh, retries: a.Int("retries")}
		if !a.Bool("noBuild") {
			if t.build, err = newShell(a.Step(), a.String("buildCommand"), a, opts); err != nil {
				return nil, fmt.Errorf("buildCommand: %w", err)
			}
		}
		return t, nil
	}
}

func (t *Test) Execute(ctx context.Context, wc *workflow.Context) error {
	if t.build != nil {
		if _, built := wc.Lookup(KeyBuildConfiguration); !built {
			vlog.Info("Building before tests", "step", t.name)
			if _, err := t.build.run(ctx, wc); err != nil {
				return err
			}
		}
	}
	var err error
	for attempt := int64(1); attempt <= t.retries+1; attempt++ {
		wc.Set(KeyTestAttempts, attempt)
		if _, err = t.run(ctx, wc); err == nil || ctx.Err() != nil {
			return err
		}
		if attempt <= t.retries {
			vlog.Warn("Test attempt failed, retrying", "step", t.name, "attempt", attempt, "err", err)
		}
	}
	return err
}

// Log prints a message with ${key} references expanded.
type Log struct {
	name    string
	message string
	level   string
	out     io.Writer
}

func newLog(opts Options) pipeline.StepFactory {
	return func(a pipeline.Args) (workflow.Step, error) {
		level := a.String("level")
		if _, err := vlog.ParseLevel(level); err != nil {
			return nil, err
		}
		return &Log{name: a.Step(), message: a.String("message"), level: level, out: opts.Output}, nil
	}
}

func (l *Log) Name() string { return l.name }

func (l *Log) Execute(_ context.Context, wc *workflow.Context) error {
	msg := expand(l.message, wc)
	switch l.level {
	case "debug":
		vlog.Debug(msg, "step", l.name)
	case "warn":
		vlog.Warn(msg, "step", l.name)
	case "error":
		vlog.Error(msg, "step", l.name)
	default:
		vlog.Info(msg, "step", l.name)
	}
	_, err := fmt.Fprintln(l.out, msg)
	return err
}

// Set writes a value to the run store.
type Set struct {
	name  string
	key   string
	value string
}

func newSet(a pipeline.Args) (workflow.Step, error) {
	if a.String("key") == "" {
		return nil, fmt.Errorf("empty key")
	}
	return &Set{name: a.Step(), key: a.String("key"), value: a.String("value")}, nil
}

func (s *Set) Name() string { return s.name }

func (s *Set) Execute(_ context.Context, wc *workflow.Context) error {
	wc.Set(s.key, expand(s.value, wc))
	return nil
}

// Sleep waits for a fixed duration or until the run is canceled.
type Sleep struct {
	name string
	d    time.Duration
}

func newSleep(a pipeline.Args) (workflow.Step, error) {
	d := a.Duration("for")
	if d < 0 {
		return nil, fmt.Errorf("negative duration %s", d)
	}
	return &Sleep{name: a.Step(), d: d}, nil
}

func (s *Sleep) Name() string { return s.name }

func (s *Sleep) Execute(ctx context.Context, _ *workflow.Context) error {
	timer := time.NewTimer(s.d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail always returns an error.
type Fail struct {
	name    string
	message string
}

func newFail(a pipeline.Args) (workflow.Step, error) {
	return &Fail{name: a.Step(), message: a.String("message")}, nil
}

func (f *Fail) Name() string { return f.name }

func (f *Fail) Execute(_ context.Context, wc *workflow.Context) error {
	return errors.New(expand(f.message, wc))
}
