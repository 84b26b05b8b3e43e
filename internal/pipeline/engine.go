package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/futureCreator/vflow/internal/dsl"
	vlog "github.com/futureCreator/vflow/internal/log"
	"github.com/futureCreator/vflow/internal/run"
	"github.com/futureCreator/vflow/internal/workflow"
)

// Engine runs parsed pipelines end to end: it compiles the model, attaches
// run bookkeeping, executes the workflow and reports progress.
type Engine struct {
	Registry *Registry
	// RunsDir enables run records when non-empty.
	RunsDir string
	// Timeout bounds each run when positive.
	Timeout   time.Duration
	Display   *Display
	Listeners []workflow.Listener
	Logger    *slog.Logger
}

// Execute compiles node and runs it with in as the Context input. The
// returned error covers compilation and setup; the run's own failures are
// reported in the Result.
func (e *Engine) Execute(ctx context.Context, node *dsl.PipelineNode, in Input) (*workflow.Result, error) {
	b, err := Compile(node, e.Registry)
	if err != nil {
		return nil, err
	}
	if in.Pipeline == "" {
		in.Pipeline = node.Name
	}

	var rec *run.Run
	if e.RunsDir != "" {
		rec, err = run.New(e.RunsDir, node.Name, in.Source, in.GitBranch, in.GitCommit)
		if err != nil {
			return nil, fmt.Errorf("creating run record: %w", err)
		}
		b.AddFunc(workflow.PhaseError, "record-failure", func(context.Context, *workflow.Context) error {
			if err := rec.MarkFailed(); err != nil {
				vlog.Warn("failed to update run meta", "run", rec.ID, "err", err)
			}
			return nil
		})
		b.AddFunc(workflow.PhaseFinally, "save-run", func(context.Context, *workflow.Context) error {
			rec.Meta.FinishedAt = time.Now()
			if err := rec.SaveMeta(); err != nil {
				vlog.Warn("failed to save run meta", "run", rec.ID, "err", err)
			}
			return nil
		})
	}

	wf, err := b.Build()
	if err != nil {
		return nil, err
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.Timeout,
			fmt.Errorf("pipeline %q exceeded timeout %s", node.Name, e.Timeout))
		defer cancel()
	}

	listeners := e.Listeners
	if e.Display != nil {
		listeners = append(listeners[:len(listeners):len(listeners)], e.Display)
		e.Display.Header()
	}
	logger := e.Logger
	if logger == nil {
		logger = vlog.Logger()
	}
	exec := &workflow.Executor{Logger: logger, Listeners: listeners}

	res, err := exec.Run(ctx, wf, in)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err := rec.Finish(res); err != nil {
			vlog.Warn("failed to finish run meta", "run", rec.ID, "err", err)
		}
	}
	if e.Display != nil {
		e.Display.Summary(res)
	}
	return res, nil
}

// ExecuteAll runs the pipelines of one source unit in order, stopping at
// the first one that does not succeed.
func (e *Engine) ExecuteAll(ctx context.Context, nodes []*dsl.PipelineNode, in Input) ([]*workflow.Result, error) {
	var results []*workflow.Result
	for _, node := range nodes {
		runIn := in
		runIn.Pipeline = node.Name
		res, err := e.Execute(ctx, node, runIn)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Succeeded() {
			break
		}
	}
	return results, nil
}

// Check resolves every pipeline in nodes without running anything.
func Check(nodes []*dsl.PipelineNode, reg *Registry) error {
	for _, node := range nodes {
		if _, err := ResolveAll(node, reg); err != nil {
			return err
		}
	}
	return nil
}
