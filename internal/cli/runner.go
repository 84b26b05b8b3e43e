package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/futureCreator/vflow/internal/config"
	vlog "github.com/futureCreator/vflow/internal/log"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/project"
	"github.com/futureCreator/vflow/internal/source"
	"github.com/futureCreator/vflow/internal/steps"
)

// runOptions are the flags shared by run and eval.
type runOptions struct {
	timeout  time.Duration
	verbose  bool
	vars     []string
	noRecord bool
}

// session holds what every run in one invocation shares.
type session struct {
	cfg     *config.Config
	reg     *pipeline.Registry
	git     *project.GitInfo
	vars    map[string]string
	opts    runOptions
	logFile *os.File
}

// openSession loads config, sets up logging and the step registry.
func openSession(ctx context.Context, opts runOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	vars, err := pipeline.ParseVars(opts.vars)
	if err != nil {
		return nil, err
	}
	if opts.timeout == 0 {
		if opts.timeout, err = cfg.TimeoutDuration(); err != nil {
			return nil, err
		}
	}
	opts.verbose = opts.verbose || cfg.Display.Verbose

	s := &session{cfg: cfg, vars: vars, opts: opts}
	s.logFile = openLogFile()
	if s.logFile != nil {
		vlog.Init(cfg.LogLevel, s.logFile)
	} else {
		vlog.Init(cfg.LogLevel, nil)
	}

	// Step output streams to the terminal in verbose mode; otherwise it
	// would tear the progress line, so it only reaches the log file.
	var out io.Writer = io.Discard
	switch {
	case opts.verbose:
		out = os.Stdout
	case s.logFile != nil:
		out = s.logFile
	}
	s.reg, err = steps.NewRegistry(steps.Options{Shell: cfg.Shell, Output: out})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.git, err = project.CollectGitInfo(ctx, "")
	if err != nil {
		vlog.Debug("could not collect git info", "err", err)
		s.git = &project.GitInfo{}
	}
	return s, nil
}

func (s *session) Close() {
	if s.logFile != nil {
		s.logFile.Close()
	}
}

func (s *session) engine(title string, verbose bool) *pipeline.Engine {
	e := &pipeline.Engine{
		Registry: s.reg,
		Timeout:  s.opts.timeout,
		Display:  pipeline.NewDisplay(title, verbose),
		Logger:   vlog.Logger(),
	}
	if !s.opts.noRecord {
		e.RunsDir = s.cfg.RunsPath()
	}
	return e
}

// runSource fetches, parses and runs every pipeline in src. verbose
// selects line-per-step display output. A run that does not succeed is
// returned as an error.
func (s *session) runSource(ctx context.Context, src source.Source, verbose bool) error {
	unit, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching pipeline: %w", err)
	}
	nodes, err := source.Parse(unit)
	if err != nil {
		return err
	}

	in := pipeline.Input{
		Source:    unit.Name,
		Vars:      s.vars,
		GitBranch: s.git.Branch,
		GitCommit: s.git.Commit,
		WorkDir:   unit.Dir,
	}
	results, err := s.engine(displayTitle(unit.Name), verbose).ExecuteAll(ctx, nodes, in)
	if err != nil {
		return &source.Error{Name: unit.Name, Err: err}
	}
	for _, res := range results {
		switch {
		case res.Failed():
			return fmt.Errorf("pipeline %q failed: %w", res.Workflow, res.Err())
		case res.Canceled():
			return fmt.Errorf("pipeline %q canceled: %w", res.Workflow, res.Cause)
		}
	}
	return nil
}

func displayTitle(name string) string {
	return filepath.Base(name)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openLogFile() *os.File {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(config.Dir, "vflow.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
