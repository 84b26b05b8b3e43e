// Package steps provides the built-in step types that pipeline sources can
// name: shell commands, build and test wrappers, and a few utilities for
// working with the run store.
package steps

import (
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/futureCreator/vflow/internal/config"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/workflow"
)

// Options configures the built-in steps.
type Options struct {
	Shell config.ShellConfig
	// Output receives command output and Log messages. Nil discards it.
	Output io.Writer
}

// NewRegistry returns a registry holding every built-in step.
func NewRegistry(opts Options) (*pipeline.Registry, error) {
	reg := pipeline.NewRegistry()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register adds the built-in steps to reg.
func Register(reg *pipeline.Registry, opts Options) error {
	if opts.Shell.Command == "" {
		opts.Shell = config.ShellConfig{Command: "sh", Args: []string{"-c"}}
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	opts.Output = &syncWriter{w: opts.Output}
	for _, def := range definitions(opts) {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func definitions(opts Options) []pipeline.Definition {
	return []pipeline.Definition{
		{
			Name:        "Shell",
			Description: "Run a shell command",
			Params: []pipeline.ParamSpec{
				{Name: "command", Type: pipeline.ParamString, Required: true, Doc: "command line; ${key} reads the run store"},
				{Name: "dir", Type: pipeline.ParamString, Doc: "working directory"},
				{Name: "output", Type: pipeline.ParamString, Doc: "store key for trimmed stdout"},
			},
			New: func(a pipeline.Args) (workflow.Step, error) {
				return newShell(a.Step(), a.String("command"), a, opts)
			},
		},
		{
			Name:        "Build",
			Description: "Build the project",
			Params: []pipeline.ParamSpec{
				{Name: "configuration", Type: pipeline.ParamString, Default: "Debug", Doc: "stored as ${build.configuration}; only commands that reference it use it"},
				{Name: "command", Type: pipeline.ParamString, Default: defaultBuildCommand},
				{Name: "dir", Type: pipeline.ParamString},
			},
			New: newBuild(opts),
		},
		{
			Name:        "Test",
			Description: "Run the test suite",
			Params: []pipeline.ParamSpec{
				{Name: "command", Type: pipeline.ParamString, Default: "go test ./..."},
				{Name: "dir", Type: pipeline.ParamString},
				{Name: "retries", Type: pipeline.ParamInt, Default: int64(0), Doc: "extra attempts after a failure"},
				{Name: "noBuild", Type: pipeline.ParamBool, Default: false, Doc: "never build first; otherwise builds when no Build step ran"},
				{Name: "buildCommand", Type: pipeline.ParamString, Default: defaultBuildCommand},
			},
			New: newTest(opts),
		},
		{
			Name:        "Log",
			Description: "Print a message",
			Params: []pipeline.ParamSpec{
				{Name: "message", Type: pipeline.ParamString, Required: true},
				{Name: "level", Type: pipeline.ParamString, Default: "info", Doc: "debug, info, warn or error"},
			},
			New: newLog(opts),
		},
		{
			Name:        "Set",
			Description: "Write a value to the run store",
			Params: []pipeline.ParamSpec{
				{Name: "key", Type: pipeline.ParamString, Required: true},
				{Name: "value", Type: pipeline.ParamString, Required: true},
			},
			New: newSet,
		},
		{
			Name:        "Sleep",
			Description: "Wait for a duration",
			Params: []pipeline.ParamSpec{
				{Name: "for", Type: pipeline.ParamDuration, Required: true, Doc: `"1m30s" or seconds`},
			},
			New: newSleep,
		},
		{
			Name:        "Fail",
			Description: "Fail the run",
			Params: []pipeline.ParamSpec{
				{Name: "message", Type: pipeline.ParamString, Default: "failed on request"},
			},
			New: newFail,
		},
	}
}

const defaultBuildCommand = "go build ./..."

var refRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// expand replaces ${key} with the store value under key. References to
// keys that were never written are left as they are, so shell variables
// such as ${HOME} still reach the shell.
func expand(s string, wc *workflow.Context) string {
	return refRe.ReplaceAllStringFunc(s, func(ref string) string {
		key := ref[2 : len(ref)-1]
		v, ok := wc.Lookup(key)
		if !ok {
			return ref
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// syncWriter serializes writes from a command's stdout and stderr copiers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
