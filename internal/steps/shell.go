package steps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/futureCreator/vflow/internal/config"
	vlog "github.com/futureCreator/vflow/internal/log"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/workflow"
)

// maxErrorOutput bounds the command output quoted in a failure.
const maxErrorOutput = 4096

// Shell runs a command through the configured shell and captures its output.
type Shell struct {
	name    string
	command string
	dir     string
	output  string
	shell   config.ShellConfig
	out     io.Writer
}

func newShell(name, command string, a pipeline.Args, opts Options) (*Shell, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command")
	}
	return &Shell{
		name:    name,
		command: command,
		dir:     a.String("dir"),
		output:  a.String("output"),
		shell:   opts.Shell,
		out:     opts.Output,
	}, nil
}

func (s *Shell) Name() string { return s.name }

func (s *Shell) Execute(ctx context.Context, wc *workflow.Context) error {
	_, err := s.run(ctx, wc)
	return err
}

// run executes the command and returns its stdout.
func (s *Shell) run(ctx context.Context, wc *workflow.Context) (string, error) {
	start := time.Now()
	command := expand(s.command, wc)

	args := append(slices.Clone(s.shell.Args), command)
	cmd := exec.CommandContext(ctx, s.shell.Command, args...)
	cmd.Dir = s.workDir(wc)
	cmd.Env = append(os.Environ(), environ(wc)...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, s.out)
	cmd.Stderr = io.MultiWriter(&stderr, s.out)

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("shell command %q interrupted: %w", command, ctx.Err())
		}
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n--- stderr ---\n" + stderr.String()
		}
		return "", fmt.Errorf("shell command %q failed: %w\noutput: %s", command, err, tail(output, maxErrorOutput))
	}

	if s.output != "" {
		wc.Set(s.output, strings.TrimSpace(stdout.String()))
	}
	vlog.Debug("Shell command finished", "step", s.name, "command", command, "elapsed", time.Since(start))
	return stdout.String(), nil
}

func (s *Shell) workDir(wc *workflow.Context) string {
	if s.dir != "" {
		return expand(s.dir, wc)
	}
	if in, err := workflow.InputAs[pipeline.Input](wc); err == nil {
		return in.WorkDir
	}
	return ""
}

// environ exposes the pipeline name and run variables to commands as
// VFLOW_PIPELINE and VFLOW_VAR_<NAME>.
func environ(wc *workflow.Context) []string {
	var env []string
	if name, err := workflow.Get[string](wc, pipeline.KeyPipelineName); err == nil {
		env = append(env, "VFLOW_PIPELINE="+name)
	}
	if in, err := workflow.InputAs[pipeline.Input](wc); err == nil {
		for _, k := range in.SortedVars() {
			env = append(env, "VFLOW_VAR_"+envName(k)+"="+in.Vars[k])
		}
	}
	return env
}

func envName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, key)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return "..." + s[cut:]
}
