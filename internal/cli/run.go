package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/futureCreator/vflow/internal/source"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runPipelineName string
	runWatch        bool
	runOpts         runOptions
)

var runCmd = &cobra.Command{
	Use:   "run [file.flow...]",
	Short: "Run pipeline files",
	Long: `Run the pipelines declared in one or more .flow files.

With no file, the pipeline named by -p (or default_pipeline in the config)
is loaded from .vflow/pipelines, ~/.vflow/pipelines or the built-in set.
Several files run concurrently, each with its own run store.`,
	Example: `  vflow run ci.flow
  vflow run -p release --var version=1.4.0
  vflow run --watch ci.flow`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	addRunFlags(runCmd, &runOpts)
	runCmd.Flags().StringVarP(&runPipelineName, "pipeline", "p", "", "Named pipeline to run when no file is given")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Re-run the file whenever it changes")
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Cancel a run after this long (default from config)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print one line per step and stream step output")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "Run variable as key=value, readable as ${var.key}")
	cmd.Flags().BoolVar(&opts.noRecord, "no-record", false, "Do not write a run record")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runPipelineName != "" && len(args) > 0 {
		return fmt.Errorf("--pipeline cannot be combined with files")
	}
	if runWatch && len(args) != 1 {
		return fmt.Errorf("--watch needs exactly one file")
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, runOpts)
	if err != nil {
		return err
	}
	defer s.Close()

	switch {
	case runWatch:
		w := &fileWatcher{Path: args[0], Debounce: 300 * time.Millisecond}
		return w.Run(ctx, func(ctx context.Context) error {
			return s.runSource(ctx, &source.FileSource{Path: args[0]}, s.opts.verbose)
		})
	case len(args) == 0:
		name := runPipelineName
		if name == "" {
			name = s.cfg.DefaultPipeline
		}
		return s.runSource(ctx, &source.NamedSource{Name: name}, s.opts.verbose)
	case len(args) == 1:
		return s.runSource(ctx, &source.FileSource{Path: args[0]}, s.opts.verbose)
	}

	// In-place progress lines would interleave, so concurrent runs always
	// use line-per-step output. Every file runs to the end even when
	// another fails.
	var g errgroup.Group
	for _, path := range args {
		g.Go(func() error {
			return s.runSource(ctx, &source.FileSource{Path: path}, true)
		})
	}
	return g.Wait()
}
