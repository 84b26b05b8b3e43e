package cli

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/futureCreator/vflow/internal/assets"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/project"
	"github.com/futureCreator/vflow/internal/source"
	"github.com/futureCreator/vflow/internal/steps"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check vflow prerequisites and configuration",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	allOK := true

	check := func(label string, ok bool, hint string) {
		if ok {
			fmt.Printf("✅ %s\n", label)
		} else {
			fmt.Printf("❌ %s — %s\n", label, hint)
			allOK = false
		}
	}

	// 1. git, used for run records only
	_, err := exec.LookPath("git")
	check("git installed", err == nil, "install git to record branch and commit with each run")
	if err == nil {
		check("inside git repository", project.IsRepo(ctx, ""), "runs will be recorded without git info")
	}

	// 2. config
	cfg, cfgErr := loadConfig()
	check("config valid", cfgErr == nil, fmt.Sprintf("%v", cfgErr))
	if cfgErr != nil {
		return nil
	}

	// 3. shell used by Shell, Build and Test
	_, err = exec.LookPath(cfg.Shell.Command)
	check(fmt.Sprintf("shell %q found", cfg.Shell.Command), err == nil, "set shell.command in config")

	// 4. pipelines
	reg, err := steps.NewRegistry(steps.Options{Shell: cfg.Shell})
	if err != nil {
		return err
	}
	for _, name := range pipelineNames(cfg.DefaultPipeline) {
		err := checkNamedPipeline(ctx, reg, name)
		check(fmt.Sprintf("pipeline %q resolves", name), err == nil, fmt.Sprintf("%v", err))
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed. vflow is ready.")
	} else {
		fmt.Println("Some checks failed. Fix the issues above before running vflow.")
	}
	return nil
}

// pipelineNames returns the built-in pipeline names plus the configured
// default, sorted.
func pipelineNames(defaultName string) []string {
	seen := map[string]bool{defaultName: true}
	if all, err := assets.AllPipelines(); err == nil {
		for name := range all {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkNamedPipeline(ctx context.Context, reg *pipeline.Registry, name string) error {
	unit, err := (&source.NamedSource{Name: name}).Fetch(ctx)
	if err != nil {
		return err
	}
	nodes, err := source.Parse(unit)
	if err != nil {
		return err
	}
	return pipeline.Check(nodes, reg)
}
