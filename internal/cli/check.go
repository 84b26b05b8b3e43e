package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/futureCreator/vflow/internal/dsl"
	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/source"
	"github.com/futureCreator/vflow/internal/steps"
	"github.com/spf13/cobra"
)

var checkTokens bool

var checkCmd = &cobra.Command{
	Use:          "check <file.flow>...",
	Short:        "Parse pipeline files and resolve their steps without running them",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := steps.NewRegistry(steps.Options{Shell: cfg.Shell})
		if err != nil {
			return err
		}
		return checkFiles(cmd.Context(), cmd.OutOrStdout(), reg, args, checkTokens)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkTokens, "tokens", false, "Print the token stream of each file")
}

func checkFiles(ctx context.Context, w io.Writer, reg *pipeline.Registry, paths []string, tokens bool) error {
	for _, path := range paths {
		unit, err := (&source.FileSource{Path: path}).Fetch(ctx)
		if err != nil {
			return err
		}
		if tokens {
			for tok, err := range dsl.Tokens(unit.Text) {
				if err != nil {
					return &source.Error{Name: unit.Name, Err: err}
				}
				fmt.Fprintf(w, "%s:%s\t%s\n", unit.Name, tok.Pos, tok)
			}
		}
		nodes, err := source.Parse(unit)
		if err != nil {
			return err
		}
		if err := pipeline.Check(nodes, reg); err != nil {
			return &source.Error{Name: unit.Name, Err: err}
		}
		for _, node := range nodes {
			fmt.Fprintf(w, "✅ %s: %s (%d steps)\n", unit.Name, node.Name, len(node.Steps))
		}
	}
	return nil
}
