package cli

import (
	"strings"

	"github.com/futureCreator/vflow/internal/source"
	"github.com/spf13/cobra"
)

var evalOpts runOptions

var evalCmd = &cobra.Command{
	Use:          "eval <source>",
	Short:        "Run pipeline source given on the command line",
	Example:      `  vflow eval 'pipeline "hello" ( Log(message: "hi") > Shell(command: "date") )'`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), evalOpts)
		if err != nil {
			return err
		}
		defer s.Close()
		src := &source.InlineSource{Text: strings.Join(args, " ")}
		return s.runSource(cmd.Context(), src, s.opts.verbose)
	},
}

func init() {
	addRunFlags(evalCmd, &evalOpts)
}
