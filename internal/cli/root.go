package cli

import (
	"context"
	"fmt"

	"github.com/futureCreator/vflow/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vflow",
	Short: "Run step pipelines written in a small chaining DSL",
	Long: `vflow runs pipelines such as

  pipeline "ci" ( Restore() > Build(configuration: "Release") > Test() )

from .flow files, the command line, or named pipelines under .vflow/pipelines.`,
}

// Execute runs the root command. Canceling ctx cancels running pipelines.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vflow %s\n", version.Version)
	},
}
