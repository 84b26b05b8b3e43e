package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/futureCreator/vflow/internal/pipeline"
	"github.com/futureCreator/vflow/internal/steps"
	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the step types pipelines can use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := steps.NewRegistry(steps.Options{})
		if err != nil {
			return err
		}
		printSteps(cmd.OutOrStdout(), reg)
		return nil
	},
}

func printSteps(w io.Writer, reg *pipeline.Registry) {
	for i, def := range reg.Definitions() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", def.Name, def.Description)
		for _, p := range def.Params {
			var attrs []string
			if p.Required {
				attrs = append(attrs, "required")
			}
			if p.Default != nil {
				attrs = append(attrs, fmt.Sprintf("default %v", p.Default))
			}
			line := fmt.Sprintf("  %-14s %-9s", p.Name, p.Type)
			if len(attrs) > 0 {
				line += " (" + strings.Join(attrs, ", ") + ")"
			}
			if p.Doc != "" {
				line += "  " + p.Doc
			}
			fmt.Fprintln(w, strings.TrimRight(line, " "))
		}
	}
}
