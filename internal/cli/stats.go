package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/futureCreator/vflow/internal/run"
	"github.com/spf13/cobra"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 20, "Number of recent runs to list (0 for all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	entries, err := run.List(cfg.RunsPath())
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), entries, statsLimit)
	return nil
}

func printStats(w io.Writer, entries []run.Entry, limit int) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	counts := map[string]int{}
	var total time.Duration
	for _, e := range entries {
		counts[e.Meta.Status]++
		total += time.Duration(e.Meta.DurationMS) * time.Millisecond
	}

	fmt.Fprintf(w, "Runs: %d total, %d succeeded, %d failed, %d canceled\n",
		len(entries), counts[run.StatusSucceeded], counts[run.StatusFailed], counts[run.StatusCanceled])
	fmt.Fprintf(w, "Average duration: %s\n", (total / time.Duration(len(entries))).Round(time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-36s %-10s %-10s %s\n", "Run ID", "Status", "Duration", "Pipeline")
	fmt.Fprintln(w, strings.Repeat("─", 70))
	for i, e := range entries {
		if limit > 0 && i == limit {
			break
		}
		d := (time.Duration(e.Meta.DurationMS) * time.Millisecond).Round(time.Millisecond)
		fmt.Fprintf(w, "%-36s %-10s %-10s %s\n", e.ID, e.Meta.Status, d, e.Meta.Pipeline)
	}
}
