package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/futureCreator/vflow/internal/workflow"
)

// Display renders run progress on a terminal. It implements
// workflow.Listener; one Display serves one run at a time.
type Display struct {
	w       io.Writer
	title   string
	verbose bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDisplay creates a display that writes to stdout.
func NewDisplay(title string, verbose bool) *Display {
	return NewDisplayTo(os.Stdout, title, verbose)
}

// NewDisplayTo creates a display that writes to w. Verbose displays print
// one plain line per event and never rewrite lines in place, which keeps
// output from concurrent runs readable.
func NewDisplayTo(w io.Writer, title string, verbose bool) *Display {
	return &Display{w: w, title: title, verbose: verbose}
}

var _ workflow.Listener = (*Display)(nil)

// nameColumnWidth is the fixed display width reserved for the step name column.
var nameColumnWidth = 24

// ansiEscapeRe matches ANSI terminal escape sequences and C0/DEL control characters.
var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x1f\x7f]`)

// sanitizeName strips ANSI escape sequences and control characters.
func sanitizeName(name string) string {
	return ansiEscapeRe.ReplaceAllString(name, "")
}

// truncateName sanitizes and truncates name to fit within nameColumnWidth runes,
// appending an ellipsis if truncation occurs.
func truncateName(name string) string {
	name = sanitizeName(name)
	if utf8.RuneCountInString(name) <= nameColumnWidth {
		return name
	}
	runes := []rune(name)
	return string(runes[:nameColumnWidth-1]) + "…"
}

// Header prints the pipeline header.
func (d *Display) Header() {
	fmt.Fprintf(d.w, "\n▶ vflow — %s\n", sanitizeName(d.title))
	fmt.Fprintln(d.w, strings.Repeat("─", 64))
}

func (d *Display) BeforeAction(_ context.Context, ev workflow.ActionEvent) {
	d.StepStart(ev.Step, ev.Phase.String())
}

func (d *Display) AfterAction(_ context.Context, ev workflow.ActionEvent) {
	switch ev.Status {
	case workflow.StepFailed:
		d.StepFailed(ev.Step, ev.Phase.String(), ev.Err)
	case workflow.StepCanceled:
		d.StepCanceled(ev.Step, ev.Phase.String(), ev.Duration)
	default:
		d.StepDone(ev.Step, ev.Phase.String(), ev.Duration)
	}
}

// OnError is a no-op; failures are rendered by AfterAction.
func (d *Display) OnError(context.Context, workflow.ActionEvent) {}

// StepStart prints a step-in-progress line and starts an elapsed time ticker.
// In non-verbose mode, the line is updated in place every second with elapsed time.
func (d *Display) StepStart(name, phase string) {
	name = truncateName(name)
	if d.verbose {
		fmt.Fprintf(d.w, "%s⏳ %-24s %-8s running...\n", d.prefix(), name, phase)
		return
	}
	// Print without trailing newline so the ticker can overwrite in place.
	fmt.Fprintf(d.w, "⏳ %-24s %-8s running...", name, phase)

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(d.w, "\r⏳ %-24s %-8s running... %.0fs",
					name, phase, time.Since(start).Seconds())
			}
		}
	}()
}

// stopTicker stops the elapsed time goroutine and waits for it to finish.
func (d *Display) stopTicker() {
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop = nil
		d.done = nil
	}
}

func (d *Display) prefix() string {
	if d.verbose {
		return "[" + sanitizeName(d.title) + "] "
	}
	return "\r"
}

// StepDone prints a completed step line, overwriting the running line in non-verbose mode.
func (d *Display) StepDone(name, phase string, duration time.Duration) {
	d.stopTicker()
	fmt.Fprintf(d.w, "%s✅ %-24s %-8s %.1fs\n", d.prefix(), truncateName(name), phase, duration.Seconds())
}

// StepFailed prints a failed step line, overwriting the running line in non-verbose mode.
func (d *Display) StepFailed(name, phase string, err error) {
	d.stopTicker()
	msg := "failed"
	if err != nil {
		msg = sanitizeName(err.Error())
	}
	fmt.Fprintf(d.w, "%s❌ %-24s %-8s %s\n", d.prefix(), truncateName(name), phase, msg)
}

// StepCanceled prints a step that returned because the run was canceled.
func (d *Display) StepCanceled(name, phase string, duration time.Duration) {
	d.stopTicker()
	fmt.Fprintf(d.w, "%s⛔ %-24s %-8s canceled after %.1fs\n", d.prefix(), truncateName(name), phase, duration.Seconds())
}

// Summary prints the final run summary.
func (d *Display) Summary(res *workflow.Result) {
	d.stopTicker()
	var skipped int
	for _, s := range res.Steps {
		if s.Status == workflow.StepSkipped {
			skipped++
		}
	}
	fmt.Fprintln(d.w, strings.Repeat("─", 64))
	switch res.Outcome {
	case workflow.OutcomeSucceeded:
		fmt.Fprintf(d.w, "✅ Done  %d steps  %.1fs\n", len(res.Completed()), res.Duration.Seconds())
	case workflow.OutcomeCanceled:
		fmt.Fprintf(d.w, "⛔ Canceled  %d skipped  %.1fs", skipped, res.Duration.Seconds())
		if res.Cause != nil {
			fmt.Fprintf(d.w, "  (%s)", sanitizeName(res.Cause.Error()))
		}
		fmt.Fprintln(d.w)
	default:
		fmt.Fprintf(d.w, "❌ Failed: %s\n", sanitizeName(res.Err().Error()))
		if skipped > 0 {
			fmt.Fprintf(d.w, "   %d steps skipped\n", skipped)
		}
	}
	fmt.Fprintln(d.w)
}
