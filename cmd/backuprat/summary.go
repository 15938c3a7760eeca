package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/fgeck/backuprat/internal/models"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// maxListedFailures caps the failure list printed per target.
const maxListedFailures = 10

// printSummary writes a human readable run summary.
func printSummary(w io.Writer, summary *models.RunSummary) {
	fmt.Fprintln(w)
	if summary.Status == models.StatusNothingSelected {
		warnColor.Fprintf(w, "No target matches %q\n", summary.Selector)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tSCANNED\tCOPIED\tUNCHANGED\tIGNORED\tFAILED\tDATA\tDURATION")
	for _, r := range summary.Targets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Target, r.Scanned, r.Copied, r.SkippedUnchanged, r.SkippedIgnored, r.Failed,
			models.FormatBytes(r.BytesCopied), r.Duration.Round(100 * time.Millisecond))
	}
	_ = tw.Flush()

	for _, r := range summary.Targets {
		printTargetProblems(w, r)
	}

	totals := summary.Totals()
	fmt.Fprintln(w)
	dimColor.Fprintf(w, "%d target(s), %d file(s) copied, %s in %s\n",
		len(summary.Targets), totals.Copied, models.FormatBytes(totals.BytesCopied),
		summary.Duration.Round(100 * time.Millisecond))
	if len(totals.Pruned) > 0 {
		dimColor.Fprintf(w, "%d old snapshot(s) removed\n", len(totals.Pruned))
	}

	switch summary.Status {
	case models.StatusSuccess:
		okColor.Fprintln(w, "Backup successful")
	default:
		failColor.Fprintln(w, "Backup finished with errors")
	}
}

func printTargetProblems(w io.Writer, r models.TargetReport) {
	if r.OK() {
		return
	}

	fmt.Fprintln(w)
	failColor.Fprintf(w, "%s:\n", r.Target)
	if r.Err != nil {
		fmt.Fprintf(w, "  %v\n", r.Err)
	}
	for i, f := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(r.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(w, "  %s: %v\n", f.Path, f.Err)
	}
}
