package models

import (
	"fmt"
	"time"
)

// FileFailure records one path that could not be backed up.
type FileFailure struct {
	Path string
	Err  error
}

// TargetReport holds the result of backing up one target.
type TargetReport struct {
	Target           string
	Source           string
	Destination      string
	Scanned          int
	Copied           int
	SkippedUnchanged int
	SkippedIgnored   int
	FoldersIgnored   int
	Failed           int
	BytesCopied      int64
	Failures         []FileFailure
	Pruned           []string // snapshot directories removed by retention
	Err              error    // target-level failure, nil if the target ran
	Duration         time.Duration
}

// OK reports whether the target ran without any failure.
func (r TargetReport) OK() bool {
	return r.Err == nil && r.Failed == 0
}

// AddFailure records a failed path.
func (r *TargetReport) AddFailure(path string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, FileFailure{Path: path, Err: err})
}

// RunStatus is the aggregate outcome of a run.
type RunStatus int

const (
	// StatusSuccess means every selected target completed without failures.
	StatusSuccess RunStatus = iota
	// StatusPartialFailure means at least one file or target failed.
	StatusPartialFailure
	// StatusNothingSelected means the selector matched no target.
	StatusNothingSelected
)

func (s RunStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPartialFailure:
		return "partial failure"
	case StatusNothingSelected:
		return "nothing selected"
	default:
		return "unknown"
	}
}

// ExitCode maps the status to a process exit code.
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusNothingSelected:
		return 2
	default:
		return 1
	}
}

// RunSummary aggregates the reports of all targets processed in one run.
type RunSummary struct {
	Selector  string
	Targets   []TargetReport
	StartTime time.Time
	Duration  time.Duration
	Status    RunStatus
}

// Finalize computes Status from the target reports.
func (s *RunSummary) Finalize() {
	if len(s.Targets) == 0 {
		s.Status = StatusNothingSelected
		return
	}
	s.Status = StatusSuccess
	for _, r := range s.Targets {
		if !r.OK() {
			s.Status = StatusPartialFailure
			return
		}
	}
}

// Totals sums the per-target counters.
func (s RunSummary) Totals() TargetReport {
	var t TargetReport
	for _, r := range s.Targets {
		t.Scanned += r.Scanned
		t.Copied += r.Copied
		t.SkippedUnchanged += r.SkippedUnchanged
		t.SkippedIgnored += r.SkippedIgnored
		t.FoldersIgnored += r.FoldersIgnored
		t.Failed += r.Failed
		t.BytesCopied += r.BytesCopied
		t.Pruned = append(t.Pruned, r.Pruned...)
	}
	return t
}

// FailedTargets returns the number of targets that did not run at all.
func (s RunSummary) FailedTargets() int {
	n := 0
	for _, r := range s.Targets {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// FormatBytes renders a byte count with binary units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
