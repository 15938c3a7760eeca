package models

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestRunSummary_Finalize(t *testing.T) {
	s := RunSummary{}
	s.Finalize()
	assert.Equal(t, StatusNothingSelected, s.Status)
	assert.Equal(t, 2, s.Status.ExitCode())

	s = RunSummary{Targets: []TargetReport{{Copied: 2}, {SkippedUnchanged: 1}}}
	s.Finalize()
	assert.Equal(t, StatusSuccess, s.Status)
	assert.Equal(t, 0, s.Status.ExitCode())

	failed := TargetReport{}
	failed.AddFailure("/data/a", errors.New("boom"))
	s = RunSummary{Targets: []TargetReport{{Copied: 1}, failed}}
	s.Finalize()
	assert.Equal(t, StatusPartialFailure, s.Status)
	assert.Equal(t, 1, s.Status.ExitCode())

	s = RunSummary{Targets: []TargetReport{{Err: ErrSourceUnreadable}}}
	s.Finalize()
	assert.Equal(t, StatusPartialFailure, s.Status)
	assert.Equal(t, 1, s.FailedTargets())
}

func TestRunSummary_Totals(t *testing.T) {
	s := RunSummary{Targets: []TargetReport{
		{Scanned: 3, Copied: 2, SkippedIgnored: 1, BytesCopied: 10, Pruned: []string{"a"}},
		{Scanned: 2, SkippedUnchanged: 2, BytesCopied: 5},
	}}

	total := s.Totals()

	assert.Equal(t, 5, total.Scanned)
	assert.Equal(t, 2, total.Copied)
	assert.Equal(t, 2, total.SkippedUnchanged)
	assert.Equal(t, 1, total.SkippedIgnored)
	assert.Equal(t, int64(15), total.BytesCopied)
	assert.Equal(t, []string{"a"}, total.Pruned)
}

func TestRunStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "partial failure", StatusPartialFailure.String())
	assert.Equal(t, "nothing selected", StatusNothingSelected.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1024, "1.0 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 2, "2.0 GiB"},
		{1536 * 1024, "1.5 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBytes(tt.bytes))
		})
	}
}
