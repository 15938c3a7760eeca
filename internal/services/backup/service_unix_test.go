//go:build !windows

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_UnreadableFolderIsRecorded(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	src := sourceTree(t)
	locked := filepath.Join(src, "locked")
	writeFile(t, filepath.Join(locked, "secret.txt"), "s", baseTime.Add(-time.Hour))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report := newTestService().Backup(context.Background(), flatTarget(src, t.TempDir()), models.GlobalSettings{})

	assert.NoError(t, report.Err)
	assert.Equal(t, 3, report.Copied)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, locked, report.Failures[0].Path)
	assert.True(t, errors.Is(report.Failures[0].Err, models.ErrFileCopyFailed))
}

func TestBackup_ReadOnlyDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dst := t.TempDir()
	require.NoError(t, os.Chmod(dst, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dst, 0o755) })

	report := newTestService().Backup(context.Background(), flatTarget(sourceTree(t), dst), models.GlobalSettings{})

	require.Error(t, report.Err)
	assert.True(t, errors.Is(report.Err, models.ErrDestinationUnwritable))
	assert.Contains(t, report.Err.Error(), "not writable")
}
