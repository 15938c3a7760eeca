package scheduler

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
)

// FileCopier copies files on the local filesystem. The destination is written to a
// temporary file first and renamed into place, so an interrupted copy never leaves a
// truncated file behind that a later run would consider up to date.
type FileCopier struct{}

// Copy copies task.Source to task.Destination and keeps the source modification time.
func (c *FileCopier) Copy(task models.CopyTask, buf []byte) (int64, error) {
	in, err := os.Open(task.Source)
	if err != nil {
		return 0, errors.Wrap(err, "opening source")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "reading source info")
	}

	dir := filepath.Dir(task.Destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "creating %s", dir)
	}

	out, err := os.CreateTemp(dir, ".backuprat-*.tmp")
	if err != nil {
		return 0, errors.Wrapf(err, "creating temporary file in %s", dir)
	}
	tmp := out.Name()
	defer func() {
		if tmp != "" {
			_ = os.Remove(tmp)
		}
	}()

	n, err := io.CopyBuffer(out, in, buf)
	if err != nil {
		_ = out.Close()
		return n, errors.Wrapf(err, "copying %s", task.Source)
	}

	// Owner write is kept so the next run can replace the file.
	if err := out.Chmod(info.Mode().Perm() | 0o200); err != nil {
		_ = out.Close()
		return n, errors.Wrapf(err, "setting permissions on %s", tmp)
	}

	// Close before Chtimes, flushing may touch the modification time.
	if err := out.Close(); err != nil {
		return n, errors.Wrapf(err, "closing %s", tmp)
	}

	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return n, errors.Wrapf(err, "setting times on %s", tmp)
	}

	if err := os.Rename(tmp, task.Destination); err != nil {
		return n, errors.Wrapf(err, "moving into %s", task.Destination)
	}
	tmp = ""

	return n, nil
}
