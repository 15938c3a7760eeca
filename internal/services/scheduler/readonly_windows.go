//go:build windows

package scheduler

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// isReadOnlyFS reports whether err comes from writing to write-protected media.
func isReadOnlyFS(err error) bool {
	return errors.Is(err, windows.ERROR_WRITE_PROTECT)
}
