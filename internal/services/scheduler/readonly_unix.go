//go:build !windows

package scheduler

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// isReadOnlyFS reports whether err comes from writing to a read-only filesystem.
func isReadOnlyFS(err error) bool {
	return errors.Is(err, unix.EROFS)
}
