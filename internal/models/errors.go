package models

import "github.com/cockroachdb/errors"

// Error classes used in reports. Wrapped errors are marked with one of these so
// callers can classify them with errors.Is.
var (
	// ErrInvalidPattern marks a malformed regex ignore rule. Fatal at load time.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrSourceUnreadable marks a target whose source path is missing or unreadable.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrFileCopyFailed marks a single file that could not be copied.
	ErrFileCopyFailed = errors.New("file copy failed")
	// ErrDestinationUnwritable marks a target whose destination cannot be written to.
	ErrDestinationUnwritable = errors.New("destination unwritable")
	// ErrCopyAborted marks a task that never ran because its run was stopped.
	ErrCopyAborted = errors.New("copy aborted")
)
