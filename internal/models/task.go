package models

import (
	"os"
	"time"
)

// CopyTask is a single file copy handed to the scheduler.
type CopyTask struct {
	Source      string
	Destination string
	Target      string // target name, for reporting
	Size        int64
	ModTime     time.Time
	Mode        os.FileMode
}

// CopyOutcome is the result of one CopyTask.
type CopyOutcome struct {
	Task  CopyTask
	Bytes int64
	Err   error
}
