package models

import "time"

// Snapshot is one dated directory of a versioned target.
type Snapshot struct {
	Name string
	Path string
	Time time.Time
}

// PruneResult holds the outcome of applying retention to a target.
type PruneResult struct {
	Kept    int
	Removed []string
}
