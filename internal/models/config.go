// Package models contains the data structures used throughout backuprat.
package models

import (
	"path/filepath"
	"runtime"
)

// Config holds the complete configuration for a backup run.
type Config struct {
	Global      GlobalSettings
	Targets     []Target
	Verbose     bool
	Color       bool
	WOL         *WOLConfig         // nil if not configured
	SSHShutdown *SSHShutdownConfig // nil if not configured
	Telegram    *TelegramConfig    // nil if not configured
}

// GlobalSettings apply to every target unless a target overrides them.
type GlobalSettings struct {
	MultiThreaded bool
	ThreadCount   int // 0 means host parallelism
}

// Target is one source-to-destination backup unit.
type Target struct {
	Tag             string // optional, may be shared between targets
	SourcePath      string
	DestinationRoot string
	Optional        bool // excluded from the "all" selector
	AlwaysCopy      bool // ignored when KeepNum > 1
	MultiThreaded   *bool
	ThreadCount     *int
	IgnoreFiles     []Pattern
	IgnoreFolders   []Pattern
	KeepNum         int
}

// Name identifies the target in logs and reports.
func (t Target) Name() string {
	if t.Tag != "" {
		return t.Tag
	}
	return t.SourcePath
}

// Versioned reports whether each run goes into its own snapshot directory.
func (t Target) Versioned() bool {
	return t.KeepNum > 1
}

// SourceName is the base name of the source path, used as the top level destination folder.
func (t Target) SourceName() string {
	return filepath.Base(filepath.Clean(t.SourcePath))
}

// Workers resolves how many copy workers the target runs with.
// Overrides on the target win over global settings, which win over host parallelism.
func (t Target) Workers(g GlobalSettings) int {
	multi := g.MultiThreaded
	if t.MultiThreaded != nil {
		multi = *t.MultiThreaded
	}
	if !multi {
		return 1
	}

	switch {
	case t.ThreadCount != nil && *t.ThreadCount > 0:
		return *t.ThreadCount
	case g.ThreadCount > 0:
		return g.ThreadCount
	default:
		return runtime.NumCPU()
	}
}
