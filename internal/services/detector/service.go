// Package detector decides whether a source file has to be copied.
package detector

import (
	"os"
	"time"

	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for change detection.
type Service interface {
	NeedsCopy(target models.Target, src os.FileInfo, dst string) bool
}

// StatFunc allows replacing os.Stat in tests.
type StatFunc func(name string) (os.FileInfo, error)

// Impl implements the detector Service interface.
type Impl struct {
	stat   StatFunc
	logger zerolog.Logger
}

// New creates a new change detector.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		stat:   os.Stat,
		logger: logger,
	}
}

// NewWithStat creates a change detector with a custom stat function (for testing).
func NewWithStat(logger zerolog.Logger, stat StatFunc) *Impl {
	return &Impl{
		stat:   stat,
		logger: logger,
	}
}

// NeedsCopy reports whether src must be copied to dst.
//
// Versioned targets always copy since every run writes a fresh snapshot. Flat targets copy
// when always_copy is set, when dst is missing, when src is newer or when the sizes differ.
func (s *Impl) NeedsCopy(target models.Target, src os.FileInfo, dst string) bool {
	if target.Versioned() || target.AlwaysCopy {
		return true
	}

	info, err := s.stat(dst)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Str("file", dst).Msg("cannot stat destination, copying")
		}
		return true
	}

	if truncate(src.ModTime()).After(truncate(info.ModTime())) {
		return true
	}
	return src.Size() != info.Size()
}

// truncate drops sub-second precision, which not every destination filesystem keeps.
func truncate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
