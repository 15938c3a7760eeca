// Package retention places each run of a target and removes snapshots beyond keep_num.
package retention

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
)

// SnapshotLayout names snapshot directories. It sorts lexically in time order and
// contains no characters that are illegal in Windows paths.
const SnapshotLayout = "2006-01-02_15-04-05"

// Service defines the interface for retention operations.
type Service interface {
	SnapshotRoot(target models.Target) string
	ResolveDestination(target models.Target, runStart time.Time) string
	Prepare(base string) (bool, error)
	List(ctx context.Context, target models.Target) ([]models.Snapshot, error)
	Prune(ctx context.Context, target models.Target) (*models.PruneResult, error)
}

// Impl implements the retention Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new retention service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// SnapshotRoot is the directory holding everything written for the target.
func (s *Impl) SnapshotRoot(target models.Target) string {
	return filepath.Join(target.DestinationRoot, target.SourceName())
}

// ResolveDestination returns the base directory the current run writes into.
func (s *Impl) ResolveDestination(target models.Target, runStart time.Time) string {
	root := s.SnapshotRoot(target)
	if !target.Versioned() {
		return root
	}
	return filepath.Join(root, SnapshotName(runStart))
}

// Prepare creates the run's base directory and reports whether it had to be created.
// Reusing an existing directory is fine, so two runs within the same second write into
// the same snapshot.
func (s *Impl) Prepare(base string) (bool, error) {
	_, err := os.Stat(base)
	created := os.IsNotExist(err)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return false, errors.Wrapf(err, "creating %s", base)
	}
	return created, nil
}

// List returns the snapshots of a target, oldest first. Entries whose names are not
// snapshot timestamps are ignored and never touched.
func (s *Impl) List(ctx context.Context, target models.Target) ([]models.Snapshot, error) {
	root := s.SnapshotRoot(target)

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading snapshot directory %s", root)
	}

	var snapshots []models.Snapshot
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		ts, ok := ParseSnapshotName(entry.Name())
		if !ok {
			s.logger.Debug().Str("dir", entry.Name()).Msg("not a snapshot, leaving untouched")
			continue
		}
		snapshots = append(snapshots, models.Snapshot{
			Name: entry.Name(),
			Path: filepath.Join(root, entry.Name()),
			Time: ts,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Time.Equal(snapshots[j].Time) {
			return snapshots[i].Name < snapshots[j].Name
		}
		return snapshots[i].Time.Before(snapshots[j].Time)
	})
	return snapshots, nil
}

// Prune deletes the oldest snapshots until at most keep_num remain. Flat targets have
// no snapshots and are left alone.
func (s *Impl) Prune(ctx context.Context, target models.Target) (*models.PruneResult, error) {
	result := &models.PruneResult{}
	if !target.Versioned() {
		return result, nil
	}

	snapshots, err := s.List(ctx, target)
	if err != nil {
		return result, err
	}

	excess := len(snapshots) - target.KeepNum
	if excess <= 0 {
		result.Kept = len(snapshots)
		s.logger.Debug().Str("target", target.Name()).Int("snapshots", len(snapshots)).Msg("nothing to prune")
		return result, nil
	}

	var errs error
	for _, snap := range snapshots[:excess] {
		if err := ctx.Err(); err != nil {
			errs = errors.CombineErrors(errs, err)
			break
		}
		s.logger.Info().Str("target", target.Name()).Str("snapshot", snap.Name).Msg("removing old snapshot")
		if err := os.RemoveAll(snap.Path); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "removing snapshot %s", snap.Path))
			continue
		}
		result.Removed = append(result.Removed, snap.Path)
	}
	result.Kept = len(snapshots) - len(result.Removed)

	s.logger.Info().
		Str("target", target.Name()).
		Int("kept", result.Kept).
		Int("removed", len(result.Removed)).
		Msg("retention applied")

	return result, errs
}

// SnapshotName formats a run start time as a snapshot directory name.
func SnapshotName(t time.Time) string {
	return t.Local().Format(SnapshotLayout)
}

// ParseSnapshotName parses a snapshot directory name back into a local time.
func ParseSnapshotName(name string) (time.Time, bool) {
	t, err := time.ParseInLocation(SnapshotLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
