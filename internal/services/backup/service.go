// Package backup drives one target end to end: walk, filter, decide, copy and prune.
package backup

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/detector"
	"github.com/fgeck/backuprat/internal/services/matcher"
	"github.com/fgeck/backuprat/internal/services/retention"
	"github.com/fgeck/backuprat/internal/services/scheduler"
	"github.com/rs/zerolog"
)

// Service defines the interface for backing up a single target.
type Service interface {
	Backup(ctx context.Context, target models.Target, global models.GlobalSettings) models.TargetReport
}

// Impl implements the backup Service interface.
type Impl struct {
	detectorSvc  detector.Service
	retentionSvc retention.Service
	schedulerSvc scheduler.Service
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a new backup service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		detectorSvc:  detector.New(logger),
		retentionSvc: retention.New(logger),
		schedulerSvc: scheduler.New(logger),
		logger:       logger,
		now:          time.Now,
	}
}

// NewWithServices creates a new backup service with custom services and clock (for testing).
func NewWithServices(
	logger zerolog.Logger,
	detectorSvc detector.Service,
	retentionSvc retention.Service,
	schedulerSvc scheduler.Service,
	now func() time.Time,
) *Impl {
	return &Impl{
		detectorSvc:  detectorSvc,
		retentionSvc: retentionSvc,
		schedulerSvc: schedulerSvc,
		logger:       logger,
		now:          now,
	}
}

// Backup copies the files of target that need copying and applies retention.
// Failures are reported, never returned: file level problems end up in
// report.Failures and problems that stop the target end up in report.Err.
func (s *Impl) Backup(ctx context.Context, target models.Target, global models.GlobalSettings) (report models.TargetReport) {
	start := s.now()
	report = models.TargetReport{
		Target: target.Name(),
		Source: target.SourcePath,
	}
	defer func() {
		report.Duration = s.now().Sub(start)
	}()

	logger := s.logger.With().Str("target", target.Name()).Logger()

	srcInfo, err := os.Stat(target.SourcePath)
	if err != nil {
		report.Err = errors.Mark(errors.Wrapf(err, "source %s", target.SourcePath), models.ErrSourceUnreadable)
		logger.Error().Err(report.Err).Msg("skipping target")
		return report
	}

	if err := checkDestination(target.DestinationRoot); err != nil {
		report.Err = errors.Mark(err, models.ErrDestinationUnwritable)
		logger.Error().Err(report.Err).Msg("skipping target")
		return report
	}

	base := s.retentionSvc.ResolveDestination(target, start)
	report.Destination = base
	created := false
	if target.Versioned() {
		if created, err = s.retentionSvc.Prepare(base); err != nil {
			report.Err = errors.Mark(err, models.ErrDestinationUnwritable)
			logger.Error().Err(report.Err).Msg("skipping target")
			return report
		}
	}

	workers := target.Workers(global)
	logger.Info().
		Str("source", target.SourcePath).
		Str("destination", base).
		Int("keep", target.KeepNum).
		Int("workers", workers).
		Msg("backing up target")

	var tasks []models.CopyTask
	if srcInfo.IsDir() {
		tasks, err = s.planDirectory(ctx, target, base, &report)
		if err != nil {
			report.Err = err
			logger.Error().Err(err).Msg("scanning source failed")
			s.discardSnapshot(target, base, created)
			return report
		}
	} else {
		tasks = s.planFile(target, srcInfo, base, &report)
	}

	for _, outcome := range s.schedulerSvc.Run(ctx, tasks, workers) {
		if outcome.Err != nil {
			report.AddFailure(outcome.Task.Source, outcome.Err)
			if report.Err == nil && errors.Is(outcome.Err, models.ErrDestinationUnwritable) {
				report.Err = outcome.Err
			}
			continue
		}
		report.Copied++
		report.BytesCopied += outcome.Bytes
	}

	if report.Copied == 0 {
		// Nothing new landed, so the existing history stays as it is.
		logger.Debug().Msg("no files copied, skipping retention")
		s.discardSnapshot(target, base, created)
	} else {
		s.prune(ctx, target, &report)
	}

	logger.Info().
		Int("scanned", report.Scanned).
		Int("copied", report.Copied).
		Int("unchanged", report.SkippedUnchanged).
		Int("ignored", report.SkippedIgnored).
		Int("failed", report.Failed).
		Int64("bytes", report.BytesCopied).
		Msg("target completed")

	return report
}

// planDirectory walks the source tree and returns the copy tasks for it. Ignored
// folders are pruned before their children are listed.
func (s *Impl) planDirectory(
	ctx context.Context,
	target models.Target,
	base string,
	report *models.TargetReport,
) ([]models.CopyTask, error) {
	root, err := walkRoot(target.SourcePath)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "resolving %s", target.SourcePath), models.ErrSourceUnreadable)
	}
	rules := matcher.ForTarget(target)

	var tasks []models.CopyTask
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return errors.Mark(errors.Wrapf(walkErr, "reading %s", target.SourcePath), models.ErrSourceUnreadable)
			}
			report.AddFailure(path, errors.Mark(errors.Wrap(walkErr, "reading source"), models.ErrFileCopyFailed))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			report.AddFailure(path, errors.Mark(err, models.ErrFileCopyFailed))
			return nil
		}

		if d.IsDir() {
			if rules.IgnoreFolder(rel) {
				report.FoldersIgnored++
				s.logger.Debug().Str("target", target.Name()).Str("dir", rel).Msg("folder ignored")
				return filepath.SkipDir
			}
			return nil
		}

		if task, ok := s.planEntry(target, rules, path, rel, filepath.Join(base, rel), d, report); ok {
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// planEntry handles a single non-directory entry of the walk.
func (s *Impl) planEntry(
	target models.Target,
	rules matcher.Rules,
	path, rel, dst string,
	d fs.DirEntry,
	report *models.TargetReport,
) (models.CopyTask, bool) {
	info, err := entryInfo(path, d)
	if err != nil {
		report.Scanned++
		report.AddFailure(path, errors.Mark(errors.Wrap(err, "reading source"), models.ErrFileCopyFailed))
		return models.CopyTask{}, false
	}
	if !info.Mode().IsRegular() {
		s.logger.Warn().Str("target", target.Name()).Str("file", rel).Str("mode", info.Mode().String()).Msg("not a regular file, skipping")
		return models.CopyTask{}, false
	}

	report.Scanned++
	if rules.IgnoreFile(d.Name()) {
		report.SkippedIgnored++
		s.logger.Debug().Str("target", target.Name()).Str("file", rel).Msg("file ignored")
		return models.CopyTask{}, false
	}

	if !s.detectorSvc.NeedsCopy(target, info, dst) {
		report.SkippedUnchanged++
		return models.CopyTask{}, false
	}

	return newTask(target, path, dst, info), true
}

// planFile handles a source that is a single file.
func (s *Impl) planFile(target models.Target, info os.FileInfo, base string, report *models.TargetReport) []models.CopyTask {
	report.Scanned++
	if matcher.ForTarget(target).IgnoreFile(info.Name()) {
		report.SkippedIgnored++
		return nil
	}

	dst := filepath.Join(target.DestinationRoot, info.Name())
	if target.Versioned() {
		dst = filepath.Join(base, info.Name())
	}
	report.Destination = dst

	if !s.detectorSvc.NeedsCopy(target, info, dst) {
		report.SkippedUnchanged++
		return nil
	}
	return []models.CopyTask{newTask(target, target.SourcePath, dst, info)}
}

func (s *Impl) prune(ctx context.Context, target models.Target, report *models.TargetReport) {
	if !target.Versioned() {
		return
	}
	result, err := s.retentionSvc.Prune(ctx, target)
	if result != nil {
		report.Pruned = result.Removed
	}
	if err != nil {
		root := s.retentionSvc.SnapshotRoot(target)
		report.AddFailure(root, errors.Wrap(err, "applying retention"))
		s.logger.Warn().Err(err).Str("target", target.Name()).Msg("retention failed")
	}
}

// discardSnapshot removes a snapshot directory this run created without copying any file
// into it, so a failed or empty run does not count toward keep_num. Folders left behind by
// failed copies go with it. A reused snapshot from an earlier run is kept.
func (s *Impl) discardSnapshot(target models.Target, base string, created bool) {
	if !target.Versioned() || !created {
		return
	}
	if err := os.RemoveAll(base); err != nil {
		s.logger.Warn().Err(err).Str("target", target.Name()).Str("dir", base).Msg("removing unused snapshot failed")
		return
	}
	s.logger.Debug().Str("target", target.Name()).Str("dir", base).Msg("removed unused snapshot")
}

func newTask(target models.Target, src, dst string, info os.FileInfo) models.CopyTask {
	return models.CopyTask{
		Source:      src,
		Destination: dst,
		Target:      target.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Mode:        info.Mode(),
	}
}

// walkRoot returns the directory to walk. WalkDir does not follow a symlinked root.
func walkRoot(source string) (string, error) {
	root := filepath.Clean(source)
	info, err := os.Lstat(root)
	if err != nil {
		return "", err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return filepath.EvalSymlinks(root)
	}
	return root, nil
}

// entryInfo returns the file info of a walk entry, following symlinks.
func entryInfo(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return d.Info()
}

// checkDestination verifies the destination root exists and accepts writes. A missing
// root usually means an unmounted drive, so it is never created here.
func checkDestination(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return errors.Wrapf(err, "destination %s is unavailable", root)
	}
	if !info.IsDir() {
		return errors.Newf("destination %s is not a directory", root)
	}
	if err := checkWritable(root); err != nil {
		return errors.Wrapf(err, "destination %s is not writable", root)
	}
	return nil
}
