// Package scheduler runs file copies on a bounded pool of workers.
//
// A producer feeds tasks into a shared queue, a fixed number of workers copy one file
// at a time and every outcome goes through a single channel to the collector. Each task
// yields exactly one outcome. Failures of one file never stop its siblings; only a
// destination that turned read-only stops the remaining tasks of the run.
package scheduler

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const copyBufferSize = 256 * 1024

// Service defines the interface for the copy scheduler.
type Service interface {
	Run(ctx context.Context, tasks []models.CopyTask, workers int) []models.CopyOutcome
}

// Copier copies a single file. buf is scratch space owned by the calling worker.
type Copier interface {
	Copy(task models.CopyTask, buf []byte) (int64, error)
}

// Impl implements the scheduler Service interface.
type Impl struct {
	copier  Copier
	bufPool sync.Pool
	logger  zerolog.Logger
}

// New creates a new copy scheduler backed by the local filesystem.
func New(logger zerolog.Logger) *Impl {
	return NewWithCopier(logger, &FileCopier{})
}

// NewWithCopier creates a new copy scheduler with a custom copier (for testing).
func NewWithCopier(logger zerolog.Logger, copier Copier) *Impl {
	return &Impl{
		copier: copier,
		bufPool: sync.Pool{
			New: func() any {
				b := make([]byte, copyBufferSize)
				return &b
			},
		},
		logger: logger,
	}
}

// Run copies every task using at most workers goroutines and returns once each task
// has an outcome. Outcomes are in completion order.
func (s *Impl) Run(ctx context.Context, tasks []models.CopyTask, workers int) []models.CopyOutcome {
	outcomes := make([]models.CopyOutcome, 0, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	s.logger.Debug().Int("tasks", len(tasks)).Int("workers", workers).Msg("starting copy workers")

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var g errgroup.Group
	queue := make(chan models.CopyTask, workers*2)
	results := make(chan models.CopyOutcome, workers*2)

	g.Go(func() error {
		defer close(queue)
		for i, task := range tasks {
			select {
			case <-runCtx.Done():
				for _, rest := range tasks[i:] {
					results <- aborted(runCtx, rest)
				}
				return nil
			case queue <- task:
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return s.worker(runCtx, cancel, queue, results)
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			s.logger.Warn().Err(err).Msg("copy run stopped early")
		}
		close(results)
	}()

	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// worker drains the queue until it is closed. Once the run is cancelled the remaining
// tasks are reported as aborted instead of copied.
func (s *Impl) worker(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	queue <-chan models.CopyTask,
	results chan<- models.CopyOutcome,
) error {
	bufPtr := s.bufPool.Get().(*[]byte)
	defer s.bufPool.Put(bufPtr)

	var stopErr error
	for task := range queue {
		if ctx.Err() != nil {
			results <- aborted(ctx, task)
			continue
		}

		n, err := s.copier.Copy(task, *bufPtr)
		if err != nil {
			err = classify(err)
			s.logger.Warn().Err(err).Str("file", task.Source).Msg("copy failed")
		} else {
			s.logger.Debug().Str("file", task.Source).Int64("bytes", n).Msg("copied")
		}
		results <- models.CopyOutcome{Task: task, Bytes: n, Err: err}

		if errors.Is(err, models.ErrDestinationUnwritable) {
			stopErr = err
			cancel(err)
		}
	}
	return stopErr
}

// classify marks a copy error with its class from the error taxonomy.
func classify(err error) error {
	if isReadOnlyFS(err) {
		return errors.Mark(err, models.ErrDestinationUnwritable)
	}
	return errors.Mark(err, models.ErrFileCopyFailed)
}

func aborted(ctx context.Context, task models.CopyTask) models.CopyOutcome {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	// The cause is kept as text only, so an aborted task is not counted under the
	// class of the error that stopped the run.
	err := errors.Mark(errors.Newf("copy of %s not started: %s", task.Source, cause), models.ErrCopyAborted)
	return models.CopyOutcome{Task: task, Err: err}
}
