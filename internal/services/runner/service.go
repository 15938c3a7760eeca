// Package runner drives a complete backup run across the selected targets.
package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/backup"
	"github.com/fgeck/backuprat/internal/services/resolver"
	"github.com/fgeck/backuprat/internal/services/ssh"
	"github.com/fgeck/backuprat/internal/services/telegram"
	"github.com/fgeck/backuprat/internal/services/wol"
	"github.com/rs/zerolog"
)

const notifyTimeout = 30 * time.Second

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context, cfg models.Config, selector string) (*models.RunSummary, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	resolverSvc resolver.Service
	backupSvc   backup.Service
	wolSvc      wol.Service
	sshSvc      ssh.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		resolverSvc: resolver.New(logger),
		backupSvc:   backup.New(logger),
		wolSvc:      wol.New(logger),
		sshSvc:      ssh.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	resolverSvc resolver.Service,
	backupSvc backup.Service,
	wolSvc wol.Service,
	sshSvc ssh.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		resolverSvc: resolverSvc,
		backupSvc:   backupSvc,
		wolSvc:      wolSvc,
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// Run backs up every target matched by selector, one after the other.
// The returned error is set only when the run itself could not proceed; per target
// problems are carried by the summary.
func (s *Impl) Run(ctx context.Context, cfg models.Config, selector string) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		Selector:  selector,
		StartTime: time.Now(),
	}

	targets := s.resolverSvc.Resolve(selector, cfg.Targets)
	if len(targets) == 0 {
		summary.Finalize()
		s.logger.Warn().Str("selector", selector).Msg("no targets selected")
		return summary, nil
	}

	s.logger.Info().
		Str("selector", selector).
		Int("targets", len(targets)).
		Msg("starting backup run")

	var failedStep string
	var runErr error

	defer func() {
		summary.Duration = time.Since(summary.StartTime)
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, summary, failedStep, runErr)
		}
	}()

	if cfg.WOL != nil {
		failedStep = "wol"
		if err := s.runWOL(ctx, cfg.WOL); err != nil {
			runErr = err
			summary.Status = models.StatusPartialFailure
			return summary, err
		}
	}

	failedStep = "backup"
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			runErr = errors.Wrap(err, "run interrupted")
			break
		}
		report := s.backupSvc.Backup(ctx, target, cfg.Global)
		summary.Targets = append(summary.Targets, report)
	}
	summary.Finalize()
	if runErr != nil {
		summary.Status = models.StatusPartialFailure
		return summary, runErr
	}

	if cfg.SSHShutdown != nil {
		if cfg.SSHShutdown.OnlyOnSuccess && summary.Status != models.StatusSuccess {
			s.logger.Warn().Msg("run had failures, leaving destination host running")
		} else {
			failedStep = "ssh_shutdown"
			if err := s.runSSHShutdown(ctx, *cfg.SSHShutdown); err != nil {
				runErr = err
				return summary, err
			}
		}
	}

	failedStep = ""
	totals := summary.Totals()
	s.logger.Info().
		Str("status", summary.Status.String()).
		Int("copied", totals.Copied).
		Int("failed", totals.Failed).
		Dur("duration", time.Since(summary.StartTime)).
		Msg("backup run completed")

	return summary, nil
}

func (s *Impl) runWOL(ctx context.Context, cfg *models.WOLConfig) error {
	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("poll_url", cfg.PollURL).
		Msg("waking destination host")

	result, err := s.wolSvc.Wake(ctx, *cfg)
	if err != nil {
		return errors.Wrap(err, "wake-on-lan failed")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, "wake-on-lan failed")
	}
	if !result.HostReady && cfg.PollURL != "" {
		return errors.New("destination host did not become ready after wake-on-lan")
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("host_ready", result.HostReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("destination host awake")

	return nil
}

func (s *Impl) runSSHShutdown(ctx context.Context, cfg models.SSHShutdownConfig) error {
	s.logger.Info().
		Str("host", cfg.Host).
		Int("delay", cfg.ShutdownDelay).
		Msg("shutting down destination host")

	result, err := s.sshSvc.Shutdown(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "ssh shutdown failed")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, "ssh shutdown failed")
	}

	s.logger.Info().
		Bool("command_run", result.CommandRun).
		Str("output", result.Output).
		Msg("shutdown command sent")

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.Config,
	summary *models.RunSummary,
	failedStep string,
	runErr error,
) {
	// An interrupted run still reports.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	msg := buildMessage(summary, host, failedStep, runErr)

	result, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}

func buildMessage(summary *models.RunSummary, host, failedStep string, runErr error) models.TelegramMessage {
	totals := summary.Totals()
	msg := models.TelegramMessage{
		Success:          runErr == nil && summary.Status == models.StatusSuccess,
		Host:             host,
		Selector:         summary.Selector,
		Status:           summary.Status,
		StartTime:        summary.StartTime,
		Duration:         summary.Duration,
		Targets:          len(summary.Targets),
		FailedTargets:    summary.FailedTargets(),
		FilesScanned:     totals.Scanned,
		FilesCopied:      totals.Copied,
		FilesUnchanged:   totals.SkippedUnchanged,
		FilesIgnored:     totals.SkippedIgnored,
		FilesFailed:      totals.Failed,
		BytesCopied:      totals.BytesCopied,
		SnapshotsRemoved: len(totals.Pruned),
	}

	switch {
	case runErr != nil:
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	case !msg.Success:
		msg.FailedStep = "backup"
		msg.ErrorMessage = describeFailures(summary.Targets)
	}
	return msg
}

// describeFailures names the targets that did not finish cleanly.
func describeFailures(reports []models.TargetReport) string {
	var parts []string
	for _, r := range reports {
		switch {
		case r.Err != nil:
			parts = append(parts, fmt.Sprintf("%s: %v", r.Target, r.Err))
		case r.Failed > 0:
			parts = append(parts, fmt.Sprintf("%s: %d file(s) failed", r.Target, r.Failed))
		}
	}
	return strings.Join(parts, "; ")
}
