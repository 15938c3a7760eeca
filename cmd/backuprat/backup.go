package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/resolver"
	"github.com/fgeck/backuprat/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:     "backup [SELECTOR]",
	Aliases: []string{"bu"},
	Short:   "Back up the targets matching SELECTOR",
	Long: `Back up every target matching SELECTOR, one target after the other.

SELECTOR is a target tag or "all" (the default). "all" skips targets marked
optional; naming a tag runs every target carrying it, optional or not.

Workflow:
1. Wake-on-LAN (if configured)
2. Copy new and changed files of each selected target
3. Remove snapshots beyond keep_num
4. SSH shutdown (if configured)
5. Send Telegram notification (if configured)

Exit codes: 0 success, 1 failures occurred, 2 nothing matched SELECTOR.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSelectors,
	RunE:              runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	selector := resolver.SelectAll
	if len(args) == 1 {
		selector = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Str("file", configPath()).Msg("failed to load config")
		return err
	}

	log.Info().
		Str("config", configPath()).
		Str("selector", selector).
		Int("targets", len(cfg.Targets)).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, stopping after in-flight copies")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := runner.New(log.Logger).Run(ctx, *cfg, selector)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	if summary.Status != models.StatusSuccess {
		return &exitError{status: summary.Status}
	}
	return nil
}

// completeSelectors offers "all" and every configured tag.
func completeSelectors(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig()
	if err != nil {
		return []string{resolver.SelectAll}, cobra.ShellCompDirectiveNoFileComp
	}
	return selectors(cfg.Targets), cobra.ShellCompDirectiveNoFileComp
}

func selectors(targets []models.Target) []string {
	seen := map[string]bool{}
	var tags []string
	for _, t := range targets {
		if t.Tag != "" && !seen[t.Tag] {
			seen[t.Tag] = true
			tags = append(tags, t.Tag)
		}
	}
	sort.Strings(tags)
	return append([]string{resolver.SelectAll}, tags...)
}
